package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/period"
	"github.com/tutorbase/tutor-api/internal/timetable"
	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type classTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ClassService manages class definitions and their weekly schedules.
type ClassService struct {
	classes   classRepository
	teachers  classTeacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(classes classRepository, teachers classTeacherRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, teachers: teachers, validator: validate, logger: logger}
}

// List returns classes matching the filter with pagination info.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one class by ID.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// ClassRequest carries the mutable fields of a class definition.
type ClassRequest struct {
	Name           string                 `json:"name" validate:"required,min=2,max=200"`
	TeacherID      string                 `json:"teacher_id" validate:"required"`
	OpenedAt       string                 `json:"opened_at" validate:"required"`
	ClosedAt       *string                `json:"closed_at"`
	MonthlyFee     int64                  `json:"monthly_fee" validate:"gte=0"`
	SessionMinutes int                    `json:"session_minutes" validate:"gte=0,lte=600"`
	Slots          []timetable.WeeklySlot `json:"slots"`
}

func (s *ClassService) buildClass(ctx context.Context, req ClassRequest, class *models.Class) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	openedAt, err := period.ParseDate(req.OpenedAt)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid opened_at date, expected YYYY-MM-DD")
	}
	var closedAt *time.Time
	if req.ClosedAt != nil {
		closed, err := period.ParseDate(*req.ClosedAt)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "invalid closed_at date, expected YYYY-MM-DD")
		}
		if closed.Before(openedAt) {
			return appErrors.Clone(appErrors.ErrValidation, "closed_at cannot precede opened_at")
		}
		t := closed.Time()
		closedAt = &t
	}
	for _, slot := range req.Slots {
		if !slot.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "weekly slot has an invalid weekday or time range")
		}
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	class.Name = req.Name
	class.TeacherID = req.TeacherID
	class.OpenedAt = openedAt.Time()
	class.ClosedAt = closedAt
	class.MonthlyFee = req.MonthlyFee
	class.SessionMinutes = req.SessionMinutes
	class.Slots = req.Slots
	return nil
}

// Create validates and persists a new class.
func (s *ClassService) Create(ctx context.Context, req ClassRequest) (*models.Class, error) {
	var class models.Class
	if err := s.buildClass(ctx, req, &class); err != nil {
		return nil, err
	}
	if err := s.classes.Create(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("name", class.Name))
	return &class, nil
}

// Update rewrites an existing class definition.
func (s *ClassService) Update(ctx context.Context, id string, req ClassRequest) (*models.Class, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.buildClass(ctx, req, existing); err != nil {
		return nil, err
	}
	if err := s.classes.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to update class")
	}
	return existing, nil
}

// Delete removes a class definition.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.classes.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}
