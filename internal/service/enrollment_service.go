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
	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, leftAt *time.Time) error
}

type enrollmentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrollmentClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// EnrollmentService manages student membership in classes.
type EnrollmentService struct {
	enrollments enrollmentRepository
	students    enrollmentStudentRepository
	classes     enrollmentClassRepository
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs the enrollment service.
func NewEnrollmentService(enrollments enrollmentRepository, students enrollmentStudentRepository, classes enrollmentClassRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		students:    students,
		classes:     classes,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *EnrollmentService) WithNow(now func() time.Time) *EnrollmentService {
	s.now = now
	return s
}

// List returns enrollment details matching the filter plus the total count.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	details, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return details, total, nil
}

// EnrollRequest creates a new enrollment. Status defaults to TRIAL.
type EnrollRequest struct {
	StudentID  string  `json:"student_id" validate:"required"`
	ClassID    string  `json:"class_id" validate:"required"`
	EnrolledAt string  `json:"enrolled_at" validate:"required"`
	LeftAt     *string `json:"left_at"`
	Status     string  `json:"status"`
}

// Enroll creates an enrollment after checking both sides exist and the
// dates are coherent. A leave date before the enroll date is rejected; the
// two being equal is a valid one-day membership.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	enrolledAt, err := period.ParseDate(req.EnrolledAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid enrolled_at date, expected YYYY-MM-DD")
	}
	var leftAt *time.Time
	if req.LeftAt != nil {
		left, err := period.ParseDate(*req.LeftAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid left_at date, expected YYYY-MM-DD")
		}
		if left.Before(enrolledAt) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "left_at cannot precede enrolled_at")
		}
		t := left.Time()
		leftAt = &t
	}

	status := models.EnrollmentStatusTrial
	if req.Status != "" {
		status = models.EnrollmentStatus(req.Status)
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "status must be TRIAL, ACTIVE or INACTIVE")
		}
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	enrollment := &models.Enrollment{
		StudentID:  req.StudentID,
		ClassID:    req.ClassID,
		EnrolledAt: enrolledAt.Time(),
		LeftAt:     leftAt,
		Status:     status,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	s.logger.Info("enrollment created",
		zap.String("student_id", enrollment.StudentID),
		zap.String("class_id", enrollment.ClassID),
		zap.String("status", string(enrollment.Status)))
	return enrollment, nil
}

// LeaveRequest closes an enrollment.
type LeaveRequest struct {
	LeftAt string `json:"left_at"`
}

// Leave marks the enrollment INACTIVE and stamps the leave date. An empty
// left_at defaults to today.
func (s *EnrollmentService) Leave(ctx context.Context, id string, req LeaveRequest) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	leftAt := period.DateOf(s.now())
	if req.LeftAt != "" {
		leftAt, err = period.ParseDate(req.LeftAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid left_at date, expected YYYY-MM-DD")
		}
	}
	if leftAt.Before(period.DateOf(enrollment.EnrolledAt)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "left_at cannot precede enrolled_at")
	}

	t := leftAt.Time()
	if err := s.enrollments.UpdateStatus(ctx, id, models.EnrollmentStatusInactive, &t); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close enrollment")
	}
	enrollment.Status = models.EnrollmentStatusInactive
	enrollment.LeftAt = &t
	return enrollment, nil
}

// UpdateStatus changes an enrollment's status directly. Moving to INACTIVE
// without a leave date stamps today so the history stays bounded.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) (*models.Enrollment, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be TRIAL, ACTIVE or INACTIVE")
	}
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status == status {
		return enrollment, nil
	}

	leftAt := enrollment.LeftAt
	if status == models.EnrollmentStatusInactive && leftAt == nil {
		t := period.DateOf(s.now()).Time()
		leftAt = &t
	}
	if status.Enrolled() {
		leftAt = nil
	}
	if err := s.enrollments.UpdateStatus(ctx, id, status, leftAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	enrollment.Status = status
	enrollment.LeftAt = leftAt
	return enrollment, nil
}
