package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/period"
	"github.com/tutorbase/tutor-api/internal/timetable"
	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
)

type matrixClassRepository interface {
	ListAll(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, error)
}

type matrixEnrollmentRepository interface {
	ListCurrentByClasses(ctx context.Context, classIDs []string) ([]models.EnrollmentDetail, error)
}

type attendanceFactRepository interface {
	ListRange(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceFact, error)
	Upsert(ctx context.Context, fact *models.AttendanceFact) error
	Delete(ctx context.Context, classID, personID string, date time.Time, startTime string) error
}

// AttendanceService builds attendance matrices and owns the mark/unmark
// write path for individual cells.
type AttendanceService struct {
	classes     matrixClassRepository
	enrollments matrixEnrollmentRepository
	facts       attendanceFactRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(classes matrixClassRepository, enrollments matrixEnrollmentRepository, facts attendanceFactRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{classes: classes, enrollments: enrollments, facts: facts, validator: validate, logger: logger}
}

// MatrixRequest scopes a matrix build to a window and optional class set.
type MatrixRequest struct {
	From     string   `json:"from" validate:"required"`
	To       string   `json:"to" validate:"required"`
	ClassIDs []string `json:"class_ids"`
}

// BuildMatrix assembles the expected session grid for each class and
// overlays the recorded facts as a sparse cell map. Classes producing no
// sessions in the window, or with nobody eligible to attend, are dropped
// entirely rather than surfaced as empty grids. This is a pure
// read-and-assemble path: no fact is ever created here.
func (s *AttendanceService) BuildMatrix(ctx context.Context, req MatrixRequest) (*models.AttendanceMatrix, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid matrix query")
	}
	from, err := period.ParseDate(req.From)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
	}
	to, err := period.ParseDate(req.To)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
	}
	if to.Before(from) {
		from, to = to, from
	}

	classes, err := s.classes.ListAll(ctx, models.ClassFilter{IDs: req.ClassIDs})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	if len(classes) == 0 {
		return &models.AttendanceMatrix{Cells: map[string]models.AttendanceCell{}}, nil
	}

	classIDs := make([]string, len(classes))
	for i, c := range classes {
		classIDs[i] = c.ID
	}
	enrollments, err := s.enrollments.ListCurrentByClasses(ctx, classIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	peopleByClass := make(map[string][]models.MatrixPerson)
	for _, e := range enrollments {
		if !e.Status.Enrolled() {
			continue
		}
		peopleByClass[e.ClassID] = append(peopleByClass[e.ClassID], models.MatrixPerson{
			ID:       e.StudentID,
			Kind:     models.PersonKindStudent,
			FullName: e.StudentName,
		})
	}

	matrix := &models.AttendanceMatrix{Cells: map[string]models.AttendanceCell{}}
	var presentClassIDs []string
	for _, class := range classes {
		sessions := timetable.Expand(class.ID, class.Slots, class.Lifetime(), from, to, class.SessionDuration())
		if len(sessions) == 0 {
			continue
		}

		people := make([]models.MatrixPerson, 0, len(peopleByClass[class.ID])+1)
		if class.TeacherID != "" {
			people = append(people, models.MatrixPerson{
				ID:       class.TeacherID,
				Kind:     models.PersonKindTeacher,
				FullName: class.TeacherName,
			})
		}
		people = append(people, peopleByClass[class.ID]...)
		if len(people) == 0 {
			continue
		}

		matrix.Classes = append(matrix.Classes, models.ClassMatrix{
			ClassID:  class.ID,
			Name:     class.Name,
			Sessions: sessions,
			People:   people,
		})
		presentClassIDs = append(presentClassIDs, class.ID)
	}
	if len(matrix.Classes) == 0 {
		return matrix, nil
	}

	expected := make(map[string]struct{})
	for _, grid := range matrix.Classes {
		for _, session := range grid.Sessions {
			for _, person := range grid.People {
				expected[models.CellKey(grid.ClassID, person.ID, session.Date.String(), session.Start.String())] = struct{}{}
			}
		}
	}

	facts, err := s.facts.ListRange(ctx, models.AttendanceFilter{
		ClassIDs: presentClassIDs,
		From:     from.Time(),
		To:       to.Time(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance facts")
	}
	for _, f := range facts {
		key := models.CellKey(f.ClassID, f.PersonID, period.DateOf(f.Date).String(), f.StartTime)
		// Facts for people no longer on the grid or for times outside the
		// expanded schedule must not leak into the matrix.
		if _, ok := expected[key]; !ok {
			continue
		}
		matrix.Cells[key] = models.AttendanceCell{Present: f.Present, Note: f.Note}
	}
	return matrix, nil
}

// MarkRequest identifies one cell and the presence value to record.
type MarkRequest struct {
	ClassID    string  `json:"class_id" validate:"required"`
	PersonID   string  `json:"person_id" validate:"required"`
	PersonKind string  `json:"person_kind" validate:"required"`
	Date       string  `json:"date" validate:"required"`
	StartTime  string  `json:"start_time" validate:"required"`
	Present    bool    `json:"present"`
	Note       *string `json:"note"`
}

// Mark records presence or absence for one cell, overwriting any previous
// mark for the same key.
func (s *AttendanceService) Mark(ctx context.Context, req MarkRequest) (*models.AttendanceFact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark payload")
	}
	kind := models.PersonKind(req.PersonKind)
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "person kind must be STUDENT or TEACHER")
	}
	date, err := period.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	if _, err := timetable.ParseClock(req.StartTime); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}

	fact := &models.AttendanceFact{
		ClassID:    req.ClassID,
		PersonID:   req.PersonID,
		PersonKind: kind,
		Date:       date.Time(),
		StartTime:  req.StartTime,
		Present:    req.Present,
		Note:       req.Note,
	}
	if err := s.facts.Upsert(ctx, fact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	return fact, nil
}

// UnmarkRequest identifies one cell to return to the unrecorded state.
type UnmarkRequest struct {
	ClassID   string `json:"class_id" validate:"required"`
	PersonID  string `json:"person_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
}

// Unmark deletes the fact for one cell. Unrecorded is distinct from marked
// absent, so this is the only way to clear a mistaken mark.
func (s *AttendanceService) Unmark(ctx context.Context, req UnmarkRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unmark payload")
	}
	date, err := period.ParseDate(req.Date)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	if err := s.facts.Delete(ctx, req.ClassID, req.PersonID, date.Time(), req.StartTime); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unmark attendance")
	}
	return nil
}
