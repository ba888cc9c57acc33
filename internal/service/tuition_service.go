package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/period"
	"github.com/tutorbase/tutor-api/internal/repository"
	"github.com/tutorbase/tutor-api/internal/textutil"
	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
)

type tuitionClassRepository interface {
	ListAll(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, error)
}

type tuitionEnrollmentRepository interface {
	ListAll(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
	FindByStudentAndClass(ctx context.Context, studentID, classID string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, leftAt *time.Time) error
}

type paymentFactRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentFact, error)
	Find(ctx context.Context, studentID, classID string, month, year int) (*models.PaymentFact, error)
	FindByID(ctx context.Context, id string) (*models.PaymentFact, error)
	Create(ctx context.Context, fact *models.PaymentFact) error
	MarkPaid(ctx context.Context, id string, paidAt time.Time, amount *int64) error
}

// TuitionService reconciles enrollments against payment facts for a queried
// month and owns the two write paths: payment creation and the confirm-driven
// trial promotion.
type TuitionService struct {
	classes     tuitionClassRepository
	enrollments tuitionEnrollmentRepository
	payments    paymentFactRepository
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewTuitionService constructs the tuition service.
func NewTuitionService(classes tuitionClassRepository, enrollments tuitionEnrollmentRepository, payments paymentFactRepository, validate *validator.Validate, logger *zap.Logger) *TuitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TuitionService{
		classes:     classes,
		enrollments: enrollments,
		payments:    payments,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ReconcileRequest scopes a ledger query. Month and year arrive pre-clamped
// from the handler boundary. Filters are conjunctive.
type ReconcileRequest struct {
	Month   int    `json:"month" validate:"min=1,max=12"`
	Year    int    `json:"year" validate:"min=1"`
	Student string `json:"student"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
}

// Reconcile produces one ledger line per (student, class) enrollment pair
// overlapping the queried month. No output order is guaranteed; callers
// sort via SortLines for presentation.
func (s *TuitionService) Reconcile(ctx context.Context, req ReconcileRequest) ([]models.TuitionLine, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ledger query")
	}

	var statusFilter *models.EnrollmentStatus
	if req.Status != "" {
		st := models.EnrollmentStatus(req.Status)
		if !st.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status filter")
		}
		statusFilter = &st
	}

	classes, err := s.classes.ListAll(ctx, models.ClassFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	classByID := make(map[string]models.ClassDetail, len(classes))
	for _, c := range classes {
		classByID[c.ID] = c
	}

	enrollments, err := s.enrollments.ListAll(ctx, models.EnrollmentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	facts, err := s.payments.List(ctx, models.PaymentFilter{Month: req.Month, Year: req.Year})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment facts")
	}
	factByKey := make(map[string]models.PaymentFact, len(facts))
	for _, f := range facts {
		factByKey[f.StudentID+"|"+f.ClassID] = f
	}

	monthStart, monthEnd := period.MonthRange(req.Year, time.Month(req.Month))

	var lines []models.TuitionLine
	for _, e := range enrollments {
		class, ok := classByID[e.ClassID]
		if !ok {
			// enrollment references a class that no longer exists
			continue
		}

		start := period.DateOf(e.EnrolledAt)
		var leftAt *period.Date
		if e.LeftAt != nil {
			d := period.DateOf(*e.LeftAt)
			leftAt = &d
		}
		classEnd := class.Lifetime().End
		effEnd := period.EffectiveEnd(leftAt, classEnd)

		// A class that closed before the enrollment even began produces
		// nothing, even when the leave date is unset.
		if effEnd != nil && effEnd.Before(start) {
			continue
		}
		if !period.Overlaps(period.Range{Start: start, End: effEnd}, monthStart, monthEnd) {
			continue
		}

		if statusFilter != nil && e.Status != *statusFilter {
			continue
		}
		if req.Student != "" && !textutil.ContainsFold(e.StudentName, req.Student) && !textutil.ContainsFold(e.StudentPhone, req.Student) {
			continue
		}
		if req.Subject != "" && !textutil.ContainsFold(class.Name, req.Subject) {
			continue
		}

		line := models.TuitionLine{
			EnrollmentID: e.ID,
			StudentID:    e.StudentID,
			StudentName:  e.StudentName,
			StudentPhone: e.StudentPhone,
			ClassID:      e.ClassID,
			ClassName:    class.Name,
			Month:        req.Month,
			Year:         req.Year,
			Status:       e.Status,
			Fee:          class.MonthlyFee,
		}
		if fact, ok := factByKey[e.StudentID+"|"+e.ClassID]; ok {
			f := fact
			line.Payment = &f
			if f.Amount != nil {
				line.Fee = *f.Amount
			}
			if f.Paid {
				line.TuitionStatus = models.TuitionStatusPaid
			} else {
				line.TuitionStatus = models.TuitionStatusUnpaid
			}
		} else {
			line.TuitionStatus = models.TuitionStatusNotCreated
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// SortLines orders ledger lines by class name then student name, the
// presentation order used by handlers and exports.
func SortLines(lines []models.TuitionLine) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ClassName != lines[j].ClassName {
			return lines[i].ClassName < lines[j].ClassName
		}
		if lines[i].StudentName != lines[j].StudentName {
			return lines[i].StudentName < lines[j].StudentName
		}
		return lines[i].EnrollmentID < lines[j].EnrollmentID
	})
}

// CreatePaymentRequest describes a new payment fact.
type CreatePaymentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Month     int    `json:"month" validate:"min=1,max=12"`
	Year      int    `json:"year" validate:"min=1"`
	Amount    *int64 `json:"amount" validate:"omitempty,min=0"`
	Paid      bool   `json:"paid"`
}

// CreatePayment records a payment fact for one (student, class, month, year)
// key. The existence pre-check is a fast path only; the database unique
// constraint remains the source of truth under concurrent writers, and a
// violation surfaces as the same conflict.
func (s *TuitionService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*models.PaymentFact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	if existing, err := s.payments.Find(ctx, req.StudentID, req.ClassID, req.Month, req.Year); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicatePayment, "")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing payment")
	}

	fact := &models.PaymentFact{
		StudentID: req.StudentID,
		ClassID:   req.ClassID,
		Month:     req.Month,
		Year:      req.Year,
		Amount:    req.Amount,
		Paid:      req.Paid,
	}
	if req.Paid {
		now := s.now()
		fact.PaidAt = &now
	}
	if err := s.payments.Create(ctx, fact); err != nil {
		if errors.Is(err, repository.ErrDuplicatePayment) {
			return nil, appErrors.Clone(appErrors.ErrDuplicatePayment, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
	}
	s.logger.Info("payment fact created",
		zap.String("payment_id", fact.ID),
		zap.String("student_id", fact.StudentID),
		zap.String("class_id", fact.ClassID),
		zap.Int("month", fact.Month),
		zap.Int("year", fact.Year))
	return fact, nil
}

// ConfirmPaymentRequest carries the explicit staff decision attached to a
// payment confirmation.
type ConfirmPaymentRequest struct {
	Amount   *int64 `json:"amount" validate:"omitempty,min=0"`
	Activate bool   `json:"activate"`
}

// ConfirmPayment marks a payment fact as paid and, when the caller asks for
// it, promotes the matching trial or inactive enrollment to active. The
// promotion never happens as a side effect of payment creation; it requires
// this explicit confirmation, and re-confirming an already-active enrollment
// is a no-op.
func (s *TuitionService) ConfirmPayment(ctx context.Context, paymentID string, req ConfirmPaymentRequest) (*models.PaymentFact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}

	fact, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	if !fact.Paid {
		paidAt := s.now()
		if err := s.payments.MarkPaid(ctx, fact.ID, paidAt, req.Amount); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm payment")
		}
		fact.Paid = true
		fact.PaidAt = &paidAt
		if req.Amount != nil {
			fact.Amount = req.Amount
		}
	}

	if req.Activate {
		if err := s.promoteEnrollment(ctx, fact.StudentID, fact.ClassID); err != nil {
			return nil, err
		}
	}
	return fact, nil
}

// promoteEnrollment applies the trial/inactive to active edge. Idempotent:
// an already-active enrollment is left untouched.
func (s *TuitionService) promoteEnrollment(ctx context.Context, studentID, classID string) error {
	enrollment, err := s.enrollments.FindByStudentAndClass(ctx, studentID, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no enrollment found for this payment")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentStatusActive {
		return nil
	}
	// Moving back to active clears any stamped leave date, so a returning
	// student is visible to ledgers and matrices again.
	if err := s.enrollments.UpdateStatus(ctx, enrollment.ID, models.EnrollmentStatusActive, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate enrollment")
	}
	s.logger.Info("enrollment promoted to active",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", studentID),
		zap.String("class_id", classID))
	return nil
}

// WithNow overrides the clock, primarily for tests.
func (s *TuitionService) WithNow(now func() time.Time) *TuitionService {
	if now != nil {
		s.now = now
	}
	return s
}

// LedgerReport bundles sorted lines with their summary for the handler.
type LedgerReport struct {
	Lines   []models.TuitionLine  `json:"lines"`
	Summary models.TuitionSummary `json:"summary"`
}

// Ledger reconciles, sorts and summarises in one call.
func (s *TuitionService) Ledger(ctx context.Context, req ReconcileRequest) (*LedgerReport, error) {
	lines, err := s.Reconcile(ctx, req)
	if err != nil {
		return nil, err
	}
	SortLines(lines)
	if lines == nil {
		lines = []models.TuitionLine{}
	}
	return &LedgerReport{Lines: lines, Summary: Summarize(lines)}, nil
}
