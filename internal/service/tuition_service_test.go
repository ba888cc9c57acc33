package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/repository"
)

type fakeTuitionClassRepo struct {
	classes []models.ClassDetail
}

func (f *fakeTuitionClassRepo) ListAll(_ context.Context, _ models.ClassFilter) ([]models.ClassDetail, error) {
	return f.classes, nil
}

type fakeTuitionEnrollmentRepo struct {
	enrollments []models.EnrollmentDetail
	byPair      map[string]*models.Enrollment
	updates     []string
	lastLeftAt  *time.Time
}

func (f *fakeTuitionEnrollmentRepo) ListAll(_ context.Context, _ models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	return f.enrollments, nil
}

func (f *fakeTuitionEnrollmentRepo) FindByStudentAndClass(_ context.Context, studentID, classID string) (*models.Enrollment, error) {
	if e, ok := f.byPair[studentID+"|"+classID]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTuitionEnrollmentRepo) UpdateStatus(_ context.Context, id string, status models.EnrollmentStatus, leftAt *time.Time) error {
	f.updates = append(f.updates, id)
	f.lastLeftAt = leftAt
	for _, e := range f.byPair {
		if e.ID == id {
			e.Status = status
			e.LeftAt = leftAt
		}
	}
	return nil
}

type fakePaymentRepo struct {
	facts     map[string]*models.PaymentFact
	created   []*models.PaymentFact
	createErr error
	marked    int
}

func (f *fakePaymentRepo) List(_ context.Context, filter models.PaymentFilter) ([]models.PaymentFact, error) {
	var out []models.PaymentFact
	for _, fact := range f.facts {
		if fact.Month == filter.Month && fact.Year == filter.Year {
			out = append(out, *fact)
		}
	}
	return out, nil
}

func (f *fakePaymentRepo) Find(_ context.Context, studentID, classID string, month, year int) (*models.PaymentFact, error) {
	for _, fact := range f.facts {
		if fact.StudentID == studentID && fact.ClassID == classID && fact.Month == month && fact.Year == year {
			copied := *fact
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakePaymentRepo) FindByID(_ context.Context, id string) (*models.PaymentFact, error) {
	if fact, ok := f.facts[id]; ok {
		copied := *fact
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakePaymentRepo) Create(_ context.Context, fact *models.PaymentFact) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, fact)
	return nil
}

func (f *fakePaymentRepo) MarkPaid(_ context.Context, id string, paidAt time.Time, amount *int64) error {
	f.marked++
	if fact, ok := f.facts[id]; ok {
		fact.Paid = true
		fact.PaidAt = &paidAt
		if amount != nil {
			fact.Amount = amount
		}
	}
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ledgerFixture(t *testing.T) (*fakeTuitionClassRepo, *fakeTuitionEnrollmentRepo, *fakePaymentRepo) {
	t.Helper()
	mathEnd := date(2024, 5, 31)
	classes := &fakeTuitionClassRepo{classes: []models.ClassDetail{
		{Class: models.Class{ID: "math", Name: "Toán 9", OpenedAt: date(2024, 1, 1), ClosedAt: &mathEnd, MonthlyFee: 500000}},
		{Class: models.Class{ID: "eng", Name: "Tiếng Anh", OpenedAt: date(2024, 1, 1), MonthlyFee: 450000}},
	}}
	left := date(2024, 3, 10)
	enrollments := &fakeTuitionEnrollmentRepo{enrollments: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "e1", StudentID: "s1", ClassID: "math", EnrolledAt: date(2024, 1, 15), Status: models.EnrollmentStatusActive},
			StudentName: "Nguyễn Văn An", StudentPhone: "0901234567"},
		{Enrollment: models.Enrollment{ID: "e2", StudentID: "s2", ClassID: "math", EnrolledAt: date(2024, 2, 20), Status: models.EnrollmentStatusTrial},
			StudentName: "Trần Thị Bình", StudentPhone: "0907654321"},
		{Enrollment: models.Enrollment{ID: "e3", StudentID: "s1", ClassID: "eng", EnrolledAt: date(2024, 1, 1), LeftAt: &left, Status: models.EnrollmentStatusInactive},
			StudentName: "Nguyễn Văn An", StudentPhone: "0901234567"},
	}}
	amount := int64(480000)
	paidAt := date(2024, 2, 5)
	payments := &fakePaymentRepo{facts: map[string]*models.PaymentFact{
		"p1": {ID: "p1", StudentID: "s1", ClassID: "math", Month: 2, Year: 2024, Amount: &amount, Paid: true, PaidAt: &paidAt},
		"p2": {ID: "p2", StudentID: "s2", ClassID: "math", Month: 2, Year: 2024, Paid: false},
	}}
	return classes, enrollments, payments
}

func TestReconcileClassifiesLines(t *testing.T) {
	classes, enrollments, payments := ledgerFixture(t)
	svc := NewTuitionService(classes, enrollments, payments, nil, nil)

	lines, err := svc.Reconcile(context.Background(), ReconcileRequest{Month: 2, Year: 2024})
	require.NoError(t, err)
	require.Len(t, lines, 3)

	byEnrollment := make(map[string]models.TuitionLine)
	for _, l := range lines {
		byEnrollment[l.EnrollmentID] = l
	}

	paid := byEnrollment["e1"]
	assert.Equal(t, models.TuitionStatusPaid, paid.TuitionStatus)
	assert.Equal(t, int64(480000), paid.Fee, "recorded amount overrides the class fee")
	require.NotNil(t, paid.Payment)

	unpaid := byEnrollment["e2"]
	assert.Equal(t, models.TuitionStatusUnpaid, unpaid.TuitionStatus)
	assert.Equal(t, int64(500000), unpaid.Fee, "fee falls back to the class monthly fee")

	notCreated := byEnrollment["e3"]
	assert.Equal(t, models.TuitionStatusNotCreated, notCreated.TuitionStatus)
	assert.Equal(t, int64(450000), notCreated.Fee)
	assert.Nil(t, notCreated.Payment)
}

func TestReconcileWindowEdges(t *testing.T) {
	classes, enrollments, payments := ledgerFixture(t)
	svc := NewTuitionService(classes, enrollments, payments, nil, nil)

	// June 2024: the math class closed May 31, the english enrollment left
	// March 10. Nothing overlaps.
	lines, err := svc.Reconcile(context.Background(), ReconcileRequest{Month: 6, Year: 2024})
	require.NoError(t, err)
	assert.Empty(t, lines)

	// March 2024: the english enrollment left on March 10, which still
	// overlaps the month.
	lines, err = svc.Reconcile(context.Background(), ReconcileRequest{Month: 3, Year: 2024})
	require.NoError(t, err)
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.EnrollmentID)
	}
	assert.Contains(t, ids, "e3")

	// January 2024: e2 enrolled February 20, so it is absent.
	lines, err = svc.Reconcile(context.Background(), ReconcileRequest{Month: 1, Year: 2024})
	require.NoError(t, err)
	for _, l := range lines {
		assert.NotEqual(t, "e2", l.EnrollmentID)
	}
}

func TestReconcileExcludesClassClosedBeforeEnrollment(t *testing.T) {
	closed := date(2024, 1, 31)
	classes := &fakeTuitionClassRepo{classes: []models.ClassDetail{
		{Class: models.Class{ID: "old", Name: "Closed class", OpenedAt: date(2023, 9, 1), ClosedAt: &closed, MonthlyFee: 400000}},
	}}
	// Open-ended enrollment that starts after the class already closed.
	enrollments := &fakeTuitionEnrollmentRepo{enrollments: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{ID: "e9", StudentID: "s9", ClassID: "old", EnrolledAt: date(2024, 2, 10), Status: models.EnrollmentStatusActive},
			StudentName: "Lê Văn Chín"},
	}}
	svc := NewTuitionService(classes, enrollments, &fakePaymentRepo{facts: map[string]*models.PaymentFact{}}, nil, nil)

	lines, err := svc.Reconcile(context.Background(), ReconcileRequest{Month: 2, Year: 2024})
	require.NoError(t, err)
	assert.Empty(t, lines, "a class that closed before the enrollment began yields no line")
}

func TestReconcileFiltersAreConjunctiveAndDiacriticInsensitive(t *testing.T) {
	classes, enrollments, payments := ledgerFixture(t)
	svc := NewTuitionService(classes, enrollments, payments, nil, nil)

	lines, err := svc.Reconcile(context.Background(), ReconcileRequest{Month: 2, Year: 2024, Student: "nguyen van"})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, "s1", l.StudentID)
	}

	// Phone digits match the student filter too.
	lines, err = svc.Reconcile(context.Background(), ReconcileRequest{Month: 2, Year: 2024, Student: "0907"})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "s2", lines[0].StudentID)

	lines, err = svc.Reconcile(context.Background(), ReconcileRequest{Month: 2, Year: 2024, Subject: "toan"})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	lines, err = svc.Reconcile(context.Background(), ReconcileRequest{Month: 2, Year: 2024, Subject: "toan", Status: "TRIAL"})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "e2", lines[0].EnrollmentID)

	_, err = svc.Reconcile(context.Background(), ReconcileRequest{Month: 2, Year: 2024, Status: "PAUSED"})
	assert.Error(t, err)
}

func TestLedgerSortsAndSummarises(t *testing.T) {
	classes, enrollments, payments := ledgerFixture(t)
	svc := NewTuitionService(classes, enrollments, payments, nil, nil)

	report, err := svc.Ledger(context.Background(), ReconcileRequest{Month: 2, Year: 2024})
	require.NoError(t, err)
	require.Len(t, report.Lines, 3)
	assert.Equal(t, "Tiếng Anh", report.Lines[0].ClassName)
	assert.Equal(t, "Nguyễn Văn An", report.Lines[1].StudentName)
	assert.Equal(t, "Trần Thị Bình", report.Lines[2].StudentName)

	assert.Equal(t, int64(480000), report.Summary.TotalPaid)
	assert.Equal(t, int64(500000), report.Summary.TotalUnpaid)
	assert.Equal(t, 1, report.Summary.TotalNotCreated)
}

func TestCreatePaymentRejectsDuplicates(t *testing.T) {
	classes, enrollments, payments := ledgerFixture(t)
	svc := NewTuitionService(classes, enrollments, payments, nil, nil)

	_, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		StudentID: "s1", ClassID: "math", Month: 2, Year: 2024,
	})
	assert.Error(t, err, "pre-check catches the existing fact")

	fact, err := svc.CreatePayment(context.Background(), CreatePaymentRequest{
		StudentID: "s1", ClassID: "math", Month: 3, Year: 2024, Paid: true,
	})
	require.NoError(t, err)
	assert.True(t, fact.Paid)
	assert.NotNil(t, fact.PaidAt)

	// The database constraint remains the backstop under concurrency.
	payments.createErr = repository.ErrDuplicatePayment
	_, err = svc.CreatePayment(context.Background(), CreatePaymentRequest{
		StudentID: "s2", ClassID: "eng", Month: 3, Year: 2024,
	})
	assert.Error(t, err)
}

func TestConfirmPaymentPromotesTrial(t *testing.T) {
	classes, enrollments, payments := ledgerFixture(t)
	enrollments.byPair = map[string]*models.Enrollment{
		"s2|math": {ID: "e2", StudentID: "s2", ClassID: "math", Status: models.EnrollmentStatusTrial},
	}
	fixed := date(2024, 2, 25)
	svc := NewTuitionService(classes, enrollments, payments, nil, nil).
		WithNow(func() time.Time { return fixed })

	fact, err := svc.ConfirmPayment(context.Background(), "p2", ConfirmPaymentRequest{Activate: true})
	require.NoError(t, err)
	assert.True(t, fact.Paid)
	require.NotNil(t, fact.PaidAt)
	assert.Equal(t, fixed, *fact.PaidAt)
	assert.Equal(t, models.EnrollmentStatusActive, enrollments.byPair["s2|math"].Status)
	require.Len(t, enrollments.updates, 1)

	// Re-confirming is a no-op for both the fact and the enrollment.
	before := payments.marked
	_, err = svc.ConfirmPayment(context.Background(), "p2", ConfirmPaymentRequest{Activate: true})
	require.NoError(t, err)
	assert.Equal(t, before, payments.marked)
	assert.Len(t, enrollments.updates, 1, "already-active enrollment is untouched")
}

func TestConfirmPaymentReactivatesInactiveAndClearsLeaveDate(t *testing.T) {
	classes, enrollments, payments := ledgerFixture(t)
	left := date(2024, 1, 20)
	enrollments.byPair = map[string]*models.Enrollment{
		"s2|math": {ID: "e2", StudentID: "s2", ClassID: "math", Status: models.EnrollmentStatusInactive, LeftAt: &left},
	}
	svc := NewTuitionService(classes, enrollments, payments, nil, nil)

	_, err := svc.ConfirmPayment(context.Background(), "p2", ConfirmPaymentRequest{Activate: true})
	require.NoError(t, err)

	promoted := enrollments.byPair["s2|math"]
	assert.Equal(t, models.EnrollmentStatusActive, promoted.Status)
	assert.Nil(t, promoted.LeftAt, "returning student loses the stamped leave date")
	require.Len(t, enrollments.updates, 1)
	assert.Nil(t, enrollments.lastLeftAt)
}

func TestConfirmPaymentWithoutActivateLeavesEnrollment(t *testing.T) {
	classes, enrollments, payments := ledgerFixture(t)
	enrollments.byPair = map[string]*models.Enrollment{
		"s2|math": {ID: "e2", StudentID: "s2", ClassID: "math", Status: models.EnrollmentStatusTrial},
	}
	svc := NewTuitionService(classes, enrollments, payments, nil, nil)

	_, err := svc.ConfirmPayment(context.Background(), "p2", ConfirmPaymentRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusTrial, enrollments.byPair["s2|math"].Status)
	assert.Empty(t, enrollments.updates)

	_, err = svc.ConfirmPayment(context.Background(), "missing", ConfirmPaymentRequest{})
	assert.Error(t, err)
}
