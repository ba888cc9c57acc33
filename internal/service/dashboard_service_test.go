package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/tutor-api/internal/models"
)

type fakeLedgerBuilder struct {
	report *LedgerReport
	err    error
}

func (f *fakeLedgerBuilder) Ledger(_ context.Context, _ ReconcileRequest) (*LedgerReport, error) {
	return f.report, f.err
}

type fakeMatrixBuilder struct {
	matrix *models.AttendanceMatrix
	err    error
}

func (f *fakeMatrixBuilder) BuildMatrix(_ context.Context, _ MatrixRequest) (*models.AttendanceMatrix, error) {
	return f.matrix, f.err
}

type fakePayrollTeacherRepo struct {
	teachers []models.Teacher
}

func (f *fakePayrollTeacherRepo) ListByIDs(_ context.Context, _ []string) ([]models.Teacher, error) {
	return f.teachers, nil
}

func TestDashboardOverviewAggregates(t *testing.T) {
	ledger := &fakeLedgerBuilder{report: &LedgerReport{
		Lines: []models.TuitionLine{
			{ClassID: "class-1", ClassName: "Math 9", Fee: 500000, TuitionStatus: models.TuitionStatusPaid},
			{ClassID: "class-1", ClassName: "Math 9", Fee: 500000, TuitionStatus: models.TuitionStatusUnpaid},
		},
		Summary: models.TuitionSummary{TotalPaid: 500000, TotalUnpaid: 500000},
	}}
	matrix := &fakeMatrixBuilder{matrix: &models.AttendanceMatrix{
		Cells: map[string]models.AttendanceCell{},
	}}

	classes := &fakeMatrixClassRepo{classes: []models.ClassDetail{mathClass(t)}}
	enrollments := &fakeMatrixEnrollmentRepo{enrollments: []models.EnrollmentDetail{
		{Enrollment: models.Enrollment{StudentID: "stu-1", ClassID: "class-1", Status: models.EnrollmentStatusActive}},
		{Enrollment: models.Enrollment{StudentID: "stu-1", ClassID: "class-2", Status: models.EnrollmentStatusTrial}},
	}}
	teachers := &fakePayrollTeacherRepo{teachers: []models.Teacher{
		{ID: "teacher-1", FullName: "Ms. Lan", MonthlySalary: 300000},
	}}

	svc := NewDashboardService(ledger, matrix, classes, enrollments, teachers, nil, nil, nil).
		WithNow(func() time.Time { return time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC) })

	overview, err := svc.Overview(context.Background(), 2, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), overview.Tuition.TotalPaid)
	assert.Equal(t, 1, overview.ActiveClasses)
	assert.Equal(t, 1, overview.EnrolledCount, "same student in two classes counts once")
	require.Len(t, overview.Payroll, 1)
	assert.Equal(t, int64(300000), overview.PayrollTotal)
	assert.Equal(t, int64(200000), overview.EstimatedProfit)
	require.Len(t, overview.ClassRevenues, 1)
	assert.Equal(t, int64(500000), overview.ClassRevenues[0].Revenue)
}

func TestDashboardOverviewRejectsBadMonth(t *testing.T) {
	svc := NewDashboardService(&fakeLedgerBuilder{}, &fakeMatrixBuilder{}, &fakeMatrixClassRepo{}, &fakeMatrixEnrollmentRepo{}, &fakePayrollTeacherRepo{}, nil, nil, nil)
	_, err := svc.Overview(context.Background(), 13, 2024)
	assert.Error(t, err)
	_, err = svc.Overview(context.Background(), 0, 2024)
	assert.Error(t, err)
}
