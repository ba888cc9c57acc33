package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/period"
	"github.com/tutorbase/tutor-api/internal/repository"
	appErrors "github.com/tutorbase/tutor-api/pkg/errors"
)

type ledgerBuilder interface {
	Ledger(ctx context.Context, req ReconcileRequest) (*LedgerReport, error)
}

type matrixBuilder interface {
	BuildMatrix(ctx context.Context, req MatrixRequest) (*models.AttendanceMatrix, error)
}

type dashboardClassRepository interface {
	ListAll(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, error)
}

type dashboardEnrollmentRepository interface {
	ListCurrentByClasses(ctx context.Context, classIDs []string) ([]models.EnrollmentDetail, error)
}

type dashboardTeacherRepository interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Teacher, error)
}

const dashboardCachePrefix = "dashboard:overview"

// DashboardService assembles the month-scoped overview: tuition totals,
// attendance progress, teacher payroll and a rough profit estimate. The
// snapshot is cached per month and invalidated by the write paths that
// change its inputs.
type DashboardService struct {
	ledger      ledgerBuilder
	matrix      matrixBuilder
	classes     dashboardClassRepository
	enrollments dashboardEnrollmentRepository
	teachers    dashboardTeacherRepository
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(ledger ledgerBuilder, matrix matrixBuilder, classes dashboardClassRepository, enrollments dashboardEnrollmentRepository, teachers dashboardTeacherRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		ledger:      ledger,
		matrix:      matrix,
		classes:     classes,
		enrollments: enrollments,
		teachers:    teachers,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *DashboardService) WithNow(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// Overview returns the cached month snapshot, computing it on a miss.
func (s *DashboardService) Overview(ctx context.Context, month, year int) (*models.DashboardOverview, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	key := repository.MonthKey(dashboardCachePrefix, year, month)
	var cached models.DashboardOverview
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	overview, err := s.compute(ctx, month, year)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, overview, 0); err != nil {
		s.logger.Warn("failed to cache dashboard overview", zap.String("key", key), zap.Error(err))
	}
	return overview, nil
}

// Invalidate drops the cached snapshot for one month. Write paths that
// change payments, attendance or enrollments call this.
func (s *DashboardService) Invalidate(ctx context.Context, month, year int) {
	key := repository.MonthKey(dashboardCachePrefix, year, month)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.String("key", key), zap.Error(err))
	}
}

func (s *DashboardService) compute(ctx context.Context, month, year int) (*models.DashboardOverview, error) {
	start := time.Now()
	report, err := s.ledger.Ledger(ctx, ReconcileRequest{Month: month, Year: year})
	s.metrics.ObserveDBQuery("dashboard_ledger", time.Since(start))
	if err != nil {
		return nil, err
	}

	monthStart, monthEnd := period.MonthRange(year, time.Month(month))
	start = time.Now()
	matrix, err := s.matrix.BuildMatrix(ctx, MatrixRequest{From: monthStart.String(), To: monthEnd.String()})
	s.metrics.ObserveDBQuery("dashboard_matrix", time.Since(start))
	if err != nil {
		return nil, err
	}

	classes, err := s.classes.ListAll(ctx, models.ClassFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	classCountByTeacher := make(map[string]int)
	var activeClassIDs []string
	for _, class := range classes {
		if !period.Overlaps(class.Lifetime(), monthStart, monthEnd) {
			continue
		}
		activeClassIDs = append(activeClassIDs, class.ID)
		if class.TeacherID != "" {
			classCountByTeacher[class.TeacherID]++
		}
	}

	payroll, payrollTotal, err := s.buildPayroll(ctx, classCountByTeacher)
	if err != nil {
		return nil, err
	}

	enrolled := 0
	if len(activeClassIDs) > 0 {
		enrollments, err := s.enrollments.ListCurrentByClasses(ctx, activeClassIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
		}
		students := make(map[string]struct{})
		for _, e := range enrollments {
			students[e.StudentID] = struct{}{}
		}
		enrolled = len(students)
	}

	return &models.DashboardOverview{
		Month:           month,
		Year:            year,
		Tuition:         report.Summary,
		ClassRevenues:   ClassRevenues(report.Lines),
		Attendance:      ComputeAttendanceStats(*matrix),
		Payroll:         payroll,
		PayrollTotal:    payrollTotal,
		ActiveClasses:   len(activeClassIDs),
		EnrolledCount:   enrolled,
		EstimatedProfit: report.Summary.TotalPaid - payrollTotal,
		GeneratedAt:     s.now().UTC(),
	}, nil
}

func (s *DashboardService) buildPayroll(ctx context.Context, classCountByTeacher map[string]int) ([]models.TeacherPayrollLine, int64, error) {
	if len(classCountByTeacher) == 0 {
		return nil, 0, nil
	}
	ids := make([]string, 0, len(classCountByTeacher))
	for id := range classCountByTeacher {
		ids = append(ids, id)
	}
	teachers, err := s.teachers.ListByIDs(ctx, ids)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	lines := make([]models.TeacherPayrollLine, 0, len(teachers))
	var total int64
	for _, teacher := range teachers {
		lines = append(lines, models.TeacherPayrollLine{
			TeacherID:   teacher.ID,
			TeacherName: teacher.FullName,
			Salary:      teacher.MonthlySalary,
			ClassCount:  classCountByTeacher[teacher.ID],
		})
		total += teacher.MonthlySalary
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].TeacherName != lines[j].TeacherName {
			return lines[i].TeacherName < lines[j].TeacherName
		}
		return lines[i].TeacherID < lines[j].TeacherID
	})
	return lines, total, nil
}
