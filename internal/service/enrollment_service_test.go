package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/tutor-api/internal/models"
)

type fakeEnrollmentRepo struct {
	byID    map[string]*models.Enrollment
	created []*models.Enrollment
	updates []models.EnrollmentStatus
}

func (f *fakeEnrollmentRepo) List(_ context.Context, _ models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeEnrollmentRepo) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	if e, ok := f.byID[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) Create(_ context.Context, enrollment *models.Enrollment) error {
	f.created = append(f.created, enrollment)
	return nil
}

func (f *fakeEnrollmentRepo) UpdateStatus(_ context.Context, id string, status models.EnrollmentStatus, leftAt *time.Time) error {
	f.updates = append(f.updates, status)
	if e, ok := f.byID[id]; ok {
		e.Status = status
		e.LeftAt = leftAt
	}
	return nil
}

type fakeStudentFinder struct{ missing bool }

func (f *fakeStudentFinder) FindByID(_ context.Context, id string) (*models.Student, error) {
	if f.missing {
		return nil, sql.ErrNoRows
	}
	return &models.Student{ID: id}, nil
}

type fakeClassFinder struct{ missing bool }

func (f *fakeClassFinder) FindByID(_ context.Context, id string) (*models.Class, error) {
	if f.missing {
		return nil, sql.ErrNoRows
	}
	return &models.Class{ID: id}, nil
}

func TestEnrollDefaultsToTrial(t *testing.T) {
	repo := &fakeEnrollmentRepo{}
	svc := NewEnrollmentService(repo, &fakeStudentFinder{}, &fakeClassFinder{}, nil, nil)

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentID:  "stu-1",
		ClassID:    "class-1",
		EnrolledAt: "2024-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusTrial, enrollment.Status)
	assert.Nil(t, enrollment.LeftAt)
	require.Len(t, repo.created, 1)
}

func TestEnrollRejectsLeaveBeforeEnroll(t *testing.T) {
	svc := NewEnrollmentService(&fakeEnrollmentRepo{}, &fakeStudentFinder{}, &fakeClassFinder{}, nil, nil)

	left := "2024-01-15"
	_, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentID:  "stu-1",
		ClassID:    "class-1",
		EnrolledAt: "2024-02-01",
		LeftAt:     &left,
	})
	assert.Error(t, err)

	// Same-day enroll and leave is a valid one-day membership.
	sameDay := "2024-02-01"
	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{
		StudentID:  "stu-1",
		ClassID:    "class-1",
		EnrolledAt: "2024-02-01",
		LeftAt:     &sameDay,
	})
	require.NoError(t, err)
	require.NotNil(t, enrollment.LeftAt)
	assert.Equal(t, enrollment.EnrolledAt, *enrollment.LeftAt)
}

func TestEnrollRequiresExistingStudentAndClass(t *testing.T) {
	svc := NewEnrollmentService(&fakeEnrollmentRepo{}, &fakeStudentFinder{missing: true}, &fakeClassFinder{}, nil, nil)
	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "ghost", ClassID: "class-1", EnrolledAt: "2024-02-01"})
	assert.Error(t, err)

	svc = NewEnrollmentService(&fakeEnrollmentRepo{}, &fakeStudentFinder{}, &fakeClassFinder{missing: true}, nil, nil)
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "stu-1", ClassID: "ghost", EnrolledAt: "2024-02-01"})
	assert.Error(t, err)
}

func TestLeaveStampsDateAndStatus(t *testing.T) {
	repo := &fakeEnrollmentRepo{byID: map[string]*models.Enrollment{
		"enr-1": {
			ID:         "enr-1",
			StudentID:  "stu-1",
			ClassID:    "class-1",
			EnrolledAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			Status:     models.EnrollmentStatusActive,
		},
	}}
	svc := NewEnrollmentService(repo, &fakeStudentFinder{}, &fakeClassFinder{}, nil, nil).
		WithNow(func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) })

	enrollment, err := svc.Leave(context.Background(), "enr-1", LeaveRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusInactive, enrollment.Status)
	require.NotNil(t, enrollment.LeftAt)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *enrollment.LeftAt)

	_, err = svc.Leave(context.Background(), "enr-1", LeaveRequest{LeftAt: "2023-12-01"})
	assert.Error(t, err, "leave date before enrollment start is rejected")

	_, err = svc.Leave(context.Background(), "missing", LeaveRequest{})
	assert.Error(t, err)
}

func TestUpdateStatusIsIdempotent(t *testing.T) {
	repo := &fakeEnrollmentRepo{byID: map[string]*models.Enrollment{
		"enr-1": {
			ID:         "enr-1",
			EnrolledAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			Status:     models.EnrollmentStatusActive,
		},
	}}
	svc := NewEnrollmentService(repo, &fakeStudentFinder{}, &fakeClassFinder{}, nil, nil)

	enrollment, err := svc.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Empty(t, repo.updates, "no write when the status is unchanged")

	enrollment, err = svc.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusInactive)
	require.NoError(t, err)
	assert.NotNil(t, enrollment.LeftAt, "deactivating stamps a leave date")

	enrollment, err = svc.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatusActive)
	require.NoError(t, err)
	assert.Nil(t, enrollment.LeftAt, "re-activating clears the leave date")

	_, err = svc.UpdateStatus(context.Background(), "enr-1", models.EnrollmentStatus("PAUSED"))
	assert.Error(t, err)
}
