package repository

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/timetable"
)

func newClassMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func mustClock(t *testing.T, s string) timetable.ClockTime {
	t.Helper()
	c, err := timetable.ParseClock(s)
	require.NoError(t, err)
	return c
}

func TestEncodeSlotsRejectsDuplicates(t *testing.T) {
	slots := []timetable.WeeklySlot{
		{Weekday: 1, Start: mustClock(t, "18:00")},
		{Weekday: 1, Start: mustClock(t, "18:00")},
	}
	_, err := EncodeSlots(slots)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestEncodeSlotsRejectsInvalid(t *testing.T) {
	_, err := EncodeSlots([]timetable.WeeklySlot{{Weekday: 7, Start: mustClock(t, "18:00")}})
	require.Error(t, err)
}

func TestDecodeSlotsDropsMalformedEntries(t *testing.T) {
	raw := []byte(`[{"weekday":1,"start":"18:00","end":"19:30"},{"weekday":9,"start":"18:00"},{"weekday":4,"start":"not-a-time"}]`)
	slots := DecodeSlots(raw)
	require.Len(t, slots, 1)
	assert.Equal(t, 1, slots[0].Weekday)
	assert.Equal(t, "18:00", slots[0].Start.String())
	require.NotNil(t, slots[0].End)
	assert.Equal(t, "19:30", slots[0].End.String())
}

func TestDecodeSlotsToleratesGarbage(t *testing.T) {
	assert.Nil(t, DecodeSlots(nil))
	assert.Nil(t, DecodeSlots([]byte("not json")))
}

func TestClassRepositoryFindByIDDecodesSchedule(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "teacher_id", "opened_at", "closed_at", "monthly_fee", "session_minutes", "schedule", "created_at", "updated_at"}).
		AddRow("class-1", "Math 9", "teach-1", now, nil, int64(500000), 90, []byte(`[{"weekday":1,"start":"18:00"}]`), now, now)
	mock.ExpectQuery("SELECT .+ FROM classes c WHERE c.id = ").
		WithArgs("class-1").
		WillReturnRows(rows)

	class, err := repo.FindByID(context.Background(), "class-1")
	require.NoError(t, err)
	assert.Equal(t, "Math 9", class.Name)
	require.Len(t, class.Slots, 1)
	assert.Equal(t, 1, class.Slots[0].Weekday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListActiveOn(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	activeOn := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "teacher_id", "opened_at", "closed_at", "monthly_fee", "session_minutes", "schedule", "created_at", "updated_at", "teacher_name"}).
		AddRow("class-1", "Math 9", "teach-1", now, nil, int64(500000), 90, []byte(`[]`), now, now, "Ms. Lan")
	mock.ExpectQuery(regexp.QuoteMeta("c.opened_at <= $1 AND (c.closed_at IS NULL OR c.closed_at >= $1)")).
		WithArgs(activeOn).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(activeOn).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	classes, total, err := repo.List(context.Background(), models.ClassFilter{ActiveOn: &activeOn})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Ms. Lan", classes[0].TeacherName)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListAllSkipsPagination(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "teacher_id", "opened_at", "closed_at", "monthly_fee", "session_minutes", "schedule", "created_at", "updated_at", "teacher_name"})
	for i := 0; i < 60; i++ {
		rows.AddRow(fmt.Sprintf("class-%d", i), fmt.Sprintf("Class %02d", i), "teach-1",
			now, nil, int64(500000), 90, []byte(`[]`), now, now, "Ms. Lan")
	}
	// Anchored at the end: the statement carries no LIMIT or OFFSET.
	mock.ExpectQuery(`ORDER BY c\.name ASC$`).
		WillReturnRows(rows)

	classes, err := repo.ListAll(context.Background(), models.ClassFilter{})
	require.NoError(t, err)
	assert.Len(t, classes, 60, "every class comes back, not a single page")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListAllAppliesIDFilter(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "teacher_id", "opened_at", "closed_at", "monthly_fee", "session_minutes", "schedule", "created_at", "updated_at", "teacher_name"}).
		AddRow("class-1", "Math 9", "teach-1", now, nil, int64(500000), 90, []byte(`[{"weekday":1,"start":"18:00"}]`), now, now, "Ms. Lan")
	mock.ExpectQuery(regexp.QuoteMeta("c.id IN ($1,$2)")).
		WithArgs("class-1", "class-2").
		WillReturnRows(rows)

	classes, err := repo.ListAll(context.Background(), models.ClassFilter{IDs: []string{"class-1", "class-2"}})
	require.NoError(t, err)
	require.Len(t, classes, 1)
	require.Len(t, classes[0].Slots, 1)
	assert.Equal(t, 1, classes[0].Slots[0].Weekday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCreateEncodesSchedule(t *testing.T) {
	db, mock, cleanup := newClassMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO classes").
		WillReturnResult(sqlmock.NewResult(1, 1))

	class := &models.Class{
		Name:      "Math 9",
		TeacherID: "teach-1",
		OpenedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Slots:     []timetable.WeeklySlot{{Weekday: 1, Start: mustClock(t, "18:00")}},
	}
	require.NoError(t, repo.Create(context.Background(), class))
	assert.NotEmpty(t, class.ID)
	assert.JSONEq(t, `[{"weekday":1,"start":"18:00"}]`, string(class.ScheduleRaw))
	assert.NoError(t, mock.ExpectationsWereMet())
}
