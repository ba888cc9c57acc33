package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/tutorbase/tutor-api/internal/period"
	"github.com/tutorbase/tutor-api/internal/timetable"
)

// Class is a recurring course with a bounded lifetime. The weekly schedule is
// stored as JSONB and decoded into Slots at the repository boundary; malformed
// entries are dropped there so the reconciliation engine never sees them.
type Class struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	TeacherID      string         `db:"teacher_id" json:"teacher_id"`
	OpenedAt       time.Time      `db:"opened_at" json:"opened_at"`
	ClosedAt       *time.Time     `db:"closed_at" json:"closed_at,omitempty"`
	MonthlyFee     int64          `db:"monthly_fee" json:"monthly_fee"`
	SessionMinutes int            `db:"session_minutes" json:"session_minutes"`
	ScheduleRaw    types.JSONText `db:"schedule" json:"-"`
	Slots          []timetable.WeeklySlot `db:"-" json:"slots"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Lifetime returns the class validity window with a nil end for open-ended
// classes.
func (c Class) Lifetime() period.Range {
	return period.NewRange(c.OpenedAt, c.ClosedAt)
}

// SessionDuration returns the default session length used when a slot has no
// explicit end time.
func (c Class) SessionDuration() time.Duration {
	if c.SessionMinutes <= 0 {
		return 90 * time.Minute
	}
	return time.Duration(c.SessionMinutes) * time.Minute
}

// ClassDetail enriches Class with teacher info for list views.
type ClassDetail struct {
	Class
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

// ClassFilter captures listing criteria. ActiveOn keeps only classes whose
// lifetime contains the given date.
type ClassFilter struct {
	IDs       []string
	TeacherID string
	Search    string
	ActiveOn  *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
