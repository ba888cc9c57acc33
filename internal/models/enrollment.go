package models

import (
	"time"

	"github.com/tutorbase/tutor-api/internal/period"
)

// EnrollmentStatus represents the lifecycle of an enrollment. TRIAL and
// ACTIVE count as currently enrolled; INACTIVE does not.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusTrial    EnrollmentStatus = "TRIAL"
	EnrollmentStatusActive   EnrollmentStatus = "ACTIVE"
	EnrollmentStatusInactive EnrollmentStatus = "INACTIVE"
)

// Valid reports whether the status is a supported value.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusTrial, EnrollmentStatusActive, EnrollmentStatusInactive:
		return true
	default:
		return false
	}
}

// Enrolled reports whether the status counts as currently enrolled.
func (s EnrollmentStatus) Enrolled() bool {
	return s == EnrollmentStatusTrial || s == EnrollmentStatusActive
}

// Enrollment captures a student's membership in one class. Records are never
// hard-deleted while history exists; leaving sets LeftAt.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	ClassID    string           `db:"class_id" json:"class_id"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	LeftAt     *time.Time       `db:"left_at" json:"left_at,omitempty"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// Window returns the enrollment's own validity range, ignoring the class
// lifetime. Combine with the class via period.EffectiveEnd.
func (e Enrollment) Window() period.Range {
	return period.NewRange(e.EnrolledAt, e.LeftAt)
}

// EnrollmentDetail enriches Enrollment with student and class info.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentPhone string `db:"student_phone" json:"student_phone"`
	ClassName    string `db:"class_name" json:"class_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	ClassIDs  []string
	Statuses  []EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
