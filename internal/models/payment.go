package models

import "time"

// PaymentFact records tuition payment state for one (student, class, month,
// year) key. Amount is nullable; when unset the class monthly fee applies.
// The unique key is enforced by the database; service-level pre-checks are a
// fast path only.
type PaymentFact struct {
	ID        string     `db:"id" json:"id"`
	StudentID string     `db:"student_id" json:"student_id"`
	ClassID   string     `db:"class_id" json:"class_id"`
	Month     int        `db:"month" json:"month"`
	Year      int        `db:"year" json:"year"`
	Amount    *int64     `db:"amount" json:"amount,omitempty"`
	Paid      bool       `db:"paid" json:"paid"`
	PaidAt    *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// PaymentFilter scopes payment fact reads.
type PaymentFilter struct {
	StudentIDs []string
	ClassIDs   []string
	Month      int
	Year       int
}
