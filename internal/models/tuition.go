package models

// TuitionStatus classifies a ledger line by its matched payment fact.
// Classification is exclusive per line, not cascading.
type TuitionStatus string

const (
	TuitionStatusNotCreated TuitionStatus = "NOT_CREATED"
	TuitionStatusUnpaid     TuitionStatus = "UNPAID"
	TuitionStatusPaid       TuitionStatus = "PAID"
)

// Valid reports whether the status is a supported value.
func (s TuitionStatus) Valid() bool {
	switch s {
	case TuitionStatusNotCreated, TuitionStatusUnpaid, TuitionStatusPaid:
		return true
	default:
		return false
	}
}

// TuitionLine is one derived ledger entry for an enrollment overlapping the
// queried month. Fee is the resolved display fee: the payment amount when
// recorded, else the class monthly fee.
type TuitionLine struct {
	EnrollmentID  string           `json:"enrollment_id"`
	StudentID     string           `json:"student_id"`
	StudentName   string           `json:"student_name"`
	StudentPhone  string           `json:"student_phone"`
	ClassID       string           `json:"class_id"`
	ClassName     string           `json:"class_name"`
	Month         int              `json:"month"`
	Year          int              `json:"year"`
	Status        EnrollmentStatus `json:"status"`
	Fee           int64            `json:"fee"`
	TuitionStatus TuitionStatus    `json:"tuition_status"`
	Payment       *PaymentFact     `json:"payment,omitempty"`
}

// TuitionSummary reduces ledger lines into monetary totals. TotalNotCreated
// is a count, not a sum: lines without a payment fact have no amount to add.
type TuitionSummary struct {
	TotalPaid       int64 `json:"total_paid"`
	TotalUnpaid     int64 `json:"total_unpaid"`
	TotalNotCreated int   `json:"total_not_created"`
}

// ClassRevenue aggregates ledger lines per class.
type ClassRevenue struct {
	ClassID       string `json:"class_id"`
	ClassName     string `json:"class_name"`
	Revenue       int64  `json:"revenue"`
	PaidCount     int    `json:"paid_count"`
	UnpaidCount   int    `json:"unpaid_count"`
	EnrolledCount int    `json:"enrolled_count"`
}
