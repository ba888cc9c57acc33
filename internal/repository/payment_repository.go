package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tutorbase/tutor-api/internal/models"
)

// ErrDuplicatePayment is returned when a payment fact already exists for the
// (student, class, month, year) key. The unique index on payment_facts is the
// source of truth; callers surface this as a recoverable conflict and the
// existing row stays untouched.
var ErrDuplicatePayment = errors.New("payment fact already exists for student/class/month")

// PaymentRepository handles persistence of payment facts.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, student_id, class_id, month, year, amount, paid, paid_at, created_at, updated_at`

// List returns payment facts matching the filter.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentFact, error) {
	var conditions []string
	var args []interface{}

	if filter.Month != 0 {
		conditions = append(conditions, fmt.Sprintf("month = $%d", len(args)+1))
		args = append(args, filter.Month)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if len(filter.StudentIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("student_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.StudentIDs))
	}
	if len(filter.ClassIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("class_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.ClassIDs))
	}

	query := fmt.Sprintf("SELECT %s FROM payment_facts", paymentColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	var facts []models.PaymentFact
	if err := r.db.SelectContext(ctx, &facts, query, args...); err != nil {
		return nil, fmt.Errorf("list payment facts: %w", err)
	}
	return facts, nil
}

// Find returns the payment fact for the unique key, or sql.ErrNoRows.
func (r *PaymentRepository) Find(ctx context.Context, studentID, classID string, month, year int) (*models.PaymentFact, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_facts WHERE student_id = $1 AND class_id = $2 AND month = $3 AND year = $4`, paymentColumns)
	var fact models.PaymentFact
	if err := r.db.GetContext(ctx, &fact, query, studentID, classID, month, year); err != nil {
		return nil, err
	}
	return &fact, nil
}

// FindByID returns a payment fact by its ID.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.PaymentFact, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_facts WHERE id = $1`, paymentColumns)
	var fact models.PaymentFact
	if err := r.db.GetContext(ctx, &fact, query, id); err != nil {
		return nil, err
	}
	return &fact, nil
}

// Create persists a new payment fact. A unique-violation on the
// (student, class, month, year) index maps to ErrDuplicatePayment.
func (r *PaymentRepository) Create(ctx context.Context, fact *models.PaymentFact) error {
	if fact.ID == "" {
		fact.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	fact.CreatedAt = now
	fact.UpdatedAt = now
	const query = `INSERT INTO payment_facts (id, student_id, class_id, month, year, amount, paid, paid_at, created_at, updated_at)
        VALUES (:id, :student_id, :class_id, :month, :year, :amount, :paid, :paid_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fact); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("create payment fact: %w", err)
	}
	return nil
}

// MarkPaid flips a payment fact to paid, optionally fixing the amount.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time, amount *int64) error {
	const query = `UPDATE payment_facts SET paid = TRUE, paid_at = $2, amount = COALESCE($3, amount), updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, paidAt, amount, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	return nil
}
