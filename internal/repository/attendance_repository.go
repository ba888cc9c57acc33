package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tutorbase/tutor-api/internal/models"
)

// AttendanceRepository handles persistence of attendance facts. Facts are
// only written through explicit mark/unmark calls; the matrix builder never
// creates them.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListRange returns the facts recorded for the class set inside the window.
func (r *AttendanceRepository) ListRange(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceFact, error) {
	const query = `SELECT id, class_id, person_id, person_kind, date, start_time, present, note, created_at, updated_at
        FROM attendance_facts
        WHERE class_id = ANY($1) AND date >= $2 AND date <= $3`
	var facts []models.AttendanceFact
	if err := r.db.SelectContext(ctx, &facts, query, pq.Array(filter.ClassIDs), filter.From, filter.To); err != nil {
		return nil, fmt.Errorf("list attendance facts: %w", err)
	}
	return facts, nil
}

// Upsert records presence for one cell, overwriting any previous mark for
// the same (class, person, date, start) key.
func (r *AttendanceRepository) Upsert(ctx context.Context, fact *models.AttendanceFact) error {
	if fact.ID == "" {
		fact.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	fact.CreatedAt = now
	fact.UpdatedAt = now
	const query = `INSERT INTO attendance_facts (id, class_id, person_id, person_kind, date, start_time, present, note, created_at, updated_at)
        VALUES (:id, :class_id, :person_id, :person_kind, :date, :start_time, :present, :note, :created_at, :updated_at)
        ON CONFLICT (class_id, person_id, date, start_time)
        DO UPDATE SET present = EXCLUDED.present, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, fact); err != nil {
		return fmt.Errorf("upsert attendance fact: %w", err)
	}
	return nil
}

// Delete removes the fact for one cell, returning the cell to "unrecorded".
func (r *AttendanceRepository) Delete(ctx context.Context, classID, personID string, date time.Time, startTime string) error {
	const query = `DELETE FROM attendance_facts WHERE class_id = $1 AND person_id = $2 AND date = $3 AND start_time = $4`
	if _, err := r.db.ExecContext(ctx, query, classID, personID, date, startTime); err != nil {
		return fmt.Errorf("delete attendance fact: %w", err)
	}
	return nil
}
