package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tutorbase/tutor-api/internal/models"
	"github.com/tutorbase/tutor-api/internal/timetable"
)

// ClassRepository handles persistence of class definitions. The weekly
// schedule lives in a JSONB column and is validated here, at the boundary:
// malformed slots are dropped on read, duplicates rejected on write, so the
// engine only ever sees well-formed slots.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

const classColumns = `c.id, c.name, c.teacher_id, c.opened_at, c.closed_at, c.monthly_fee, c.session_minutes, c.schedule, c.created_at, c.updated_at`

// classFilterClause builds the WHERE clause shared by List and ListAll.
func classFilterClause(filter models.ClassFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
			args = append(args, id)
		}
		conditions = append(conditions, fmt.Sprintf("c.id IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("c.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ActiveOn != nil {
		conditions = append(conditions, fmt.Sprintf("c.opened_at <= $%d AND (c.closed_at IS NULL OR c.closed_at >= $%d)", len(args)+1, len(args)+1))
		args = append(args, *filter.ActiveOn)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns one page of classes filtered by the provided criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := `FROM classes c LEFT JOIN teachers t ON t.id = c.teacher_id`
	clause, args := classFilterClause(filter)

	allowedSorts := map[string]string{
		"name":      "c.name",
		"opened_at": "c.opened_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, t.full_name AS teacher_name %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		classColumns, base+clause, orderBy, order, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}
	for i := range classes {
		classes[i].Slots = DecodeSlots(classes[i].ScheduleRaw)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// ListAll returns every class matching the filter without pagination.
// Reconciliation walks the complete class set and must never see a
// truncated page.
func (r *ClassRepository) ListAll(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, error) {
	clause, args := classFilterClause(filter)
	query := fmt.Sprintf(`SELECT %s, t.full_name AS teacher_name FROM classes c LEFT JOIN teachers t ON t.id = c.teacher_id%s ORDER BY c.name ASC`,
		classColumns, clause)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list all classes: %w", err)
	}
	for i := range classes {
		classes[i].Slots = DecodeSlots(classes[i].ScheduleRaw)
	}
	return classes, nil
}

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	query := fmt.Sprintf(`SELECT %s FROM classes c WHERE c.id = $1`, classColumns)
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	class.Slots = DecodeSlots(class.ScheduleRaw)
	return &class, nil
}

// Create persists a new class definition.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	raw, err := EncodeSlots(class.Slots)
	if err != nil {
		return err
	}
	class.ScheduleRaw = raw
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, teacher_id, opened_at, closed_at, monthly_fee, session_minutes, schedule, created_at, updated_at)
        VALUES (:id, :name, :teacher_id, :opened_at, :closed_at, :monthly_fee, :session_minutes, :schedule, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a class definition.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	raw, err := EncodeSlots(class.Slots)
	if err != nil {
		return err
	}
	class.ScheduleRaw = raw
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, teacher_id = :teacher_id, opened_at = :opened_at, closed_at = :closed_at,
        monthly_fee = :monthly_fee, session_minutes = :session_minutes, schedule = :schedule, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class definition.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

// DecodeSlots parses the stored weekly schedule, silently dropping entries
// that fail validation. A class whose schedule is entirely malformed simply
// yields no sessions downstream.
func DecodeSlots(raw []byte) []timetable.WeeklySlot {
	if len(raw) == 0 {
		return nil
	}
	var decoded []json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil
	}
	slots := make([]timetable.WeeklySlot, 0, len(decoded))
	for _, entry := range decoded {
		var slot timetable.WeeklySlot
		if err := json.Unmarshal(entry, &slot); err != nil {
			continue
		}
		if !slot.Valid() {
			continue
		}
		slots = append(slots, slot)
	}
	return slots
}

// EncodeSlots validates and serialises a weekly schedule for storage.
// Duplicate (weekday, start) pairs are rejected rather than silently merged.
func EncodeSlots(slots []timetable.WeeklySlot) ([]byte, error) {
	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		if !slot.Valid() {
			return nil, fmt.Errorf("invalid weekly slot %d/%s", slot.Weekday, slot.Start)
		}
		key := fmt.Sprintf("%d@%s", slot.Weekday, slot.Start)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("duplicate weekly slot %d/%s", slot.Weekday, slot.Start)
		}
		seen[key] = struct{}{}
	}
	if len(slots) == 0 {
		return []byte("[]"), nil
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("encode weekly slots: %w", err)
	}
	return raw, nil
}
