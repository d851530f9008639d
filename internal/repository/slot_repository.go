package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/careerbridge/slot-booking/internal/model"
)

// SlotRepo provides document-style access to interview slots.  A slot row in
// `slots` together with its child rows in `slot_bookings` forms one logical
// document: GetByID/FindByStudent/List return whole slots, Save writes a
// whole slot back.  All timestamps are stored and compared in UTC, dates as
// civil DATE values and times of day as "HH:MM" strings.
//
// Expected schema:
//
//	slots(id CHAR(36) PK, company, position, location, description,
//	      date DATE, start_time CHAR(5), end_time CHAR(5),
//	      duration_minutes INT, max_capacity INT,
//	      status ENUM('Active','Full','Cancelled'), created_by VARCHAR(64),
//	      version INT UNSIGNED NOT NULL DEFAULT 0,
//	      created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
//	      updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP)
//	slot_bookings(slot_id CHAR(36) REFERENCES slots(id) ON DELETE CASCADE,
//	      student_id VARCHAR(64), booked_at DATETIME,
//	      UNIQUE KEY (slot_id, student_id))
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// SlotFilter narrows List results.  Date matches one civil date exactly
// ("YYYY-MM-DD"), Company is a case-insensitive substring match, and
// AvailableOnly keeps only slots whose booking count is below capacity.
type SlotFilter struct {
	Date          string
	Company       string
	AvailableOnly bool
}

const slotColumns = `s.id, s.company, s.position, s.location, COALESCE(s.description, ''),
	DATE_FORMAT(s.date, '%Y-%m-%d'), s.start_time, s.end_time,
	s.duration_minutes, s.max_capacity, s.status, s.created_by, s.version,
	s.created_at, s.updated_at`

// scanSlot reads one slot row in slotColumns order.  Bookings are loaded
// separately by attachBookings.
func scanSlot(sc interface{ Scan(...any) error }) (*model.InterviewSlot, error) {
	var s model.InterviewSlot
	if err := sc.Scan(
		&s.ID, &s.Company, &s.Position, &s.Location, &s.Description,
		&s.Date, &s.StartTime, &s.EndTime,
		&s.DurationMinutes, &s.MaxCapacity, &s.Status, &s.CreatedBy, &s.Version,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.BookedStudents = []model.Booking{}
	return &s, nil
}

// GetByID returns the slot with the given id including all of its bookings.
// It returns ErrSlotNotFound when no such slot exists.
func (r *SlotRepo) GetByID(ctx context.Context, id string) (*model.InterviewSlot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots s WHERE s.id = ?`
	slot, err := scanSlot(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if err := r.attachBookings(ctx, []*model.InterviewSlot{slot}); err != nil {
		return nil, err
	}
	return slot, nil
}

// FindByStudent returns every slot in which the student currently holds a
// booking, ordered by (date, start time) ascending.  An empty slice is
// returned when the student has no bookings.
func (r *SlotRepo) FindByStudent(ctx context.Context, studentID string) ([]model.InterviewSlot, error) {
	const q = `SELECT ` + slotColumns + `
	           FROM slots s
	           JOIN slot_bookings b ON b.slot_id = s.id
	           WHERE b.student_id = ?
	           ORDER BY s.date ASC, s.start_time ASC`
	return r.querySlots(ctx, q, studentID)
}

// List returns slots matching the filter, ordered by (date, start time)
// ascending.  The availability restriction is evaluated against the live
// booking count rather than the cached status column.
func (r *SlotRepo) List(ctx context.Context, f SlotFilter) ([]model.InterviewSlot, error) {
	where := []string{}
	args := []any{}
	if f.Date != "" {
		where = append(where, "s.date = ?")
		args = append(args, f.Date)
	}
	if f.Company != "" {
		where = append(where, "LOWER(s.company) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Company)+"%")
	}
	if f.AvailableOnly {
		where = append(where, "(SELECT COUNT(*) FROM slot_bookings b WHERE b.slot_id = s.id) < s.max_capacity")
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	q := `SELECT ` + slotColumns + ` FROM slots s WHERE ` + cond + ` ORDER BY s.date ASC, s.start_time ASC`
	return r.querySlots(ctx, q, args...)
}

func (r *SlotRepo) querySlots(ctx context.Context, q string, args ...any) ([]model.InterviewSlot, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	slots := make([]model.InterviewSlot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	ptrs := make([]*model.InterviewSlot, len(slots))
	for i := range slots {
		ptrs[i] = &slots[i]
	}
	if err := r.attachBookings(ctx, ptrs); err != nil {
		return nil, err
	}
	return slots, nil
}

// attachBookings populates BookedStudents for all given slots in a single
// query, ordered by booking time so the array order is stable.
func (r *SlotRepo) attachBookings(ctx context.Context, slots []*model.InterviewSlot) error {
	if len(slots) == 0 {
		return nil
	}
	ids := make([]any, 0, len(slots))
	placeholders := make([]string, 0, len(slots))
	index := make(map[string]*model.InterviewSlot, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
		placeholders = append(placeholders, "?")
		index[s.ID] = s
	}
	q := `SELECT slot_id, student_id, booked_at
	      FROM slot_bookings
	      WHERE slot_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY slot_id, booked_at ASC`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var slotID string
		var b model.Booking
		if err := rows.Scan(&slotID, &b.StudentID, &b.BookedAt); err != nil {
			return err
		}
		if s, ok := index[slotID]; ok {
			s.BookedStudents = append(s.BookedStudents, b)
		}
	}
	return rows.Err()
}

// Create inserts a brand-new slot document with version 0 and no bookings.
// The slot's CreatedAt/UpdatedAt are populated from the stored row.
func (r *SlotRepo) Create(ctx context.Context, s *model.InterviewSlot) error {
	const q = `INSERT INTO slots
	           (id, company, position, location, description, date, start_time, end_time,
	            duration_minutes, max_capacity, status, created_by, version)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`
	if _, err := r.db.ExecContext(ctx, q,
		s.ID, s.Company, s.Position, s.Location, nullIfEmpty(s.Description),
		s.Date, s.StartTime, s.EndTime,
		s.DurationMinutes, s.MaxCapacity, s.Status, s.CreatedBy,
	); err != nil {
		return err
	}
	s.Version = 0
	// Query back timestamps set by the database defaults.
	const sel = `SELECT created_at, updated_at FROM slots WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// Save writes the whole slot document back as a conditional update: the
// slots row is updated only while its version still matches the version the
// caller read, and the booking rows are replaced wholesale in the same
// transaction.  A stale version yields ErrVersionConflict, a vanished row
// yields ErrSlotNotFound; either way nothing is written.  On success the
// in-memory version is advanced to match the stored one.
func (r *SlotRepo) Save(ctx context.Context, s *model.InterviewSlot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const upd = `UPDATE slots
	             SET company = ?, position = ?, location = ?, description = ?,
	                 date = ?, start_time = ?, end_time = ?,
	                 duration_minutes = ?, max_capacity = ?, status = ?,
	                 version = version + 1
	             WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, upd,
		s.Company, s.Position, s.Location, nullIfEmpty(s.Description),
		s.Date, s.StartTime, s.EndTime,
		s.DurationMinutes, s.MaxCapacity, s.Status,
		s.ID, s.Version,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a concurrent write from a deleted slot.
		var v uint32
		err := tx.QueryRowContext(ctx, `SELECT version FROM slots WHERE id = ?`, s.ID).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSlotNotFound
		}
		if err != nil {
			return err
		}
		return ErrVersionConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM slot_bookings WHERE slot_id = ?`, s.ID); err != nil {
		return err
	}
	if len(s.BookedStudents) > 0 {
		q := `INSERT INTO slot_bookings (slot_id, student_id, booked_at) VALUES `
		args := make([]any, 0, len(s.BookedStudents)*3)
		for i, b := range s.BookedStudents {
			if i > 0 {
				q += ","
			}
			q += "(?, ?, ?)"
			args = append(args, s.ID, b.StudentID, b.BookedAt.UTC().Format("2006-01-02 15:04:05"))
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	s.Version++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a slot row; slot_bookings rows cascade via the foreign key.
// The caller is responsible for refusing deletion while bookings exist.
// ErrSlotNotFound is returned when the slot does not exist.
func (r *SlotRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// nullIfEmpty maps an empty description to NULL so the column stays nullable.
func nullIfEmpty(v string) sql.NullString {
	if strings.TrimSpace(v) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
