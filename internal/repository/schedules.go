package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

// ScheduleWriter is the set of writes a schedule save performs inside one transaction.
type ScheduleWriter interface {
	CreateSchedule(ctx context.Context, s *domain.Schedule) error
	TouchSchedule(ctx context.Context, s *domain.Schedule) error
	DeleteScheduleItems(ctx context.Context, scheduleID int64) error
	InsertScheduleItem(ctx context.Context, item *domain.ScheduleItem) error
	AppendScheduleVersion(ctx context.Context, scheduleID int64, snapshot []byte) (int32, error)
}

type scheduleTx struct {
	tx *sql.Tx
}

// InTx runs fn inside a single transaction. Any error returned by fn rolls everything back.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, w ScheduleWriter) error) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &scheduleTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (t *scheduleTx) CreateSchedule(ctx context.Context, s *domain.Schedule) error {
	query := `
		INSERT INTO schedules (user_id, name, semester, year, share_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at, updated_at
	`

	params := []any{s.UserID, s.Name, s.Semester, s.Year, s.ShareToken}
	dst := []any{&s.ID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt}
	return t.tx.QueryRowContext(ctx, query, params...).Scan(dst...)
}

func (t *scheduleTx) TouchSchedule(ctx context.Context, s *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING updated_at
	`

	return t.tx.QueryRowContext(ctx, query, s.ID).Scan(&s.UpdatedAt)
}

func (t *scheduleTx) DeleteScheduleItems(ctx context.Context, scheduleID int64) error {
	query := `DELETE FROM schedule_items WHERE schedule_id = $1`

	_, err := t.tx.ExecContext(ctx, query, scheduleID)
	return err
}

func (t *scheduleTx) InsertScheduleItem(ctx context.Context, item *domain.ScheduleItem) error {
	query := `
		INSERT INTO schedule_items (schedule_id, course_id, day, start_time, venue_id, class_type, duration, lecturer_name, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	params := []any{
		item.ScheduleID,
		item.CourseID,
		int16(item.Slot.Day),
		item.Slot.Start,
		item.VenueID,
		string(item.Kind),
		item.Duration,
		item.LecturerName,
		item.Notes,
	}
	return t.tx.QueryRowContext(ctx, query, params...).Scan(&item.ID)
}

// AppendScheduleVersion writes the next version row: max(existing)+1, starting at 1.
func (t *scheduleTx) AppendScheduleVersion(ctx context.Context, scheduleID int64, snapshot []byte) (int32, error) {
	query := `
		INSERT INTO schedule_versions (schedule_id, version_number, snapshot)
		SELECT $1::bigint, COALESCE(MAX(version_number), 0) + 1, $2::jsonb
		FROM schedule_versions
		WHERE schedule_id = $1
		RETURNING version_number
	`

	var version int32
	if err := t.tx.QueryRowContext(ctx, query, scheduleID, string(snapshot)).Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

const scheduleColumns = `id, user_id, name, semester, year, share_token, is_active, created_at, updated_at`

func scanSchedule(row interface{ Scan(...any) error }) (*domain.Schedule, error) {
	var (
		s          domain.Schedule
		shareToken sql.NullString
	)

	dst := []any{
		&s.ID,
		&s.UserID,
		&s.Name,
		&s.Semester,
		&s.Year,
		&shareToken,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if shareToken.Valid {
		s.ShareToken = &shareToken.String
	}

	return &s, nil
}

func (r *Repository) GetScheduleByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	return scanSchedule(r.dbpool.QueryRowContext(ctx, query, id))
}

func (r *Repository) GetActiveScheduleByUserAndName(ctx context.Context, userID int64, name string) (*domain.Schedule, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE user_id = $1 AND name = $2 AND is_active`

	return scanSchedule(r.dbpool.QueryRowContext(ctx, query, userID, name))
}

func (r *Repository) GetActiveSchedulesByUserID(ctx context.Context, userID int64) ([]*domain.Schedule, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE user_id = $1 AND is_active
		ORDER BY updated_at DESC
	`

	rows, err := r.dbpool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := []*domain.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schedules, nil
}

// SoftDeleteSchedule marks the schedule inactive; items and versions stay in place.
func (r *Repository) SoftDeleteSchedule(ctx context.Context, id int64) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		UPDATE schedules
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND is_active
		RETURNING id
	`

	return r.dbpool.QueryRowContext(ctx, query, id).Scan(&id)
}

// HardDeleteSchedule physically removes a schedule with its items and versions. It is an
// administrative path only; the API never calls it.
func (r *Repository) HardDeleteSchedule(ctx context.Context, id int64) error {
	ctx, cancel := r.txContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, query := range []string{
		`DELETE FROM schedule_items WHERE schedule_id = $1`,
		`DELETE FROM schedule_versions WHERE schedule_id = $1`,
		`DELETE FROM schedules WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetInactiveScheduleIDs lists soft-deleted schedules last touched before the cutoff.
func (r *Repository) GetInactiveScheduleIDs(ctx context.Context, before time.Time) ([]int64, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `SELECT id FROM schedules WHERE NOT is_active AND updated_at < $1 ORDER BY id`

	rows, err := r.dbpool.QueryContext(ctx, query, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
