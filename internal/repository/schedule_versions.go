package repository

import (
	"context"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

// The version ledger is append-only: rows are written by AppendScheduleVersion inside a
// save transaction and only ever read here.

func (r *Repository) GetScheduleVersions(ctx context.Context, scheduleID int64) ([]*domain.ScheduleVersion, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT version_number, snapshot, created_at
		FROM schedule_versions
		WHERE schedule_id = $1
		ORDER BY version_number
	`

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := []*domain.ScheduleVersion{}
	for rows.Next() {
		v := &domain.ScheduleVersion{ScheduleID: scheduleID}
		if err := rows.Scan(&v.VersionNumber, &v.Snapshot, &v.CreatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return versions, nil
}

func (r *Repository) GetScheduleVersion(ctx context.Context, scheduleID int64, version int32) (*domain.ScheduleVersion, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT snapshot, created_at
		FROM schedule_versions
		WHERE schedule_id = $1 AND version_number = $2
	`

	v := &domain.ScheduleVersion{ScheduleID: scheduleID, VersionNumber: version}
	if err := r.dbpool.QueryRowContext(ctx, query, scheduleID, version).Scan(&v.Snapshot, &v.CreatedAt); err != nil {
		return nil, err
	}

	return v, nil
}
