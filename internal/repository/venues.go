package repository

import (
	"context"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

func (r *Repository) GetVenues(ctx context.Context) ([]*domain.Venue, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `SELECT id, code, name FROM venues ORDER BY code`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	venues := []*domain.Venue{}
	for rows.Next() {
		var v domain.Venue
		if err := rows.Scan(&v.ID, &v.Code, &v.Name); err != nil {
			return nil, err
		}
		venues = append(venues, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return venues, nil
}

func (r *Repository) CreateVenue(ctx context.Context, v *domain.Venue) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		INSERT INTO venues (code, name)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	return r.dbpool.QueryRowContext(ctx, query, v.Code, v.Name).Scan(&v.ID)
}
