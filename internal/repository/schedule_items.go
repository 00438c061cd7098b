package repository

import (
	"context"
	"database/sql"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

// GetScheduleItemDetails returns every stored item of a schedule, continuation rows
// included, joined with its course, venue and slot, ordered by day then start time.
func (r *Repository) GetScheduleItemDetails(ctx context.Context, scheduleID int64) ([]domain.ScheduleItemDetail, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		SELECT
			si.id,
			si.course_id,
			si.day,
			si.start_time,
			si.venue_id,
			si.class_type,
			si.duration,
			si.lecturer_name,
			si.notes,
			c.code,
			c.name,
			c.color_code,
			c.theory_lecturer,
			c.practical_lecturer,
			v.code,
			v.name,
			ts.end_time,
			ts.kind
		FROM schedule_items si
		JOIN courses c ON si.course_id = c.id
		JOIN time_slots ts ON si.day = ts.day AND si.start_time = ts.start_time
		LEFT JOIN venues v ON si.venue_id = v.id
		WHERE si.schedule_id = $1
		ORDER BY si.day, si.start_time
	`

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []domain.ScheduleItemDetail{}
	for rows.Next() {
		var row struct {
			Day       int16
			VenueID   sql.NullInt64
			Kind      string
			VenueCode sql.NullString
			VenueName sql.NullString
			SlotKind  string
		}
		d := domain.ScheduleItemDetail{}

		dst := []any{
			&d.Item.ID,
			&d.Item.CourseID,
			&row.Day,
			&d.Item.Slot.Start,
			&row.VenueID,
			&row.Kind,
			&d.Item.Duration,
			&d.Item.LecturerName,
			&d.Item.Notes,
			&d.Course.Code,
			&d.Course.Name,
			&d.Course.Color,
			&d.Course.TheoryLecturer,
			&d.Course.PracticalLecturer,
			&row.VenueCode,
			&row.VenueName,
			&d.Slot.End,
			&row.SlotKind,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		d.Item.ScheduleID = scheduleID
		d.Item.Slot.Day = domain.Weekday(row.Day)
		d.Item.Kind = domain.ClassKind(row.Kind)
		d.Course.ID = d.Item.CourseID
		d.Slot.Day = d.Item.Slot.Day
		d.Slot.Start = d.Item.Slot.Start
		d.Slot.Kind = domain.SlotKind(row.SlotKind)

		if row.VenueID.Valid {
			venueID := row.VenueID.Int64
			d.Item.VenueID = &venueID
			d.Venue = &domain.Venue{
				ID:   venueID,
				Code: row.VenueCode.String,
				Name: row.VenueName.String,
			}
		}

		details = append(details, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return details, nil
}
