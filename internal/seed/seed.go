// Package seed loads reference data and demo schedules into a fresh database.
package seed

import (
	"context"
	"embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/placement"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
	"github.com/nust-timetable/timetable-manager/backend/internal/timetable"
	"github.com/nust-timetable/timetable-manager/backend/internal/utils"
)

//go:embed data/*.csv
var dataFS embed.FS

// readRecords reads a CSV with a header row into maps keyed by column name.
func readRecords(r io.Reader, required ...string) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for _, col := range required {
		found := false
		for _, h := range headers {
			if h == col {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		record := make(map[string]string, len(headers))
		for i, value := range row {
			record[headers[i]] = strings.TrimSpace(value)
		}
		records = append(records, record)
	}

	return records, nil
}

func atoi32(record map[string]string, col string) (int32, error) {
	n, err := strconv.ParseInt(record[col], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", col, record[col], err)
	}
	return int32(n), nil
}

func ParseCourses(r io.Reader) ([]*domain.Course, error) {
	records, err := readRecords(r, "code", "name", "credits", "year", "semester")
	if err != nil {
		return nil, err
	}

	courses := make([]*domain.Course, 0, len(records))
	for i, record := range records {
		c := &domain.Course{
			Code:              record["code"],
			Name:              record["name"],
			Department:        record["department"],
			TheoryLecturer:    record["theory_lecturer"],
			PracticalLecturer: record["practical_lecturer"],
			Color:             record["color"],
		}
		if c.Code == "" || c.Name == "" {
			return nil, fmt.Errorf("row %d: code and name are required", i+2)
		}
		if c.Color == "" {
			c.Color = "#4A90E2"
		}
		if c.Credits, err = atoi32(record, "credits"); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if c.YearLevel, err = atoi32(record, "year"); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if c.Semester, err = atoi32(record, "semester"); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		courses = append(courses, c)
	}

	return courses, nil
}

func ParseVenues(r io.Reader) ([]*domain.Venue, error) {
	records, err := readRecords(r, "code", "name")
	if err != nil {
		return nil, err
	}

	venues := make([]*domain.Venue, 0, len(records))
	for _, record := range records {
		venues = append(venues, &domain.Venue{Code: record["code"], Name: record["name"]})
	}

	return venues, nil
}

type ReferenceStore interface {
	CreateCourse(ctx context.Context, c *domain.Course) error
	CreateVenue(ctx context.Context, v *domain.Venue) error
}

// SeedReferenceData upserts the bundled course and venue lists.
func SeedReferenceData(ctx context.Context, store ReferenceStore) error {
	f, err := dataFS.Open("data/courses.csv")
	if err != nil {
		return err
	}
	defer f.Close()

	courses, err := ParseCourses(f)
	if err != nil {
		return fmt.Errorf("courses.csv: %w", err)
	}
	for _, c := range courses {
		if err := store.CreateCourse(ctx, c); err != nil {
			return fmt.Errorf("insert course %s: %w", c.Code, err)
		}
	}

	vf, err := dataFS.Open("data/venues.csv")
	if err != nil {
		return err
	}
	defer vf.Close()

	venues, err := ParseVenues(vf)
	if err != nil {
		return fmt.Errorf("venues.csv: %w", err)
	}
	for _, v := range venues {
		if err := store.CreateVenue(ctx, v); err != nil {
			return fmt.Errorf("insert venue %s: %w", v.Code, err)
		}
	}

	slog.Info("reference data seeded", "courses", len(courses), "venues", len(venues))
	return nil
}

// DemoPlacements draws random placements and keeps only the ones the validator accepts, so
// the result always saves cleanly.
func DemoPlacements(catalog *timeslot.Catalog, courses []*domain.Course, venues []*domain.Venue, n int) []domain.Placement {
	slots := []domain.TimeSlot{}
	for _, slot := range catalog.Slots() {
		if slot.Kind != domain.SlotLunch {
			slots = append(slots, slot)
		}
	}

	candidates := utils.GenerateRandomPlacements(courses, slots, venues, n)
	res := placement.NewValidator(catalog).Validate(candidates)

	out := make([]domain.Placement, 0, len(res.Accepted))
	for _, a := range res.Accepted {
		out = append(out, a.Placement)
	}
	return out
}

// SeedDemoSchedule saves one random schedule for the user through the normal save path.
func SeedDemoSchedule(ctx context.Context, svc *timetable.Service, catalog *timeslot.Catalog, userID int64, courses []*domain.Course, venues []*domain.Venue) (*timetable.SaveResult, error) {
	return svc.SaveSchedule(ctx, userID, timetable.SaveInput{
		Name:     utils.GenerateRandomScheduleName(),
		Semester: 1,
		Year:     2025,
		Items:    DemoPlacements(catalog, courses, venues, 6),
	})
}
