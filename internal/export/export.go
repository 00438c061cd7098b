// Package export renders a resolved schedule view as JSON, CSV, iCalendar or XLSX.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
)

var ErrUnknownFormat = errors.New("unknown export format")

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatICS  Format = "ics"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatICS, FormatXLSX:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatICS:
		return "text/calendar; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Filename builds a download name such as "sem2_2025.ics".
func (f Format) Filename(view *domain.ScheduleView) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, view.Name)
	return fmt.Sprintf("%s_%d.%s", name, view.Year, f)
}

type Options struct {
	Location  *time.Location
	TermStart time.Time
	Weeks     int
}

// NewOptions parses the calendar settings used by the iCalendar export. termStart is a
// YYYY-MM-DD date in the given time zone.
func NewOptions(timeZone, termStart string, weeks int) (Options, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return Options{}, fmt.Errorf("load time zone %q: %w", timeZone, err)
	}

	start, err := time.ParseInLocation(time.DateOnly, termStart, loc)
	if err != nil {
		return Options{}, fmt.Errorf("parse term start %q: %w", termStart, err)
	}

	if weeks <= 0 {
		return Options{}, fmt.Errorf("weeks per term must be positive, got %d", weeks)
	}

	return Options{Location: loc, TermStart: start, Weeks: weeks}, nil
}

type Exporter struct {
	catalog *timeslot.Catalog
	opts    Options
}

func NewExporter(catalog *timeslot.Catalog, opts Options) *Exporter {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Weeks <= 0 {
		opts.Weeks = 14
	}
	return &Exporter{catalog: catalog, opts: opts}
}

func (e *Exporter) Export(w io.Writer, f Format, view *domain.ScheduleView) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, view)
	case FormatCSV:
		return writeCSV(w, view)
	case FormatICS:
		return e.writeICS(w, view)
	case FormatXLSX:
		return e.writeXLSX(w, view)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func writeJSON(w io.Writer, view *domain.ScheduleView) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// classLabel is the short text used in cells and event titles.
func classLabel(item domain.ScheduleViewItem) string {
	label := item.CourseCode
	if label == "" {
		label = fmt.Sprintf("Course %d", item.CourseID)
	}
	if item.ClassType == domain.ClassPractical {
		return label + " (Practical)"
	}
	return label + " (Theory)"
}

func venueLabel(item domain.ScheduleViewItem) string {
	switch {
	case item.VenueCode != "" && item.VenueName != "":
		return item.VenueCode + " - " + item.VenueName
	case item.VenueCode != "":
		return item.VenueCode
	default:
		return item.VenueName
	}
}
