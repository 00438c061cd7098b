package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

// writeICS emits one weekly recurring event per class, starting in the first week of term
// and repeating for the configured number of weeks.
func (e *Exporter) writeICS(w io.Writer, view *domain.ScheduleView) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//NUST Timetable Manager//EN")
	cal.SetXWRCalName(view.Name)
	cal.SetXWRTimezone(e.opts.Location.String())

	stamp := view.UpdatedAt
	if stamp.IsZero() {
		stamp = time.Now()
	}

	for _, item := range view.Items {
		start, err := e.firstOccurrence(item.Day, item.Time)
		if err != nil {
			return err
		}
		end, err := e.firstOccurrence(item.Day, item.EndTime)
		if err != nil {
			return err
		}

		event := cal.AddEvent(fmt.Sprintf("schedule-%d-item-%d@timetable", view.ID, item.ItemID))
		event.SetDtStampTime(stamp)
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(classLabel(item) + " " + item.CourseName)
		if venue := venueLabel(item); venue != "" {
			event.SetLocation(venue)
		}

		desc := []string{}
		if item.Lecturer != "" {
			desc = append(desc, "Lecturer: "+item.Lecturer)
		}
		if item.Notes != "" {
			desc = append(desc, item.Notes)
		}
		if len(desc) > 0 {
			event.SetDescription(strings.Join(desc, "\n"))
		}

		event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", e.opts.Weeks))
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// firstOccurrence returns the date-time of the given weekday and HH:MM in the week the term
// starts. A term starting mid-week moves earlier weekdays to the following week.
func (e *Exporter) firstOccurrence(day domain.Weekday, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", hhmm, err)
	}

	base := e.opts.TermStart
	if base.IsZero() {
		base = time.Now().In(e.opts.Location)
	}
	base = base.In(e.opts.Location)

	// time.Weekday counts Sunday as 0; Monday is 1 in both.
	offset := (int(day) - int(base.Weekday()) + 7) % 7
	date := base.AddDate(0, 0, offset)

	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, e.opts.Location), nil
}
