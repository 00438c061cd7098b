package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

var csvHeader = []string{"Day", "Start", "End", "Course Code", "Course Name", "Class Type", "Duration", "Venue", "Lecturer", "Notes"}

func writeCSV(w io.Writer, view *domain.ScheduleView) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, item := range view.Items {
		record := []string{
			item.Day.String(),
			item.Time,
			item.EndTime,
			item.CourseCode,
			item.CourseName,
			string(item.ClassType),
			strconv.Itoa(int(item.Duration)),
			venueLabel(item),
			item.Lecturer,
			item.Notes,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
