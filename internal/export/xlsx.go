package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

const sheetName = "Timetable"

// writeXLSX lays the schedule out as the weekly grid: one row per start time, one column per
// weekday. A two-hour class fills its continuation cell too.
func (e *Exporter) writeXLSX(w io.Writer, view *domain.ScheduleView) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	_ = f.SetColWidth(sheetName, "A", "A", 14)
	_ = f.SetColWidth(sheetName, "B", "F", 28)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F3864"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	lunchStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9D9D9"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s (Semester %d, %d)", view.Name, view.Semester, view.Year)
	_ = f.SetCellValue(sheetName, "A1", title)
	_ = f.MergeCell(sheetName, "A1", "F1")
	_ = f.SetCellStyle(sheetName, "A1", "F1", headerStyle)

	_ = f.SetCellValue(sheetName, "A2", "Time")
	for i, day := range domain.Weekdays {
		_ = f.SetCellValue(sheetName, cell(i+2, 2), day.String())
	}
	_ = f.SetCellStyle(sheetName, "A2", "F2", headerStyle)

	cells := make(map[domain.SlotKey]string, len(view.Items)*2)
	for _, item := range view.Items {
		text := classLabel(item)
		if v := venueLabel(item); v != "" {
			text += "\n" + v
		}
		cells[domain.SlotKey{Day: item.Day, Start: item.Time}] = text
		if item.ContinuationTime != "" {
			cells[domain.SlotKey{Day: item.Day, Start: item.ContinuationTime}] = text + "\n(cont.)"
		}
	}

	row := 3
	for _, slot := range e.catalog.Day(domain.Monday) {
		_ = f.SetCellValue(sheetName, cell(1, row), slot.Start+"-"+slot.End)

		for i, day := range domain.Weekdays {
			ref := cell(i+2, row)
			if slot.Kind == domain.SlotLunch {
				_ = f.SetCellValue(sheetName, ref, "Lunch")
				_ = f.SetCellStyle(sheetName, ref, ref, lunchStyle)
				continue
			}
			if text, ok := cells[domain.SlotKey{Day: day, Start: slot.Start}]; ok {
				_ = f.SetCellValue(sheetName, ref, text)
			}
		}
		row++
	}

	_, err = f.WriteTo(w)
	return err
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
