package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
)

func sampleView() *domain.ScheduleView {
	venueID := int64(10)
	return &domain.ScheduleView{
		ID:        7,
		Name:      "Sem2",
		Semester:  2,
		Year:      2025,
		UpdatedAt: time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC),
		Items: []domain.ScheduleViewItem{
			{
				ItemID: 1, CourseID: 1, CourseCode: "PRG510S", CourseName: "Programming 1",
				Day: domain.Monday, Time: "07:30", EndTime: "08:30",
				ClassType: domain.ClassTheory, Duration: 1, Lecturer: "Dr Shikongo",
			},
			{
				ItemID: 2, CourseID: 2, CourseCode: "DSA521S", CourseName: "Data Structures",
				Day: domain.Wednesday, Time: "10:30", EndTime: "12:30", ContinuationTime: "11:30",
				ClassType: domain.ClassPractical, Duration: 2, VenueID: &venueID, VenueCode: "LAB1", VenueName: "Computer Lab 1",
			},
		},
	}
}

func newTestExporter(t *testing.T) *Exporter {
	opts, err := NewOptions("Africa/Windhoek", "2025-07-14", 14)
	require.NoError(t, err)
	return NewExporter(timeslot.Default(), opts)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("ICS")
	require.NoError(t, err)
	assert.Equal(t, FormatICS, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFilename(t *testing.T) {
	view := sampleView()
	view.Name = "My Sem 2!"
	assert.Equal(t, "my_sem_2__2025.xlsx", FormatXLSX.Filename(view))
}

func TestNewOptionsErrors(t *testing.T) {
	_, err := NewOptions("Nowhere/Atlantis", "2025-07-14", 14)
	assert.Error(t, err)
	_, err = NewOptions("UTC", "14/07/2025", 14)
	assert.Error(t, err)
	_, err = NewOptions("UTC", "2025-07-14", 0)
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter(t).Export(&buf, FormatJSON, sampleView()))

	var got domain.ScheduleView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Sem2", got.Name)
	assert.Len(t, got.Items, 2)
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter(t).Export(&buf, FormatCSV, sampleView()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"Monday", "07:30", "08:30", "PRG510S", "Programming 1", "theory", "1", "", "Dr Shikongo", ""}, records[1])
	assert.Equal(t, "LAB1 - Computer Lab 1", records[2][7])
}

func TestExportICS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter(t).Export(&buf, FormatICS, sampleView()))

	cal, err := ics.ParseCalendar(strings.NewReader(buf.String()))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	loc, err := time.LoadLocation("Africa/Windhoek")
	require.NoError(t, err)

	// 2025-07-14 is a Monday
	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2025, 7, 14, 7, 30, 0, 0, loc)), "got %s", start)

	start, err = events[1].GetStartAt()
	require.NoError(t, err)
	end, err := events[1].GetEndAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2025, 7, 16, 10, 30, 0, 0, loc)), "got %s", start)
	assert.Equal(t, 2*time.Hour, end.Sub(start))

	rrule := events[1].GetProperty(ics.ComponentPropertyRrule)
	require.NotNil(t, rrule)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=14", rrule.Value)

	location := events[1].GetProperty(ics.ComponentPropertyLocation)
	require.NotNil(t, location)
	assert.Equal(t, "LAB1 - Computer Lab 1", location.Value)
}

func TestFirstOccurrenceMidWeekTermStart(t *testing.T) {
	opts, err := NewOptions("UTC", "2025-07-16", 14) // Wednesday
	require.NoError(t, err)
	e := NewExporter(timeslot.Default(), opts)

	monday, err := e.firstOccurrence(domain.Monday, "07:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 21, 7, 30, 0, 0, time.UTC), monday)

	friday, err := e.firstOccurrence(domain.Friday, "14:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 18, 14, 0, 0, 0, time.UTC), friday)
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newTestExporter(t).Export(&buf, FormatXLSX, sampleView()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(sheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Sem2 (Semester 2, 2025)", title)

	day, err := f.GetCellValue(sheetName, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Wednesday", day)

	// row 3 is 07:30, Monday is column B
	monday, err := f.GetCellValue(sheetName, "B3")
	require.NoError(t, err)
	assert.Equal(t, "PRG510S (Theory)", monday)

	// 10:30 is row 6, 11:30 row 7
	practical, err := f.GetCellValue(sheetName, "D6")
	require.NoError(t, err)
	assert.Contains(t, practical, "DSA521S (Practical)")
	cont, err := f.GetCellValue(sheetName, "D7")
	require.NoError(t, err)
	assert.Contains(t, cont, "(cont.)")

	// 13:30 lunch is row 9
	lunch, err := f.GetCellValue(sheetName, "C9")
	require.NoError(t, err)
	assert.Equal(t, "Lunch", lunch)
}
