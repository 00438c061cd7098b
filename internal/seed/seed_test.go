package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/placement"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
	"github.com/nust-timetable/timetable-manager/backend/internal/timetable"
	"github.com/nust-timetable/timetable-manager/backend/internal/timetable/timetabletest"
)

type recordingStore struct {
	courses []*domain.Course
	venues  []*domain.Venue
}

func (s *recordingStore) CreateCourse(_ context.Context, c *domain.Course) error {
	c.ID = int64(len(s.courses) + 1)
	s.courses = append(s.courses, c)
	return nil
}

func (s *recordingStore) CreateVenue(_ context.Context, v *domain.Venue) error {
	v.ID = int64(len(s.venues) + 1)
	s.venues = append(s.venues, v)
	return nil
}

func TestSeedReferenceData(t *testing.T) {
	store := &recordingStore{}
	require.NoError(t, SeedReferenceData(context.Background(), store))

	require.NotEmpty(t, store.courses)
	require.NotEmpty(t, store.venues)

	first := store.courses[0]
	assert.Equal(t, "PRG510S", first.Code)
	assert.Equal(t, int32(1), first.YearLevel)
	assert.NotEmpty(t, first.TheoryLecturer)

	seen := map[string]bool{}
	for _, c := range store.courses {
		assert.False(t, seen[c.Code], "duplicate course %s", c.Code)
		seen[c.Code] = true
		assert.NotEmpty(t, c.Color)
	}
}

func TestParseCoursesErrors(t *testing.T) {
	_, err := ParseCourses(strings.NewReader("code,name\nX,Y\n"))
	assert.ErrorContains(t, err, "missing column")

	_, err = ParseCourses(strings.NewReader("code,name,credits,year,semester\nX,Y,many,1,1\n"))
	assert.ErrorContains(t, err, "row 2")

	courses, err := ParseCourses(strings.NewReader("code,name,credits,year,semester\nX,Y,8,2,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "#4A90E2", courses[0].Color)
}

func TestDemoPlacementsAlwaysValid(t *testing.T) {
	catalog := timeslot.Default()
	courses := make([]*domain.Course, 0, 12)
	for i := int64(1); i <= 12; i++ {
		courses = append(courses, &domain.Course{ID: i})
	}

	for i := 0; i < 50; i++ {
		placements := DemoPlacements(catalog, courses, nil, 8)
		assert.True(t, placement.NewValidator(catalog).Validate(placements).OK())
	}
}

func TestSeedDemoSchedule(t *testing.T) {
	catalog := timeslot.Default()
	store := timetabletest.NewStore()
	svc := timetable.NewService(store, catalog)

	courses := []*domain.Course{{ID: 1}, {ID: 2}, {ID: 3}}
	res, err := SeedDemoSchedule(context.Background(), svc, catalog, 5, courses, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), res.Version)
	assert.True(t, res.Created)
}
