// Package timetabletest provides an in-memory timetable.Store for tests.
package timetabletest

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/repository"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
)

// Store is an in-memory timetable.Store. InTx works on a copy of the state and only swaps
// it in when fn succeeds, so a failing transaction leaves nothing behind.
type Store struct {
	mu sync.Mutex

	state   memState
	courses map[int64]domain.Course
	venues  map[int64]domain.Venue
	catalog *timeslot.Catalog

	failOn string
}

type memState struct {
	nextScheduleID int64
	nextItemID     int64
	schedules      map[int64]domain.Schedule
	items          map[int64][]domain.ScheduleItem
	versions       map[int64][]domain.ScheduleVersion
}

func (s memState) clone() memState {
	c := memState{
		nextScheduleID: s.nextScheduleID,
		nextItemID:     s.nextItemID,
		schedules:      make(map[int64]domain.Schedule, len(s.schedules)),
		items:          make(map[int64][]domain.ScheduleItem, len(s.items)),
		versions:       make(map[int64][]domain.ScheduleVersion, len(s.versions)),
	}
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]domain.ScheduleItem(nil), v...)
	}
	for k, v := range s.versions {
		c.versions[k] = append([]domain.ScheduleVersion(nil), v...)
	}
	return c
}

// ErrInjected is returned by the writer method named in FailOn.
var ErrInjected = errors.New("injected failure")

func NewStore() *Store {
	return &Store{
		state: memState{
			schedules: map[int64]domain.Schedule{},
			items:     map[int64][]domain.ScheduleItem{},
			versions:  map[int64][]domain.ScheduleVersion{},
		},
		courses: map[int64]domain.Course{
			1: {ID: 1, Code: "PRG510S", Name: "Programming 1", Color: "#4A90E2", TheoryLecturer: "Dr Shikongo", PracticalLecturer: "Ms Nangolo"},
			2: {ID: 2, Code: "DSA521S", Name: "Data Structures", Color: "#E24A4A", TheoryLecturer: "Mr Haufiku", PracticalLecturer: "Mr Kapenda"},
			3: {ID: 3, Code: "DBF621S", Name: "Databases", Color: "#4AE27A", TheoryLecturer: "Prof Iipumbu", PracticalLecturer: "Dr Amutenya"},
		},
		venues: map[int64]domain.Venue{
			10: {ID: 10, Code: "LAB1", Name: "Computer Lab 1"},
		},
		catalog: timeslot.Default(),
	}
}

func (m *Store) GetScheduleByID(_ context.Context, id int64) (*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.state.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *Store) GetActiveScheduleByUserAndName(_ context.Context, userID int64, name string) (*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.state.schedules {
		if s.UserID == userID && s.Name == name && s.IsActive {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *Store) GetActiveSchedulesByUserID(_ context.Context, userID int64) ([]*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.Schedule{}
	for _, s := range m.state.schedules {
		if s.UserID == userID && s.IsActive {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Store) GetScheduleItemDetails(_ context.Context, scheduleID int64) ([]domain.ScheduleItemDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	details := []domain.ScheduleItemDetail{}
	for _, item := range m.state.items[scheduleID] {
		slot, err := m.catalog.Resolve(item.Slot.Day, item.Slot.Start)
		if err != nil {
			return nil, err
		}
		d := domain.ScheduleItemDetail{Item: item, Course: m.courses[item.CourseID], Slot: slot}
		if item.VenueID != nil {
			v := m.venues[*item.VenueID]
			d.Venue = &v
		}
		details = append(details, d)
	}
	return details, nil
}

func (m *Store) GetScheduleVersions(_ context.Context, scheduleID int64) ([]*domain.ScheduleVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.ScheduleVersion{}
	for _, v := range m.state.versions[scheduleID] {
		v := v
		out = append(out, &v)
	}
	return out, nil
}

func (m *Store) GetScheduleVersion(_ context.Context, scheduleID int64, version int32) (*domain.ScheduleVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, v := range m.state.versions[scheduleID] {
		if v.VersionNumber == version {
			return &v, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *Store) SoftDeleteSchedule(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.state.schedules[id]
	if !ok || !s.IsActive {
		return sql.ErrNoRows
	}
	s.IsActive = false
	s.UpdatedAt = time.Now()
	m.state.schedules[id] = s
	return nil
}

func (m *Store) InTx(ctx context.Context, fn func(ctx context.Context, w repository.ScheduleWriter) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{state: m.state.clone(), failOn: m.failOn}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

type memTx struct {
	state  memState
	failOn string
}

func (t *memTx) fail(op string) error {
	if t.failOn == op {
		return ErrInjected
	}
	return nil
}

func (t *memTx) CreateSchedule(_ context.Context, s *domain.Schedule) error {
	if err := t.fail("CreateSchedule"); err != nil {
		return err
	}
	for _, other := range t.state.schedules {
		if other.UserID == s.UserID && other.Name == s.Name && other.IsActive {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	t.state.nextScheduleID++
	s.ID = t.state.nextScheduleID
	s.IsActive = true
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	t.state.schedules[s.ID] = *s
	return nil
}

func (t *memTx) TouchSchedule(_ context.Context, s *domain.Schedule) error {
	if err := t.fail("TouchSchedule"); err != nil {
		return err
	}
	stored, ok := t.state.schedules[s.ID]
	if !ok || !stored.IsActive {
		return sql.ErrNoRows
	}
	stored.UpdatedAt = time.Now()
	t.state.schedules[s.ID] = stored
	s.UpdatedAt = stored.UpdatedAt
	return nil
}

func (t *memTx) DeleteScheduleItems(_ context.Context, scheduleID int64) error {
	if err := t.fail("DeleteScheduleItems"); err != nil {
		return err
	}
	delete(t.state.items, scheduleID)
	return nil
}

func (t *memTx) InsertScheduleItem(_ context.Context, item *domain.ScheduleItem) error {
	if err := t.fail("InsertScheduleItem"); err != nil {
		return err
	}
	for _, other := range t.state.items[item.ScheduleID] {
		if other.Slot == item.Slot {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	t.state.nextItemID++
	item.ID = t.state.nextItemID
	t.state.items[item.ScheduleID] = append(t.state.items[item.ScheduleID], *item)
	return nil
}

func (t *memTx) AppendScheduleVersion(_ context.Context, scheduleID int64, snapshot []byte) (int32, error) {
	if err := t.fail("AppendScheduleVersion"); err != nil {
		return 0, err
	}
	var latest int32
	for _, v := range t.state.versions[scheduleID] {
		if v.VersionNumber > latest {
			latest = v.VersionNumber
		}
	}
	v := domain.ScheduleVersion{
		ScheduleID:    scheduleID,
		VersionNumber: latest + 1,
		Snapshot:      append([]byte(nil), snapshot...),
		CreatedAt:     time.Now(),
	}
	t.state.versions[scheduleID] = append(t.state.versions[scheduleID], v)
	return v.VersionNumber, nil
}

// FailOn makes the named writer method (for example "InsertScheduleItem") fail in every
// following transaction. An empty name clears it.
func (m *Store) FailOn(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn = op
}

func (m *Store) Schedule(id int64) (domain.Schedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state.schedules[id]
	return s, ok
}

func (m *Store) ScheduleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.schedules)
}

// Items returns the stored rows of a schedule, continuation rows included.
func (m *Store) Items(scheduleID int64) []domain.ScheduleItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ScheduleItem(nil), m.state.items[scheduleID]...)
}

func (m *Store) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, items := range m.state.items {
		n += len(items)
	}
	return n
}

func (m *Store) VersionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, versions := range m.state.versions {
		n += len(versions)
	}
	return n
}

// AddCourse registers reference data visible to GetScheduleItemDetails.
func (m *Store) AddCourse(c domain.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
}
