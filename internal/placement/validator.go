// Package placement checks a batch of requested placements against the slot catalog and
// expands accepted placements into the rows that store them.
package placement

import (
	"fmt"
	"strings"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"github.com/nust-timetable/timetable-manager/backend/internal/timeslot"
)

type Reason string

const (
	ReasonUnknownSlot                 Reason = "UnknownSlot"
	ReasonLunchSlot                   Reason = "LunchSlot"
	ReasonInsufficientContiguousSlots Reason = "InsufficientContiguousSlots"
	ReasonDuplicateCourse             Reason = "DuplicateCourse"
	ReasonSlotCollision               Reason = "SlotCollision"
)

type Rejection struct {
	Index     int              `json:"index"`
	Placement domain.Placement `json:"placement"`
	Reason    Reason           `json:"reason"`
	Detail    string           `json:"detail"`
}

func (r Rejection) String() string {
	return fmt.Sprintf("item %d (course %d, %s %s): %s", r.Index+1, r.Placement.CourseID, r.Placement.Day, r.Placement.Time, r.Detail)
}

// Accepted is the single in-memory model of an accepted placement. Both storage rows of a
// two-hour class are derived from it.
type Accepted struct {
	Index        int
	Placement    domain.Placement
	Slot         domain.TimeSlot
	Continuation *domain.TimeSlot
}

// OccupiedSlots lists every grid cell the placement takes up, primary slot first.
func (a Accepted) OccupiedSlots() []domain.SlotKey {
	keys := []domain.SlotKey{a.Slot.Key()}
	if a.Continuation != nil {
		keys = append(keys, a.Continuation.Key())
	}
	return keys
}

// Rows returns the schedule items that represent the placement in storage.
func (a Accepted) Rows(scheduleID int64) []domain.ScheduleItem {
	primary := domain.ScheduleItem{
		ScheduleID:   scheduleID,
		CourseID:     a.Placement.CourseID,
		Slot:         a.Slot.Key(),
		VenueID:      a.Placement.VenueID,
		Kind:         a.Placement.ClassType,
		Duration:     a.Placement.Duration,
		LecturerName: a.Placement.Lecturer,
		Notes:        a.Placement.Notes,
	}
	rows := []domain.ScheduleItem{primary}

	if a.Continuation != nil {
		cont := primary
		cont.Slot = a.Continuation.Key()
		cont.Kind = domain.ClassPracticalCont
		cont.Duration = 0
		cont.Notes = "Continuation of practical class"
		rows = append(rows, cont)
	}

	return rows
}

type Result struct {
	Accepted   []Accepted
	Rejections []Rejection
}

func (r *Result) OK() bool {
	return len(r.Rejections) == 0
}

// Rows expands every accepted placement into storage rows, in batch order.
func (r *Result) Rows(scheduleID int64) []domain.ScheduleItem {
	rows := make([]domain.ScheduleItem, 0, len(r.Accepted)*2)
	for _, a := range r.Accepted {
		rows = append(rows, a.Rows(scheduleID)...)
	}
	return rows
}

type RejectionError struct {
	Rejections []Rejection
}

func (e *RejectionError) Error() string {
	msgs := make([]string, 0, len(e.Rejections))
	for _, r := range e.Rejections {
		msgs = append(msgs, r.String())
	}
	return "placement rejected: " + strings.Join(msgs, "; ")
}

// Err returns a *RejectionError when the batch has any rejection.
func (r *Result) Err() error {
	if r.OK() {
		return nil
	}
	return &RejectionError{Rejections: r.Rejections}
}

type Validator struct {
	catalog *timeslot.Catalog
}

func NewValidator(catalog *timeslot.Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// Validate partitions placements into accepted and rejected ones. It performs no I/O and
// the outcome only depends on the batch and its order: when two placements conflict, the
// earlier one wins and the later one is rejected.
func (v *Validator) Validate(placements []domain.Placement) *Result {
	res := &Result{}
	seenCourses := make(map[int64]int)
	occupied := make(map[domain.SlotKey]int)

	reject := func(i int, p domain.Placement, reason Reason, format string, args ...any) {
		res.Rejections = append(res.Rejections, Rejection{
			Index:     i,
			Placement: p,
			Reason:    reason,
			Detail:    fmt.Sprintf(format, args...),
		})
	}

	for i, p := range placements {
		if first, seen := seenCourses[p.CourseID]; seen {
			reject(i, p, ReasonDuplicateCourse, "course %d is already placed by item %d", p.CourseID, first+1)
			continue
		}
		seenCourses[p.CourseID] = i

		slot, err := v.catalog.Resolve(p.Day, p.Time)
		if err != nil {
			reject(i, p, ReasonUnknownSlot, "no slot at %s %s", p.Day, p.Time)
			continue
		}
		if slot.Kind == domain.SlotLunch {
			reject(i, p, ReasonLunchSlot, "%s is the lunch break", slot.Key())
			continue
		}

		a := Accepted{Index: i, Placement: p, Slot: slot}
		a.Placement.Time = slot.Start

		if p.Duration == 2 {
			next, ok := v.catalog.Next(slot.Day, slot.Start)
			if !ok || next.Kind == domain.SlotLunch {
				reject(i, p, ReasonInsufficientContiguousSlots, "a two-hour class cannot start at %s", slot.Key())
				continue
			}
			a.Continuation = &next
		}

		collided := false
		for _, key := range a.OccupiedSlots() {
			if owner, taken := occupied[key]; taken {
				reject(i, p, ReasonSlotCollision, "%s is already taken by item %d", key, owner+1)
				collided = true
				break
			}
		}
		if collided {
			continue
		}

		for _, key := range a.OccupiedSlots() {
			occupied[key] = i
		}
		res.Accepted = append(res.Accepted, a)
	}

	return res
}
