// Package timeslot holds the fixed weekly grid every placement is resolved against.
package timeslot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

var ErrSlotNotFound = errors.New("time slot not found")

type gridSlot struct {
	start string
	end   string
	kind  domain.SlotKind
}

// Each grid is ordered. The next-slot relation only ever moves within one grid, so the
// regular day ends at 15:00 and the evening grid ends at 20:00. Lunch keeps its position.
var (
	regularGrid = []gridSlot{
		{"07:30", "08:30", domain.SlotRegular},
		{"08:30", "09:30", domain.SlotRegular},
		{"09:30", "10:30", domain.SlotRegular},
		{"10:30", "11:30", domain.SlotRegular},
		{"11:30", "12:30", domain.SlotRegular},
		{"12:30", "13:30", domain.SlotRegular},
		{"13:30", "14:00", domain.SlotLunch},
		{"14:00", "15:00", domain.SlotRegular},
		{"15:00", "16:00", domain.SlotRegular},
	}
	partTimeGrid = []gridSlot{
		{"17:15", "18:40", domain.SlotPartTime},
		{"18:40", "20:00", domain.SlotPartTime},
		{"20:00", "21:00", domain.SlotPartTime},
	}
)

type Catalog struct {
	slots map[domain.SlotKey]domain.TimeSlot
	next  map[domain.SlotKey]domain.SlotKey
	byDay map[domain.Weekday][]domain.TimeSlot
}

var defaultCatalog = build()

// Default returns the shared, pre-seeded catalog. It is never mutated after start-up.
func Default() *Catalog {
	return defaultCatalog
}

func build() *Catalog {
	c := &Catalog{
		slots: make(map[domain.SlotKey]domain.TimeSlot),
		next:  make(map[domain.SlotKey]domain.SlotKey),
		byDay: make(map[domain.Weekday][]domain.TimeSlot),
	}

	for _, day := range domain.Weekdays {
		for _, grid := range [][]gridSlot{regularGrid, partTimeGrid} {
			for i, gs := range grid {
				slot := domain.TimeSlot{Day: day, Start: gs.start, End: gs.end, Kind: gs.kind}
				c.slots[slot.Key()] = slot
				c.byDay[day] = append(c.byDay[day], slot)

				if i+1 < len(grid) {
					c.next[slot.Key()] = domain.SlotKey{Day: day, Start: grid[i+1].start}
				}
			}
		}
	}

	return c
}

// NormalizeTime accepts "H:MM", "HH:MM" or "HH:MM:00" and returns "HH:MM". Slots start on
// whole minutes, so any other seconds value is invalid.
func NormalizeTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Second() != 0 {
				break
			}
			return t.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("invalid time %q", s)
}

func (c *Catalog) Resolve(day domain.Weekday, start string) (domain.TimeSlot, error) {
	normalized, err := NormalizeTime(start)
	if err != nil {
		return domain.TimeSlot{}, fmt.Errorf("%w: %s %s", ErrSlotNotFound, day, start)
	}

	slot, ok := c.slots[domain.SlotKey{Day: day, Start: normalized}]
	if !ok {
		return domain.TimeSlot{}, fmt.Errorf("%w: %s %s", ErrSlotNotFound, day, normalized)
	}

	return slot, nil
}

// Next returns the chronologically adjacent slot on the same day, if any. A lunch slot is
// returned as-is; deciding that it cannot be occupied is up to the caller.
func (c *Catalog) Next(day domain.Weekday, start string) (domain.TimeSlot, bool) {
	normalized, err := NormalizeTime(start)
	if err != nil {
		return domain.TimeSlot{}, false
	}

	key, ok := c.next[domain.SlotKey{Day: day, Start: normalized}]
	if !ok {
		return domain.TimeSlot{}, false
	}

	return c.slots[key], true
}

func (c *Catalog) Day(day domain.Weekday) []domain.TimeSlot {
	out := make([]domain.TimeSlot, len(c.byDay[day]))
	copy(out, c.byDay[day])
	return out
}

// Slots returns every slot ordered by day and then start time.
func (c *Catalog) Slots() []domain.TimeSlot {
	out := make([]domain.TimeSlot, 0, len(c.slots))
	for _, day := range domain.Weekdays {
		out = append(out, c.byDay[day]...)
	}
	return out
}
