package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Weekday int8

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Friday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int8(d))
	}
	return weekdayNames[d]
}

// ParseWeekday accepts a day number ("1".."5") or an English day name, case-insensitive.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if d := Weekday(n); d.Valid() {
			return d, nil
		}
		return 0, fmt.Errorf("day %d is out of range", n)
	}
	for i, name := range weekdayNames[1:] {
		if strings.EqualFold(name, s) {
			return Weekday(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// UnmarshalJSON accepts both 3 and "Wednesday". Out-of-range numbers are kept so that
// request validation can report them.
func (d *Weekday) UnmarshalJSON(b []byte) error {
	var n int8
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Weekday(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("day must be a number or a day name")
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

type SlotKind string

const (
	SlotRegular  SlotKind = "regular"
	SlotLunch    SlotKind = "lunch"
	SlotPartTime SlotKind = "part-time"
)

// SlotKey identifies one cell of the weekly grid. Start is always "HH:MM".
type SlotKey struct {
	Day   Weekday `json:"day"`
	Start string  `json:"time"`
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s %s", k.Day, k.Start)
}

type TimeSlot struct {
	Day   Weekday  `json:"day"`
	Start string   `json:"start_time"`
	End   string   `json:"end_time"`
	Kind  SlotKind `json:"kind"`
}

func (s TimeSlot) Key() SlotKey {
	return SlotKey{Day: s.Day, Start: s.Start}
}
