package domain

import "time"

type ClassKind string

const (
	ClassTheory        ClassKind = "theory"
	ClassPractical     ClassKind = "practical"
	ClassPracticalCont ClassKind = "practical_cont"
)

type Schedule struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	Semester   int32     `json:"semester"`
	Year       int32     `json:"year"`
	ShareToken *string   `json:"-"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ScheduleItem is one stored row. A two-hour class is stored as a primary row with
// Duration 2 and a continuation row (ClassPracticalCont, Duration 0) in the next slot.
type ScheduleItem struct {
	ID           int64     `json:"item_id"`
	ScheduleID   int64     `json:"schedule_id"`
	CourseID     int64     `json:"course_id"`
	Slot         SlotKey   `json:"slot"`
	VenueID      *int64    `json:"venue_id"`
	Kind         ClassKind `json:"class_type"`
	Duration     int32     `json:"duration"`
	LecturerName string    `json:"lecturer"`
	Notes        string    `json:"notes"`
}

type ScheduleVersion struct {
	ScheduleID    int64     `json:"schedule_id"`
	VersionNumber int32     `json:"version"`
	Snapshot      []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Placement is a caller-requested assignment of a course to a slot.
type Placement struct {
	CourseID  int64     `json:"course_id"`
	Day       Weekday   `json:"day"`
	Time      string    `json:"time"`
	ClassType ClassKind `json:"class_type"`
	Duration  int32     `json:"duration"`
	VenueID   *int64    `json:"venue_id,omitempty"`
	Lecturer  string    `json:"lecturer,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// ScheduleSnapshot is what the version ledger stores for each accepted save.
type ScheduleSnapshot struct {
	Name      string      `json:"name"`
	Semester  int32       `json:"semester"`
	Year      int32       `json:"year"`
	Items     []Placement `json:"items"`
	CreatedAt time.Time   `json:"saved_at"`
}
