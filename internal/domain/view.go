package domain

import "time"

// ScheduleItemDetail is a stored item joined against the course, venue and slot tables.
type ScheduleItemDetail struct {
	Item   ScheduleItem
	Course Course
	Venue  *Venue
	Slot   TimeSlot
}

type ScheduleViewItem struct {
	ItemID           int64     `json:"item_id"`
	CourseID         int64     `json:"course_id"`
	CourseCode       string    `json:"course_code"`
	CourseName       string    `json:"course_name"`
	ColorCode        string    `json:"color_code"`
	Day              Weekday   `json:"day"`
	DayName          string    `json:"day_name"`
	Time             string    `json:"time"`
	EndTime          string    `json:"end_time"`
	ClassType        ClassKind `json:"class_type"`
	Duration         int32     `json:"duration"`
	VenueID          *int64    `json:"venue_id"`
	VenueCode        string    `json:"venue_code,omitempty"`
	VenueName        string    `json:"venue_name,omitempty"`
	Lecturer         string    `json:"lecturer"`
	Notes            string    `json:"notes"`
	SlotKind         SlotKind  `json:"slot_kind"`
	ContinuationTime string    `json:"continuation_time,omitempty"`
}

type ScheduleView struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Semester   int32              `json:"semester"`
	Year       int32              `json:"year"`
	IsOwner    bool               `json:"is_owner"`
	ShareToken string             `json:"share_token,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Items      []ScheduleViewItem `json:"items"`
}
