package timetable

import (
	"errors"

	"github.com/nust-timetable/timetable-manager/backend/internal/placement"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrVersionNotFound  = errors.New("schedule version not found")
	ErrForbidden        = errors.New("schedule belongs to another user")
	ErrSaveFailed       = errors.New("failed to save schedule")
	ErrInvalidPayload   = errors.New("invalid payload")
)

// RejectionError is returned by SaveSchedule when at least one placement was rejected.
type RejectionError = placement.RejectionError
