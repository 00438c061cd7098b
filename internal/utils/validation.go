package utils

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

func ValidateStudentNumber(s string) error {
	if len(s) != 9 {
		return errors.New("student number must be exactly 9 digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return errors.New("student number must be exactly 9 digits")
		}
	}
	return nil
}

// ValidatePassword requires at least 8 characters with an upper case letter, a lower case
// letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain an upper case letter, a lower case letter and a digit")
	}

	return nil
}

// ValidatePlacementShape checks the fields of a placement that do not depend on the slot
// catalog. Slot existence and contiguity are left to the placement validator.
func ValidatePlacementShape(i int, p domain.Placement) error {
	if p.CourseID <= 0 {
		return fmt.Errorf("item %d: course_id is required", i+1)
	}
	if !p.Day.Valid() {
		return fmt.Errorf("item %d: day must be between 1 and 5", i+1)
	}
	if p.Time == "" {
		return fmt.Errorf("item %d: time is required", i+1)
	}

	switch p.ClassType {
	case domain.ClassTheory, domain.ClassPractical:
	default:
		return fmt.Errorf("item %d: class_type must be theory or practical", i+1)
	}

	if p.Duration != 1 && p.Duration != 2 {
		return fmt.Errorf("item %d: duration must be 1 or 2", i+1)
	}

	return nil
}
