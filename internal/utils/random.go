package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// GenerateShareToken returns 32 lowercase hex characters of randomness.
func GenerateShareToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

var firstNames = []string{
	"Ndapewa", "Tangeni", "Johannes", "Selma", "Petrus", "Martha", "Elago", "Hilma",
	"Simon", "Maria", "Kaino", "Tuli", "Frans", "Aina", "David", "Ester",
}

var lastNames = []string{
	"Shikongo", "Nangolo", "Amutenya", "Haufiku", "Iipumbu", "Nghipondoka", "Kapenda",
	"Shilongo", "van Wyk", "Hamutenya", "Kandjii", "Muller", "Nakale", "Shipanga",
}

var programs = []string{
	"Bachelor of Computer Science",
	"Bachelor of Informatics",
	"Bachelor of Engineering: Electronics",
	"Bachelor of Accounting",
}

var digits = "0123456789"

func GenerateRandomStudentNumber() string {
	var b strings.Builder
	b.WriteByte('2')
	for i := 0; i < 8; i++ {
		b.WriteByte(digits[rand.Intn(len(digits))])
	}
	return b.String()
}

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	studentNumber := GenerateRandomStudentNumber()
	user := &domain.User{
		StudentNumber: studentNumber,
		FirstName:     firstNames[rand.Intn(len(firstNames))],
		LastName:      lastNames[rand.Intn(len(lastNames))],
		Email:         studentNumber + "@" + emailDomainName,
		PasswordHash:  string(passwordHash),
		YearOfStudy:   int32(rand.Intn(4) + 1),
		Program:       programs[rand.Intn(len(programs))],
	}

	return user, nil
}

// GenerateRandomPlacements picks up to n distinct courses and drops each on a random start
// slot. The result is not guaranteed to pass validation.
func GenerateRandomPlacements(courses []*domain.Course, slots []domain.TimeSlot, venues []*domain.Venue, n int) []domain.Placement {
	if len(courses) == 0 || len(slots) == 0 {
		return nil
	}

	picked := rand.Perm(len(courses))
	if n > len(picked) {
		n = len(picked)
	}

	placements := make([]domain.Placement, 0, n)
	for _, ci := range picked[:n] {
		course := courses[ci]
		slot := slots[rand.Intn(len(slots))]

		p := domain.Placement{
			CourseID:  course.ID,
			Day:       slot.Day,
			Time:      slot.Start,
			ClassType: domain.ClassTheory,
			Duration:  1,
		}
		if rand.Intn(3) == 0 {
			p.ClassType = domain.ClassPractical
			p.Duration = 2
		}
		p.Lecturer = course.LecturerFor(p.ClassType)

		if len(venues) > 0 {
			venueID := venues[rand.Intn(len(venues))].ID
			p.VenueID = &venueID
		}

		placements = append(placements, p)
	}

	return placements
}

func GenerateRandomScheduleName() string {
	return fmt.Sprintf("Timetable %s", GenerateShareToken()[:6])
}
