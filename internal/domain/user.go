package domain

import (
	"time"
)

type User struct {
	ID            int64     `json:"id"`
	StudentNumber string    `json:"student_number"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	YearOfStudy   int32     `json:"year_of_study"`
	Program       string    `json:"program"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
