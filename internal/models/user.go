package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleAgent Role = "agent"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleAgent:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	BookingIDs   []string  `json:"booking_ids,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserBookingCount is a row of the admin users report.
type UserBookingCount struct {
	User         User  `json:"user"`
	BookingCount int64 `json:"booking_count"`
}
