package model

import "time"

type User struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	AboutMe          string     `json:"aboutme,omitempty"`
	ProfilePicture   string     `json:"profilepicture,omitempty"`
	RegistrationDate *time.Time `json:"registration_date,omitempty"`
	LastLogin        *time.Time `json:"last_login,omitempty"`
}

// Session identifies the acting user. It is passed explicitly to every
// component that needs it.
type Session struct {
	Token  string
	UserID int64
	Email  string
}
