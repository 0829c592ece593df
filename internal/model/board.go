package model

import "time"

type Board struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     int64     `json:"user,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
