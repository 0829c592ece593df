package model

import "time"

// Priority values accepted by the API for cards.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Card struct {
	ID          int64     `json:"id"`
	ColumnID    int64     `json:"column"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	DueDate     *string   `json:"due_date,omitempty"` // YYYY-MM-DD
	IsCompleted bool      `json:"is_completed"`
	Priority    string    `json:"priority,omitempty"`
}
