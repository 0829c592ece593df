package model

import "time"

// Role is a member's capability level on a board.
type Role string

// Board roles. Capabilities are ordered owner ⊇ editor ⊇ viewer.
const (
	RoleOwner  Role = "owner"  // full control, including ownership transfer
	RoleEditor Role = "editor" // can edit columns, cards and invite
	RoleViewer Role = "viewer" // read only

	// RoleUnknown means the acting user could not be matched to a member.
	RoleUnknown Role = ""
)

// Valid reports whether r is one of the three assignable roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Member links a user to a board with a role.
type Member struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user"`
	Role      Role       `json:"role"`
	UserEmail string     `json:"user_email,omitempty"`
	UserName  string     `json:"user_name,omitempty"`
	InvitedAt *time.Time `json:"invited_at,omitempty"`
}
