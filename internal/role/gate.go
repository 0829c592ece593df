// Package role derives the acting user's board role from membership data
// and answers every "may this user mutate?" question for the client.
package role

import (
	"errors"
	"strings"

	"cardtrack/internal/model"
)

// ErrPermissionDenied is returned when a mutation is refused locally
// because the acting role is not allowed to perform it. Requests refused
// this way are never sent.
var ErrPermissionDenied = errors.New("permission denied")

// Resolve finds the role of the user identified by email in members.
// Unmatched users (or an empty member list) resolve to RoleUnknown.
func Resolve(members []model.Member, email string) model.Role {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.RoleUnknown
	}
	for _, m := range members {
		if strings.EqualFold(strings.TrimSpace(m.UserEmail), email) {
			if m.Role.Valid() {
				return m.Role
			}
			return model.RoleUnknown
		}
	}
	return model.RoleUnknown
}

// Effective maps a resolved role to the role used for gating decisions.
// Anything that is not a known role is treated as a viewer.
func Effective(r model.Role) model.Role {
	if r.Valid() {
		return r
	}
	return model.RoleViewer
}

// CanMutate reports whether r may create, update, delete or move columns,
// cards or memberships.
func CanMutate(r model.Role) bool {
	switch Effective(r) {
	case model.RoleOwner, model.RoleEditor:
		return true
	default:
		return false
	}
}

// CanAssign reports whether actor may change a member's role from current
// to next. Only owners grant ownership, editors may only promote viewers
// to editor, and an owner's role is never changed from the client.
func CanAssign(actor, current, next model.Role) bool {
	if !CanMutate(actor) || !next.Valid() {
		return false
	}
	if current == model.RoleOwner {
		return false
	}
	switch Effective(actor) {
	case model.RoleOwner:
		return true
	case model.RoleEditor:
		return current == model.RoleViewer && next == model.RoleEditor
	default:
		return false
	}
}

// CanInvite reports whether actor may invite a new member with the given role.
func CanInvite(actor, invited model.Role) bool {
	if !CanMutate(actor) || !invited.Valid() {
		return false
	}
	if invited == model.RoleOwner {
		return Effective(actor) == model.RoleOwner
	}
	return true
}

// CanDeleteBoard reports whether actor may delete the whole board.
func CanDeleteBoard(actor model.Role) bool {
	return Effective(actor) == model.RoleOwner
}

// Check returns ErrPermissionDenied unless allowed is true.
func Check(allowed bool) error {
	if !allowed {
		return ErrPermissionDenied
	}
	return nil
}
