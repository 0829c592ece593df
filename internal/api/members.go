package api

import (
	"context"
	"fmt"
	"log/slog"

	"cardtrack/internal/model"

	"golang.org/x/sync/errgroup"
)

type InviteRequest struct {
	Email string     `json:"email" validate:"required,email"`
	Role  model.Role `json:"role" validate:"required,oneof=owner editor viewer"`
}

type RoleRequest struct {
	Role model.Role `json:"role" validate:"required,oneof=owner editor viewer"`
}

// GetMembers lists board memberships. Members that only carry a user id
// are completed with the user's name and email; lookups that fail leave
// the membership as returned.
func (c *Client) GetMembers(ctx context.Context, boardID int64) ([]model.Member, error) {
	var members []model.Member
	if err := c.get(ctx, fmt.Sprintf("/boards/%d/members/", boardID), &members); err != nil {
		return nil, err
	}

	var g errgroup.Group
	for i := range members {
		m := &members[i]
		if m.UserEmail != "" || m.UserID <= 0 {
			continue
		}
		g.Go(func() error {
			user, err := c.GetUser(ctx, m.UserID)
			if err != nil {
				slog.Debug("member user lookup failed", "member_id", m.ID, "user_id", m.UserID, "error", err)
				return nil
			}
			m.UserEmail = user.Email
			if m.UserName == "" {
				m.UserName = user.Name
			}
			return nil
		})
	}
	_ = g.Wait()

	return members, nil
}

func (c *Client) InviteMember(ctx context.Context, boardID int64, req InviteRequest) (*model.Member, error) {
	var member model.Member
	if err := c.post(ctx, fmt.Sprintf("/boards/%d/invite/", boardID), req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

func (c *Client) UpdateMemberRole(ctx context.Context, boardID, memberID int64, r model.Role) (*model.Member, error) {
	var member model.Member
	path := fmt.Sprintf("/boards/%d/members/%d/", boardID, memberID)
	if err := c.patch(ctx, path, RoleRequest{Role: r}, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// LeaveBoard removes the acting user's own membership.
func (c *Client) LeaveBoard(ctx context.Context, boardID int64) error {
	return c.post(ctx, fmt.Sprintf("/boards/%d/leave/", boardID), nil, nil)
}
