package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"cardtrack/internal/model"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UserPatch is a partial profile update. Email and password changes are
// not offered: the session token is bound to the email.
type UserPatch struct {
	Name    *string `json:"name,omitempty" validate:"omitnil,min=2,max=100"`
	AboutMe *string `json:"aboutme,omitempty" validate:"omitnil,max=255"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, "/users/login/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	var user model.User
	if err := c.post(ctx, "/users/register/", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.get(ctx, "/users/me/", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	if err := c.get(ctx, userPath(id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser changes the name or about text of a user's profile.
func (c *Client) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*model.User, error) {
	var user model.User
	if err := c.patch(ctx, userPath(id), patch, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UploadProfilePicture replaces a user's picture with the image read from
// r, sent as multipart form field profilepicture.
func (c *Client) UploadProfilePicture(ctx context.Context, id int64, filename string, r io.Reader) (*model.User, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("profilepicture", filepath.Base(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	var user model.User
	if err := c.send(ctx, http.MethodPatch, userPath(id), &buf, form.FormDataContentType(), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func userPath(id int64) string {
	return fmt.Sprintf("/users/%d/", id)
}
