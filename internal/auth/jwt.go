// Package auth derives the acting user from a session token. Tokens are
// never verified client-side; the API remains the authority.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cardtrack/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid claims")
)

const (
	devPrefix  = "token-"
	fakePrefix = "fake-token-"
)

// SessionFromToken builds a session for token. It understands JWTs
// carrying an email claim and the API's development token forms
// "token-<id>-<email>" and "fake-token-<email>".
func SessionFromToken(token string) (model.Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Token "))
	if token == "" {
		return model.Session{}, ErrInvalidToken
	}

	switch {
	case strings.HasPrefix(token, fakePrefix):
		email := strings.TrimPrefix(token, fakePrefix)
		if email == "" {
			return model.Session{}, ErrInvalidClaims
		}
		return model.Session{Token: token, Email: email}, nil

	case strings.HasPrefix(token, devPrefix):
		idStr, email, ok := strings.Cut(strings.TrimPrefix(token, devPrefix), "-")
		if !ok || email == "" {
			return model.Session{}, ErrInvalidClaims
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return model.Session{}, fmt.Errorf("%w: user id %q", ErrInvalidClaims, idStr)
		}
		return model.Session{Token: token, UserID: id, Email: email}, nil
	}

	return sessionFromJWT(token)
}

func sessionFromJWT(tokenStr string) (model.Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return model.Session{}, ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return model.Session{}, ErrInvalidClaims
	}

	s := model.Session{Token: tokenStr, Email: email}
	switch v := claims["user_id"].(type) {
	case float64:
		s.UserID = int64(v)
	case string:
		s.UserID, _ = strconv.ParseInt(v, 10, 64)
	}
	if s.UserID == 0 {
		if sub, err := claims.GetSubject(); err == nil {
			s.UserID, _ = strconv.ParseInt(sub, 10, 64)
		}
	}
	return s, nil
}
