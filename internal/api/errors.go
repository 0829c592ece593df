package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Fallback messages used when the server error cannot be interpreted.
const (
	MessageRequestFailed = "request failed"
	MessageNetworkError  = "network error"
	MessageCancelled     = "request cancelled"
)

// ErrNetwork wraps transport failures (no HTTP response was received).
var ErrNetwork = errors.New("network error")

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Message string
	Body    any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func newError(status int, data []byte) *Error {
	e := &Error{Status: status}
	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		if s := strings.TrimSpace(string(data)); s != "" {
			e.Body = s
		}
		return e
	}
	e.Body = body
	e.Message = messageFromBody(body)
	return e
}

// messageFromBody extracts a human readable message from the structured
// error bodies the API produces: {"detail": ...}, {"error": ...}, or DRF
// field errors such as {"title": ["This field is required."]}.
func messageFromBody(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		if s, ok := body.(string); ok {
			return s
		}
		return ""
	}
	for _, key := range []string{"detail", "error", "message"} {
		if s := firstString(obj[key]); s != "" {
			return s
		}
	}
	if s := firstString(obj["non_field_errors"]); s != "" {
		return s
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := firstString(obj[k]); s != "" {
			return k + ": " + s
		}
	}
	return ""
}

func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, item := range t {
			if s := firstString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

// UserMessage turns any error returned by the client into a message fit
// for showing to a user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var me *MutationError
	if errors.As(err, &me) {
		return me.Message
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return MessageRequestFailed
	}
	if errors.Is(err, ErrNetwork) {
		return MessageNetworkError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return MessageCancelled
	}
	return MessageRequestFailed
}

// MutationError is the normalized failure of a create/update/delete,
// invite or role change call.
type MutationError struct {
	Op      string
	Message string
	Err     error
}

func (e *MutationError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *MutationError) Unwrap() error { return e.Err }

// Normalize wraps err into a *MutationError for op. A nil error stays nil
// and an existing *MutationError is returned unchanged.
func Normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	var me *MutationError
	if errors.As(err, &me) {
		return me
	}
	return &MutationError{Op: op, Message: UserMessage(err), Err: err}
}
