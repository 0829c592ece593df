package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cardtrack/internal/api"
	"cardtrack/internal/board"
	"cardtrack/internal/role"

	"gopkg.in/yaml.v3"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the server or the role gate refused the request
	ExitCommandError = 2 // bad arguments, missing token, unreachable API
)

// ExitError carries the exit code a command should terminate with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode maps an error returned by a command to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var me *api.MutationError
	var loadErr *board.LoadError
	switch {
	case errors.As(err, &me), errors.Is(err, role.ErrPermissionDenied):
		return ExitFailure
	case errors.As(err, &loadErr), errors.Is(err, api.ErrNetwork):
		return ExitCommandError
	}
	return ExitFailure
}

// OutputFormatter writes command results as text, JSON or YAML.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Print writes v in the configured format. In text mode text renders it.
func (f *OutputFormatter) Print(v any, text func(w io.Writer)) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		plain, err := jsonShaped(v)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(plain); err != nil {
			return err
		}
		return enc.Close()
	}
	text(f.Writer)
	return nil
}

// Done prints a confirmation for commands without a result.
func (f *OutputFormatter) Done(message string) error {
	return f.Print(map[string]string{"status": "ok", "message": message}, func(w io.Writer) {
		fmt.Fprintln(w, message)
	})
}

// jsonShaped converts v to plain maps and slices so YAML output uses the
// same field names as the API.
func jsonShaped(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
