// Package exitcode defines exit codes for the CLI.
package exitcode

import (
	"context"
	"errors"

	"tripboard/internal/service"
	"tripboard/internal/session"
	"tripboard/internal/validate"
)

const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, validation, not found).
	UserError = 1

	// AuthError indicates an auth/config error.
	AuthError = 2

	// BackendError indicates a backend/API/network error.
	BackendError = 3
)

// FromError maps an error returned by a service call to an exit code.
func FromError(err error) int {
	var verrs validate.Errors
	var serr *service.ServerError
	switch {
	case err == nil:
		return Success
	case errors.Is(err, service.ErrAuthenticationRequired), errors.Is(err, session.ErrNoRefreshToken):
		return AuthError
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrAmbiguous), errors.As(err, &verrs):
		return UserError
	case errors.As(err, &serr) && serr.Status >= 400 && serr.Status < 500:
		return UserError
	case errors.Is(err, context.Canceled):
		return UserError
	default:
		return BackendError
	}
}

// Message returns the text printed after "error: " for err.
func Message(err error) string {
	switch FromError(err) {
	case AuthError:
		return "auth error: " + err.Error() + " (run: tripboard login)"
	case BackendError:
		return "backend error: " + err.Error()
	default:
		if errors.Is(err, context.Canceled) {
			return "cancelled"
		}
		return err.Error()
	}
}
