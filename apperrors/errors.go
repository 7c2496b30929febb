package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds shared by the engine, the generator and the HTTP layer.
// Lives in its own package so game, picker and api can all match on them
// without importing each other.
var (
	ErrValidation              = errors.New("validation error")
	ErrNotFound                = errors.New("not found")
	ErrConstraintUnsatisfiable = errors.New("constraints unsatisfiable")
	ErrService                 = errors.New("service error")
	ErrUnauthorized            = errors.New("unauthorized")
)

var kinds = []error{ErrValidation, ErrNotFound, ErrConstraintUnsatisfiable, ErrService, ErrUnauthorized}

// Validation returns an ErrValidation carrying a client-facing reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound naming the missing thing (e.g. "game_not_found").
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Service wraps an unexpected internal failure. A nil err yields nil.
func Service(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrService) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrService, err)
}

// HTTPStatus maps an error kind to the status code the API returns for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConstraintUnsatisfiable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-facing text of err: the detail after the kind
// prefix for errors built by this package, the full text otherwise.
// Service errors never leak their cause.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrService) {
		return "internal_error"
	}
	msg := err.Error()
	for _, k := range kinds {
		if rest, ok := strings.CutPrefix(msg, k.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
