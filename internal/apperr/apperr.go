package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of error categories the service surfaces.
// Callers match on the kind, never on message text.
type Kind int

const (
	// Unauthenticated covers missing, malformed, expired or otherwise
	// invalid credentials, and unknown principals. The cases are merged
	// on purpose so callers cannot enumerate accounts.
	Unauthenticated Kind = iota
	// ForbiddenCompany means the requested company is not in the
	// principal's membership list.
	ForbiddenCompany
	// CompanyRequired means no company context could be resolved but the
	// operation needs one. A configuration problem, not a credential one.
	CompanyRequired
	// Forbidden means the principal is authenticated and scoped but lacks
	// the required permission code.
	Forbidden
	NotFound
	Internal
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case ForbiddenCompany:
		return "forbidden_company"
	case CompanyRequired:
		return "company_required"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to the status code surfaced at the edge.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case ForbiddenCompany, Forbidden:
		return http.StatusForbidden
	case CompanyRequired:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the single error type crossing component boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with a caller-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches an underlying cause that is logged but never returned to
// the caller.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, defaulting to Internal for errors
// that did not originate in this service.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// PublicMessage returns the body message for err. Authentication failures
// always collapse to the same generic text so the failing stage never
// leaks to the caller.
func PublicMessage(err error) string {
	kind := KindOf(err)
	switch kind {
	case Unauthenticated:
		return "invalid or expired credentials"
	case Internal:
		return "internal server error"
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return kind.String()
}
