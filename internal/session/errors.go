package session

import (
	"errors"
	"fmt"

	"github.com/csheth/bnchat/internal/api"
)

var (
	// ErrOperationInFlight is returned when a learn, undo or reset is started
	// while another one is still outstanding.
	ErrOperationInFlight = errors.New("another state-changing operation is still in flight")
	// ErrDeclined is returned when the user answers no to a confirmation.
	ErrDeclined = errors.New("declined by user")
	// ErrSessionEnded is returned when a reply arrives after the session that
	// issued the call was reset. The reply is discarded.
	ErrSessionEnded = errors.New("session ended before the reply arrived")
)

// ValidationError rejects input before any remote call is made.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// DomainRejection is a service-reported success=false without a conflict.
type DomainRejection struct {
	Op      string
	Message string
}

func (e *DomainRejection) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s rejected by service", e.Op)
	}
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Message)
}

// IsNetwork reports whether err is a transport or decoding failure.
func IsNetwork(err error) bool {
	var netErr *api.NetworkError
	return errors.As(err, &netErr)
}

// IsValidation reports whether err rejected the input locally.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
