package service

import "fmt"

// Booking error types. The agent maps each to a differentiated apology, so
// the strings are part of the tool contract.
const (
	ErrTypeOrgNotFound            = "org_not_found"
	ErrTypeOrgFetchFailed         = "org_fetch_failed"
	ErrTypeCalendarNotConnected   = "calendar_not_connected"
	ErrTypeAvailabilityCheckFault = "availability_check_failed"
	ErrTypeAPIFailure             = "api_failure"
)

// BookingError is a structured booking failure.
type BookingError struct {
	Type    string
	Message string
	Err     error
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *BookingError) Unwrap() error { return e.Err }

func bookingErr(errType, message string, err error) *BookingError {
	return &BookingError{Type: errType, Message: message, Err: err}
}
