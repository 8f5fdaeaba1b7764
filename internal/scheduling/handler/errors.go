package handler

import (
	"errors"

	schedsvc "chatdesk_backend/internal/scheduling/service"
	"chatdesk_backend/platform/apperr"
)

// mapBookingError translates typed booking failures into HTTP-mappable
// domain errors. Unknown errors pass through untouched.
func mapBookingError(err error) error {
	var bookErr *schedsvc.BookingError
	if !errors.As(err, &bookErr) {
		return err
	}

	switch bookErr.Type {
	case schedsvc.ErrTypeOrgNotFound:
		return apperr.NotFound(bookErr.Message)
	case schedsvc.ErrTypeCalendarNotConnected:
		return apperr.Conflict(bookErr.Message)
	case schedsvc.ErrTypeOrgFetchFailed,
		schedsvc.ErrTypeAvailabilityCheckFault,
		schedsvc.ErrTypeAPIFailure:
		return apperr.Unavailable(bookErr.Message)
	default:
		return apperr.Internal(bookErr.Message)
	}
}
