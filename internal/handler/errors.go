package handler

import (
	"errors"
	"net/http"

	"github.com/saifiimuhammad/Pentutor-Backend/internal/domain"
	"github.com/saifiimuhammad/Pentutor-Backend/internal/service"
)

// errorStatus maps a service error onto an HTTP status and error code. ok is
// false for errors that are not part of the API contract.
func errorStatus(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, domain.ErrCodeUnauthorized, true
	case errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusUnauthorized, domain.ErrCodeInvalidCredential, true
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, service.ErrAlertNotFound):
		return http.StatusNotFound, domain.ErrCodeNotFound, true
	case errors.Is(err, domain.ErrFull):
		return http.StatusConflict, domain.ErrCodeMeetingFull, true
	case errors.Is(err, domain.ErrAlreadyJoined):
		return http.StatusConflict, domain.ErrCodeAlreadyJoined, true
	case errors.Is(err, domain.ErrAlreadyLeft):
		return http.StatusConflict, domain.ErrCodeNotInMeeting, true
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, domain.ErrCodeForbidden, true
	case errors.Is(err, domain.ErrEnded):
		return http.StatusGone, domain.ErrCodeMeetingEnded, true
	case errors.Is(err, domain.ErrInvalidRoom):
		return http.StatusBadRequest, domain.ErrCodeBadRequest, true
	}
	return http.StatusInternalServerError, domain.ErrCodeInternalError, false
}
