package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("meeting not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrFull              = errors.New("meeting is full")
	ErrAlreadyJoined     = errors.New("you are already in this meeting")
	ErrAlreadyLeft       = errors.New("you are not in this meeting")
	ErrUnauthorized      = errors.New("not permitted")
	ErrEnded             = errors.New("meeting has ended")

	ErrInvalidPassword   = fmt.Errorf("%w: invalid meeting password", ErrInvalidCredential)
	ErrUnauthenticated   = fmt.Errorf("%w: authentication required", ErrInvalidCredential)
	ErrFeatureDisabled   = fmt.Errorf("%w: disabled for this meeting", ErrUnauthorized)
	ErrInvalidTransition = errors.New("invalid meeting status transition")
	ErrInvalidRoom       = errors.New("invalid room")
)
