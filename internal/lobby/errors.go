package lobby

import "errors"

var (
	// ErrInvalidRequest rejects an unknown game type, invalid options or a self-challenge.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBusy is returned when a participant already belongs to a queue, challenge or session.
	ErrBusy = errors.New("player busy")
	// ErrUnavailable is returned when the challenged user is not connected.
	ErrUnavailable = errors.New("player unavailable")
	// ErrNotFound is returned for stale or expired challenges, queue entries and sessions.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller is not a participant.
	ErrForbidden = errors.New("forbidden")
)
