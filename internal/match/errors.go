package match

import "errors"

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrNotFound            = errors.New("not found")
	ErrMatchFull           = errors.New("match is full for this position")
	ErrAlreadyWaiting      = errors.New("player is already on the waitlist")
	ErrAlreadyConfirmed    = errors.New("player is already confirmed")
	ErrSlotAvailable       = errors.New("position has a free slot, confirm instead")
	ErrConfirmationsClosed = errors.New("match is not accepting confirmations")
	ErrNotNotified         = errors.New("player has no pending waitlist notification")
	ErrContention          = errors.New("too much contention on match, try again")
	ErrBalancerUnavailable = errors.New("team balancer unavailable")
	ErrInvalidPosition     = errors.New("invalid position")
	ErrInvalidTeamCount    = errors.New("invalid number of teams")
	ErrInvalidInput        = errors.New("invalid input")
)
