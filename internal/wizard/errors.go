package wizard

import "errors"

var (
	ErrDraftNotFound      = errors.New("draft not found")
	ErrStepBlocked        = errors.New("step transition not allowed")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrDraftTerminal      = errors.New("draft already submitted")
	ErrUnknownService     = errors.New("unknown service")
	ErrUnknownOption      = errors.New("option not offered for service")
	ErrUnknownBudget      = errors.New("unknown budget bracket")
	ErrContactRequired    = errors.New("name and email are required")
	ErrSubmitFailed       = errors.New("inquiry could not be saved")
)
