package bridge

import "errors"

var (
	ErrPreconditionFailed    = errors.New("precondition failed")
	ErrSubmission            = errors.New("transfer submission failed")
	ErrInclusionTimeout      = errors.New("transaction not included before timeout")
	ErrFinalizationExhausted = errors.New("withdrawal not finalized before deadline")
	ErrRunClosed             = errors.New("scenario run already closed")
)
