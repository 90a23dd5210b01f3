package generation

import "errors"

var (
	// ErrRateLimited is returned without contacting the API while the
	// tracked quota is exhausted.
	ErrRateLimited = errors.New("generation rate limit reached; wait for the quota to reset")
	// ErrNoPreviousRequest is returned by Regenerate before any generation.
	ErrNoPreviousRequest = errors.New("no previous generation request to repeat")
	// ErrGenerationInProgress rejects a call while another one is in flight.
	ErrGenerationInProgress = errors.New("a generation is already in progress")
	// ErrEmptyResponse means the API answered 2xx without a post or variants.
	ErrEmptyResponse = errors.New("generation response contained no content")
	// ErrVariantIndex is returned by SelectVariant for an out-of-range index.
	ErrVariantIndex = errors.New("variant index out of range")
)
