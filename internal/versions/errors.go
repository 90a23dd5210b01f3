package versions

import "errors"

var (
	// ErrSelectionInProgress rejects a select while another one for the
	// same post is unresolved.
	ErrSelectionInProgress = errors.New("a version selection is already in progress for this post")
	// ErrVersionNotFound means the version is not in the loaded history.
	ErrVersionNotFound = errors.New("version not found")
	// ErrPostNotLoaded means the post's versions have not been fetched.
	ErrPostNotLoaded = errors.New("post versions not loaded")
	// ErrIterationRateLimited wraps iteration failures caused by quota
	// exhaustion.
	ErrIterationRateLimited = errors.New("iteration rate limit reached; wait for the quota to reset")
	// ErrIterationFailed wraps every other iteration failure.
	ErrIterationFailed = errors.New("iteration failed")
)
