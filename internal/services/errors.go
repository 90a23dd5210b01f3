// Package services defines the business logic of the generation API: drafts,
// variant batches, iterations, version selection and the generation quota.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrProfileNotFound indicates that the requested profile does not exist
	// or is not visible to the current user.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrPlatformNotFound is returned for an unknown platform id or slug.
	ErrPlatformNotFound = errors.New("platform not found")

	// ErrProjectNotFound indicates that the requested project does not exist
	// or is not visible to the current user.
	ErrProjectNotFound = errors.New("project not found")

	// ErrPostNotFound indicates that the post does not exist or belongs to
	// another user.
	ErrPostNotFound = errors.New("post not found")

	// ErrVersionNotFound is returned when a version id does not belong to the
	// post.
	ErrVersionNotFound = errors.New("version not found")

	// ErrNoSelectedVersion means a post has no version to iterate from.
	ErrNoSelectedVersion = errors.New("post has no selected version")

	// ErrQuotaExceeded is returned when the user's generation budget for the
	// current window is spent.
	ErrQuotaExceeded = errors.New("rate limit exceeded")

	// ErrGenerationFailed wraps a failure of the text generator.
	ErrGenerationFailed = errors.New("generation failed")
)
