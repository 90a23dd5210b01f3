package apierror

// DefaultShouldRetry retries transport failures only. Structured errors,
// including 5xx, are assumed not to be transient.
func DefaultShouldRetry(err error) bool {
	return IsTransport(err)
}

// RetryServerErrors retries transport failures and structured 5xx errors.
func RetryServerErrors(err error) bool {
	c := Classify(err)
	switch c.Kind {
	case KindTransport:
		return true
	case KindStructured:
		return c.StatusCode >= 500
	default:
		return false
	}
}
