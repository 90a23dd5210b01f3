package apierror

import "net/http"

// StatusCodeMessage maps an HTTP status code to a fixed sentence.
func StatusCodeMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "Invalid request. Please check your input."
	case http.StatusUnauthorized:
		return "You need to sign in to continue."
	case http.StatusForbidden:
		return "You don't have permission to do that."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "This action conflicts with the current state."
	case http.StatusUnprocessableEntity:
		return "Some of the submitted data is invalid."
	case http.StatusTooManyRequests:
		return "Rate limit exceeded. Please wait before trying again."
	case http.StatusInternalServerError:
		return "Server error. Please try again later."
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "The service is temporarily unavailable. Please try again later."
	}
	if code >= 500 && code < 600 {
		return "Server error. Please try again later."
	}
	return "Something went wrong. Please try again."
}

// Display is a failure formatted for an end user.
type Display struct {
	Title       string
	Description string
	StatusCode  int // zero when the failure had no status
}

// Format builds the display triple for v. Structured errors get a
// status-derived title and their raw message as description; anything else
// uses its message as title and an empty description.
func Format(v any) Display {
	c := Classify(v)
	if c.Kind == KindStructured {
		return Display{
			Title:       StatusCodeMessage(c.StatusCode),
			Description: c.Message,
			StatusCode:  c.StatusCode,
		}
	}
	return Display{Title: Message(v)}
}
