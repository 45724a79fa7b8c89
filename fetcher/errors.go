package fetcher

import (
	"errors"
	"fmt"
)

// Reason classifies a failed fetch.
type Reason int

const (
	// ReasonNetwork covers transport failures, timeouts and malformed
	// responses.
	ReasonNetwork Reason = iota
	// ReasonHTTPStatus means the server answered with a non-2xx status.
	ReasonHTTPStatus
	// ReasonEmptyBody means the response carried no content.
	ReasonEmptyBody
)

func (r Reason) String() string {
	switch r {
	case ReasonNetwork:
		return "NETWORK"
	case ReasonHTTPStatus:
		return "HTTP_STATUS"
	case ReasonEmptyBody:
		return "EMPTY_BODY"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// FetchError is returned by every Fetcher on failure.
type FetchError struct {
	Reason Reason
	URL    string
	Status int // set for ReasonHTTPStatus
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Reason {
	case ReasonHTTPStatus:
		return fmt.Sprintf("fetching %s: %s %d", e.URL, e.Reason, e.Status)
	case ReasonEmptyBody:
		return fmt.Sprintf("fetching %s: %s", e.URL, e.Reason)
	default:
		return fmt.Sprintf("fetching %s: %s: %v", e.URL, e.Reason, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the fetch failure reason from err.
func ReasonOf(err error) (Reason, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason, true
	}
	return 0, false
}
