package page

import (
	"errors"
	"fmt"
)

// ErrorKind classifies parse failures.
type ErrorKind int

const (
	// MissingContent means the page has no element matching the content
	// container selector.
	MissingContent ErrorKind = iota
)

func (k ErrorKind) String() string {
	switch k {
	case MissingContent:
		return "MISSING_CONTENT"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ParseError reports a page that cannot be used for a navigation.
type ParseError struct {
	Kind     ErrorKind
	Selector string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: %s (no element matches %q)", e.Kind, e.Selector)
}

// IsMissingContent reports whether err is a MissingContent parse error.
func IsMissingContent(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == MissingContent
}
