package resource

import (
	"errors"
	"fmt"
)

// ErrParse matches every ParseError through errors.Is.
var ErrParse = errors.New("parse failed")

// Sources tagging a ParseError.
const (
	SourceWebservice = "webservice"
	SourceCache      = "cache"
)

// ParseError reports that a parse function rejected otherwise valid bytes.
// It lets callers tell bad data apart from a failed transport.
type ParseError struct {
	Source string
	URL    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: failed to parse %s", e.Source, e.URL)
	}
	return fmt.Sprintf("%s: failed to parse %s: %v", e.Source, e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
