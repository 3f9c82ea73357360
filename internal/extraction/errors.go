package extraction

import "fmt"

// ExtractionError reports a failed call to the vision service. The raw
// diagnostic from the transport or the malformed response body is preserved
// for logging.
type ExtractionError struct {
	Op  string // "extract" or "parse_reply"
	Raw string
	Err error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("extraction %s: %s", e.Op, e.Raw)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ParseError reports a submitter reply that could not be interpreted as an
// answer for the named field. The caller re-asks the same question without
// advancing.
type ParseError struct {
	Field Field
	Text  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot interpret reply for %s: %q", e.Field, e.Text)
}
