package extraction

import "context"

// Extractor defines the boundary to the vision/LLM service. Both operations
// return typed errors on every failure path, including timeouts: Extract
// fails with *ExtractionError, ParseReply with *ParseError (service failures
// during reply parsing degrade to the submitter's literal answer rather than
// erroring, so the conversation never stalls on a transport blip).
type Extractor interface {
	// Extract analyzes a receipt image and returns whichever fields the
	// service could read. Unknown fields in the response are ignored and
	// unreadable ones are left absent.
	Extract(ctx context.Context, imageData []byte, contentType string, locale string) (Fields, error)

	// ParseReply interprets a free-text answer for exactly one named field
	// and returns the value to store.
	ParseReply(ctx context.Context, field Field, text string, current Fields) (string, error)

	// Close releases the underlying client.
	Close() error
}
