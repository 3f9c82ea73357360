package conversation

import (
	"time"

	"github.com/zombor/expense-bot/internal/extraction"
)

// State is the per-submitter conversation state.
type State int

const (
	StateIdle State = iota
	StateAwaitingExtraction
	StateCollectingInfo
	StateAwaitingDuplicateConfirm
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingExtraction:
		return "awaiting_extraction"
	case StateCollectingInfo:
		return "collecting_info"
	case StateAwaitingDuplicateConfirm:
		return "awaiting_duplicate_confirm"
	case StateFinalizing:
		return "finalizing"
	}
	return "unknown"
}

// RequiredFields is the fixed priority order in which missing fields are
// asked for. Everything else on a receipt is informational and never blocks
// finalization.
var RequiredFields = []extraction.Field{
	extraction.FieldCategory,
	extraction.FieldCostCenter,
}

// Session is the in-flight submission for one submitter. It exists only
// between the first image and finalization or abandonment; nothing survives a
// process restart.
type Session struct {
	State              State
	Language           string
	ImageData          []byte
	ContentType        string
	Fingerprint        string
	Fields             extraction.Fields
	PendingField       extraction.Field // empty when no question is outstanding
	DuplicateConfirmed bool
	ConfirmAttempts    int
	CreatedAt          time.Time
	LastActivityAt     time.Time
}

// NextMissing returns the first required field not yet populated.
func (s *Session) NextMissing() (extraction.Field, bool) {
	for _, field := range RequiredFields {
		if !s.Fields.Has(field) {
			return field, true
		}
	}
	return "", false
}

// Touch records activity for the staleness reaper.
func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
}
