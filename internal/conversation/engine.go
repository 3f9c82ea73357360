package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zombor/expense-bot/internal/category"
	"github.com/zombor/expense-bot/internal/extraction"
	"github.com/zombor/expense-bot/internal/fingerprint"
	"github.com/zombor/expense-bot/internal/receipt"
)

// maxConfirmAttempts bounds the duplicate-confirmation loop: after this many
// unrecognized replies the session is abandoned instead of re-prompting
// forever.
const maxConfirmAttempts = 3

// OutboundFunc delivers one message to a submitter.
type OutboundFunc func(submitterID string, text string)

// ScopeFunc maps a submitter to their dedup scope (e.g. a company). The
// engine passes the result through opaquely.
type ScopeFunc func(submitterID string) string

// Engine is the per-submitter conversation state machine. Every transition
// ends in a definite next state and at least one outbound message on terminal
// and error paths; nothing is ever dropped silently.
type Engine struct {
	store      *Store
	extractor  extraction.Extractor
	rules      *category.Rules
	finalizer  *receipt.Finalizer
	index      receipt.DedupIndex
	outbound   OutboundFunc
	scope      ScopeFunc
	timeSource receipt.TimeSource
}

// Config collects the engine's collaborators.
type Config struct {
	Store      *Store
	Extractor  extraction.Extractor
	Rules      *category.Rules
	Finalizer  *receipt.Finalizer
	Index      receipt.DedupIndex
	Outbound   OutboundFunc
	Scope      ScopeFunc
	TimeSource receipt.TimeSource // optional, defaults to the wall clock
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		store:      cfg.Store,
		extractor:  cfg.Extractor,
		rules:      cfg.Rules,
		finalizer:  cfg.Finalizer,
		index:      cfg.Index,
		outbound:   cfg.Outbound,
		scope:      cfg.Scope,
		timeSource: cfg.TimeSource,
	}
	if e.store == nil {
		e.store = NewStore()
	}
	if e.scope == nil {
		e.scope = func(string) string { return "default" }
	}
	if e.timeSource == nil {
		e.timeSource = wallClock{}
	}
	return e
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (e *Engine) now() time.Time {
	return e.timeSource.Now()
}

// HandleImage processes an inbound receipt image. A new image in any state
// abandons the current session; no fields carry over between images.
func (e *Engine) HandleImage(ctx context.Context, submitterID string, imageData []byte, contentType string, locale string) {
	e.store.Update(submitterID, func(sess *Session) *Session {
		lang := defaultLanguage
		if locale != "" {
			lang = locale
		}
		if sess != nil {
			// The old session is abandoned wholesale; its language survives
			// only when the new image carries no locale of its own.
			if locale == "" {
				lang = sess.Language
			}
			slog.Info("New image abandons in-flight session",
				"submitter", submitterID,
				"state", sess.State.String(),
			)
		}

		e.outbound(submitterID, msgProcessing(lang))

		now := e.now()
		sess = &Session{
			State:          StateAwaitingExtraction,
			Language:       lang,
			ImageData:      imageData,
			ContentType:    contentType,
			Fingerprint:    fingerprint.Sum(imageData),
			Fields:         extraction.NewFields(),
			CreatedAt:      now,
			LastActivityAt: now,
		}

		fields, err := e.extractor.Extract(ctx, imageData, contentType, locale)
		if err != nil {
			var extractionErr *extraction.ExtractionError
			if errors.As(err, &extractionErr) && extractionErr.Raw != "" {
				slog.Error("Extraction failed", "submitter", submitterID, "error", err, "raw", extractionErr.Raw)
			} else {
				slog.Error("Extraction failed", "submitter", submitterID, "error", err)
			}
			e.outbound(submitterID, msgExtractionFailed(lang))
			return nil
		}

		sess.Fields.Merge(fields)

		// Categorization runs exactly once, before the missing-field
		// computation, and never again on later replies.
		if !sess.Fields.Has(extraction.FieldCategory) {
			if merchant, ok := sess.Fields.Get(extraction.FieldMerchant); ok {
				if cat, found := e.rules.Suggest(merchant); found {
					sess.Fields.Set(extraction.FieldCategory, cat)
				}
			}
		}

		sess.State = StateCollectingInfo
		return e.advance(ctx, submitterID, sess)
	})
}

// HandleText processes an inbound text message. Replies are always
// interpreted as an answer to the single outstanding question.
func (e *Engine) HandleText(ctx context.Context, submitterID string, text string) {
	e.store.Update(submitterID, func(sess *Session) *Session {
		if sess == nil {
			e.outbound(submitterID, msgGreeting(detectLanguage(text)))
			return nil
		}

		sess.Touch(e.now())
		lang := sess.Language

		switch sess.State {
		case StateAwaitingDuplicateConfirm:
			return e.handleDuplicateReply(ctx, submitterID, sess, text)

		case StateCollectingInfo:
			field := sess.PendingField
			if field == "" {
				// Should not happen: COLLECTING_INFO always has a question
				// outstanding. Recompute instead of guessing.
				slog.Warn("Session collecting info with no pending field", "submitter", submitterID)
				return e.advance(ctx, submitterID, sess)
			}

			value, err := e.extractor.ParseReply(ctx, field, text, sess.Fields)
			if err != nil {
				slog.Info("Unparseable reply, re-asking",
					"submitter", submitterID,
					"field", field,
					"error", err,
				)
				e.outbound(submitterID, msgReask(field, lang))
				return sess
			}

			sess.Fields.Set(field, value)
			return e.advance(ctx, submitterID, sess)

		default:
			// AwaitingExtraction and Finalizing are transient; a session is
			// never parked in them between messages.
			slog.Warn("Text in unexpected state", "submitter", submitterID, "state", sess.State.String())
			e.outbound(submitterID, msgGreeting(lang))
			return sess
		}
	})
}

// advance moves a COLLECTING_INFO session forward: ask the next missing
// required field, or run the duplicate check and finalize. Returns the
// session to keep (nil when the submission is done or discarded).
func (e *Engine) advance(ctx context.Context, submitterID string, sess *Session) *Session {
	if field, missing := sess.NextMissing(); missing {
		sess.PendingField = field
		e.outbound(submitterID, msgAskField(field, sess.Language))
		return sess
	}
	sess.PendingField = ""

	if !sess.DuplicateConfirmed {
		prior, err := e.index.Lookup(e.scope(submitterID), sess.Fingerprint)
		if err != nil {
			// Dedup is best effort: an unreadable index must not block a
			// submission.
			slog.Warn("Dedup lookup failed", "submitter", submitterID, "error", err)
		}
		if prior != nil {
			sess.State = StateAwaitingDuplicateConfirm
			sess.ConfirmAttempts = 0
			e.outbound(submitterID, msgDuplicate(prior, sess.Language))
			return sess
		}
	}

	return e.finalize(ctx, submitterID, sess)
}

// handleDuplicateReply runs the duplicate-confirmation sub-flow: affirmative
// finalizes, negative discards, anything else re-asks up to the attempt
// bound.
func (e *Engine) handleDuplicateReply(ctx context.Context, submitterID string, sess *Session, text string) *Session {
	lang := sess.Language

	switch classifyReply(text) {
	case replyYes:
		sess.DuplicateConfirmed = true
		sess.State = StateCollectingInfo
		return e.advance(ctx, submitterID, sess)

	case replyNo:
		slog.Info("Duplicate declined, discarding session", "submitter", submitterID)
		e.outbound(submitterID, msgDuplicateCancelled(lang))
		return nil

	default:
		sess.ConfirmAttempts++
		if sess.ConfirmAttempts >= maxConfirmAttempts {
			slog.Info("Duplicate confirmation abandoned after repeated unrecognized replies",
				"submitter", submitterID,
				"attempts", sess.ConfirmAttempts,
			)
			e.outbound(submitterID, msgDuplicateCancelled(lang))
			return nil
		}
		e.outbound(submitterID, msgDuplicateReask(lang))
		return sess
	}
}

// finalize runs the at-most-once persistence attempt. The session is cleared
// whatever the outcome: a sink failure is reported but never silently
// retried with a stale image.
func (e *Engine) finalize(ctx context.Context, submitterID string, sess *Session) *Session {
	sess.State = StateFinalizing
	lang := sess.Language
	e.outbound(submitterID, msgSaving(lang))

	record, err := e.finalizer.Finalize(ctx, receipt.Submission{
		SubmitterID: submitterID,
		Scope:       e.scope(submitterID),
		ImageData:   sess.ImageData,
		ContentType: sess.ContentType,
		Fingerprint: sess.Fingerprint,
		Fields:      sess.Fields,
	})
	if err != nil {
		var finalizeErr *receipt.FinalizeError
		if errors.As(err, &finalizeErr) && finalizeErr.Step == receipt.StepAppend {
			slog.Error("Finalize failed", "submitter", submitterID, "step", finalizeErr.Step, "error", err)
			e.outbound(submitterID, msgAppendFailed(lang))
		} else {
			slog.Error("Finalize failed", "submitter", submitterID, "error", err)
			e.outbound(submitterID, msgUploadFailed(lang))
		}
		return nil
	}

	slog.Info("Receipt finalized",
		"submitter", submitterID,
		"merchant", record.Merchant,
		"amount", record.TotalAmount,
		"fingerprint", record.Fingerprint,
	)
	e.outbound(submitterID, e.finalizer.Summary(record, lang))
	return nil
}
