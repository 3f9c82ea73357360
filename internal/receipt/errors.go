package receipt

import "fmt"

// Step identifies which finalize sub-step failed.
type Step string

const (
	StepUpload Step = "upload"
	StepAppend Step = "append"
)

// FinalizeError reports a failed sink call during finalization. The session
// is cleared regardless; the submitter must resend the image to retry.
type FinalizeError struct {
	Step Step
	Err  error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("finalize %s: %v", e.Step, e.Err)
}

func (e *FinalizeError) Unwrap() error {
	return e.Err
}
