// Package reliability classifies turn-level failures so the request
// handler can decide which ones become conversational replies and which
// ones propagate as server errors.
package reliability

import (
	"errors"

	"github.com/telexorg/summarizebot/internal/extract"
	"github.com/telexorg/summarizebot/internal/llm"
	"github.com/telexorg/summarizebot/internal/prompt"
)

// Outcome labels how a failure should surface to the user.
type Outcome int

const (
	// OutcomeFatal propagates as a server error.
	OutcomeFatal Outcome = iota
	// OutcomeRateLimited means the completion API is throttling.
	OutcomeRateLimited
	// OutcomeFetchFailed means a referenced resource was unreachable.
	OutcomeFetchFailed
	// OutcomeUnsupportedFile means the referenced file type is unknown.
	OutcomeUnsupportedFile
	// OutcomeEmptyContent means cleaning left nothing to summarize.
	OutcomeEmptyContent
)

// Classify maps an error onto its user-facing outcome.
func Classify(err error) Outcome {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return OutcomeRateLimited
	case errors.Is(err, extract.ErrFetch):
		return OutcomeFetchFailed
	case errors.Is(err, extract.ErrUnsupportedType):
		return OutcomeUnsupportedFile
	case errors.Is(err, prompt.ErrEmptyContent):
		return OutcomeEmptyContent
	default:
		return OutcomeFatal
	}
}

// Recoverable reports whether the outcome should become a natural-
// language reply instead of a protocol error.
func (o Outcome) Recoverable() bool {
	return o != OutcomeFatal
}
