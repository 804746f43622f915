package ctxengine

import (
	"github.com/jmertens/ctxweave/internal/session"
)

// perMessageOverhead approximates role and formatting tokens per message.
const perMessageOverhead = 4

// TokenEstimator estimates the token count of a string. Implementations
// must be monotonic under concatenation and return 0 for empty input.
// This is the sole conversion point between character-length reasoning and
// token-budget reasoning.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator estimates tokens using a simple characters-per-token ratio.
// A ratio of ~4 works well for English; ~3 for French or other Latin
// languages.
type CharEstimator struct {
	CharsPerToken float64
}

// NewCharEstimator creates a CharEstimator with the given ratio.
// If charsPerToken is <= 0, defaults to 4.0 (English approximation).
func NewCharEstimator(charsPerToken float64) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &CharEstimator{CharsPerToken: charsPerToken}
}

// Estimate returns the estimated token count for the given text.
func (e *CharEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := float64(len(text)) / e.CharsPerToken
	// Always round up to avoid underestimation.
	return int(tokens) + 1
}

// EstimateMessage returns the estimated tokens for a single message,
// including per-message formatting overhead.
func EstimateMessage(estimator TokenEstimator, msg session.Message) int {
	return perMessageOverhead + estimator.Estimate(msg.Content)
}

// EstimateMessages returns the total estimated tokens for a message slice.
func EstimateMessages(estimator TokenEstimator, messages []session.Message) int {
	total := 0
	for i := range messages {
		total += EstimateMessage(estimator, messages[i])
	}
	return total
}
