package ctxengine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/jmertens/ctxweave/internal/session"
)

// Summarizer produces a condensed summary of an omitted conversation span.
// The concrete implementation typically calls the model provider; the
// compressor only decides that and where a summary is needed, not its
// content.
type Summarizer interface {
	Summarize(ctx context.Context, messages []session.Message) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, messages []session.Message) (string, error)

// Summarize calls f.
func (f SummarizerFunc) Summarize(ctx context.Context, messages []session.Message) (string, error) {
	return f(ctx, messages)
}

// CompressResult is the outcome of fitting a history into a token share.
type CompressResult struct {
	// Messages is the retained subset in original sequence order, possibly
	// with a synthetic summary message standing in for an omitted span.
	Messages []session.Message

	// TokenCount is the estimated cost of Messages.
	TokenCount int

	// Summarized is true when a synthetic summary replaced an omitted span.
	Summarized bool

	// Truncated is true when an omitted span was dropped without a summary
	// (summarizer unavailable or failed). Degraded path; counted.
	Truncated bool

	// Omitted is the number of original messages not retained verbatim.
	Omitted int
}

// Compressor reduces a message history to fit a token share using a
// recency-biased retention policy with summarization fallback.
//
// Policy, in priority order: system messages are always retained; then
// whole messages are retained newest-first while they fit; the omitted
// earliest span is replaced by one synthetic assistant summary. Output
// ordering always matches the original sequence ordering.
type Compressor struct {
	estimator  TokenEstimator
	summarizer Summarizer
	logger     *slog.Logger

	fallbacks atomic.Int64
}

// NewCompressor creates a Compressor. A nil summarizer degrades omitted
// spans to hard truncation instead of summaries.
func NewCompressor(estimator TokenEstimator, summarizer Summarizer, logger *slog.Logger) *Compressor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compressor{
		estimator:  estimator,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Compress fits messages into maxTokens. Empty input returns an empty
// result with no error. When even the system messages alone exceed
// maxTokens, it fails with ErrBudgetInfeasible — the caller must raise the
// ceiling. The synthetic summary is charged against maxTokens like any
// other message: it is trimmed to the leftover headroom and dropped
// entirely when no room remains. The input is never mutated.
func (c *Compressor) Compress(ctx context.Context, messages []session.Message, maxTokens int) (CompressResult, error) {
	if len(messages) == 0 {
		return CompressResult{}, nil
	}

	var system, others []session.Message
	for _, m := range messages {
		if m.IsSystem() {
			system = append(system, m)
		} else {
			others = append(others, m)
		}
	}

	systemCost := EstimateMessages(c.estimator, system)
	if systemCost > maxTokens {
		return CompressResult{}, fmt.Errorf(
			"%w: system messages cost %d exceeds history budget %d",
			ErrBudgetInfeasible, systemCost, maxTokens,
		)
	}

	// Walk backward from the most recent message, retaining whole messages
	// while the cumulative cost stays within budget. Stopping at the first
	// message that does not fit keeps the retained span contiguous, so a
	// single summary can stand in for the omitted prefix.
	remaining := maxTokens - systemCost
	cut := len(others)
	used := 0
	for cut > 0 {
		cost := EstimateMessage(c.estimator, others[cut-1])
		if used+cost > remaining {
			break
		}
		used += cost
		cut--
	}

	omitted := others[:cut]
	retained := others[cut:]

	result := CompressResult{Omitted: len(omitted)}

	out := make([]session.Message, 0, len(system)+len(retained)+1)
	out = append(out, system...)
	out = append(out, retained...)

	if len(omitted) > 0 {
		summary, err := c.summarizeSpan(ctx, omitted)
		if err != nil {
			// Degrade to hard truncation of the oldest span rather than
			// failing the turn.
			c.fallbacks.Add(1)
			c.logger.Warn("ctxengine: dropping omitted span without summary",
				"omitted", len(omitted),
				"error", err,
			)
			result.Truncated = true
		} else {
			// The summary is charged against the same share as everything
			// else; trim it to whatever headroom the retention walk left.
			sm, ok := fitSummary(c.estimator, summaryMessage(summary, omitted), remaining-used)
			if !ok {
				c.fallbacks.Add(1)
				c.logger.Warn("ctxengine: no headroom for summary, dropping omitted span",
					"omitted", len(omitted),
					"headroom", remaining-used,
				)
				result.Truncated = true
			} else {
				out = append(out, sm)
				result.Summarized = true
			}
		}
	}

	slices.SortStableFunc(out, func(a, b session.Message) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return 0
		}
	})

	result.Messages = out
	result.TokenCount = EstimateMessages(c.estimator, out)
	return result, nil
}

// Fallbacks returns how many times the compressor degraded to hard
// truncation because no summary could be produced.
func (c *Compressor) Fallbacks() int64 {
	return c.fallbacks.Load()
}

// summarizeSpan delegates to the configured summarizer. A missing
// summarizer yields ErrSummarizerUnavailable, which Compress recovers from
// by truncating.
func (c *Compressor) summarizeSpan(ctx context.Context, span []session.Message) (string, error) {
	if c.summarizer == nil {
		return "", ErrSummarizerUnavailable
	}
	summary, err := c.summarizer.Summarize(ctx, span)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSummarizerUnavailable, err)
	}
	return summary, nil
}

// summaryHeader prefixes every synthetic summary so downstream renderers can
// tell it apart from genuine assistant turns.
const summaryHeader = "[Conversation summary]\n"

// summaryMessage builds the synthetic assistant message standing in for an
// omitted span. It takes the span's starting sequence number so ordering
// places it exactly where the span was.
func summaryMessage(summary string, span []session.Message) session.Message {
	var b strings.Builder
	b.WriteString(summaryHeader)
	b.WriteString(summary)
	return session.Message{
		Role:      session.RoleAssistant,
		Content:   b.String(),
		Timestamp: span[len(span)-1].Timestamp,
		Seq:       span[0].Seq,
	}
}

// fitSummary trims msg.Content so the message's estimated cost stays within
// headroom. It reports false when not even a usefully short summary fits,
// meaning anything that would cut into the header itself.
func fitSummary(estimator TokenEstimator, msg session.Message, headroom int) (session.Message, bool) {
	if EstimateMessage(estimator, msg) <= headroom {
		return msg, true
	}

	lo, hi := 0, len(msg.Content)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		candidate := msg
		candidate.Content = msg.Content[:mid]
		if EstimateMessage(estimator, candidate) <= headroom {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if lo <= len(summaryHeader) {
		return session.Message{}, false
	}
	msg.Content = msg.Content[:lo]
	return msg, true
}
