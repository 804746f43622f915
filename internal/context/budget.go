package ctxengine

import "fmt"

// ContextBudget partitions a total token budget across prompt sections.
// Invariant: System + Skills + Memory + History <= Total, every share >= 0.
type ContextBudget struct {
	Total   int
	System  int
	Skills  int
	Memory  int
	History int
}

// Used returns the total number of tokens allotted across all sections.
func (b ContextBudget) Used() int {
	return b.System + b.Skills + b.Memory + b.History
}

// BudgetProfile is the shape of a single allocation: the system floor plus
// the ratios splitting the remainder. Callers pass one per request to honor
// task-type specific shapes; a zero floor is meaningful and preserved.
type BudgetProfile struct {
	SystemFloor  int
	SkillsRatio  float64
	MemoryRatio  float64
	HistoryRatio float64
}

// Allocator partitions token budgets according to configured floors and
// ratios. The system floor is applied first; the remainder is split across
// skills, memory and history proportionally. The config is taken as given,
// including an explicit zero floor.
type Allocator struct {
	cfg Config
}

// NewAllocator creates an Allocator with the given config.
func NewAllocator(cfg Config) *Allocator {
	return &Allocator{cfg: cfg}
}

// Allocate partitions totalTokens using the configured default shape.
func (a *Allocator) Allocate(totalTokens int) (ContextBudget, error) {
	return a.AllocateProfile(totalTokens, BudgetProfile{
		SystemFloor:  a.cfg.SystemFloor,
		SkillsRatio:  a.cfg.SkillsRatio,
		MemoryRatio:  a.cfg.MemoryRatio,
		HistoryRatio: a.cfg.HistoryRatio,
	})
}

// AllocateProfile partitions totalTokens into a ContextBudget under the
// given shape. When totalTokens cannot cover the system floor it fails with
// ErrBudgetInfeasible rather than silently zeroing a section; callers must
// raise the ceiling or abort the turn.
func (a *Allocator) AllocateProfile(totalTokens int, p BudgetProfile) (ContextBudget, error) {
	floor := p.SystemFloor
	if totalTokens < floor {
		return ContextBudget{}, fmt.Errorf(
			"%w: total %d below system floor %d",
			ErrBudgetInfeasible, totalTokens, floor,
		)
	}

	remainder := totalTokens - floor

	sum := p.SkillsRatio + p.MemoryRatio + p.HistoryRatio
	if sum <= 0 {
		// Degenerate config: everything beyond the floor goes to history.
		return ContextBudget{
			Total:   totalTokens,
			System:  floor,
			History: remainder,
		}, nil
	}

	skills := int(float64(remainder) * p.SkillsRatio / sum)
	memory := int(float64(remainder) * p.MemoryRatio / sum)
	// History takes the remainder so integer rounding never loses tokens
	// and the shares always sum to exactly the total.
	history := remainder - skills - memory

	return ContextBudget{
		Total:   totalTokens,
		System:  floor,
		Skills:  skills,
		Memory:  memory,
		History: history,
	}, nil
}
