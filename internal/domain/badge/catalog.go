// Package badge contains the badge catalogue and the unlock rules.
// Definitions are static configuration loaded once at process start;
// awards are the per-learner unlock records.
package badge

import (
	"errors"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOGUE
// ══════════════════════════════════════════════════════════════════════════════

// ID identifies one badge in the catalogue.
type ID string

// Badge identifiers. The base set matches the original unlock rules;
// the extended set is gated behind a feature flag.
const (
	FirstRecitation ID = "first_recitation"
	Streak7         ID = "streak_7"
	Excellence      ID = "excellence"
	Streak30        ID = "streak_30"

	// Extended set.
	Devoted25   ID = "devoted_25"
	CenturyClub ID = "century_club"
)

// EvaluationInput is the post-update state a predicate sees. Predicates
// are side-effect free; all reads happen before evaluation.
type EvaluationInput struct {
	// AttemptCount is the learner's lifetime attempt count including
	// the attempt being processed.
	AttemptCount int

	// CurrentStreak is the streak after the ledger update.
	CurrentStreak int

	// AttemptScore is this attempt's overall score.
	AttemptScore int

	// TotalScore is the lifetime total after the ledger update.
	TotalScore int
}

// Predicate decides whether a badge's unlock condition holds.
type Predicate func(in EvaluationInput) bool

// Definition is one static catalogue entry.
type Definition struct {
	ID          ID
	Name        string
	Description string
	Icon        string

	// Extended marks badges only active when the extended set is
	// enabled.
	Extended bool

	Unlocks Predicate
}

// definitions is the full catalogue in display order. The table drives
// evaluation; adding a badge means adding a row, not a branch.
var definitions = []Definition{
	{
		ID:          FirstRecitation,
		Name:        "First Recitation",
		Description: "Complete your first recitation attempt",
		Icon:        "🌙",
		Unlocks: func(in EvaluationInput) bool {
			return in.AttemptCount == 1
		},
	},
	{
		ID:          Streak7,
		Name:        "Week of Devotion",
		Description: "Practice seven days in a row",
		Icon:        "🔥",
		Unlocks: func(in EvaluationInput) bool {
			return in.CurrentStreak >= 7
		},
	},
	{
		ID:          Excellence,
		Name:        "Excellence",
		Description: "Score 98 or higher on a single attempt",
		Icon:        "⭐",
		Unlocks: func(in EvaluationInput) bool {
			return in.AttemptScore >= 98
		},
	},
	{
		ID:          Streak30,
		Name:        "Month of Devotion",
		Description: "Practice thirty days in a row",
		Icon:        "🏆",
		Unlocks: func(in EvaluationInput) bool {
			return in.CurrentStreak >= 30
		},
	},
	{
		ID:          Devoted25,
		Name:        "Devoted Reciter",
		Description: "Complete twenty-five recitation attempts",
		Icon:        "📖",
		Extended:    true,
		Unlocks: func(in EvaluationInput) bool {
			return in.AttemptCount >= 25
		},
	},
	{
		ID:          CenturyClub,
		Name:        "Century Club",
		Description: "Reach a lifetime score of 10000",
		Icon:        "💯",
		Extended:    true,
		Unlocks: func(in EvaluationInput) bool {
			return in.TotalScore >= 10000
		},
	},
}

// Catalog is the immutable badge catalogue active for this process.
type Catalog struct {
	defs []Definition
	byID map[ID]Definition
}

// NewCatalog builds the catalogue, including the extended badges only
// when enabled.
func NewCatalog(extendedSet bool) *Catalog {
	c := &Catalog{byID: make(map[ID]Definition)}
	for _, d := range definitions {
		if d.Extended && !extendedSet {
			continue
		}
		c.defs = append(c.defs, d)
		c.byID[d.ID] = d
	}
	return c
}

// All returns the active definitions in display order.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Get returns one definition.
// Returns ErrUnknownBadge for IDs outside the active catalogue.
func (c *Catalog) Get(id ID) (Definition, error) {
	d, ok := c.byID[id]
	if !ok {
		return Definition{}, ErrUnknownBadge
	}
	return d, nil
}

// Evaluate returns the definitions whose predicates hold for the given
// post-update state. The anti-duplication check against existing awards
// happens at the storage layer, not here.
func (c *Catalog) Evaluate(in EvaluationInput) []Definition {
	var unlocked []Definition
	for _, d := range c.defs {
		if d.Unlocks(in) {
			unlocked = append(unlocked, d)
		}
	}
	return unlocked
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUnknownBadge - the badge ID is not in the active catalogue.
	ErrUnknownBadge = errors.New("unknown badge")
)
