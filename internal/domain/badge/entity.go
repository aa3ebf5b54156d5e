package badge

import (
	"time"
)

// Award is one learner's unlock record for one badge. At most one
// exists per (learner, badge); existence is the unlock signal.
type Award struct {
	LearnerID string
	BadgeID   ID
	AwardedAt time.Time
}

// NewAward creates an unlock record stamped now.
func NewAward(learnerID string, badgeID ID) Award {
	return Award{
		LearnerID: learnerID,
		BadgeID:   badgeID,
		AwardedAt: time.Now().UTC(),
	}
}

// EarnedBadge pairs a catalogue entry with the learner's award state,
// for the badge list read view.
type EarnedBadge struct {
	Definition Definition
	Earned     bool
	AwardedAt  time.Time
}
