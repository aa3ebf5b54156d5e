package postgres

import (
	"context"
	"fmt"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/badge"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE AWARD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRepository implements badge.Repository for PostgreSQL.
type BadgeRepository struct {
	db Querier
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(db Querier) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// AwardOnce inserts the award unless the (learner, badge) pair already
// holds one. ON CONFLICT DO NOTHING makes the check-then-insert
// race-safe: whichever submission inserts first wins, the loser sees
// zero rows affected and reports nothing new.
func (r *BadgeRepository) AwardOnce(ctx context.Context, award badge.Award) (bool, error) {
	query := `
		INSERT INTO badge_awards (learner_id, badge_id, awarded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (learner_id, badge_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		award.LearnerID,
		string(award.BadgeID),
		award.AwardedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to award badge: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// GetAwards returns every award held by the learner.
func (r *BadgeRepository) GetAwards(ctx context.Context, learnerID string) ([]badge.Award, error) {
	query := `
		SELECT learner_id, badge_id, awarded_at
		FROM badge_awards
		WHERE learner_id = $1
		ORDER BY awarded_at
	`

	rows, err := r.db.Query(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge awards: %w", err)
	}
	defer rows.Close()

	var awards []badge.Award
	for rows.Next() {
		var (
			a  badge.Award
			id string
		)
		if err := rows.Scan(&a.LearnerID, &id, &a.AwardedAt); err != nil {
			return nil, fmt.Errorf("failed to scan badge award: %w", err)
		}
		a.BadgeID = badge.ID(id)
		awards = append(awards, a)
	}

	return awards, rows.Err()
}

// CountAwards returns how many badges the learner holds.
func (r *BadgeRepository) CountAwards(ctx context.Context, learnerID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM badge_awards WHERE learner_id = $1`, learnerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count badge awards: %w", err)
	}
	return count, nil
}
