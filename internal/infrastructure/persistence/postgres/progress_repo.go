package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SKILL PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SkillRepository implements progress.SkillRepository for PostgreSQL.
type SkillRepository struct {
	db Querier
}

// NewSkillRepository creates a new SkillRepository.
func NewSkillRepository(db Querier) *SkillRepository {
	return &SkillRepository{db: db}
}

// Get returns the mastery state for one (learner, skill) pair, or nil
// when the skill has never been scored.
func (r *SkillRepository) Get(ctx context.Context, learnerID string, skill progress.Skill) (*progress.SkillProgress, error) {
	query := `
		SELECT learner_id, skill, mastery, attempt_count, updated_at
		FROM skill_progress
		WHERE learner_id = $1 AND skill = $2
	`

	var (
		p     progress.SkillProgress
		name  string
		level int
	)
	err := r.db.QueryRow(ctx, query, learnerID, string(skill)).Scan(
		&p.LearnerID, &name, &level, &p.AttemptCount, &p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get skill progress: %w", err)
	}

	p.Skill = progress.Skill(name)
	p.Mastery = progress.Mastery(level)
	return &p, nil
}

// Upsert writes the mastery state, creating the row on first score.
func (r *SkillRepository) Upsert(ctx context.Context, p *progress.SkillProgress) error {
	query := `
		INSERT INTO skill_progress (learner_id, skill, mastery, attempt_count, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (learner_id, skill) DO UPDATE SET
			mastery = EXCLUDED.mastery,
			attempt_count = EXCLUDED.attempt_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		p.LearnerID,
		string(p.Skill),
		int(p.Mastery),
		p.AttemptCount,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert skill progress: %w", err)
	}

	return nil
}

// GetAll returns every scored skill for the learner, in canonical order.
func (r *SkillRepository) GetAll(ctx context.Context, learnerID string) ([]*progress.SkillProgress, error) {
	query := `
		SELECT learner_id, skill, mastery, attempt_count, updated_at
		FROM skill_progress
		WHERE learner_id = $1
	`

	rows, err := r.db.Query(ctx, query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list skill progress: %w", err)
	}
	defer rows.Close()

	byName := make(map[progress.Skill]*progress.SkillProgress)
	for rows.Next() {
		var (
			p     progress.SkillProgress
			name  string
			level int
		)
		if err := rows.Scan(&p.LearnerID, &name, &level, &p.AttemptCount, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan skill progress: %w", err)
		}
		p.Skill = progress.Skill(name)
		p.Mastery = progress.Mastery(level)
		byName[p.Skill] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Return in the canonical skill order, skipping never-scored skills.
	var out []*progress.SkillProgress
	for _, skill := range progress.AllSkills() {
		if p, ok := byName[skill]; ok {
			out = append(out, p)
		}
	}

	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY ACTIVITY REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyRepository implements progress.WeeklyRepository for PostgreSQL.
type WeeklyRepository struct {
	db Querier
}

// NewWeeklyRepository creates a new WeeklyRepository.
func NewWeeklyRepository(db Querier) *WeeklyRepository {
	return &WeeklyRepository{db: db}
}

// UpsertBest records a score for the (learner, week, weekday) key,
// keeping the maximum. GREATEST on conflict makes the write monotonic
// no matter how submissions interleave.
func (r *WeeklyRepository) UpsertBest(ctx context.Context, e *progress.WeeklyEntry) (int, error) {
	query := `
		INSERT INTO weekly_scores (learner_id, week_start, weekday, score, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (learner_id, week_start, weekday) DO UPDATE SET
			score = GREATEST(weekly_scores.score, EXCLUDED.score),
			updated_at = EXCLUDED.updated_at
		RETURNING score
	`

	var stored int
	err := r.db.QueryRow(ctx, query,
		e.LearnerID,
		e.WeekStart,
		e.Weekday,
		e.BestScore,
		e.UpdatedAt,
	).Scan(&stored)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert weekly score: %w", err)
	}

	return stored, nil
}

// GetWeek returns all entries for one learner and week start.
func (r *WeeklyRepository) GetWeek(ctx context.Context, learnerID string, weekStart time.Time) ([]*progress.WeeklyEntry, error) {
	query := `
		SELECT learner_id, week_start, weekday, score, updated_at
		FROM weekly_scores
		WHERE learner_id = $1 AND week_start = $2
		ORDER BY weekday
	`

	rows, err := r.db.Query(ctx, query, learnerID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly scores: %w", err)
	}
	defer rows.Close()

	var entries []*progress.WeeklyEntry
	for rows.Next() {
		var e progress.WeeklyEntry
		if err := rows.Scan(&e.LearnerID, &e.WeekStart, &e.Weekday, &e.BestScore, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan weekly score: %w", err)
		}
		// week_start is a DATE; re-anchor the UTC-midnight scan value
		// to the day-boundary zone.
		e.WeekStart = timeutil.CalendarDate(e.WeekStart)
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}
