package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/attempt"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AttemptRepository implements attempt.Repository for PostgreSQL.
// The attempts table is append-only; there are no update paths.
type AttemptRepository struct {
	db Querier
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(db Querier) *AttemptRepository {
	return &AttemptRepository{db: db}
}

const attemptColumns = `
	id, learner_id, content_ref, content_name, overall_score, grade,
	duration_seconds, skill_scores, feedback, degraded, submission_key, created_at
`

// Create appends one attempt row.
func (r *AttemptRepository) Create(ctx context.Context, a *attempt.Attempt) error {
	query := `
		INSERT INTO attempts (
			id, learner_id, content_ref, content_name, overall_score, grade,
			duration_seconds, skill_scores, feedback, degraded, submission_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	scoresJSON, err := json.Marshal(skillScoresToMap(a.SkillScores))
	if err != nil {
		return fmt.Errorf("failed to marshal skill scores: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		a.ID,
		a.LearnerID,
		a.ContentRef,
		a.ContentName,
		a.OverallScore,
		string(a.Grade),
		a.DurationSeconds,
		scoresJSON,
		a.Feedback,
		a.Degraded,
		nullableString(a.SubmissionKey),
		a.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return attempt.ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	return nil
}

// GetByID returns one attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id string) (*attempt.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	return scanAttempt(row)
}

// GetBySubmissionKey returns the attempt recorded under an idempotency key.
func (r *AttemptRepository) GetBySubmissionKey(ctx context.Context, key string) (*attempt.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE submission_key = $1`

	row := r.db.QueryRow(ctx, query, key)
	return scanAttempt(row)
}

// ListByLearner returns the learner's attempts, newest first.
func (r *AttemptRepository) ListByLearner(ctx context.Context, learnerID string, opts attempt.ListOptions) ([]*attempt.Attempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM attempts
		WHERE learner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, learnerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*attempt.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// CountByLearner returns the learner's lifetime attempt count.
func (r *AttemptRepository) CountByLearner(ctx context.Context, learnerID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE learner_id = $1`, learnerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// ScoreStats returns aggregate score figures. Degraded attempts count
// toward the total but are excluded from the average and best.
func (r *AttemptRepository) ScoreStats(ctx context.Context, learnerID string) (attempt.ScoreStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(AVG(overall_score) FILTER (WHERE NOT degraded), 0),
			COALESCE(MAX(overall_score) FILTER (WHERE NOT degraded), 0)
		FROM attempts
		WHERE learner_id = $1
	`

	var stats attempt.ScoreStats
	err := r.db.QueryRow(ctx, query, learnerID).Scan(
		&stats.TotalAttempts,
		&stats.AverageScore,
		&stats.BestScore,
	)
	if err != nil {
		return attempt.ScoreStats{}, fmt.Errorf("failed to get score stats: %w", err)
	}

	return stats, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

func scanAttempt(row pgx.Row) (*attempt.Attempt, error) {
	var (
		a             attempt.Attempt
		grade         string
		scoresJSON    []byte
		submissionKey *string
	)

	err := row.Scan(
		&a.ID,
		&a.LearnerID,
		&a.ContentRef,
		&a.ContentName,
		&a.OverallScore,
		&grade,
		&a.DurationSeconds,
		&scoresJSON,
		&a.Feedback,
		&a.Degraded,
		&submissionKey,
		&a.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, attempt.ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to scan attempt: %w", err)
	}

	a.Grade = attempt.Grade(grade)
	if submissionKey != nil {
		a.SubmissionKey = *submissionKey
	}

	var rawScores map[string]int
	if err := json.Unmarshal(scoresJSON, &rawScores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal skill scores: %w", err)
	}
	a.SkillScores = make(map[progress.Skill]int, len(rawScores))
	for name, score := range rawScores {
		a.SkillScores[progress.Skill(name)] = score
	}

	return &a, nil
}

func skillScoresToMap(scores map[progress.Skill]int) map[string]int {
	out := make(map[string]int, len(scores))
	for skill, score := range scores {
		out[string(skill)] = score
	}
	return out
}

// nullableString maps an empty string to SQL NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
