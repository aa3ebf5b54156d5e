package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LearnerRepository implements learner.Repository for PostgreSQL.
// It takes a Querier so the same repository runs against the pool for
// reads and against the submission transaction for the locked ledger
// update.
type LearnerRepository struct {
	db Querier
}

// NewLearnerRepository creates a new LearnerRepository.
func NewLearnerRepository(db Querier) *LearnerRepository {
	return &LearnerRepository{db: db}
}

const learnerColumns = `
	id, display_name, email, total_score, current_streak, best_streak,
	last_active_date, is_public, created_at, updated_at
`

// Create registers a new learner.
func (r *LearnerRepository) Create(ctx context.Context, l *learner.Learner) error {
	query := `
		INSERT INTO learners (
			id, display_name, email, total_score, current_streak, best_streak,
			last_active_date, is_public, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		l.ID,
		l.DisplayName,
		l.Email,
		int(l.TotalScore),
		l.CurrentStreak,
		l.BestStreak,
		nullableDate(l.LastActiveDate),
		l.IsPublic,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return learner.ErrLearnerAlreadyExists
		}
		return fmt.Errorf("failed to create learner: %w", err)
	}

	return nil
}

// GetByID returns a learner by internal ID.
func (r *LearnerRepository) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	return scanLearner(row)
}

// GetByIDForUpdate loads the learner row under FOR UPDATE. Concurrent
// submissions for the same learner queue on this lock, which is what
// keeps the EMA and streak updates ordered.
func (r *LearnerRepository) GetByIDForUpdate(ctx context.Context, id string) (*learner.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE id = $1 FOR UPDATE`

	row := r.db.QueryRow(ctx, query, id)
	return scanLearner(row)
}

// UpdateLedger persists the streak/score ledger fields.
func (r *LearnerRepository) UpdateLedger(ctx context.Context, l *learner.Learner) error {
	query := `
		UPDATE learners SET
			total_score = $1,
			current_streak = $2,
			best_streak = $3,
			last_active_date = $4,
			updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.Exec(ctx, query,
		int(l.TotalScore),
		l.CurrentStreak,
		l.BestStreak,
		nullableDate(l.LastActiveDate),
		time.Now().UTC(),
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update learner ledger: %w", err)
	}

	if result.RowsAffected() == 0 {
		return learner.ErrLearnerNotFound
	}

	return nil
}

// UpdateProfile persists display name and visibility changes.
func (r *LearnerRepository) UpdateProfile(ctx context.Context, l *learner.Learner) error {
	query := `
		UPDATE learners SET
			display_name = $1,
			is_public = $2,
			updated_at = $3
		WHERE id = $4
	`

	result, err := r.db.Exec(ctx, query,
		l.DisplayName,
		l.IsPublic,
		time.Now().UTC(),
		l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update learner profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return learner.ErrLearnerNotFound
	}

	return nil
}

// Exists reports whether a learner with the given ID exists.
func (r *LearnerRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM learners WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check learner existence: %w", err)
	}
	return exists, nil
}

// Count returns the total number of learners.
func (r *LearnerRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM learners`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count learners: %w", err)
	}
	return count, nil
}

// ListPublicByTotalScore returns public learners ordered by total score
// descending, for the leaderboard. Ties break on the older account.
func (r *LearnerRepository) ListPublicByTotalScore(ctx context.Context, opts learner.ListOptions) ([]*learner.Learner, error) {
	query := `
		SELECT ` + learnerColumns + `
		FROM learners
		WHERE is_public
		ORDER BY total_score DESC, created_at ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list learners: %w", err)
	}
	defer rows.Close()

	var learners []*learner.Learner
	for rows.Next() {
		l, err := scanLearner(rows)
		if err != nil {
			return nil, err
		}
		learners = append(learners, l)
	}

	return learners, rows.Err()
}

// PublicRank returns the 1-based leaderboard position of a learner
// among public learners.
func (r *LearnerRepository) PublicRank(ctx context.Context, id string) (int, error) {
	query := `
		SELECT rank FROM (
			SELECT id, RANK() OVER (ORDER BY total_score DESC, created_at ASC) AS rank
			FROM learners
			WHERE is_public
		) ranked
		WHERE id = $1
	`

	var rank int
	err := r.db.QueryRow(ctx, query, id).Scan(&rank)
	if err != nil {
		if IsNoRows(err) {
			return 0, learner.ErrLearnerNotFound
		}
		return 0, fmt.Errorf("failed to get learner rank: %w", err)
	}

	return rank, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan helpers
// ─────────────────────────────────────────────────────────────────────────────

// scanLearner reads one learner row.
func scanLearner(row pgx.Row) (*learner.Learner, error) {
	var (
		l          learner.Learner
		totalScore int
		lastActive *time.Time
	)

	err := row.Scan(
		&l.ID,
		&l.DisplayName,
		&l.Email,
		&totalScore,
		&l.CurrentStreak,
		&l.BestStreak,
		&lastActive,
		&l.IsPublic,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, learner.ErrLearnerNotFound
		}
		return nil, fmt.Errorf("failed to scan learner: %w", err)
	}

	l.TotalScore = learner.TotalScore(totalScore)
	if lastActive != nil {
		// DATE columns come back as midnight UTC; re-anchor to the
		// day-boundary zone before any streak math sees the value.
		l.LastActiveDate = timeutil.CalendarDate(*lastActive)
	}

	return &l, nil
}

// nullableDate maps a zero time to SQL NULL for DATE columns.
func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
