package postgres

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// Schema for the five aggregate stores. The uniqueness constraints on
// attempts.submission_key and badge_awards(learner_id, badge_id) are
// load-bearing: idempotent replays and badge races resolve on them.
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_learners",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_attempts",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_progress_and_badges",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS learners (
    id               UUID PRIMARY KEY,
    display_name     TEXT NOT NULL CHECK (char_length(display_name) BETWEEN 1 AND 100),
    email            TEXT NOT NULL UNIQUE,
    total_score      INTEGER NOT NULL DEFAULT 0 CHECK (total_score >= 0),
    current_streak   INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    best_streak      INTEGER NOT NULL DEFAULT 0 CHECK (best_streak >= 0),
    last_active_date DATE,
    is_public        BOOLEAN NOT NULL DEFAULT TRUE,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Leaderboard scans: public learners ordered by lifetime total.
CREATE INDEX IF NOT EXISTS idx_learners_public_total
    ON learners (total_score DESC) WHERE is_public;

CREATE OR REPLACE FUNCTION set_updated_at()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_learners_updated_at ON learners;
CREATE TRIGGER trg_learners_updated_at
    BEFORE UPDATE ON learners
    FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`

const migration001Down = `
DROP TRIGGER IF EXISTS trg_learners_updated_at ON learners;
DROP FUNCTION IF EXISTS set_updated_at();
DROP TABLE IF EXISTS learners;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS attempts (
    id               UUID PRIMARY KEY,
    learner_id       UUID NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
    content_ref      TEXT NOT NULL,
    content_name     TEXT NOT NULL DEFAULT '',
    overall_score    INTEGER NOT NULL CHECK (overall_score BETWEEN 0 AND 100),
    grade            TEXT NOT NULL,
    duration_seconds INTEGER NOT NULL DEFAULT 0 CHECK (duration_seconds >= 0),
    skill_scores     JSONB NOT NULL DEFAULT '{}'::jsonb,
    feedback         TEXT NOT NULL DEFAULT '',
    degraded         BOOLEAN NOT NULL DEFAULT FALSE,
    submission_key   UUID,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_attempts_learner_created
    ON attempts (learner_id, created_at DESC);

-- Replayed submissions resolve on this constraint.
CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_submission_key
    ON attempts (submission_key) WHERE submission_key IS NOT NULL;
`

const migration002Down = `
DROP TABLE IF EXISTS attempts;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS skill_progress (
    learner_id    UUID NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
    skill         TEXT NOT NULL,
    mastery       INTEGER NOT NULL DEFAULT 0 CHECK (mastery BETWEEN 0 AND 100),
    attempt_count INTEGER NOT NULL DEFAULT 0 CHECK (attempt_count >= 0),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (learner_id, skill)
);

CREATE TABLE IF NOT EXISTS weekly_scores (
    learner_id UUID NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
    week_start DATE NOT NULL,
    weekday    SMALLINT NOT NULL CHECK (weekday BETWEEN 0 AND 6),
    score      INTEGER NOT NULL DEFAULT 0 CHECK (score BETWEEN 0 AND 100),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (learner_id, week_start, weekday)
);

CREATE TABLE IF NOT EXISTS badge_awards (
    learner_id UUID NOT NULL REFERENCES learners(id) ON DELETE CASCADE,
    badge_id   TEXT NOT NULL,
    awarded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (learner_id, badge_id)
);
`

const migration003Down = `
DROP TABLE IF EXISTS badge_awards;
DROP TABLE IF EXISTS weekly_scores;
DROP TABLE IF EXISTS skill_progress;
`
