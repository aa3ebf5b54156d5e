package query

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/attempt"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/badge"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeLearnerRepo struct {
	learners map[string]*learner.Learner
}

func newFakeLearnerRepo(ls ...*learner.Learner) *fakeLearnerRepo {
	r := &fakeLearnerRepo{learners: make(map[string]*learner.Learner)}
	for _, l := range ls {
		r.learners[l.ID] = l
	}
	return r
}

func (r *fakeLearnerRepo) Create(ctx context.Context, l *learner.Learner) error {
	r.learners[l.ID] = l
	return nil
}

func (r *fakeLearnerRepo) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	l, ok := r.learners[id]
	if !ok {
		return nil, learner.ErrLearnerNotFound
	}
	return l, nil
}

func (r *fakeLearnerRepo) GetByIDForUpdate(ctx context.Context, id string) (*learner.Learner, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeLearnerRepo) UpdateLedger(ctx context.Context, l *learner.Learner) error  { return nil }
func (r *fakeLearnerRepo) UpdateProfile(ctx context.Context, l *learner.Learner) error { return nil }

func (r *fakeLearnerRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := r.learners[id]
	return ok, nil
}

func (r *fakeLearnerRepo) Count(ctx context.Context) (int, error) { return len(r.learners), nil }

func (r *fakeLearnerRepo) ListPublicByTotalScore(ctx context.Context, opts learner.ListOptions) ([]*learner.Learner, error) {
	var out []*learner.Learner
	for _, l := range r.learners {
		if l.IsPublic {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *fakeLearnerRepo) PublicRank(ctx context.Context, id string) (int, error) {
	all, _ := r.ListPublicByTotalScore(ctx, learner.ListOptions{})
	for i, l := range all {
		if l.ID == id {
			return i + 1, nil
		}
	}
	return 0, learner.ErrLearnerNotFound
}

type fakeAttemptRepo struct {
	attempts []*attempt.Attempt
	stats    attempt.ScoreStats
}

func (r *fakeAttemptRepo) Create(ctx context.Context, a *attempt.Attempt) error { return nil }

func (r *fakeAttemptRepo) GetByID(ctx context.Context, id string) (*attempt.Attempt, error) {
	for _, a := range r.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, attempt.ErrAttemptNotFound
}

func (r *fakeAttemptRepo) GetBySubmissionKey(ctx context.Context, key string) (*attempt.Attempt, error) {
	return nil, attempt.ErrAttemptNotFound
}

func (r *fakeAttemptRepo) ListByLearner(ctx context.Context, learnerID string, opts attempt.ListOptions) ([]*attempt.Attempt, error) {
	var matching []*attempt.Attempt
	for _, a := range r.attempts {
		if a.LearnerID == learnerID {
			matching = append(matching, a)
		}
	}
	if opts.Offset >= len(matching) {
		return nil, nil
	}
	matching = matching[opts.Offset:]
	if opts.Limit > 0 && len(matching) > opts.Limit {
		matching = matching[:opts.Limit]
	}
	return matching, nil
}

func (r *fakeAttemptRepo) CountByLearner(ctx context.Context, learnerID string) (int, error) {
	n := 0
	for _, a := range r.attempts {
		if a.LearnerID == learnerID {
			n++
		}
	}
	return n, nil
}

func (r *fakeAttemptRepo) ScoreStats(ctx context.Context, learnerID string) (attempt.ScoreStats, error) {
	return r.stats, nil
}

type fakeSkillRepo struct {
	rows []*progress.SkillProgress
}

func (r *fakeSkillRepo) Get(ctx context.Context, learnerID string, skill progress.Skill) (*progress.SkillProgress, error) {
	for _, sp := range r.rows {
		if sp.LearnerID == learnerID && sp.Skill == skill {
			return sp, nil
		}
	}
	return nil, nil
}

func (r *fakeSkillRepo) Upsert(ctx context.Context, p *progress.SkillProgress) error { return nil }

func (r *fakeSkillRepo) GetAll(ctx context.Context, learnerID string) ([]*progress.SkillProgress, error) {
	var out []*progress.SkillProgress
	for _, sp := range r.rows {
		if sp.LearnerID == learnerID {
			out = append(out, sp)
		}
	}
	return out, nil
}

type fakeWeeklyRepo struct {
	entries []*progress.WeeklyEntry
}

func (r *fakeWeeklyRepo) UpsertBest(ctx context.Context, e *progress.WeeklyEntry) (int, error) {
	return e.BestScore, nil
}

func (r *fakeWeeklyRepo) GetWeek(ctx context.Context, learnerID string, weekStart time.Time) ([]*progress.WeeklyEntry, error) {
	var out []*progress.WeeklyEntry
	for _, e := range r.entries {
		if e.LearnerID == learnerID && e.WeekStart.Equal(weekStart) {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeBadgeRepo struct {
	awards []badge.Award
}

func (r *fakeBadgeRepo) AwardOnce(ctx context.Context, award badge.Award) (bool, error) {
	return true, nil
}

func (r *fakeBadgeRepo) GetAwards(ctx context.Context, learnerID string) ([]badge.Award, error) {
	var out []badge.Award
	for _, a := range r.awards {
		if a.LearnerID == learnerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeBadgeRepo) CountAwards(ctx context.Context, learnerID string) (int, error) {
	awards, _ := r.GetAwards(ctx, learnerID)
	return len(awards), nil
}

func testLearner(t *testing.T, id string, public bool) *learner.Learner {
	t.Helper()
	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID:          id,
		DisplayName: "Reciter " + id,
		Email:       id + "@example.com",
		IsPublic:    public,
	})
	require.NoError(t, err)
	return l
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestGetSkillProgress_FillsUnscoredSkills(t *testing.T) {
	learners := newFakeLearnerRepo(testLearner(t, "l1", true))
	madd, err := progress.NewSkillProgress("l1", progress.SkillMadd)
	require.NoError(t, err)
	require.NoError(t, madd.Apply(90, timeutil.Date(2026, 3, 10)))

	handler := NewGetSkillProgressHandler(&fakeSkillRepo{rows: []*progress.SkillProgress{madd}}, learners)
	result, err := handler.Handle(context.Background(), GetSkillProgressQuery{LearnerID: "l1"})
	require.NoError(t, err)

	require.Len(t, result.Skills, len(progress.AllSkills()))

	scored := 0
	for _, dto := range result.Skills {
		if dto.Skill == progress.SkillMadd.String() {
			assert.Equal(t, 27, dto.Mastery)
			assert.Equal(t, 1, dto.AttemptCount)
			assert.NotNil(t, dto.UpdatedAt)
			scored++
			continue
		}
		assert.Zero(t, dto.Mastery, dto.Skill)
		assert.Nil(t, dto.UpdatedAt, dto.Skill)
	}
	assert.Equal(t, 1, scored)
}

func TestGetSkillProgress_UnknownLearner(t *testing.T) {
	handler := NewGetSkillProgressHandler(&fakeSkillRepo{}, newFakeLearnerRepo())
	_, err := handler.Handle(context.Background(), GetSkillProgressQuery{LearnerID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetWeeklyActivity_SevenSlots(t *testing.T) {
	learners := newFakeLearnerRepo(testLearner(t, "l1", true))

	// Tuesday March 10 2026; the week starts Monday March 9.
	anchor := timeutil.Date(2026, 3, 10)
	weekStart := timeutil.WeekStart(anchor)

	tuesday, err := progress.NewWeeklyEntry("l1", anchor, 85)
	require.NoError(t, err)

	handler := NewGetWeeklyActivityHandler(&fakeWeeklyRepo{entries: []*progress.WeeklyEntry{tuesday}}, learners)
	result, err := handler.Handle(context.Background(), GetWeeklyActivityQuery{LearnerID: "l1", Anchor: anchor})
	require.NoError(t, err)

	assert.Equal(t, weekStart.Format(time.DateOnly), result.WeekStart)
	require.Len(t, result.Days, 7)
	assert.Equal(t, 1, result.ActiveDays)

	assert.True(t, result.Days[1].Active)
	assert.Equal(t, 85, result.Days[1].BestScore)
	assert.Equal(t, "2026-03-10", result.Days[1].Date)

	assert.False(t, result.Days[0].Active)
	assert.Equal(t, "2026-03-09", result.Days[0].Date)
	assert.Equal(t, "2026-03-15", result.Days[6].Date)
}

func TestGetLearnerStats(t *testing.T) {
	l := testLearner(t, "l1", true)
	_, err := l.ApplyAttempt(80, timeutil.Now())
	require.NoError(t, err)

	handler := NewGetLearnerStatsHandler(
		newFakeLearnerRepo(l),
		&fakeAttemptRepo{stats: attempt.ScoreStats{TotalAttempts: 3, AverageScore: 76.66, BestScore: 92}},
		&fakeBadgeRepo{awards: []badge.Award{badge.NewAward("l1", badge.FirstRecitation)}},
		nil,
	)
	result, err := handler.Handle(context.Background(), GetLearnerStatsQuery{LearnerID: "l1"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.CurrentStreak)
	assert.Equal(t, 80, result.TotalScore)
	assert.Equal(t, "Beginner", result.Level)
	assert.Equal(t, 500, result.NextLevelAt)
	assert.Equal(t, 3, result.TotalAttempts)
	assert.Equal(t, 76.7, result.AverageScore)
	assert.Equal(t, 92, result.BestScore)
	assert.Equal(t, 1, result.BadgesEarned)
}

func TestGetLearnerStats_LapsedStreakShowsZero(t *testing.T) {
	// Last activity three days ago: the stored streak is stale and the
	// view must not show it as unbroken.
	l := testLearner(t, "l1", true)
	_, err := l.ApplyAttempt(80, timeutil.Now().AddDate(0, 0, -3))
	require.NoError(t, err)
	require.Equal(t, 1, l.CurrentStreak)

	handler := NewGetLearnerStatsHandler(newFakeLearnerRepo(l), &fakeAttemptRepo{}, &fakeBadgeRepo{}, nil)
	result, err := handler.Handle(context.Background(), GetLearnerStatsQuery{LearnerID: "l1"})
	require.NoError(t, err)

	assert.Equal(t, 0, result.CurrentStreak)
	assert.Equal(t, 1, result.BestStreak, "best streak is a record, not a live value")
}

func TestGetBadges_EarnedFlags(t *testing.T) {
	learners := newFakeLearnerRepo(testLearner(t, "l1", true))
	catalog := badge.NewCatalog(false)

	handler := NewGetBadgesHandler(
		&fakeBadgeRepo{awards: []badge.Award{badge.NewAward("l1", badge.FirstRecitation)}},
		catalog,
		learners,
	)
	result, err := handler.Handle(context.Background(), GetBadgesQuery{LearnerID: "l1"})
	require.NoError(t, err)

	require.Len(t, result.Badges, len(catalog.All()))
	assert.Equal(t, 1, result.EarnedCount)
	for _, dto := range result.Badges {
		if dto.ID == string(badge.FirstRecitation) {
			assert.True(t, dto.Earned)
			assert.NotNil(t, dto.EarnedAt)
			continue
		}
		assert.False(t, dto.Earned, dto.ID)
	}
}

func TestGetAttemptHistory_Pagination(t *testing.T) {
	learners := newFakeLearnerRepo(testLearner(t, "l1", true))
	repo := &fakeAttemptRepo{}
	for i := 0; i < 5; i++ {
		a, err := attempt.NewAttempt(attempt.NewAttemptParams{
			ID:              "a" + string(rune('0'+i)),
			LearnerID:       "l1",
			ContentRef:      "2:255",
			OverallScore:    80,
			DurationSeconds: 125,
			SkillScores:     map[progress.Skill]int{progress.SkillMadd: 80},
		})
		require.NoError(t, err)
		repo.attempts = append(repo.attempts, a)
	}

	handler := NewGetAttemptHistoryHandler(repo, learners)
	result, err := handler.Handle(context.Background(), GetAttemptHistoryQuery{LearnerID: "l1", Limit: 2})
	require.NoError(t, err)

	assert.Len(t, result.Attempts, 2)
	assert.Equal(t, 5, result.TotalCount)
	assert.True(t, result.HasMore)
	assert.Equal(t, "2:05", result.Attempts[0].Duration)
	assert.Equal(t, "Very Good", result.Attempts[0].Grade)
}

func TestGetAttemptHistory_DetailScopedToLearner(t *testing.T) {
	learners := newFakeLearnerRepo(testLearner(t, "l1", true))
	a, err := attempt.NewAttempt(attempt.NewAttemptParams{
		ID:           "a1",
		LearnerID:    "l1",
		ContentRef:   "2:255",
		OverallScore: 96,
		SkillScores:  map[progress.Skill]int{progress.SkillGhunna: 96},
		Feedback:     "Beautiful ghunna.",
	})
	require.NoError(t, err)

	handler := NewGetAttemptHistoryHandler(&fakeAttemptRepo{attempts: []*attempt.Attempt{a}}, learners)

	detail, err := handler.HandleDetail(context.Background(), "l1", "a1")
	require.NoError(t, err)
	assert.Equal(t, 96, detail.SkillScores["Ghunna"])
	assert.Equal(t, "Beautiful ghunna.", detail.Feedback)

	// Another learner cannot see it.
	_, err = handler.HandleDetail(context.Background(), "l2", "a1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetLeaderboard_FallsBackToPostgres(t *testing.T) {
	first := testLearner(t, "l1", true)
	_, err := first.ApplyAttempt(90, timeutil.Date(2026, 3, 10))
	require.NoError(t, err)
	second := testLearner(t, "l2", true)
	_, err = second.ApplyAttempt(40, timeutil.Date(2026, 3, 10))
	require.NoError(t, err)
	hidden := testLearner(t, "l3", false)
	_, err = hidden.ApplyAttempt(99, timeutil.Date(2026, 3, 10))
	require.NoError(t, err)

	handler := NewGetLeaderboardHandler(newFakeLearnerRepo(first, second, hidden), nil)
	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "l1", result.Entries[0].LearnerID)
	assert.Equal(t, 1, result.Entries[0].Rank)
	assert.Equal(t, "l2", result.Entries[1].LearnerID)
}

func TestGetLeaderboard_LapsedStreakShowsZero(t *testing.T) {
	active := testLearner(t, "l1", true)
	_, err := active.ApplyAttempt(90, timeutil.Now())
	require.NoError(t, err)
	lapsed := testLearner(t, "l2", true)
	_, err = lapsed.ApplyAttempt(40, timeutil.Now().AddDate(0, 0, -5))
	require.NoError(t, err)
	require.Equal(t, 1, lapsed.CurrentStreak)

	handler := NewGetLeaderboardHandler(newFakeLearnerRepo(active, lapsed), nil)
	result, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, 1, result.Entries[0].CurrentStreak)
	assert.Equal(t, 0, result.Entries[1].CurrentStreak)
}

func TestGetLearnerRank(t *testing.T) {
	first := testLearner(t, "l1", true)
	_, err := first.ApplyAttempt(90, timeutil.Date(2026, 3, 10))
	require.NoError(t, err)
	second := testLearner(t, "l2", true)
	_, err = second.ApplyAttempt(40, timeutil.Date(2026, 3, 10))
	require.NoError(t, err)
	hidden := testLearner(t, "l3", false)

	handler := NewGetLearnerRankHandler(newFakeLearnerRepo(first, second, hidden), nil)

	rank, err := handler.Handle(context.Background(), "l2")
	require.NoError(t, err)
	assert.Equal(t, 2, rank.Rank)
	assert.Equal(t, 40, rank.TotalScore)

	// Private learners are not ranked.
	_, err = handler.Handle(context.Background(), "l3")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
