package command

import (
	"context"
	"fmt"
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
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// ══════════════════════════════════════════════════════════════════════════════

type skillKey struct {
	learnerID string
	skill     progress.Skill
}

type weekKey struct {
	learnerID string
	weekStart time.Time
	weekday   int
}

type memStore struct {
	learners map[string]*learner.Learner
	attempts []*attempt.Attempt
	byKey    map[string]*attempt.Attempt
	skills   map[skillKey]*progress.SkillProgress
	weekly   map[weekKey]*progress.WeeklyEntry
	awards   map[string]badge.Award
}

func newMemStore() *memStore {
	return &memStore{
		learners: make(map[string]*learner.Learner),
		byKey:    make(map[string]*attempt.Attempt),
		skills:   make(map[skillKey]*progress.SkillProgress),
		weekly:   make(map[weekKey]*progress.WeeklyEntry),
		awards:   make(map[string]badge.Award),
	}
}

// learner.Repository

func (m *memStore) Create(ctx context.Context, l *learner.Learner) error {
	if _, ok := m.learners[l.ID]; ok {
		return learner.ErrLearnerAlreadyExists
	}
	m.learners[l.ID] = l.Clone()
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*learner.Learner, error) {
	l, ok := m.learners[id]
	if !ok {
		return nil, learner.ErrLearnerNotFound
	}
	return l.Clone(), nil
}

func (m *memStore) GetByIDForUpdate(ctx context.Context, id string) (*learner.Learner, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) UpdateLedger(ctx context.Context, l *learner.Learner) error {
	if _, ok := m.learners[l.ID]; !ok {
		return learner.ErrLearnerNotFound
	}
	m.learners[l.ID] = l.Clone()
	return nil
}

func (m *memStore) UpdateProfile(ctx context.Context, l *learner.Learner) error {
	return m.UpdateLedger(ctx, l)
}

func (m *memStore) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.learners[id]
	return ok, nil
}

func (m *memStore) Count(ctx context.Context) (int, error) {
	return len(m.learners), nil
}

func (m *memStore) ListPublicByTotalScore(ctx context.Context, opts learner.ListOptions) ([]*learner.Learner, error) {
	var out []*learner.Learner
	for _, l := range m.learners {
		if l.IsPublic {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	return out, nil
}

func (m *memStore) PublicRank(ctx context.Context, id string) (int, error) {
	all, _ := m.ListPublicByTotalScore(ctx, learner.ListOptions{})
	for i, l := range all {
		if l.ID == id {
			return i + 1, nil
		}
	}
	return 0, learner.ErrLearnerNotFound
}

// attempt.Repository

func (m *memStore) CreateAttempt(a *attempt.Attempt) error {
	if a.SubmissionKey != "" {
		if _, ok := m.byKey[a.SubmissionKey]; ok {
			return attempt.ErrDuplicateSubmission
		}
		m.byKey[a.SubmissionKey] = a
	}
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *memStore) GetBySubmissionKey(ctx context.Context, key string) (*attempt.Attempt, error) {
	a, ok := m.byKey[key]
	if !ok {
		return nil, attempt.ErrAttemptNotFound
	}
	return a, nil
}

func (m *memStore) ListByLearner(ctx context.Context, learnerID string, opts attempt.ListOptions) ([]*attempt.Attempt, error) {
	var out []*attempt.Attempt
	for i := len(m.attempts) - 1; i >= 0; i-- {
		if m.attempts[i].LearnerID == learnerID {
			out = append(out, m.attempts[i])
		}
	}
	return out, nil
}

func (m *memStore) CountByLearner(ctx context.Context, learnerID string) (int, error) {
	n := 0
	for _, a := range m.attempts {
		if a.LearnerID == learnerID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) ScoreStats(ctx context.Context, learnerID string) (attempt.ScoreStats, error) {
	var stats attempt.ScoreStats
	sum, scored := 0, 0
	for _, a := range m.attempts {
		if a.LearnerID != learnerID {
			continue
		}
		stats.TotalAttempts++
		if a.Degraded {
			continue
		}
		scored++
		sum += a.OverallScore
		if a.OverallScore > stats.BestScore {
			stats.BestScore = a.OverallScore
		}
	}
	if scored > 0 {
		stats.AverageScore = float64(sum) / float64(scored)
	}
	return stats, nil
}

// progress repositories

func (m *memStore) GetSkill(ctx context.Context, learnerID string, skill progress.Skill) (*progress.SkillProgress, error) {
	sp, ok := m.skills[skillKey{learnerID, skill}]
	if !ok {
		return nil, nil
	}
	cp := *sp
	return &cp, nil
}

func (m *memStore) UpsertSkill(ctx context.Context, p *progress.SkillProgress) error {
	cp := *p
	m.skills[skillKey{p.LearnerID, p.Skill}] = &cp
	return nil
}

func (m *memStore) GetAllSkills(ctx context.Context, learnerID string) ([]*progress.SkillProgress, error) {
	var out []*progress.SkillProgress
	for _, skill := range progress.AllSkills() {
		if sp, ok := m.skills[skillKey{learnerID, skill}]; ok {
			cp := *sp
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) UpsertBest(ctx context.Context, e *progress.WeeklyEntry) (int, error) {
	key := weekKey{e.LearnerID, e.WeekStart, e.Weekday}
	if existing, ok := m.weekly[key]; ok {
		if e.BestScore > existing.BestScore {
			existing.BestScore = e.BestScore
		}
		return existing.BestScore, nil
	}
	cp := *e
	m.weekly[key] = &cp
	return cp.BestScore, nil
}

func (m *memStore) GetWeek(ctx context.Context, learnerID string, weekStart time.Time) ([]*progress.WeeklyEntry, error) {
	var out []*progress.WeeklyEntry
	for k, e := range m.weekly {
		if k.learnerID == learnerID && k.weekStart.Equal(weekStart) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// badge.Repository

func (m *memStore) AwardOnce(ctx context.Context, award badge.Award) (bool, error) {
	key := award.LearnerID + "/" + string(award.BadgeID)
	if _, ok := m.awards[key]; ok {
		return false, nil
	}
	m.awards[key] = award
	return true, nil
}

func (m *memStore) GetAwards(ctx context.Context, learnerID string) ([]badge.Award, error) {
	var out []badge.Award
	for _, a := range m.awards {
		if a.LearnerID == learnerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CountAwards(ctx context.Context, learnerID string) (int, error) {
	awards, _ := m.GetAwards(ctx, learnerID)
	return len(awards), nil
}

// Typed views so one fake satisfies several interfaces with distinct
// method names.

type attemptRepoView struct{ *memStore }

func (v attemptRepoView) Create(ctx context.Context, a *attempt.Attempt) error {
	return v.CreateAttempt(a)
}

func (v attemptRepoView) GetByID(ctx context.Context, id string) (*attempt.Attempt, error) {
	for _, a := range v.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, attempt.ErrAttemptNotFound
}

type skillRepoView struct{ *memStore }

func (v skillRepoView) Get(ctx context.Context, learnerID string, skill progress.Skill) (*progress.SkillProgress, error) {
	return v.GetSkill(ctx, learnerID, skill)
}

func (v skillRepoView) Upsert(ctx context.Context, p *progress.SkillProgress) error {
	return v.UpsertSkill(ctx, p)
}

func (v skillRepoView) GetAll(ctx context.Context, learnerID string) ([]*progress.SkillProgress, error) {
	return v.GetAllSkills(ctx, learnerID)
}

type memUnitOfWork struct{ store *memStore }

func (u *memUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return fn(ctx, Stores{
		Learners: u.store,
		Attempts: attemptRepoView{u.store},
		Skills:   skillRepoView{u.store},
		Weekly:   u.store,
	})
}

type stubScorer struct {
	result ScoringResult
	calls  int
}

func (s *stubScorer) Score(ctx context.Context, req ScoringRequest) ScoringResult {
	s.calls++
	return s.result
}

type capturingPublisher struct {
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) typesSeen() []shared.EventType {
	var out []shared.EventType
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// TEST HARNESS
// ══════════════════════════════════════════════════════════════════════════════

type harness struct {
	store     *memStore
	scorer    *stubScorer
	publisher *capturingPublisher
	handler   *SubmitRecitationHandler
}

func newHarness(t *testing.T, scoring ScoringResult) *harness {
	t.Helper()

	store := newMemStore()
	scorer := &stubScorer{result: scoring}
	publisher := &capturingPublisher{}

	handler := NewSubmitRecitationHandler(
		&memUnitOfWork{store: store},
		scorer,
		attemptRepoView{store},
		store,
		store,
		badge.NewCatalog(false),
		nil, // cache
		nil, // rank projector
		publisher,
		nil,
	)

	return &harness{store: store, scorer: scorer, publisher: publisher, handler: handler}
}

func (h *harness) addLearner(t *testing.T, id string) {
	t.Helper()
	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID:          id,
		DisplayName: "Amina",
		Email:       fmt.Sprintf("%s@example.com", id),
		IsPublic:    true,
	})
	require.NoError(t, err)
	require.NoError(t, h.store.Create(context.Background(), l))
}

func perfectScoring(score int) ScoringResult {
	skills := make(map[progress.Skill]int)
	for _, s := range progress.AllSkills() {
		skills[s] = score
	}
	return ScoringResult{
		OverallScore: score,
		SkillScores:  skills,
		Feedback:     "Keep practicing.",
	}
}

func submitAt(t *testing.T, h *harness, at time.Time, key string) *SubmitRecitationResult {
	t.Helper()
	result, err := h.handler.Handle(context.Background(), SubmitRecitationCommand{
		LearnerID:       "learner-1",
		ContentRef:      "2:255",
		ContentName:     "Ayat al-Kursi",
		DurationSeconds: 90,
		Audio:           []byte("audio"),
		SubmissionKey:   key,
		Timestamp:       at,
	})
	require.NoError(t, err)
	return result
}

var day1 = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestSubmitRecitation_FirstAttempt(t *testing.T) {
	h := newHarness(t, perfectScoring(100))
	h.addLearner(t, "learner-1")

	result := submitAt(t, h, day1, "")

	assert.False(t, result.Replayed)
	assert.Equal(t, 100, result.Attempt.OverallScore)
	assert.Equal(t, attempt.GradePerfect, result.Attempt.Grade)

	// First score blends against zero: round(0.7*0 + 0.3*100) = 30.
	require.Len(t, result.SkillProgress, 10)
	for _, sp := range result.SkillProgress {
		assert.Equal(t, progress.Mastery(30), sp.Mastery, sp.Skill)
		assert.Equal(t, 1, sp.AttemptCount)
	}

	assert.Equal(t, learner.StreakStarted, result.Ledger.Kind)
	assert.Equal(t, 1, result.Ledger.NewStreak)
	assert.Equal(t, learner.TotalScore(100), result.Ledger.NewTotal)
	assert.Equal(t, learner.LevelBeginner, result.Level)
	assert.Equal(t, 100, result.WeekdayBest)

	// First attempt at 100 unlocks both first_recitation and excellence.
	ids := badgeIDs(result.NewBadges)
	assert.Contains(t, ids, badge.FirstRecitation)
	assert.Contains(t, ids, badge.Excellence)
	assert.Len(t, ids, 2)

	assert.Contains(t, h.publisher.typesSeen(), shared.EventAttemptScored)
}

func TestSubmitRecitation_NextDayExtendsStreak(t *testing.T) {
	h := newHarness(t, perfectScoring(80))
	h.addLearner(t, "learner-1")

	submitAt(t, h, day1, "")
	result := submitAt(t, h, day1.AddDate(0, 0, 1), "")

	assert.Equal(t, learner.StreakExtended, result.Ledger.Kind)
	assert.Equal(t, 2, result.Ledger.NewStreak)
	assert.Equal(t, learner.TotalScore(160), result.Ledger.NewTotal)
}

func TestSubmitRecitation_SameDayKeepsStreakAndBestOfDay(t *testing.T) {
	h := newHarness(t, perfectScoring(80))
	h.addLearner(t, "learner-1")

	submitAt(t, h, day1, "")

	// A weaker attempt later the same day: streak unchanged, the daily
	// best stays at the stronger score, the total still grows.
	h.scorer.result = perfectScoring(60)
	result := submitAt(t, h, day1.Add(5*time.Hour), "")

	assert.Equal(t, learner.StreakUnchanged, result.Ledger.Kind)
	assert.Equal(t, 1, result.Ledger.NewStreak)
	assert.Equal(t, 80, result.WeekdayBest)
	assert.Equal(t, learner.TotalScore(140), result.Ledger.NewTotal)

	// Mastery keeps smoothing: 0.7*24 + 0.3*60 = 34.8 -> 35.
	// (first attempt at 80 gives round(0.3*80)=24)
	for _, sp := range result.SkillProgress {
		assert.Equal(t, progress.Mastery(35), sp.Mastery)
		assert.Equal(t, 2, sp.AttemptCount)
	}
}

func TestSubmitRecitation_GapResetsStreak(t *testing.T) {
	h := newHarness(t, perfectScoring(70))
	h.addLearner(t, "learner-1")

	submitAt(t, h, day1, "")
	submitAt(t, h, day1.AddDate(0, 0, 1), "")
	result := submitAt(t, h, day1.AddDate(0, 0, 5), "")

	assert.Equal(t, learner.StreakReset, result.Ledger.Kind)
	assert.Equal(t, 1, result.Ledger.NewStreak)
	assert.Equal(t, 3, result.Ledger.DaysMissed)

	assert.Contains(t, h.publisher.typesSeen(), shared.EventStreakBroken)

	// Best streak survives the reset.
	l, err := h.store.GetByID(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Equal(t, 2, l.BestStreak)
	assert.Equal(t, 1, l.CurrentStreak)
}

func TestSubmitRecitation_DegradedScoringStillRunsPipeline(t *testing.T) {
	h := newHarness(t, ScoringResult{
		OverallScore: 0,
		SkillScores:  zeroSkills(),
		Feedback:     "Analysis unavailable. Please retry with clearer audio.",
		Degraded:     true,
	})
	h.addLearner(t, "learner-1")

	result := submitAt(t, h, day1, "")

	assert.True(t, result.Attempt.Degraded)
	assert.Equal(t, attempt.GradeError, result.Attempt.Grade)
	assert.Equal(t, 0, result.Attempt.OverallScore)

	// The day still counts for the streak, the total grows by zero.
	assert.Equal(t, 1, result.Ledger.NewStreak)
	assert.Equal(t, learner.TotalScore(0), result.Ledger.NewTotal)
	assert.Equal(t, 0, result.WeekdayBest)

	// Attendance badges still evaluate; score badges cannot fire.
	ids := badgeIDs(result.NewBadges)
	assert.Contains(t, ids, badge.FirstRecitation)
	assert.NotContains(t, ids, badge.Excellence)

	assert.Contains(t, h.publisher.typesSeen(), shared.EventAttemptDegraded)
}

func TestSubmitRecitation_ReplayedSubmissionKey(t *testing.T) {
	h := newHarness(t, perfectScoring(90))
	h.addLearner(t, "learner-1")

	first := submitAt(t, h, day1, "key-123")
	scorerCallsAfterFirst := h.scorer.calls

	replay := submitAt(t, h, day1.Add(time.Minute), "key-123")

	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Attempt.ID, replay.Attempt.ID)
	assert.Empty(t, replay.NewBadges)

	// No rescoring, no second attempt row, ledger untouched.
	assert.Equal(t, scorerCallsAfterFirst, h.scorer.calls)
	count, err := attemptRepoView{h.store}.CountByLearner(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	l, err := h.store.GetByID(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Equal(t, learner.TotalScore(90), l.TotalScore)
}

func TestSubmitRecitation_SubmissionKeyOwnedByAnotherLearner(t *testing.T) {
	h := newHarness(t, perfectScoring(90))
	h.addLearner(t, "learner-1")
	h.addLearner(t, "learner-2")

	submitAt(t, h, day1, "key-123")

	// The same key from a different learner cannot replay the original
	// attempt; it is a conflict, not a retry.
	_, err := h.handler.Handle(context.Background(), SubmitRecitationCommand{
		LearnerID:     "learner-2",
		ContentRef:    "2:255",
		Audio:         []byte("audio"),
		SubmissionKey: "key-123",
		Timestamp:     day1.Add(time.Minute),
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// The original learner's record is untouched.
	l, err := h.store.GetByID(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Equal(t, learner.TotalScore(90), l.TotalScore)

	count, err := attemptRepoView{h.store}.CountByLearner(context.Background(), "learner-2")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSubmitRecitation_LevelUpEvent(t *testing.T) {
	h := newHarness(t, perfectScoring(100))
	h.addLearner(t, "learner-1")

	// Five hundred points crosses Beginner -> Intermediate.
	var result *SubmitRecitationResult
	for i := 0; i < 5; i++ {
		result = submitAt(t, h, day1.AddDate(0, 0, i), "")
	}

	assert.Equal(t, learner.LevelIntermediate, result.Level)
	assert.True(t, result.Ledger.LeveledUp())
	assert.Contains(t, h.publisher.typesSeen(), shared.EventLevelUp)
}

func TestSubmitRecitation_BadgeNotReAwarded(t *testing.T) {
	h := newHarness(t, perfectScoring(99))
	h.addLearner(t, "learner-1")

	first := submitAt(t, h, day1, "")
	assert.Contains(t, badgeIDs(first.NewBadges), badge.Excellence)

	second := submitAt(t, h, day1.AddDate(0, 0, 1), "")
	assert.NotContains(t, badgeIDs(second.NewBadges), badge.Excellence)
	assert.Empty(t, second.NewBadges)
}

func TestSubmitRecitation_StreakBadges(t *testing.T) {
	h := newHarness(t, perfectScoring(50))
	h.addLearner(t, "learner-1")

	var result *SubmitRecitationResult
	for i := 0; i < 7; i++ {
		result = submitAt(t, h, day1.AddDate(0, 0, i), "")
	}

	assert.Equal(t, 7, result.Ledger.NewStreak)
	assert.Contains(t, badgeIDs(result.NewBadges), badge.Streak7)
}

func TestSubmitRecitation_UnknownLearner(t *testing.T) {
	h := newHarness(t, perfectScoring(80))

	_, err := h.handler.Handle(context.Background(), SubmitRecitationCommand{
		LearnerID:  "nobody",
		ContentRef: "1:1",
		Audio:      []byte("audio"),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSubmitRecitation_Validation(t *testing.T) {
	h := newHarness(t, perfectScoring(80))

	tests := []struct {
		name string
		cmd  SubmitRecitationCommand
	}{
		{"missing learner", SubmitRecitationCommand{ContentRef: "1:1", Audio: []byte("a")}},
		{"missing content ref", SubmitRecitationCommand{LearnerID: "l", Audio: []byte("a")}},
		{"missing audio", SubmitRecitationCommand{LearnerID: "l", ContentRef: "1:1"}},
		{"negative duration", SubmitRecitationCommand{LearnerID: "l", ContentRef: "1:1", Audio: []byte("a"), DurationSeconds: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.handler.Handle(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

// helpers

func badgeIDs(defs []badge.Definition) []badge.ID {
	var out []badge.ID
	for _, d := range defs {
		out = append(out, d.ID)
	}
	return out
}

func zeroSkills() map[progress.Skill]int {
	out := make(map[progress.Skill]int)
	for _, s := range progress.AllSkills() {
		out[s] = 0
	}
	return out
}
