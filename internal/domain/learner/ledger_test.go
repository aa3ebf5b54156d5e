package learner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestLearner(t *testing.T) *Learner {
	t.Helper()
	l, err := NewLearner(NewLearnerParams{
		ID:          "11111111-1111-1111-1111-111111111111",
		DisplayName: "Amina",
		Email:       "amina@example.com",
		IsPublic:    true,
	})
	require.NoError(t, err)
	return l
}

func TestApplyAttempt_FirstEverAttempt(t *testing.T) {
	l := newTestLearner(t)

	change, err := l.ApplyAttempt(80, day(2026, time.March, 10))
	require.NoError(t, err)

	assert.Equal(t, StreakStarted, change.Kind)
	assert.Equal(t, 0, change.PreviousStreak)
	assert.Equal(t, 1, change.NewStreak)
	assert.Equal(t, 1, l.CurrentStreak)
	assert.Equal(t, 1, l.BestStreak)
	assert.Equal(t, TotalScore(80), l.TotalScore)
	assert.True(t, l.LastActiveDate.Equal(day(2026, time.March, 10)))
}

func TestApplyAttempt_SameDayKeepsStreak(t *testing.T) {
	l := newTestLearner(t)

	_, err := l.ApplyAttempt(80, day(2026, time.March, 10))
	require.NoError(t, err)

	change, err := l.ApplyAttempt(95, day(2026, time.March, 10).Add(9*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, StreakUnchanged, change.Kind)
	assert.Equal(t, 1, l.CurrentStreak)
	assert.Equal(t, TotalScore(175), l.TotalScore)
}

func TestApplyAttempt_NextDayExtendsStreak(t *testing.T) {
	l := newTestLearner(t)

	_, err := l.ApplyAttempt(80, day(2026, time.March, 10))
	require.NoError(t, err)

	change, err := l.ApplyAttempt(70, day(2026, time.March, 11))
	require.NoError(t, err)

	assert.Equal(t, StreakExtended, change.Kind)
	assert.Equal(t, 2, l.CurrentStreak)
	assert.Equal(t, 2, l.BestStreak)
}

func TestApplyAttempt_GapResetsStreak(t *testing.T) {
	l := newTestLearner(t)

	for i := 0; i < 5; i++ {
		_, err := l.ApplyAttempt(60, day(2026, time.March, 10+i))
		require.NoError(t, err)
	}
	require.Equal(t, 5, l.CurrentStreak)

	change, err := l.ApplyAttempt(60, day(2026, time.March, 20))
	require.NoError(t, err)

	assert.Equal(t, StreakReset, change.Kind)
	assert.Equal(t, 5, change.PreviousStreak)
	assert.Equal(t, 1, change.NewStreak)
	assert.Equal(t, 5, change.DaysMissed)
	assert.Equal(t, 1, l.CurrentStreak)
	assert.Equal(t, 5, l.BestStreak, "best streak survives the reset")
}

func TestApplyAttempt_ZeroScoreStillCountsAsActivity(t *testing.T) {
	l := newTestLearner(t)

	_, err := l.ApplyAttempt(80, day(2026, time.March, 10))
	require.NoError(t, err)

	change, err := l.ApplyAttempt(0, day(2026, time.March, 11))
	require.NoError(t, err)

	assert.Equal(t, StreakExtended, change.Kind)
	assert.Equal(t, 2, l.CurrentStreak)
	assert.Equal(t, TotalScore(80), l.TotalScore)
}

func TestApplyAttempt_RejectsOutOfRangeScore(t *testing.T) {
	l := newTestLearner(t)

	_, err := l.ApplyAttempt(101, day(2026, time.March, 10))
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = l.ApplyAttempt(-1, day(2026, time.March, 10))
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestApplyAttempt_CrossingMidnightInOneSession(t *testing.T) {
	l := newTestLearner(t)

	_, err := l.ApplyAttempt(50, time.Date(2026, time.March, 10, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)

	change, err := l.ApplyAttempt(50, time.Date(2026, time.March, 11, 0, 1, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, StreakExtended, change.Kind, "two minutes apart but across midnight counts as a new day")
	assert.Equal(t, 2, l.CurrentStreak)
}

func TestCalculateLevel_Thresholds(t *testing.T) {
	tests := []struct {
		name  string
		total TotalScore
		want  Level
	}{
		{"zero", 0, LevelBeginner},
		{"just below intermediate", 499, LevelBeginner},
		{"intermediate boundary", 500, LevelIntermediate},
		{"just below advanced", 1999, LevelIntermediate},
		{"advanced boundary", 2000, LevelAdvanced},
		{"just below expert", 4999, LevelAdvanced},
		{"expert boundary", 5000, LevelExpert},
		{"far beyond expert", 123456, LevelExpert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateLevel(tt.total))
		})
	}
}

func TestLedgerChange_LeveledUp(t *testing.T) {
	l := newTestLearner(t)
	l.TotalScore = 450
	l.LastActiveDate = day(2026, time.March, 9)
	l.CurrentStreak = 1
	l.BestStreak = 1

	change, err := l.ApplyAttempt(60, day(2026, time.March, 10))
	require.NoError(t, err)

	assert.True(t, change.LeveledUp())
	assert.Equal(t, LevelBeginner, change.PreviousLevel)
	assert.Equal(t, LevelIntermediate, change.NewLevel)
}

func TestEffectiveStreak(t *testing.T) {
	l := newTestLearner(t)
	assert.Equal(t, 0, l.EffectiveStreak(day(2026, time.March, 10)))

	_, err := l.ApplyAttempt(60, day(2026, time.March, 10))
	require.NoError(t, err)

	assert.Equal(t, 1, l.EffectiveStreak(day(2026, time.March, 10)), "active today")
	assert.Equal(t, 1, l.EffectiveStreak(day(2026, time.March, 11)), "yesterday still counts")
	assert.Equal(t, 0, l.EffectiveStreak(day(2026, time.March, 12)), "lapsed after a missed day")
}

func TestNewLearner_Validation(t *testing.T) {
	_, err := NewLearner(NewLearnerParams{ID: "", DisplayName: "x", Email: "x@y.z"})
	assert.Error(t, err)

	_, err = NewLearner(NewLearnerParams{ID: "id", DisplayName: "   ", Email: "x@y.z"})
	assert.ErrorIs(t, err, ErrInvalidDisplayName)

	_, err = NewLearner(NewLearnerParams{ID: "id", DisplayName: "x", Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	l, err := NewLearner(NewLearnerParams{ID: "id", DisplayName: "x", Email: "  Amina@Example.COM "})
	require.NoError(t, err)
	assert.Equal(t, "amina@example.com", l.Email, "email is normalized")
}
