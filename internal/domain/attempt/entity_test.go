package attempt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
)

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score int
		want  Grade
	}{
		{100, GradePerfect},
		{95, GradePerfect},
		{94, GradeExcellent},
		{90, GradeExcellent},
		{89, GradeVeryGood},
		{80, GradeVeryGood},
		{79, GradeGood},
		{70, GradeGood},
		{69, GradeFair},
		{60, GradeFair},
		{59, GradePassable},
		{50, GradePassable},
		{49, GradeNeedsWork},
		{0, GradeNeedsWork},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.score), "score %d", tt.score)
	}
}

func validParams() NewAttemptParams {
	return NewAttemptParams{
		ID:              "22222222-2222-2222-2222-222222222222",
		LearnerID:       "11111111-1111-1111-1111-111111111111",
		ContentRef:      "1:1-7",
		ContentName:     "Al-Fatiha",
		OverallScore:    88,
		DurationSeconds: 95,
		SkillScores: map[progress.Skill]int{
			progress.SkillMadd:   90,
			progress.SkillGhunna: 85,
		},
		Feedback: "Clear articulation, watch the elongations.",
	}
}

func TestNewAttempt(t *testing.T) {
	a, err := NewAttempt(validParams())
	require.NoError(t, err)

	assert.Equal(t, GradeVeryGood, a.Grade)
	assert.False(t, a.Degraded)
	assert.Equal(t, 90, a.SkillScores[progress.SkillMadd])
	assert.Equal(t, "1:35", a.FormattedDuration())
	assert.False(t, a.CreatedAt.IsZero())
}

func TestNewAttempt_DegradedGetsErrorGrade(t *testing.T) {
	p := validParams()
	p.OverallScore = 0
	p.Degraded = true

	a, err := NewAttempt(p)
	require.NoError(t, err)

	assert.Equal(t, GradeError, a.Grade)
	assert.True(t, a.Degraded)
}

func TestNewAttempt_Validation(t *testing.T) {
	t.Run("missing content ref", func(t *testing.T) {
		p := validParams()
		p.ContentRef = ""
		_, err := NewAttempt(p)
		assert.ErrorIs(t, err, ErrMissingContentRef)
	})

	t.Run("overall score out of range", func(t *testing.T) {
		p := validParams()
		p.OverallScore = 101
		_, err := NewAttempt(p)
		assert.ErrorIs(t, err, ErrScoreOutOfRange)
	})

	t.Run("skill score out of range", func(t *testing.T) {
		p := validParams()
		p.SkillScores = map[progress.Skill]int{progress.SkillWaqf: -5}
		_, err := NewAttempt(p)
		assert.ErrorIs(t, err, ErrScoreOutOfRange)
	})

	t.Run("unknown skill", func(t *testing.T) {
		p := validParams()
		p.SkillScores = map[progress.Skill]int{progress.Skill("Falsetto"): 50}
		_, err := NewAttempt(p)
		assert.ErrorIs(t, err, ErrUnknownSkill)
	})

	t.Run("negative duration", func(t *testing.T) {
		p := validParams()
		p.DurationSeconds = -1
		_, err := NewAttempt(p)
		assert.ErrorIs(t, err, ErrInvalidDuration)
	})
}
