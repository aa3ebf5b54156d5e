package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func badgeIDs(defs []Definition) []ID {
	ids := make([]ID, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestCatalog_BaseSet(t *testing.T) {
	c := NewCatalog(false)

	ids := badgeIDs(c.All())
	assert.Equal(t, []ID{FirstRecitation, Streak7, Excellence, Streak30}, ids)

	_, err := c.Get(Devoted25)
	assert.ErrorIs(t, err, ErrUnknownBadge, "extended badges absent when disabled")
}

func TestCatalog_ExtendedSet(t *testing.T) {
	c := NewCatalog(true)

	assert.Len(t, c.All(), 6)

	d, err := c.Get(CenturyClub)
	require.NoError(t, err)
	assert.Equal(t, "Century Club", d.Name)
}

func TestEvaluate(t *testing.T) {
	c := NewCatalog(true)

	tests := []struct {
		name string
		in   EvaluationInput
		want []ID
	}{
		{
			name: "first ever attempt",
			in:   EvaluationInput{AttemptCount: 1, CurrentStreak: 1, AttemptScore: 80, TotalScore: 80},
			want: []ID{FirstRecitation},
		},
		{
			name: "nothing qualifies",
			in:   EvaluationInput{AttemptCount: 3, CurrentStreak: 2, AttemptScore: 70, TotalScore: 210},
			want: nil,
		},
		{
			name: "week streak boundary",
			in:   EvaluationInput{AttemptCount: 7, CurrentStreak: 7, AttemptScore: 60, TotalScore: 420},
			want: []ID{Streak7},
		},
		{
			name: "just below week streak",
			in:   EvaluationInput{AttemptCount: 6, CurrentStreak: 6, AttemptScore: 60, TotalScore: 360},
			want: nil,
		},
		{
			name: "excellence boundary",
			in:   EvaluationInput{AttemptCount: 2, CurrentStreak: 1, AttemptScore: 98, TotalScore: 180},
			want: []ID{Excellence},
		},
		{
			name: "month streak implies week streak too",
			in:   EvaluationInput{AttemptCount: 30, CurrentStreak: 30, AttemptScore: 60, TotalScore: 1800},
			want: []ID{Streak7, Streak30, Devoted25},
		},
		{
			name: "perfect first attempt stacks badges",
			in:   EvaluationInput{AttemptCount: 1, CurrentStreak: 1, AttemptScore: 100, TotalScore: 100},
			want: []ID{FirstRecitation, Excellence},
		},
		{
			name: "century club on lifetime total",
			in:   EvaluationInput{AttemptCount: 120, CurrentStreak: 2, AttemptScore: 85, TotalScore: 10000},
			want: []ID{Devoted25, CenturyClub},
		},
		{
			name: "degraded zero score fires no score badge",
			in:   EvaluationInput{AttemptCount: 1, CurrentStreak: 1, AttemptScore: 0, TotalScore: 0},
			want: []ID{FirstRecitation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := badgeIDs(c.Evaluate(tt.in))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_BaseCatalogSkipsExtendedBadges(t *testing.T) {
	c := NewCatalog(false)

	got := badgeIDs(c.Evaluate(EvaluationInput{
		AttemptCount: 50, CurrentStreak: 1, AttemptScore: 50, TotalScore: 20000,
	}))
	assert.Empty(t, got, "devoted_25 and century_club stay dormant when disabled")
}
