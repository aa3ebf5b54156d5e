package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
)

type recordingRanks struct {
	updates  []string
	removals []string
}

func (r *recordingRanks) UpdateScore(ctx context.Context, learnerID string, totalScore int) error {
	r.updates = append(r.updates, learnerID)
	return nil
}

func (r *recordingRanks) RemoveLearner(ctx context.Context, learnerID string) error {
	r.removals = append(r.removals, learnerID)
	return nil
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestRegisterLearner(t *testing.T) {
	store := newMemStore()
	handler := NewRegisterLearnerHandler(store)

	result, err := handler.Handle(context.Background(), RegisterLearnerCommand{
		DisplayName: "Yusuf",
		Email:       "yusuf@example.com",
		IsPublic:    true,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Learner.ID)
	assert.Equal(t, "Yusuf", result.Learner.DisplayName)
	assert.Equal(t, learner.LevelBeginner, result.Learner.Level())
	assert.Equal(t, 0, result.Learner.CurrentStreak)

	stored, err := store.GetByID(context.Background(), result.Learner.ID)
	require.NoError(t, err)
	assert.Equal(t, "yusuf@example.com", stored.Email)
}

func TestRegisterLearner_Validation(t *testing.T) {
	handler := NewRegisterLearnerHandler(newMemStore())

	_, err := handler.Handle(context.Background(), RegisterLearnerCommand{Email: "a@b.c"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = handler.Handle(context.Background(), RegisterLearnerCommand{DisplayName: "Amina"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestUpdateProfile_Rename(t *testing.T) {
	store := newMemStore()
	seedLearner(t, store, "learner-1", true)

	handler := NewUpdateProfileHandler(store, nil, nil, nil)
	result, err := handler.Handle(context.Background(), UpdateProfileCommand{
		LearnerID:   "learner-1",
		DisplayName: strPtr("Umm Kulthum"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Umm Kulthum", result.Learner.DisplayName)

	stored, err := store.GetByID(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Equal(t, "Umm Kulthum", stored.DisplayName)
}

func TestUpdateProfile_VisibilityToggle(t *testing.T) {
	store := newMemStore()
	seedLearner(t, store, "learner-1", true)
	ranks := &recordingRanks{}

	handler := NewUpdateProfileHandler(store, nil, ranks, nil)

	// Going private removes the learner from the public ranking.
	_, err := handler.Handle(context.Background(), UpdateProfileCommand{
		LearnerID: "learner-1",
		IsPublic:  boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"learner-1"}, ranks.removals)
	assert.Empty(t, ranks.updates)

	// Going public again re-projects the score.
	_, err = handler.Handle(context.Background(), UpdateProfileCommand{
		LearnerID: "learner-1",
		IsPublic:  boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"learner-1"}, ranks.updates)

	// A no-op toggle does not touch the ranking.
	_, err = handler.Handle(context.Background(), UpdateProfileCommand{
		LearnerID: "learner-1",
		IsPublic:  boolPtr(true),
	})
	require.NoError(t, err)
	assert.Len(t, ranks.updates, 1)
}

func TestUpdateProfile_Errors(t *testing.T) {
	store := newMemStore()
	handler := NewUpdateProfileHandler(store, nil, nil, nil)

	_, err := handler.Handle(context.Background(), UpdateProfileCommand{LearnerID: "learner-1"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput, "nothing to update")

	_, err = handler.Handle(context.Background(), UpdateProfileCommand{
		LearnerID:   "ghost",
		DisplayName: strPtr("Ghost"),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func seedLearner(t *testing.T, store *memStore, id string, public bool) {
	t.Helper()
	l, err := learner.NewLearner(learner.NewLearnerParams{
		ID:          id,
		DisplayName: "Amina",
		Email:       id + "@example.com",
		IsPublic:    public,
	})
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), l))
}
