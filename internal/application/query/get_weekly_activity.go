package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/learner"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/progress"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET WEEKLY ACTIVITY QUERY
// The seven-slot week view: Monday through Sunday, best score per day.
// ══════════════════════════════════════════════════════════════════════════════

// GetWeeklyActivityQuery contains the parameters of the week lookup.
type GetWeeklyActivityQuery struct {
	// LearnerID is the internal ID of the learner.
	LearnerID string

	// Anchor is any time inside the wanted week. Zero means the
	// current week.
	Anchor time.Time
}

// Validate validates the query.
func (q GetWeeklyActivityQuery) Validate() error {
	if q.LearnerID == "" {
		return errors.New("get_weekly_activity: learner_id is required")
	}
	return nil
}

// WeekdaySlotDTO is one day of the week view.
type WeekdaySlotDTO struct {
	// Weekday is the ISO index: Monday=0 .. Sunday=6.
	Weekday int `json:"weekday"`

	// Date is the calendar date of the slot (YYYY-MM-DD).
	Date string `json:"date"`

	// BestScore is the highest score recorded that day.
	BestScore int `json:"best_score"`

	// Active reports whether any attempt landed on that day.
	Active bool `json:"active"`
}

// GetWeeklyActivityResult contains the week view.
type GetWeeklyActivityResult struct {
	// LearnerID echoes the queried learner.
	LearnerID string `json:"learner_id"`

	// WeekStart is the Monday of the returned week (YYYY-MM-DD).
	WeekStart string `json:"week_start"`

	// Days always holds exactly seven slots, Monday first.
	Days []WeekdaySlotDTO `json:"days"`

	// ActiveDays is the number of days with at least one attempt.
	ActiveDays int `json:"active_days"`
}

// GetWeeklyActivityHandler handles the GetWeeklyActivityQuery.
type GetWeeklyActivityHandler struct {
	weeklyRepo  progress.WeeklyRepository
	learnerRepo learner.Repository
}

// NewGetWeeklyActivityHandler creates a new GetWeeklyActivityHandler.
func NewGetWeeklyActivityHandler(weeklyRepo progress.WeeklyRepository, learnerRepo learner.Repository) *GetWeeklyActivityHandler {
	return &GetWeeklyActivityHandler{weeklyRepo: weeklyRepo, learnerRepo: learnerRepo}
}

// Handle returns the seven-slot week view around the anchor time.
func (h *GetWeeklyActivityHandler) Handle(ctx context.Context, q GetWeeklyActivityQuery) (*GetWeeklyActivityResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetWeeklyActivity", shared.ErrInvalidInput, "validation failed", err)
	}

	exists, err := h.learnerRepo.Exists(ctx, q.LearnerID)
	if err != nil {
		return nil, fmt.Errorf("get_weekly_activity: %w", err)
	}
	if !exists {
		return nil, shared.WrapError("query", "GetWeeklyActivity", shared.ErrNotFound, "learner not found", learner.ErrLearnerNotFound)
	}

	anchor := q.Anchor
	if anchor.IsZero() {
		anchor = time.Now()
	}
	weekStart := timeutil.WeekStart(anchor)

	entries, err := h.weeklyRepo.GetWeek(ctx, q.LearnerID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("get_weekly_activity: %w", err)
	}

	byDay := make(map[int]*progress.WeeklyEntry, len(entries))
	for _, e := range entries {
		byDay[e.Weekday] = e
	}

	result := &GetWeeklyActivityResult{
		LearnerID: q.LearnerID,
		WeekStart: weekStart.Format(time.DateOnly),
		Days:      make([]WeekdaySlotDTO, 7),
	}
	for i := 0; i < 7; i++ {
		slot := WeekdaySlotDTO{
			Weekday: i,
			Date:    weekStart.AddDate(0, 0, i).Format(time.DateOnly),
		}
		if e, ok := byDay[i]; ok {
			slot.BestScore = e.BestScore
			slot.Active = true
			result.ActiveDays++
		}
		result.Days[i] = slot
	}

	return result, nil
}
