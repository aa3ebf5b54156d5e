package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages runtime feature toggles.
// Supports gradual rollouts, A/B testing, and per-learner overrides.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Per-learner overrides for testing
	learnerOverrides map[string]map[string]bool
}

// Feature represents a single feature flag configuration.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100). 100 = everyone, 0 = nobody.
	RolloutPercent int

	// Cohort targeting (empty = all cohorts)
	TargetCohorts []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time

	// A/B testing variants
	Variants []string
}

// FeatureContext provides context for feature evaluation.
type FeatureContext struct {
	LearnerID string
	Cohort    string
	IsAdmin   bool
}

// Predefined feature names.
const (
	// Badge features
	FeatureBadgesExtendedSet = "badges.extended_set"

	// Leaderboard features
	FeatureLeaderboardCache = "leaderboard.cache"
	FeatureLeaderboardRanks = "leaderboard.ranks"

	// Event features
	FeatureEventsActivityLog = "events.activity_log"

	// Experimental features
	FeatureExperimentalWeeklyDigest = "experimental.weekly_digest"
	FeatureExperimentalSkillHints   = "experimental.skill_hints"
)

// LoadFeatureFlags creates feature flags from environment and defaults.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		learnerOverrides: make(map[string]map[string]bool),
	}

	ff.initializeDefaults()
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up the default feature configuration.
func (ff *FeatureFlags) initializeDefaults() {
	// Badge features
	ff.features[FeatureBadgesExtendedSet] = &Feature{
		Name:           FeatureBadgesExtendedSet,
		Description:    "Extended badge catalogue (devoted_25, century_club)",
		Enabled:        false, // Phase 2
		RolloutPercent: 0,
	}

	// Leaderboard features - cached payload keeps hot reads off postgres
	ff.features[FeatureLeaderboardCache] = &Feature{
		Name:           FeatureLeaderboardCache,
		Description:    "Serve leaderboard payloads from Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}

	ff.features[FeatureLeaderboardRanks] = &Feature{
		Name:           FeatureLeaderboardRanks,
		Description:    "Project scores into the Redis sorted-set ranking",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Event features
	ff.features[FeatureEventsActivityLog] = &Feature{
		Name:           FeatureEventsActivityLog,
		Description:    "Log domain events to the activity feed",
		Enabled:        true,
		RolloutPercent: 100,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalWeeklyDigest] = &Feature{
		Name:           FeatureExperimentalWeeklyDigest,
		Description:    "Weekly progress digest",
		Enabled:        false,
		RolloutPercent: 0,
	}

	ff.features[FeatureExperimentalSkillHints] = &Feature{
		Name:           FeatureExperimentalSkillHints,
		Description:    "Per-skill practice hints on attempt feedback",
		Enabled:        false,
		RolloutPercent: 0,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_BADGES_EXTENDED_SET=true
// Example: FEATURE_EXPERIMENTAL_SKILL_HINTS=25 (25% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		val := os.Getenv(envKey)
		if val == "" {
			continue
		}

		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}

		if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
			feature.Enabled = p > 0
			feature.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "badges.extended_set" -> "FEATURE_BADGES_EXTENDED_SET"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check learner overrides first
	if ctx != nil && ctx.LearnerID != "" {
		if overrides, ok := ff.learnerOverrides[ctx.LearnerID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	if ctx != nil && ctx.IsAdmin {
		return true
	}

	if !feature.Enabled {
		return false
	}

	// Time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Cohort targeting
	if len(feature.TargetCohorts) > 0 && ctx != nil && ctx.Cohort != "" {
		cohortMatch := false
		for _, c := range feature.TargetCohorts {
			if c == ctx.Cohort {
				cohortMatch = true
				break
			}
		}
		if !cohortMatch {
			return false
		}
	}

	// Rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.LearnerID != "" {
		return ff.isInRollout(ctx.LearnerID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if a learner is in the rollout percentage.
// Uses consistent hashing so learners stay in their bucket.
func (ff *FeatureFlags) isInRollout(learnerID, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(learnerID))
	hash := h.Sum32()

	bucket := int(hash % 100)

	return bucket < percent
}

// GetVariant returns the A/B test variant for a learner.
// Returns empty string if no variants defined or feature disabled.
func (ff *FeatureFlags) GetVariant(featureName string, ctx *FeatureContext) string {
	ff.mu.RLock()
	var variants []string
	if feature, ok := ff.features[featureName]; ok {
		variants = append(variants, feature.Variants...)
	}
	ff.mu.RUnlock()

	if len(variants) == 0 || ctx == nil || ctx.LearnerID == "" {
		return ""
	}
	if !ff.IsEnabled(featureName, ctx) {
		return ""
	}

	h := fnv.New32a()
	h.Write([]byte(featureName + "_variant"))
	h.Write([]byte(ctx.LearnerID))
	hash := h.Sum32()

	return variants[int(hash%uint32(len(variants)))]
}

// SetLearnerOverride sets a feature override for a specific learner.
// Useful for testing and debugging.
func (ff *FeatureFlags) SetLearnerOverride(learnerID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.learnerOverrides[learnerID]; !ok {
		ff.learnerOverrides[learnerID] = make(map[string]bool)
	}
	ff.learnerOverrides[learnerID][featureName] = enabled
}

// ClearLearnerOverrides removes all overrides for a learner.
func (ff *FeatureFlags) ClearLearnerOverrides(learnerID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.learnerOverrides, learnerID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
