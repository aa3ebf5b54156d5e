// Package http implements the REST API for Mihrab Progress Hub.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mihrab-hub/mihrab-progress-hub/internal/application/command"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/application/query"
	"github.com/mihrab-hub/mihrab-progress-hub/internal/domain/shared"
	"github.com/mihrab-hub/mihrab-progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Mihrab Progress Hub API",
		"version":     "v1",
		"description": "Progress aggregation and gamification for Quran recitation practice",
		"endpoints": map[string]string{
			"health":      "/health",
			"submit":      "/api/v1/learners/{id}/attempts",
			"progress":    "/api/v1/learners/{id}/progress",
			"leaderboard": "/api/v1/leaderboard",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSION HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// allowedAudioTypes are the accepted mimetypes for a recording upload.
var allowedAudioTypes = map[string]bool{
	"audio/webm": true, "audio/mpeg": true, "audio/mp3": true,
	"audio/wav": true, "audio/x-wav": true, "audio/ogg": true,
	"audio/mp4": true, "audio/aac": true, "audio/flac": true,
}

// handleSubmitAttempt handles POST /api/v1/learners/{id}/attempts:
// multipart body with an "audio" file part plus content fields. Replays
// of a known Idempotency-Key return 200 with the original attempt.
func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if learnerID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Learner ID is required")
		return
	}

	// The submission key lands in a UUID column; reject malformed keys
	// here instead of letting the database do it.
	submissionKey := r.Header.Get("Idempotency-Key")
	if submissionKey != "" {
		if _, err := uuid.Parse(submissionKey); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Idempotency-Key must be a UUID")
			return
		}
	}

	if s.deps.SubmitRecitationHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Submission handler not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "upload_too_large", "Recording exceeds the upload size limit")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "An audio file part named 'audio' is required")
		return
	}
	defer file.Close()

	if !isAllowedAudio(header) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "Only audio uploads are accepted")
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("failed to read upload", logger.Err(err), logger.LearnerID(learnerID))
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read the audio upload")
		return
	}

	cmd := command.SubmitRecitationCommand{
		LearnerID:       learnerID,
		ContentRef:      r.FormValue("content_ref"),
		ContentName:     r.FormValue("content_name"),
		DurationSeconds: formValueInt(r, "duration_seconds"),
		AudioFilename:   header.Filename,
		Audio:           audio,
		SubmissionKey:   submissionKey,
		Timestamp:       time.Now(),
		CorrelationID:   getRequestID(r.Context()),
	}

	result, err := s.deps.SubmitRecitationHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeCommandError(w, r, "submit attempt", err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// isAllowedAudio accepts a part whose declared type or filename looks
// like audio. The oracle does the real validation; this only rejects
// the obviously wrong upload.
func isAllowedAudio(header *multipart.FileHeader) bool {
	contentType := header.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if allowedAudioTypes[contentType] || strings.HasPrefix(contentType, "audio/") {
		return true
	}

	name := strings.ToLower(header.Filename)
	for _, ext := range []string{".webm", ".mp3", ".wav", ".ogg", ".m4a", ".aac", ".flac"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// formValueInt parses an integer form value, 0 when absent or malformed.
func formValueInt(r *http.Request, key string) int {
	value := r.FormValue(key)
	if value == "" {
		return 0
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerLearnerRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	IsPublic    *bool  `json:"is_public"`
}

// handleRegisterLearner handles POST /api/v1/learners.
func (s *Server) handleRegisterLearner(w http.ResponseWriter, r *http.Request) {
	if s.deps.RegisterLearnerHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Registration handler not configured")
		return
	}

	var req registerLearnerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	result, err := s.deps.RegisterLearnerHandler.Handle(r.Context(), command.RegisterLearnerCommand{
		DisplayName: req.DisplayName,
		Email:       req.Email,
		IsPublic:    isPublic,
	})
	if err != nil {
		s.writeCommandError(w, r, "register learner", err)
		return
	}

	writeJSON(w, http.StatusCreated, result.Learner)
}

type updateVisibilityRequest struct {
	IsPublic *bool `json:"is_public"`
}

// handleUpdateVisibility handles PATCH /api/v1/learners/{id}/visibility.
func (s *Server) handleUpdateVisibility(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if learnerID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Learner ID is required")
		return
	}

	if s.deps.UpdateProfileHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Profile handler not configured")
		return
	}

	var req updateVisibilityRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	if req.IsPublic == nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "is_public is required")
		return
	}

	result, err := s.deps.UpdateProfileHandler.Handle(r.Context(), command.UpdateProfileCommand{
		LearnerID: learnerID,
		IsPublic:  req.IsPublic,
	})
	if err != nil {
		s.writeCommandError(w, r, "update visibility", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"learner_id": result.Learner.ID,
		"is_public":  result.Learner.IsPublic,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS READ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /api/v1/learners/{id}/progress.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if s.deps.GetSkillProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Progress handler not configured")
		return
	}

	result, err := s.deps.GetSkillProgressHandler.Handle(r.Context(), query.GetSkillProgressQuery{LearnerID: learnerID})
	if err != nil {
		s.writeCommandError(w, r, "get progress", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetWeekly handles GET /api/v1/learners/{id}/progress/weekly.
// An optional "week" query parameter (YYYY-MM-DD) selects a past week.
func (s *Server) handleGetWeekly(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if s.deps.GetWeeklyActivityHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Weekly handler not configured")
		return
	}

	q := query.GetWeeklyActivityQuery{LearnerID: learnerID}
	if week := r.URL.Query().Get("week"); week != "" {
		anchor, err := time.Parse(time.DateOnly, week)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "week must be a YYYY-MM-DD date")
			return
		}
		q.Anchor = anchor
	}

	result, err := s.deps.GetWeeklyActivityHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeCommandError(w, r, "get weekly activity", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetStats handles GET /api/v1/learners/{id}/stats.
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if s.deps.GetLearnerStatsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Stats handler not configured")
		return
	}

	result, err := s.deps.GetLearnerStatsHandler.Handle(r.Context(), query.GetLearnerStatsQuery{LearnerID: learnerID})
	if err != nil {
		s.writeCommandError(w, r, "get stats", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetBadges handles GET /api/v1/learners/{id}/badges.
func (s *Server) handleGetBadges(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if s.deps.GetBadgesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Badges handler not configured")
		return
	}

	result, err := s.deps.GetBadgesHandler.Handle(r.Context(), query.GetBadgesQuery{LearnerID: learnerID})
	if err != nil {
		s.writeCommandError(w, r, "get badges", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAttempts handles GET /api/v1/learners/{id}/attempts.
func (s *Server) handleGetAttempts(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if s.deps.GetAttemptHistoryHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "History handler not configured")
		return
	}

	result, err := s.deps.GetAttemptHistoryHandler.Handle(r.Context(), query.GetAttemptHistoryQuery{
		LearnerID: learnerID,
		Limit:     getQueryParamInt(r, "limit", 20),
		Offset:    getQueryParamInt(r, "offset", 0),
	})
	if err != nil {
		s.writeCommandError(w, r, "get attempts", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAttemptDetail handles GET /api/v1/learners/{id}/attempts/{attemptID}.
func (s *Server) handleGetAttemptDetail(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	attemptID := r.PathValue("attemptID")
	if s.deps.GetAttemptHistoryHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "History handler not configured")
		return
	}

	result, err := s.deps.GetAttemptHistoryHandler.HandleDetail(r.Context(), learnerID, attemptID)
	if err != nil {
		s.writeCommandError(w, r, "get attempt detail", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLeaderboardHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Leaderboard handler not configured")
		return
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), query.GetLeaderboardQuery{
		Limit: getQueryParamInt(r, "limit", 20),
	})
	if err != nil {
		s.writeCommandError(w, r, "get leaderboard", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetRank handles GET /api/v1/learners/{id}/rank.
func (s *Server) handleGetRank(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	if s.deps.GetLearnerRankHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Rank handler not configured")
		return
	}

	result, err := s.deps.GetLearnerRankHandler.Handle(r.Context(), learnerID)
	if err != nil {
		s.writeCommandError(w, r, "get rank", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeCommandError maps application errors onto HTTP statuses. Unknown
// errors become 500 and are logged with the request ID; client errors
// surface the domain message.
func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidInput) || errors.Is(err, shared.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", domainMessage(err))
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", domainMessage(err))
	case errors.Is(err, shared.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "conflict", domainMessage(err))
	default:
		s.logger.Error("request failed",
			logger.String("op", op),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Something went wrong")
	}
}

// domainMessage extracts the human-readable part of a domain error.
func domainMessage(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
