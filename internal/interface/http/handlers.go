package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/command"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/query"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/saga"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", status.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// READ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetConsistency serves GET /api/v1/users/{id}/consistency.
// ?fresh=true bypasses the cache.
func (s *Server) handleGetConsistency(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.GetConsistencyHandler.Handle(r.Context(), query.GetConsistencyQuery{
		UserID: r.PathValue("id"),
		Fresh:  getQueryParamBool(r, "fresh"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetProfile serves GET /api/v1/users/{id}/profile.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.deps.GetProfileHandler.Handle(r.Context(), query.GetProfileQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleGetBadges serves GET /api/v1/users/{id}/badges: the whole catalog
// annotated with the user's progress and earned flags.
func (s *Server) handleGetBadges(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.GetBadgesHandler.Handle(r.Context(), query.GetBadgesQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleGetChallenges serves GET /api/v1/users/{id}/challenges?period=daily.
func (s *Server) handleGetChallenges(w http.ResponseWriter, r *http.Request) {
	period := challenge.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = challenge.PeriodDaily
	}

	instances, err := s.deps.GetChallengesHandler.Handle(r.Context(), query.GetChallengesQuery{
		UserID:    r.PathValue("id"),
		Period:    period,
		PeriodKey: r.URL.Query().Get("period_key"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instances)
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type recordCompletionRequest struct {
	EventID        string     `json:"event_id,omitempty"`
	Prayer         string     `json:"prayer,omitempty"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	WithReflection bool       `json:"with_reflection,omitempty"`
}

// handleRecordCompletion serves POST /api/v1/users/{id}/completions.
func (s *Server) handleRecordCompletion(w http.ResponseWriter, r *http.Request) {
	var req recordCompletionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	cmd := command.RecordCompletionCommand{
		UserID:         r.PathValue("id"),
		EventID:        req.EventID,
		Prayer:         prayer.Type(req.Prayer),
		WithReflection: req.WithReflection,
	}
	if req.ScheduledAt != nil {
		cmd.ScheduledAt = *req.ScheduledAt
	}
	if req.CompletedAt != nil {
		cmd.CompletedAt = *req.CompletedAt
	}

	result, err := s.deps.RecordCompletionHandler.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	code := http.StatusCreated
	if result.AlreadyCompleted {
		code = http.StatusOK
	}
	writeJSON(w, code, result)
}

// handleEvaluateBadges serves POST /api/v1/users/{id}/badges/evaluate.
func (s *Server) handleEvaluateBadges(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.BadgeAwardFlow.Execute(r.Context(), saga.BadgeAwardInput{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type generateChallengesRequest struct {
	Period string `json:"period"`
}

// handleGenerateChallenges serves POST /api/v1/users/{id}/challenges/generate.
// Repeating the call within the same period returns the existing set.
func (s *Server) handleGenerateChallenges(w http.ResponseWriter, r *http.Request) {
	var req generateChallengesRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	result, err := s.deps.GenerateChallengesHandler.Handle(r.Context(), command.GenerateChallengesCommand{
		UserID: r.PathValue("id"),
		Period: challenge.Period(req.Period),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	code := http.StatusOK
	if result.Generated {
		code = http.StatusCreated
	}
	writeJSON(w, code, result)
}

type updateProgressRequest struct {
	Progress int `json:"progress"`
}

// handleUpdateChallengeProgress serves PATCH /api/v1/challenges/{id}/progress.
func (s *Server) handleUpdateChallengeProgress(w http.ResponseWriter, r *http.Request) {
	var req updateProgressRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	instance, err := s.deps.UpdateChallengeProgressHandler.Handle(r.Context(), command.UpdateChallengeProgressCommand{
		ChallengeID: r.PathValue("id"),
		Progress:    req.Progress,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instance)
}

// handleCompleteChallenge serves POST /api/v1/challenges/{id}/complete.
func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.CompleteChallengeHandler.Handle(r.Context(), command.CompleteChallengeCommand{
		ChallengeID: r.PathValue("id"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type addExemptionRequest struct {
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// handleAddExemption serves POST /api/v1/users/{id}/exemptions.
func (s *Server) handleAddExemption(w http.ResponseWriter, r *http.Request) {
	var req addExemptionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	window, err := s.deps.AddExemptionHandler.Handle(r.Context(), command.AddExemptionCommand{
		UserID:    r.PathValue("id"),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Reason:    req.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, window)
}

type closeExemptionRequest struct {
	EndDate time.Time `json:"end_date"`
}

// handleCloseExemption serves POST /api/v1/exemptions/{id}/close.
func (s *Server) handleCloseExemption(w http.ResponseWriter, r *http.Request) {
	var req closeExemptionRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	err := s.deps.CloseExemptionHandler.Handle(r.Context(), command.CloseExemptionCommand{
		WindowID: r.PathValue("id"),
		EndDate:  req.EndDate,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSONBody decodes the request body, writing a 400 on failure. An empty
// body decodes to the zero request.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}
