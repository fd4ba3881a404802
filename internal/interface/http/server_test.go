package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/command"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/query"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/application/saga"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/badge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/challenge"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/prayer"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/domain/progression"
	"github.com/JoodasCode/hopium-prayer-app-sub000/internal/infrastructure/persistence/memory"
	"github.com/JoodasCode/hopium-prayer-app-sub000/pkg/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := memory.NewStore()
	log := logger.New(logger.Options{Output: io.Discard})
	calculator := prayer.NewStreakCalculator(log)

	badgeCatalog, err := badge.NewCatalog(badge.DefaultDefinitions())
	require.NoError(t, err)
	challengeCatalog, err := challenge.NewCatalog(challenge.DefaultTemplates())
	require.NoError(t, err)

	awardXP := command.NewAwardXPHandler(store, nil)

	config := DefaultConfig()
	config.RateLimitPerMinute = 0

	return NewServer(config, Dependencies{
		GetConsistencyHandler: query.NewGetConsistencyHandler(store, calculator, nil, 0, time.UTC, log),
		GetProfileHandler:     query.NewGetProfileHandler(store),
		GetBadgesHandler:      query.NewGetBadgesHandler(badgeCatalog, store, store, calculator, time.UTC),
		GetChallengesHandler:  query.NewGetChallengesHandler(store, time.UTC),

		RecordCompletionHandler:        command.NewRecordCompletionHandler(store, awardXP, calculator, nil, time.UTC),
		GenerateChallengesHandler:      command.NewGenerateChallengesHandler(challengeCatalog, store, nil, nil, time.UTC),
		UpdateChallengeProgressHandler: command.NewUpdateChallengeProgressHandler(store),
		CompleteChallengeHandler:       command.NewCompleteChallengeHandler(store, nil),
		AddExemptionHandler:            command.NewAddExemptionHandler(store, nil),
		CloseExemptionHandler:          command.NewCloseExemptionHandler(store),

		BadgeAwardFlow: saga.NewBadgeAwardFlow(badgeCatalog, store, store, calculator, nil, time.UTC, log),

		Logger: log,
	})
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, JSONResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var envelope JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

// decodeData re-decodes the envelope's data field into a typed destination.
func decodeData(t *testing.T, envelope JSONResponse, dest interface{}) {
	t.Helper()
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dest))
}

func TestServer_HealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec, envelope := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)
}

func TestServer_LivenessAndReadiness(t *testing.T) {
	s := newTestServer(t)

	rec, _ := doRequest(t, s, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RecordCompletion(t *testing.T) {
	s := newTestServer(t)
	scheduled := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)

	rec, envelope := doRequest(t, s, http.MethodPost, "/api/v1/users/user1/completions", map[string]interface{}{
		"prayer":       "fajr",
		"scheduled_at": scheduled,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var result command.RecordCompletionResult
	decodeData(t, envelope, &result)
	assert.NotEmpty(t, result.EventID)
	assert.False(t, result.AlreadyCompleted)
	assert.Equal(t, command.CompletionXP, result.XPAwarded)

	// Completing the same event again is a 200, not a second award.
	rec, envelope = doRequest(t, s, http.MethodPost, "/api/v1/users/user1/completions", map[string]interface{}{
		"event_id": result.EventID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	decodeData(t, envelope, &result)
	assert.True(t, result.AlreadyCompleted)
	assert.Zero(t, result.XPAwarded)
}

func TestServer_RecordCompletion_InvalidPrayer(t *testing.T) {
	s := newTestServer(t)

	rec, envelope := doRequest(t, s, http.MethodPost, "/api/v1/users/user1/completions", map[string]interface{}{
		"prayer":       "sunrise",
		"scheduled_at": time.Now().UTC(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "validation_failed", envelope.Error.Code)
}

func TestServer_GetConsistencyAndProfile(t *testing.T) {
	s := newTestServer(t)
	scheduled := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)

	rec, _ := doRequest(t, s, http.MethodPost, "/api/v1/users/user1/completions", map[string]interface{}{
		"prayer":       "fajr",
		"scheduled_at": scheduled,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, envelope := doRequest(t, s, http.MethodGet, "/api/v1/users/user1/consistency", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)

	rec, envelope = doRequest(t, s, http.MethodGet, "/api/v1/users/user1/profile", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var profile progression.GamificationProfile
	decodeData(t, envelope, &profile)
	assert.Equal(t, int64(command.CompletionXP), profile.TotalXP)
}

func TestServer_GenerateChallengesIdempotent(t *testing.T) {
	s := newTestServer(t)

	rec, envelope := doRequest(t, s, http.MethodPost, "/api/v1/users/user1/challenges/generate", map[string]interface{}{
		"period": "daily",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var first command.GenerateChallengesResult
	decodeData(t, envelope, &first)
	require.NotEmpty(t, first.Challenges)

	rec, envelope = doRequest(t, s, http.MethodPost, "/api/v1/users/user1/challenges/generate", map[string]interface{}{
		"period": "daily",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var second command.GenerateChallengesResult
	decodeData(t, envelope, &second)
	assert.False(t, second.Generated)
	assert.Equal(t, first.PeriodKey, second.PeriodKey)
	assert.Len(t, second.Challenges, len(first.Challenges))
}

func TestServer_ChallengeProgressAndCompletion(t *testing.T) {
	s := newTestServer(t)

	_, envelope := doRequest(t, s, http.MethodPost, "/api/v1/users/user1/challenges/generate", map[string]interface{}{
		"period": "daily",
	})
	var generated command.GenerateChallengesResult
	decodeData(t, envelope, &generated)
	require.NotEmpty(t, generated.Challenges)
	instance := generated.Challenges[0]

	rec, envelope := doRequest(t, s, http.MethodPatch,
		fmt.Sprintf("/api/v1/challenges/%s/progress", instance.ID), map[string]interface{}{
			"progress": instance.Target,
		})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated challenge.UserChallenge
	decodeData(t, envelope, &updated)
	assert.Equal(t, instance.Target, updated.Progress)

	rec, envelope = doRequest(t, s, http.MethodPost,
		fmt.Sprintf("/api/v1/challenges/%s/complete", instance.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result command.CompleteChallengeResult
	decodeData(t, envelope, &result)
	assert.False(t, result.AlreadyCompleted)
	assert.Equal(t, instance.XPReward, result.XPAwarded)
}

func TestServer_UpdateUnknownChallenge(t *testing.T) {
	s := newTestServer(t)

	rec, envelope := doRequest(t, s, http.MethodPatch, "/api/v1/challenges/nope/progress", map[string]interface{}{
		"progress": 1,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "not_found", envelope.Error.Code)
}

func TestServer_ExemptionLifecycle(t *testing.T) {
	s := newTestServer(t)
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	rec, envelope := doRequest(t, s, http.MethodPost, "/api/v1/users/user1/exemptions", map[string]interface{}{
		"start_date": start,
		"reason":     "travel",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var window prayer.ExemptionWindow
	decodeData(t, envelope, &window)
	require.NotEmpty(t, window.ID)

	rec, _ = doRequest(t, s, http.MethodPost,
		fmt.Sprintf("/api/v1/exemptions/%s/close", window.ID), map[string]interface{}{
			"end_date": start.AddDate(0, 0, 3),
		})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Closing an already-closed window is a 404 on the open window.
	rec, envelope = doRequest(t, s, http.MethodPost,
		fmt.Sprintf("/api/v1/exemptions/%s/close", window.ID), map[string]interface{}{
			"end_date": start.AddDate(0, 0, 4),
		})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
}

func TestServer_EvaluateBadges(t *testing.T) {
	s := newTestServer(t)
	scheduled := time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC)

	rec, _ := doRequest(t, s, http.MethodPost, "/api/v1/users/user1/completions", map[string]interface{}{
		"prayer":       "fajr",
		"scheduled_at": scheduled,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, envelope := doRequest(t, s, http.MethodPost, "/api/v1/users/user1/badges/evaluate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result saga.BadgeAwardResult
	decodeData(t, envelope, &result)
	assert.True(t, result.HasNewBadges(), "first completion should earn the first-prayer badge")

	// A second evaluation awards nothing new.
	rec, envelope = doRequest(t, s, http.MethodPost, "/api/v1/users/user1/badges/evaluate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, envelope, &result)
	assert.False(t, result.HasNewBadges())
}

func TestServer_GetBadgesCatalogView(t *testing.T) {
	s := newTestServer(t)

	rec, envelope := doRequest(t, s, http.MethodGet, "/api/v1/users/user1/badges", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []query.BadgeView
	decodeData(t, envelope, &views)
	assert.Len(t, views, len(badge.DefaultDefinitions()))
	for _, v := range views {
		assert.False(t, v.Progress.Earned)
	}
}
