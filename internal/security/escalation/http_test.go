// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package escalation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/facegate/internal/platform/apperr"
	"github.com/taibuivan/facegate/internal/security/escalation"
	"github.com/taibuivan/facegate/internal/users/session"
)

// # Session Fakes
//
// Minimal in-memory stores so the handler can issue real tokens.

type sessionStore struct {
	byHash map[string]*session.Session
}

func (s *sessionStore) Create(_ context.Context, entry *session.Session) error {
	s.byHash[entry.TokenHash] = entry
	return nil
}

func (s *sessionStore) FindByTokenHash(_ context.Context, tokenHash string) (*session.Session, error) {
	if entry, ok := s.byHash[tokenHash]; ok {
		return entry, nil
	}
	return nil, apperr.NotFound("Session")
}

func (s *sessionStore) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	delete(s.byHash, tokenHash)
	return nil
}

func (s *sessionStore) CountActive(_ context.Context) (int, error) { return len(s.byHash), nil }

func (s *sessionStore) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type noopCache struct{}

func (noopCache) Set(_ context.Context, _ *session.Session, _ time.Duration) error { return nil }

func (noopCache) Get(_ context.Context, _ string) (*session.Session, error) { return nil, nil }

func (noopCache) Delete(_ context.Context, _ string) error { return nil }

// # HTTP Harness

func newRouter(t *testing.T) (*harness, chi.Router) {
	t.Helper()

	h := newHarness(t)
	issuer := session.NewIssuer(&sessionStore{byHash: make(map[string]*session.Session)}, noopCache{}, time.Hour)
	handler := escalation.NewHandler(h.policy, issuer)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return h, router
}

func postLogin(t *testing.T, router chi.Router, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

var aliceLogin = map[string]any{
	"name":     "Alice",
	"email":    "alice@example.com",
	"password": "correct-horse",
}

var aliceBadLogin = map[string]any{
	"name":     "Alice",
	"email":    "alice@example.com",
	"password": "wrong-password",
}

// # Tests

/*
TestLoginEndpoint_Success verifies the 200 payload carries a usable bearer
token and the account's public fields.
*/
func TestLoginEndpoint_Success(t *testing.T) {
	_, router := newRouter(t)

	recorder := postLogin(t, router, aliceLogin)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])

	user := body["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "Alice", user["name"])
}

/*
TestLoginEndpoint_Failure verifies the 401 payload and its escalation flags
as failures accumulate to the face threshold.
*/
func TestLoginEndpoint_Failure(t *testing.T) {
	_, router := newRouter(t)

	// 1. First failure: generic message, no face demand yet.
	recorder := postLogin(t, router, aliceBadLogin)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "UNAUTHORIZED", body["code"])
	assert.Equal(t, false, body["require_face"])
	assert.Equal(t, float64(1), body["attempts"])
	assert.Equal(t, float64(6), body["max_attempts"])
	assert.Equal(t, float64(5), body["attempts_remaining"])

	// 2. Third failure: the response starts demanding a capture.
	postLogin(t, router, aliceBadLogin)
	recorder = postLogin(t, router, aliceBadLogin)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	body = decodeBody(t, recorder)
	assert.Equal(t, true, body["require_face"])
	assert.Equal(t, float64(3), body["attempts"])
	assert.Equal(t, float64(6), body["max_attempts"])
	assert.Equal(t, float64(3), body["attempts_remaining"])
}

/*
TestLoginEndpoint_Locked verifies the 403 shape once the lock threshold is
crossed, and that the lock also bounces correct credentials.
*/
func TestLoginEndpoint_Locked(t *testing.T) {
	_, router := newRouter(t)

	var recorder *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		recorder = postLogin(t, router, aliceBadLogin)
	}
	require.Equal(t, http.StatusForbidden, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "LOCKED", body["code"])
	assert.NotEmpty(t, body["locked_until"])
	assert.GreaterOrEqual(t, body["retry_after_seconds"].(float64), float64(0))

	// Correct credentials are refused while the lock holds.
	recorder = postLogin(t, router, aliceLogin)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

/*
TestLoginEndpoint_Validation verifies malformed payloads are rejected with
400 before any policy evaluation.
*/
func TestLoginEndpoint_Validation(t *testing.T) {
	h, router := newRouter(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing_password", map[string]any{"name": "Alice", "email": "alice@example.com"}},
		{"missing_email", map[string]any{"name": "Alice", "password": "x"}},
		{"bad_face_image", map[string]any{
			"name": "Alice", "email": "alice@example.com",
			"password": "x", "face_image": "!!not-base64!!",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := postLogin(t, router, tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}

	// Nothing reached the ledger.
	assert.Equal(t, 0, h.ledger.len())
}

/*
TestPostureEndpoint verifies the advisory posture query across states.
*/
func TestPostureEndpoint(t *testing.T) {
	h, router := newRouter(t)

	get := func() (*httptest.ResponseRecorder, map[string]any) {
		request := httptest.NewRequest(http.MethodGet, "/posture?email=alice@example.com", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, request)
		return recorder, decodeBody(t, recorder)
	}

	// 1. Open account.
	recorder, body := get()
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "open", body["state"])
	assert.Equal(t, false, body["require_face"])

	// 2. After enough failures, the posture flips.
	for i := 0; i < 3; i++ {
		h.attempt(t, "wrong-password", "")
	}

	recorder, body = get()
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "face_required", body["state"])
	assert.Equal(t, true, body["require_face"])

	// 3. Missing email is a validation error.
	request := httptest.NewRequest(http.MethodGet, "/posture", nil)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
