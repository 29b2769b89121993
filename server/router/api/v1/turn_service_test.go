package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-app/mindwell/ai/llm"
	"github.com/mindwell-app/mindwell/server/auth"
)

func TestSubmitTurn(t *testing.T) {
	env := newTestEnv(t)

	rec, err := env.call(env.service.SubmitTurn, http.MethodPost, "/turn",
		`{"sessionId":"session-1","transcript":[{"role":"user","content":"Hello"}]}`, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	response := &turnResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response))
	require.NotNil(t, response.Response)
	assert.Equal(t, "assistant", response.Response.Role)
	assert.Equal(t, "assistant reply", response.Response.Content)
}

func TestSubmitTurnMissingSessionID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.call(env.service.SubmitTurn, http.MethodPost, "/turn",
		`{"transcript":[{"role":"user","content":"Hello"}]}`, nil)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSubmitTurnInvalidTranscript(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.call(env.service.SubmitTurn, http.MethodPost, "/turn",
		`{"sessionId":"session-1","transcript":[]}`, nil)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSubmitTurnCompletionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.llm.err = errors.Wrap(llm.ErrCompletion, "provider down")

	_, err := env.call(env.service.SubmitTurn, http.MethodPost, "/turn",
		`{"sessionId":"session-1","transcript":[{"role":"user","content":"Hello"}]}`, nil)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)

	// The user message stays committed; the session exists awaiting a reply.
	count, err := env.store.CountMessages(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// TestTurnEndToEnd drives the registered routes through the auth middleware
// with a real token: one turn on a fresh session, then the session list.
func TestTurnEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.service.RegisterRoutes(env.echo)

	token, err := auth.GenerateAccessToken(env.user.ID, time.Hour, env.service.Profile.Secret)
	require.NoError(t, err)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		env.echo.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/turn",
		`{"sessionId":"e2e-session","transcript":[{"role":"user","content":"Hello"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	turn := &turnResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), turn))
	assert.Equal(t, "assistant", turn.Response.Role)

	rec = do(http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := []*Session{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "Hello", sessions[0].Title)
	require.Len(t, sessions[0].Messages, 2)
	assert.Equal(t, "user", sessions[0].Messages[0].Role)
	assert.Equal(t, "assistant", sessions[0].Messages[1].Role)
}

func TestTurnEndToEndUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	env.service.RegisterRoutes(env.echo)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTurnRateLimit(t *testing.T) {
	limiter := newTurnLimiter(2)
	assert.True(t, limiter.allow(1))
	assert.True(t, limiter.allow(1))
	assert.False(t, limiter.allow(1))
	// Other users have their own bucket.
	assert.True(t, limiter.allow(2))

	// Zero disables limiting entirely.
	unlimited := newTurnLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, unlimited.allow(1))
	}
}
