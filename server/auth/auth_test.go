package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-app/mindwell/internal/profile"
	"github.com/mindwell-app/mindwell/store"
	"github.com/mindwell-app/mindwell/store/teststore"
)

const testSecret = "test-secret"

func TestGenerateAndVerifyAccessToken(t *testing.T) {
	token, err := GenerateAccessToken(42, time.Hour, testSecret)
	require.NoError(t, err)

	userID, err := verifyAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int32(42), userID)
}

func TestVerifyAccessTokenNonExpiring(t *testing.T) {
	token, err := GenerateAccessToken(7, 0, testSecret)
	require.NoError(t, err)

	userID, err := verifyAccessToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int32(7), userID)
}

func TestVerifyAccessTokenWrongSecret(t *testing.T) {
	token, err := GenerateAccessToken(42, time.Hour, testSecret)
	require.NoError(t, err)

	_, err = verifyAccessToken(token, "other-secret")
	assert.Error(t, err)
}

func TestVerifyAccessTokenExpired(t *testing.T) {
	token, err := GenerateAccessToken(42, -time.Minute, testSecret)
	require.NoError(t, err)

	_, err = verifyAccessToken(token, testSecret)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	st := store.New(teststore.New(), &profile.Profile{})
	user, err := st.CreateUser(ctx, &store.User{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)

	token, err := GenerateAccessToken(user.ID, time.Hour, testSecret)
	require.NoError(t, err)

	e := echo.New()
	handler := Middleware(st, testSecret)(func(c echo.Context) error {
		resolved := UserFromContext(c)
		require.NotNil(t, resolved)
		assert.Equal(t, user.ID, resolved.ID)
		return c.NoContent(http.StatusOK)
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-token", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := handler(c)
			if tt.wantStatus == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				return
			}
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.wantStatus, httpErr.Code)
		})
	}
}

func TestMiddlewareUnknownUser(t *testing.T) {
	st := store.New(teststore.New(), &profile.Profile{})

	token, err := GenerateAccessToken(99, time.Hour, testSecret)
	require.NoError(t, err)

	e := echo.New()
	handler := Middleware(st, testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c := e.NewContext(req, httptest.NewRecorder())

	err = handler(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
