// Package auth resolves the calling user from a signed bearer token. Token
// issuance happens out-of-band (the `mindwell user create` command); the
// HTTP surface only ever verifies.
package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mindwell-app/mindwell/store"
)

const (
	// Audience is the expected audience claim of access tokens.
	Audience = "mindwell.access-token"

	// ContextUserKey is the echo context key holding the resolved *store.User.
	ContextUserKey = "auth-user"

	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

type claims struct {
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an access token for the given user. A zero
// expiry produces a non-expiring token.
func GenerateAccessToken(userID int32, expiry time.Duration, secret string) (string, error) {
	now := time.Now()
	c := &claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  fmt.Sprintf("%d", userID),
			Audience: jwt.ClaimStrings{Audience},
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if expiry > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(expiry))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return signed, nil
}

// verifyAccessToken parses and validates a token, returning the user id.
func verifyAccessToken(tokenString, secret string) (int32, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithAudience(Audience))
	if err != nil {
		return 0, errors.Wrap(err, "invalid access token")
	}
	userID, err := strconv.ParseInt(c.Subject, 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "invalid token subject")
	}
	return int32(userID), nil
}

// Middleware returns an echo middleware that authenticates every request.
// Unauthenticated requests are rejected with 401; the resolved user is
// stored on the request context for handlers.
func Middleware(st *store.Store, secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(authorizationHeader)
			if !strings.HasPrefix(header, bearerPrefix) {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}
			userID, err := verifyAccessToken(strings.TrimPrefix(header, bearerPrefix), secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}
			user, err := st.GetUser(c.Request().Context(), &store.FindUser{ID: &userID})
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve user")
			}
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
			}
			c.Set(ContextUserKey, user)
			return next(c)
		}
	}
}

// UserFromContext returns the authenticated user set by Middleware, or nil.
func UserFromContext(c echo.Context) *store.User {
	user, _ := c.Get(ContextUserKey).(*store.User)
	return user
}
