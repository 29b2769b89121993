package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mindwell-app/mindwell/ai/llm"
	"github.com/mindwell-app/mindwell/chat"
	"github.com/mindwell-app/mindwell/store"
)

// toHTTPError converts orchestration and store errors into HTTP responses
// with safe messages. Ownership mismatches are presented as not-found so the
// surface does not leak session existence across users.
func toHTTPError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, chat.ErrInvalidTranscript), errors.Is(err, store.ErrInvalidArgument):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrOwnershipMismatch):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, llm.ErrCompletion):
		slog.Error("completion provider failure", "path", c.Path(), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "error processing your request")
	default:
		slog.Error("storage failure", "path", c.Path(), "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
