package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindwell-app/mindwell/chat"
	"github.com/mindwell-app/mindwell/server/auth"
	"github.com/mindwell-app/mindwell/store"
)

type turnRequest struct {
	SessionID  string         `json:"sessionId"`
	Transcript []*turnMessage `json:"transcript"`
}

type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type turnResponse struct {
	Response *turnMessage `json:"response"`
}

// SubmitTurn runs one conversational turn: the latest transcript entry is
// committed as the user message, the completion provider answers with the
// full transcript as context, and the reply is committed and returned.
// Submitting against an unknown session id creates the session first.
//
//	POST /turn
func (s *APIV1Service) SubmitTurn(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.UserFromContext(c)

	request := &turnRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if request.SessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sessionId is required")
	}

	transcript := make([]chat.TranscriptMessage, 0, len(request.Transcript))
	for _, m := range request.Transcript {
		transcript = append(transcript, chat.TranscriptMessage{
			Role:    store.MessageRole(m.Role),
			Content: m.Content,
		})
	}

	result, err := s.Orchestrator.RunTurn(ctx, user.ID, request.SessionID, transcript)
	if err != nil {
		return toHTTPError(c, err)
	}

	return c.JSON(http.StatusOK, &turnResponse{
		Response: &turnMessage{
			Role:    string(result.Assistant.Role),
			Content: result.Assistant.Content,
		},
	})
}
