package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mindwell-app/mindwell/server/auth"
	"github.com/mindwell-app/mindwell/store"
)

// Session is the wire shape of a chat session. Messages hold the recent tail
// of the log in chronological order.
type Session struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	WeekStart string            `json:"weekStart"`
	UpdatedAt string            `json:"updatedAt"`
	Messages  []*SessionMessage `json:"messages"`
}

// SessionMessage is one committed log entry on the wire.
type SessionMessage struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type renameSessionRequest struct {
	Title string `json:"title"`
}

type renameSessionResponse struct {
	Success bool   `json:"success"`
	Title   string `json:"title"`
}

type deleteSessionResponse struct {
	Success bool `json:"success"`
}

// ListSessions returns the caller's sessions, most recently active first,
// each carrying a recent message preview.
//
//	GET /sessions
func (s *APIV1Service) ListSessions(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.UserFromContext(c)

	sessions, err := s.Store.ListChatSessionsByOwner(ctx, user.ID, s.Profile.SessionPreviewLimit)
	if err != nil {
		return toHTTPError(c, err)
	}

	response := make([]*Session, 0, len(sessions))
	for _, session := range sessions {
		response = append(response, convertSession(session))
	}
	return c.JSON(http.StatusOK, response)
}

// RenameSession sets a caller-chosen title on an owned session.
//
//	PATCH /sessions/:id
func (s *APIV1Service) RenameSession(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.UserFromContext(c)
	sessionID := c.Param("id")

	request := &renameSessionRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	updated, err := s.Store.RenameChatSession(ctx, sessionID, user.ID, request.Title, store.TitleSourceUser)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.JSON(http.StatusOK, &renameSessionResponse{Success: true, Title: updated.Title})
}

// DeleteSession removes an owned session and its full message log.
//
//	DELETE /sessions/:id
func (s *APIV1Service) DeleteSession(c echo.Context) error {
	ctx := c.Request().Context()
	user := auth.UserFromContext(c)
	sessionID := c.Param("id")

	if err := s.Store.DeleteChatSession(ctx, sessionID, user.ID); err != nil {
		return toHTTPError(c, err)
	}
	if s.Metrics != nil {
		s.Metrics.SessionsDeleted.Inc()
	}
	return c.JSON(http.StatusOK, &deleteSessionResponse{Success: true})
}

func convertSession(session *store.ChatSession) *Session {
	// The store hands previews most-recent-first; the wire shape is
	// chronological.
	messages := make([]*SessionMessage, 0, len(session.Messages))
	for i := len(session.Messages) - 1; i >= 0; i-- {
		messages = append(messages, convertMessage(session.Messages[i]))
	}
	return &Session{
		ID:        session.ID,
		Title:     session.Title,
		WeekStart: time.Unix(session.WeekStart, 0).UTC().Format(time.RFC3339),
		UpdatedAt: time.Unix(session.UpdatedTs, 0).UTC().Format(time.RFC3339),
		Messages:  messages,
	}
}

func convertMessage(message *store.Message) *SessionMessage {
	return &SessionMessage{
		ID:      message.UID,
		Role:    string(message.Role),
		Content: message.Content,
	}
}
