package client

import (
	"context"

	"github.com/google/uuid"
)

// FallbackAssistantMessage is shown locally when a turn fails on any path.
// It is never sent to or stored by the server.
const FallbackAssistantMessage = "Something failed. Try again later."

// placeholderTitle matches the server's placeholder for fresh sessions.
const placeholderTitle = "New Chat"

// State is the client-local mirror of the session list. It is an explicit
// value passed through the reconciler's operations; server responses are the
// source of truth after each round trip.
type State struct {
	// Sessions is ordered by recency, most recently active first.
	Sessions []*Session

	// Active is the session the user is looking at, or nil.
	Active *Session

	// Loading is set while a turn is in flight. The reconciler refuses new
	// submissions for the active session until it clears.
	Loading bool
}

// Reconciler applies optimistic updates to a local State and reconciles them
// against server responses or failures. One in-flight turn at a time.
type Reconciler struct {
	client *Client
	state  *State
}

// NewReconciler creates a reconciler over a fresh empty state.
func NewReconciler(client *Client) *Reconciler {
	return &Reconciler{
		client: client,
		state:  &State{},
	}
}

// State returns the current local state.
func (r *Reconciler) State() *State {
	return r.state
}

// Refresh replaces the local session list with the server's. The previously
// active session is re-selected by id when it still exists; otherwise the
// first entry (or none) becomes active. Unconfirmed optimistic sessions are
// silently dropped here.
func (r *Reconciler) Refresh(ctx context.Context) error {
	sessions, err := r.client.ListSessions(ctx)
	if err != nil {
		return err
	}
	r.state.Sessions = sessions
	r.state.Active = nil
	if prev := r.activeID(); prev != "" {
		for _, session := range sessions {
			if session.ID == prev {
				r.state.Active = session
				break
			}
		}
	}
	if r.state.Active == nil && len(sessions) > 0 {
		r.state.Active = sessions[0]
	}
	return nil
}

// NewSession synthesizes a session locally and makes it active, before any
// server round trip. The session becomes durable on its first turn.
func (r *Reconciler) NewSession() *Session {
	session := &Session{
		ID:    uuid.NewString(),
		Title: placeholderTitle,
	}
	r.state.Sessions = append([]*Session{session}, r.state.Sessions...)
	r.state.Active = session
	return session
}

// SubmitTurn appends the user's message to the active session optimistically
// and submits the full local transcript. On success the assistant reply is
// appended and a server-side title change is taken over; on any failure a
// local-only fallback assistant message is appended instead.
//
// Returns false without side effects when no session is active or a turn is
// already in flight.
func (r *Reconciler) SubmitTurn(ctx context.Context, content string) bool {
	if r.state.Active == nil || r.state.Loading || content == "" {
		return false
	}
	session := r.state.Active

	session.Messages = append(session.Messages, &Message{Role: "user", Content: content})
	r.state.Loading = true
	defer func() { r.state.Loading = false }()

	reply, err := r.client.SubmitTurn(ctx, session.ID, session.Messages)
	if err != nil {
		session.Messages = append(session.Messages, &Message{
			Role:    "assistant",
			Content: FallbackAssistantMessage,
		})
		return true
	}

	session.Messages = append(session.Messages, reply)
	if session.Title == placeholderTitle {
		// The server derives a title from the first message; pick it up on
		// the next refresh rather than guessing here.
		r.refreshTitle(ctx, session)
	}
	return true
}

// DeleteSession removes the session locally and issues the delete call
// fire-and-forget; a server failure is not rolled back.
func (r *Reconciler) DeleteSession(ctx context.Context, sessionID string) {
	kept := make([]*Session, 0, len(r.state.Sessions))
	for _, session := range r.state.Sessions {
		if session.ID != sessionID {
			kept = append(kept, session)
		}
	}
	r.state.Sessions = kept
	if r.activeID() == sessionID {
		if len(kept) > 0 {
			r.state.Active = kept[0]
		} else {
			r.state.Active = nil
		}
	}
	_ = r.client.DeleteSession(ctx, sessionID)
}

// RenameSession updates the local title immediately and persists it. Local
// state stays authoritative until the next Refresh.
func (r *Reconciler) RenameSession(ctx context.Context, sessionID, title string) error {
	for _, session := range r.state.Sessions {
		if session.ID == sessionID {
			session.Title = title
			break
		}
	}
	_, err := r.client.RenameSession(ctx, sessionID, title)
	return err
}

func (r *Reconciler) activeID() string {
	if r.state.Active == nil {
		return ""
	}
	return r.state.Active.ID
}

// refreshTitle pulls the server-derived title for a single session.
func (r *Reconciler) refreshTitle(ctx context.Context, session *Session) {
	sessions, err := r.client.ListSessions(ctx)
	if err != nil {
		return
	}
	for _, fetched := range sessions {
		if fetched.ID == session.ID {
			session.Title = fetched.Title
			return
		}
	}
}
