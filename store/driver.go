package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database access. It abstracts the supported
// engines (sqlite, postgres) behind engine-neutral operations; the Store
// facade composes them into the higher-level contracts.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error

	// CreateChatSession inserts a session row. It returns ErrAlreadyExists
	// when a row with the same id is present, which callers use for the
	// unique-constraint-and-retry get-or-create pattern.
	CreateChatSession(ctx context.Context, create *ChatSession) (*ChatSession, error)
	ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error)
	UpdateChatSession(ctx context.Context, update *UpdateChatSession) (*ChatSession, error)
	// DeleteChatSession removes the session and its whole message set in one
	// transaction. Deleting an absent id is a no-op.
	DeleteChatSession(ctx context.Context, delete *DeleteChatSession) error

	// CreateMessage appends at the tail and bumps the owning session's
	// updated_ts atomically.
	CreateMessage(ctx context.Context, create *CreateMessage) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
	CountMessages(ctx context.Context, sessionID string) (int64, error)

	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
}
