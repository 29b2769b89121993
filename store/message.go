package store

// MessageRole is the author role of a message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Valid reports whether the role is one of the known roles.
func (r MessageRole) Valid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant
}

// Message is one entry of a session's append-only log. Messages are created
// by the turn orchestrator and never updated or deleted individually; the
// whole set goes away with its session.
type Message struct {
	ID        int64
	UID       string
	SessionID string
	Role      MessageRole
	Content   string
	CreatedTs int64
}

// CreateMessage inserts one message at the tail of a session's log and bumps
// the owning session's updated_ts in the same transaction.
type CreateMessage struct {
	UID       string
	SessionID string
	Role      MessageRole
	Content   string
	CreatedTs int64
}

type FindMessage struct {
	SessionID *string
	// Limit caps the result to the most recent entries. Results are ordered
	// most-recent-first when set; chronological presentation is the
	// consumer's responsibility.
	Limit *int
}
