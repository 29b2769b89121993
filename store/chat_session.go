package store

// DefaultSessionTitle is the placeholder title assigned to sessions created
// lazily on their first turn. It is replaced once a title is derived from the
// first user message or set explicitly by the owner.
const DefaultSessionTitle = "New Chat"

// TitleSource indicates how the session title was created.
// - "default": system placeholder ("New Chat")
// - "auto": derived from the first user message
// - "user": user-provided title (manual edit)
type TitleSource string

const (
	TitleSourceDefault TitleSource = "default"
	TitleSourceAuto    TitleSource = "auto"
	TitleSourceUser    TitleSource = "user"
)

// ChatSession is one per-user conversation. The ID is a client-generated
// opaque string, stable across the conversation's lifetime; CreatorID is
// immutable after creation.
type ChatSession struct {
	ID          string
	CreatorID   int32
	Title       string
	TitleSource TitleSource
	WeekStart   int64
	CreatedTs   int64
	UpdatedTs   int64

	// Messages is the most recent slice of the session's log, populated by
	// ListChatSessions for preview purposes. Stored most-recent-first;
	// consumers presenting a conversation must re-reverse to chronological.
	Messages []*Message
}

type FindChatSession struct {
	ID        *string
	CreatorID *int32
}

type UpdateChatSession struct {
	ID          string
	Title       *string
	TitleSource *TitleSource
	UpdatedTs   *int64
}

type DeleteChatSession struct {
	ID string
}
