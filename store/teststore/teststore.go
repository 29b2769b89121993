// Package teststore provides an in-memory store.Driver for tests. It keeps
// the same semantics the SQL drivers implement: unique session ids, ordered
// message logs, cascading session deletes, and the append-plus-bump rule.
package teststore

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/mindwell-app/mindwell/store"
)

type Driver struct {
	mu sync.Mutex

	sessions map[string]*store.ChatSession
	messages map[string][]*store.Message
	users    map[int32]*store.User

	nextMessageID int64
	nextUserID    int32
}

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{
		sessions: make(map[string]*store.ChatSession),
		messages: make(map[string][]*store.Message),
		users:    make(map[int32]*store.User),
	}
}

func (d *Driver) GetDB() *sql.DB { return nil }

func (d *Driver) Close() error { return nil }

func (d *Driver) IsInitialized(context.Context) (bool, error) { return true, nil }

func (d *Driver) Migrate(context.Context) error { return nil }

func (d *Driver) CreateChatSession(_ context.Context, create *store.ChatSession) (*store.ChatSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sessions[create.ID]; ok {
		return nil, store.ErrAlreadyExists
	}
	session := *create
	d.sessions[create.ID] = &session
	copied := session
	return &copied, nil
}

func (d *Driver) ListChatSessions(_ context.Context, find *store.FindChatSession) ([]*store.ChatSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sessions := []*store.ChatSession{}
	for _, session := range d.sessions {
		if find.ID != nil && session.ID != *find.ID {
			continue
		}
		if find.CreatorID != nil && session.CreatorID != *find.CreatorID {
			continue
		}
		copied := *session
		sessions = append(sessions, &copied)
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].UpdatedTs != sessions[j].UpdatedTs {
			return sessions[i].UpdatedTs > sessions[j].UpdatedTs
		}
		return sessions[i].CreatedTs > sessions[j].CreatedTs
	})
	return sessions, nil
}

func (d *Driver) UpdateChatSession(_ context.Context, update *store.UpdateChatSession) (*store.ChatSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.sessions[update.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if update.Title != nil {
		session.Title = *update.Title
	}
	if update.TitleSource != nil {
		session.TitleSource = *update.TitleSource
	}
	if update.UpdatedTs != nil {
		session.UpdatedTs = *update.UpdatedTs
	}
	copied := *session
	return &copied, nil
}

func (d *Driver) DeleteChatSession(_ context.Context, del *store.DeleteChatSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// Absent ids are a no-op, same as the SQL drivers. Session and messages
	// go away together.
	delete(d.messages, del.ID)
	delete(d.sessions, del.ID)
	return nil
}

func (d *Driver) CreateMessage(_ context.Context, create *store.CreateMessage) (*store.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.sessions[create.SessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	d.nextMessageID++
	message := &store.Message{
		ID:        d.nextMessageID,
		UID:       create.UID,
		SessionID: create.SessionID,
		Role:      create.Role,
		Content:   create.Content,
		CreatedTs: create.CreatedTs,
	}
	d.messages[create.SessionID] = append(d.messages[create.SessionID], message)
	session.UpdatedTs = create.CreatedTs / 1000
	copied := *message
	return &copied, nil
}

func (d *Driver) ListMessages(_ context.Context, find *store.FindMessage) ([]*store.Message, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	messages := []*store.Message{}
	for _, logged := range d.messages {
		for _, message := range logged {
			if find.SessionID != nil && message.SessionID != *find.SessionID {
				continue
			}
			copied := *message
			messages = append(messages, &copied)
		}
	}
	if find.Limit != nil {
		// Most recent first, truncated.
		sort.Slice(messages, func(i, j int) bool {
			if messages[i].CreatedTs != messages[j].CreatedTs {
				return messages[i].CreatedTs > messages[j].CreatedTs
			}
			return messages[i].ID > messages[j].ID
		})
		if len(messages) > *find.Limit {
			messages = messages[:*find.Limit]
		}
		return messages, nil
	}
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedTs != messages[j].CreatedTs {
			return messages[i].CreatedTs < messages[j].CreatedTs
		}
		return messages[i].ID < messages[j].ID
	})
	return messages, nil
}

func (d *Driver) CountMessages(_ context.Context, sessionID string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.messages[sessionID])), nil
}

func (d *Driver) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, user := range d.users {
		if user.Email == create.Email {
			return nil, store.ErrAlreadyExists
		}
	}
	d.nextUserID++
	user := *create
	user.ID = d.nextUserID
	d.users[user.ID] = &user
	copied := user
	return &copied, nil
}

func (d *Driver) ListUsers(_ context.Context, find *store.FindUser) ([]*store.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	users := []*store.User{}
	for _, user := range d.users {
		if find.ID != nil && user.ID != *find.ID {
			continue
		}
		if find.Email != nil && user.Email != *find.Email {
			continue
		}
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}
