package store

import (
	"context"
	"fmt"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/mindwell-app/mindwell/internal/profile"
	"github.com/mindwell-app/mindwell/store/cache"
)

// Store provides database access to all raw objects and composes the driver
// primitives into the session/message contracts.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// userCache keeps auth-path user lookups off the database.
	userCache *cache.Cache

	// createGroup collapses concurrent get-or-create calls for the same
	// session id and owner into a single driver round trip.
	createGroup singleflight.Group
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
		userCache: cache.New(cache.Config{
			DefaultTTL:      10 * time.Minute,
			CleanupInterval: 5 * time.Minute,
			MaxItems:        1000,
		}),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	s.userCache.Close()
	return s.driver.Close()
}

// GetOrCreateChatSession returns the session with the given id, creating it
// with the placeholder title when absent. Exactly one row is ever created per
// id: concurrent first turns are collapsed by singleflight, and a create that
// loses a cross-process race retries as a read. An existing session owned by
// another user yields ErrOwnershipMismatch.
func (s *Store) GetOrCreateChatSession(ctx context.Context, sessionID string, ownerID int32) (*ChatSession, error) {
	// The owner is part of the key so that two users racing on one id do not
	// share a result; the loser of the insert race falls into the ownership
	// check below.
	key := fmt.Sprintf("%s/%d", sessionID, ownerID)
	v, err, _ := s.createGroup.Do(key, func() (any, error) {
		return s.getOrCreateChatSession(ctx, sessionID, ownerID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ChatSession), nil
}

func (s *Store) getOrCreateChatSession(ctx context.Context, sessionID string, ownerID int32) (*ChatSession, error) {
	existing, err := s.findOwnedChatSession(ctx, sessionID, ownerID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().Unix()
	created, err := s.driver.CreateChatSession(ctx, &ChatSession{
		ID:          sessionID,
		CreatorID:   ownerID,
		Title:       DefaultSessionTitle,
		TitleSource: TitleSourceDefault,
		WeekStart:   now,
		CreatedTs:   now,
		UpdatedTs:   now,
	})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, ErrAlreadyExists) {
		// Lost the insert race; whoever won owns the row now.
		return s.findOwnedChatSession(ctx, sessionID, ownerID)
	}
	return nil, errors.Wrap(err, "failed to create chat session")
}

// findOwnedChatSession fetches a session by id and verifies ownership.
func (s *Store) findOwnedChatSession(ctx context.Context, sessionID string, ownerID int32) (*ChatSession, error) {
	sessions, err := s.driver.ListChatSessions(ctx, &FindChatSession{ID: &sessionID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find chat session")
	}
	if len(sessions) == 0 {
		return nil, ErrNotFound
	}
	session := sessions[0]
	if session.CreatorID != ownerID {
		return nil, ErrOwnershipMismatch
	}
	return session, nil
}

// ListChatSessionsByOwner returns the owner's sessions ordered by updated_ts
// descending, each annotated with its most recent previewLimit messages.
// Message previews are most-recent-first; presentation layers re-reverse.
func (s *Store) ListChatSessionsByOwner(ctx context.Context, ownerID int32, previewLimit int) ([]*ChatSession, error) {
	sessions, err := s.driver.ListChatSessions(ctx, &FindChatSession{CreatorID: &ownerID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat sessions")
	}
	for _, session := range sessions {
		messages, err := s.driver.ListMessages(ctx, &FindMessage{
			SessionID: &session.ID,
			Limit:     &previewLimit,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list messages for session %s", session.ID)
		}
		session.Messages = messages
	}
	return sessions, nil
}

// RenameChatSession sets a new title on an owned session and bumps its
// updated_ts.
func (s *Store) RenameChatSession(ctx context.Context, sessionID string, ownerID int32, title string, source TitleSource) (*ChatSession, error) {
	if title == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "title must not be empty")
	}
	if _, err := s.findOwnedChatSession(ctx, sessionID, ownerID); err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	updated, err := s.driver.UpdateChatSession(ctx, &UpdateChatSession{
		ID:          sessionID,
		Title:       &title,
		TitleSource: &source,
		UpdatedTs:   &now,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update chat session")
	}
	return updated, nil
}

// DeleteChatSession removes an owned session together with its entire
// message set.
func (s *Store) DeleteChatSession(ctx context.Context, sessionID string, ownerID int32) error {
	if _, err := s.findOwnedChatSession(ctx, sessionID, ownerID); err != nil {
		return err
	}
	if err := s.driver.DeleteChatSession(ctx, &DeleteChatSession{ID: sessionID}); err != nil {
		return errors.Wrap(err, "failed to delete chat session")
	}
	return nil
}

// AppendMessage assigns a uid and timestamp and inserts the message at the
// tail of the session's log. The owning session's updated_ts is bumped in the
// same transaction; existing entries are never reordered or mutated.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, role MessageRole, content string) (*Message, error) {
	if !role.Valid() {
		return nil, errors.Wrapf(ErrInvalidArgument, "unknown message role %q", role)
	}
	message, err := s.driver.CreateMessage(ctx, &CreateMessage{
		UID:       shortuuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedTs: time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to append message")
	}
	return message, nil
}

// ListMessages returns messages for a session. With FindMessage.Limit set the
// result is the most-recent-first tail of the log; otherwise it is the full
// log in chronological order.
func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

// CountMessages returns the number of committed messages in a session.
func (s *Store) CountMessages(ctx context.Context, sessionID string) (int64, error) {
	return s.driver.CountMessages(ctx, sessionID)
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	user, err := s.driver.CreateUser(ctx, create)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

// GetUser returns the matching user or nil when absent. Lookups by ID are
// served from the cache when possible.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	if find.ID != nil && find.Email == nil {
		if v, ok := s.userCache.Get(userCacheKey(*find.ID)); ok {
			return v.(*User), nil
		}
	}
	users, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	if len(users) == 0 {
		return nil, nil
	}
	user := users[0]
	s.userCache.Set(userCacheKey(user.ID), user)
	return user, nil
}

func userCacheKey(id int32) string {
	return fmt.Sprintf("user/%d", id)
}
