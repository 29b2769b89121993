package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-app/mindwell/internal/profile"
	"github.com/mindwell-app/mindwell/store"
	"github.com/mindwell-app/mindwell/store/teststore"
)

func newTestStore() *store.Store {
	return store.New(teststore.New(), &profile.Profile{SessionPreviewLimit: 15})
}

func TestGetOrCreateChatSession(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	created, err := st.GetOrCreateChatSession(ctx, "session-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "session-1", created.ID)
	assert.Equal(t, int32(1), created.CreatorID)
	assert.Equal(t, store.DefaultSessionTitle, created.Title)
	assert.Equal(t, store.TitleSourceDefault, created.TitleSource)
	assert.NotZero(t, created.WeekStart)

	// Second call is a read, not a second create.
	again, err := st.GetOrCreateChatSession(ctx, "session-1", 1)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedTs, again.CreatedTs)
}

func TestGetOrCreateChatSessionConcurrent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.GetOrCreateChatSession(ctx, "session-1", 1)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	sessions, err := st.ListChatSessionsByOwner(ctx, 1, 15)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestGetOrCreateChatSessionOwnership(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	_, err := st.GetOrCreateChatSession(ctx, "session-1", 1)
	require.NoError(t, err)

	_, err = st.GetOrCreateChatSession(ctx, "session-1", 2)
	assert.ErrorIs(t, err, store.ErrOwnershipMismatch)
}

func TestRenameChatSession(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	_, err := st.GetOrCreateChatSession(ctx, "session-1", 1)
	require.NoError(t, err)

	renamed, err := st.RenameChatSession(ctx, "session-1", 1, "Morning check-in", store.TitleSourceUser)
	require.NoError(t, err)
	assert.Equal(t, "Morning check-in", renamed.Title)
	assert.Equal(t, store.TitleSourceUser, renamed.TitleSource)

	_, err = st.RenameChatSession(ctx, "session-1", 1, "", store.TitleSourceUser)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = st.RenameChatSession(ctx, "session-1", 2, "hijack", store.TitleSourceUser)
	assert.ErrorIs(t, err, store.ErrOwnershipMismatch)

	_, err = st.RenameChatSession(ctx, "absent", 1, "x", store.TitleSourceUser)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Failed renames leave the title alone.
	sessions, err := st.ListChatSessionsByOwner(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "Morning check-in", sessions[0].Title)
}

func TestDeleteChatSession(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	_, err := st.GetOrCreateChatSession(ctx, "session-1", 1)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = st.AppendMessage(ctx, "session-1", store.MessageRoleUser, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	require.Error(t, st.DeleteChatSession(ctx, "session-1", 2))

	require.NoError(t, st.DeleteChatSession(ctx, "session-1", 1))
	sessions, err := st.ListChatSessionsByOwner(ctx, 1, 15)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// Re-creation with the same id yields a brand-new empty session.
	recreated, err := st.GetOrCreateChatSession(ctx, "session-1", 1)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultSessionTitle, recreated.Title)
	count, err := st.CountMessages(ctx, "session-1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAppendMessageOrdering(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	_, err := st.GetOrCreateChatSession(ctx, "session-1", 1)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = st.AppendMessage(ctx, "session-1", store.MessageRoleUser, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	sessionID := "session-1"
	messages, err := st.ListMessages(ctx, &store.FindMessage{SessionID: &sessionID})
	require.NoError(t, err)
	require.Len(t, messages, 5)
	for i := 1; i < len(messages); i++ {
		assert.GreaterOrEqual(t, messages[i].CreatedTs, messages[i-1].CreatedTs)
		assert.Greater(t, messages[i].ID, messages[i-1].ID)
	}

	// The limited form returns the most recent tail.
	limit := 2
	tail, err := st.ListMessages(ctx, &store.FindMessage{SessionID: &sessionID, Limit: &limit})
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, "message 4", tail[0].Content)
	assert.Equal(t, "message 3", tail[1].Content)
}

func TestAppendMessageRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	_, err := st.GetOrCreateChatSession(ctx, "session-1", 1)
	require.NoError(t, err)

	_, err = st.AppendMessage(ctx, "session-1", "system", "nope")
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestListChatSessionsByOwnerPreviews(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	_, err := st.GetOrCreateChatSession(ctx, "session-1", 1)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = st.AppendMessage(ctx, "session-1", store.MessageRoleUser, fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	sessions, err := st.ListChatSessionsByOwner(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Messages, 2)
	// Previews arrive most-recent-first.
	assert.Equal(t, "message 3", sessions[0].Messages[0].Content)
	assert.Equal(t, "message 2", sessions[0].Messages[1].Content)
}

func TestGetUser(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()

	created, err := st.CreateUser(ctx, &store.User{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	found, err := st.GetUser(ctx, &store.FindUser{ID: &created.ID})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "a@example.com", found.Email)

	missing := int32(999)
	none, err := st.GetUser(ctx, &store.FindUser{ID: &missing})
	require.NoError(t, err)
	assert.Nil(t, none)
}
