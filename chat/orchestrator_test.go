package chat

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindwell-app/mindwell/ai/llm"
	"github.com/mindwell-app/mindwell/internal/profile"
	"github.com/mindwell-app/mindwell/store"
	"github.com/mindwell-app/mindwell/store/teststore"
)

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Chat(_ context.Context, _ []llm.Message) (string, *llm.CallStats, error) {
	s.calls++
	if s.err != nil {
		return "", nil, s.err
	}
	return s.reply, &llm.CallStats{TotalTokens: 42}, nil
}

func newTestOrchestrator(completion llm.Service) (*Orchestrator, *store.Store) {
	st := store.New(teststore.New(), &profile.Profile{SessionPreviewLimit: 15})
	return NewOrchestrator(st, completion, nil), st
}

func TestRunTurnAppendsUserAndAssistant(t *testing.T) {
	ctx := context.Background()
	completion := &stubLLM{reply: "Hi there, how can I help?"}
	o, st := newTestOrchestrator(completion)

	result, err := o.RunTurn(ctx, 1, "session-1", []TranscriptMessage{
		{Role: store.MessageRoleUser, Content: "Hello"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Assistant)
	assert.Equal(t, store.MessageRoleAssistant, result.Assistant.Role)
	assert.Equal(t, "Hi there, how can I help?", result.Assistant.Content)

	count, err := st.CountMessages(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRunTurnDerivesTitleOnFirstMessage(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(&stubLLM{reply: "ok"})

	result, err := o.RunTurn(ctx, 1, "session-1", []TranscriptMessage{
		{Role: store.MessageRoleUser, Content: "I feel anxious today about work"},
	})
	require.NoError(t, err)
	assert.Equal(t, "I feel anxious", result.Session.Title)
	assert.Equal(t, store.TitleSourceAuto, result.Session.TitleSource)
}

func TestRunTurnKeepsUserTitle(t *testing.T) {
	ctx := context.Background()
	o, st := newTestOrchestrator(&stubLLM{reply: "ok"})

	_, err := o.RunTurn(ctx, 1, "session-1", []TranscriptMessage{
		{Role: store.MessageRoleUser, Content: "first message"},
	})
	require.NoError(t, err)

	renamed, err := st.RenameChatSession(ctx, "session-1", 1, "My own title", store.TitleSourceUser)
	require.NoError(t, err)
	require.Equal(t, "My own title", renamed.Title)

	result, err := o.RunTurn(ctx, 1, "session-1", []TranscriptMessage{
		{Role: store.MessageRoleUser, Content: "first message"},
		{Role: store.MessageRoleAssistant, Content: "ok"},
		{Role: store.MessageRoleUser, Content: "second message"},
	})
	require.NoError(t, err)
	assert.Equal(t, "My own title", result.Session.Title)
}

func TestRunTurnCompletionFailureKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	completion := &stubLLM{err: errors.Wrap(llm.ErrCompletion, "provider timeout")}
	o, st := newTestOrchestrator(completion)

	_, err := o.RunTurn(ctx, 1, "session-1", []TranscriptMessage{
		{Role: store.MessageRoleUser, Content: "Hello"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrCompletion)

	// The user message stays committed; no synthetic assistant write.
	count, err := st.CountMessages(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRunTurnResubmissionAfterFailure(t *testing.T) {
	ctx := context.Background()
	completion := &stubLLM{err: errors.Wrap(llm.ErrCompletion, "provider timeout")}
	o, st := newTestOrchestrator(completion)

	transcript := []TranscriptMessage{
		{Role: store.MessageRoleUser, Content: "Hello"},
	}
	_, err := o.RunTurn(ctx, 1, "session-1", transcript)
	require.Error(t, err)

	// Retrying the same transcript appends another user message and, with a
	// healthy provider, the assistant reply.
	completion.err = nil
	completion.reply = "recovered"
	result, err := o.RunTurn(ctx, 1, "session-1", transcript)
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Assistant.Content)

	count, err := st.CountMessages(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRunTurnOwnershipMismatch(t *testing.T) {
	ctx := context.Background()
	o, _ := newTestOrchestrator(&stubLLM{reply: "ok"})

	_, err := o.RunTurn(ctx, 1, "session-1", []TranscriptMessage{
		{Role: store.MessageRoleUser, Content: "mine"},
	})
	require.NoError(t, err)

	_, err = o.RunTurn(ctx, 2, "session-1", []TranscriptMessage{
		{Role: store.MessageRoleUser, Content: "not mine"},
	})
	assert.ErrorIs(t, err, store.ErrOwnershipMismatch)
}

func TestRunTurnValidatesTranscript(t *testing.T) {
	ctx := context.Background()
	completion := &stubLLM{reply: "ok"}
	o, _ := newTestOrchestrator(completion)

	tests := []struct {
		name       string
		transcript []TranscriptMessage
	}{
		{"empty transcript", nil},
		{
			"unknown role",
			[]TranscriptMessage{{Role: "system", Content: "x"}, {Role: store.MessageRoleUser, Content: "y"}},
		},
		{
			"latest not user",
			[]TranscriptMessage{{Role: store.MessageRoleUser, Content: "x"}, {Role: store.MessageRoleAssistant, Content: "y"}},
		},
		{
			"latest empty",
			[]TranscriptMessage{{Role: store.MessageRoleUser, Content: ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.RunTurn(ctx, 1, "session-1", tt.transcript)
			assert.ErrorIs(t, err, ErrInvalidTranscript)
		})
	}
	assert.Zero(t, completion.calls)
}
