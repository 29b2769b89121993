// Package chat drives one conversational turn: persist the user message,
// call the completion provider, persist the assistant reply.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/mindwell-app/mindwell/ai/llm"
	"github.com/mindwell-app/mindwell/server/metrics"
	"github.com/mindwell-app/mindwell/store"
)

// ErrInvalidTranscript indicates a malformed turn submission (empty
// transcript, unknown role, blank latest message).
var ErrInvalidTranscript = errors.New("invalid transcript")

// defaultCompletionSlots bounds in-flight completion provider calls.
const defaultCompletionSlots = 8

// TranscriptMessage is one entry of the ordered message list a client holds
// for a session at submission time, oldest first.
type TranscriptMessage struct {
	Role    store.MessageRole
	Content string
}

// TurnResult is the outcome of a successful turn.
type TurnResult struct {
	Session   *store.ChatSession
	Assistant *store.Message
	Stats     *llm.CallStats
}

// Orchestrator executes chat turns against the store and the completion
// gateway. It serializes overlapping turns per session id so the committed
// log keeps its append order.
type Orchestrator struct {
	store   *store.Store
	llm     llm.Service
	metrics *metrics.Metrics

	// completionSem bounds concurrent provider calls across all sessions.
	completionSem *semaphore.Weighted

	// sessionLocks serializes turns per session id. Entries are never
	// removed; the map is bounded by the number of live sessions.
	sessionLocks sync.Map // session id -> *sync.Mutex
}

// NewOrchestrator creates a turn orchestrator. metrics may be nil in tests.
func NewOrchestrator(st *store.Store, completion llm.Service, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		store:         st,
		llm:           completion,
		metrics:       m,
		completionSem: semaphore.NewWeighted(defaultCompletionSlots),
	}
}

// RunTurn executes one chat turn:
//
//  1. validate the transcript
//  2. get-or-create the session (ownership enforced by the store)
//  3. append only the latest transcript entry as the user message; earlier
//     entries were persisted by prior turns, so resubmitting a transcript
//     after a failed completion does not duplicate history
//  4. derive a title from the first-ever message while the placeholder
//     title is still in place
//  5. call the completion provider with the full transcript and persist its
//     reply
//
// On provider failure the user message stays committed and the turn is left
// awaiting a response; no synthetic assistant message is written.
func (o *Orchestrator) RunTurn(ctx context.Context, ownerID int32, sessionID string, transcript []TranscriptMessage) (*TurnResult, error) {
	start := time.Now()
	result, err := o.runTurn(ctx, ownerID, sessionID, transcript)
	o.observeTurn(start, err)
	return result, err
}

func (o *Orchestrator) runTurn(ctx context.Context, ownerID int32, sessionID string, transcript []TranscriptMessage) (*TurnResult, error) {
	if err := validateTranscript(transcript); err != nil {
		return nil, err
	}

	unlock := o.lockSession(sessionID)
	defer unlock()

	session, err := o.store.GetOrCreateChatSession(ctx, sessionID, ownerID)
	if err != nil {
		return nil, err
	}

	preCount, err := o.store.CountMessages(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	latest := transcript[len(transcript)-1]
	if _, err := o.store.AppendMessage(ctx, session.ID, store.MessageRoleUser, latest.Content); err != nil {
		return nil, err
	}

	if preCount == 0 && session.TitleSource == store.TitleSourceDefault {
		if title := DeriveTitle(latest.Content); title != "" {
			renamed, err := o.store.RenameChatSession(ctx, session.ID, ownerID, title, store.TitleSourceAuto)
			if err != nil {
				// The turn is still worth finishing with the placeholder title.
				slog.Warn("failed to set derived session title",
					"session_id", session.ID,
					"error", err,
				)
			} else {
				session = renamed
			}
		}
		if o.metrics != nil {
			o.metrics.SessionsCreated.Inc()
		}
	}

	content, stats, err := o.complete(ctx, transcript)
	if err != nil {
		if o.metrics != nil {
			o.metrics.CompletionFailures.Inc()
		}
		return nil, err
	}
	if o.metrics != nil && stats != nil {
		o.metrics.CompletionTokens.Add(float64(stats.TotalTokens))
	}

	assistant, err := o.store.AppendMessage(ctx, session.ID, store.MessageRoleAssistant, content)
	if err != nil {
		return nil, err
	}

	return &TurnResult{Session: session, Assistant: assistant, Stats: stats}, nil
}

func (o *Orchestrator) complete(ctx context.Context, transcript []TranscriptMessage) (string, *llm.CallStats, error) {
	if err := o.completionSem.Acquire(ctx, 1); err != nil {
		return "", nil, errors.Wrap(llm.ErrCompletion, "waiting for completion slot")
	}
	defer o.completionSem.Release(1)

	messages := make([]llm.Message, 0, len(transcript))
	for _, m := range transcript {
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return o.llm.Chat(ctx, messages)
}

func (o *Orchestrator) lockSession(sessionID string) func() {
	v, _ := o.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (o *Orchestrator) observeTurn(start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidTranscript):
		status = "invalid"
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrOwnershipMismatch):
		status = "denied"
	case errors.Is(err, llm.ErrCompletion):
		status = "completion_failed"
	default:
		status = "storage_failed"
	}
	o.metrics.TurnsTotal.WithLabelValues(status).Inc()
	o.metrics.TurnDuration.Observe(time.Since(start).Seconds())
}

func validateTranscript(transcript []TranscriptMessage) error {
	if len(transcript) == 0 {
		return errors.Wrap(ErrInvalidTranscript, "transcript must not be empty")
	}
	for i, m := range transcript {
		if !m.Role.Valid() {
			return errors.Wrapf(ErrInvalidTranscript, "unknown role %q at index %d", m.Role, i)
		}
	}
	latest := transcript[len(transcript)-1]
	if latest.Role != store.MessageRoleUser {
		return errors.Wrap(ErrInvalidTranscript, "latest transcript entry must be a user message")
	}
	if latest.Content == "" {
		return errors.Wrap(ErrInvalidTranscript, "latest transcript entry must not be empty")
	}
	return nil
}
