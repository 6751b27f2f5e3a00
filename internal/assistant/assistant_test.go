package assistant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/zamanbank/assistant/internal/conversation"
	"github.com/zamanbank/assistant/internal/log"
	"github.com/zamanbank/assistant/internal/orchestrator"
	"github.com/zamanbank/assistant/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ============================================================================
// Fakes
// ============================================================================

type fakeReplier struct {
	reply orchestrator.Reply
	err   error
	delay time.Duration

	mu      sync.Mutex
	userIDs []int64
}

func (f *fakeReplier) Respond(ctx context.Context, conv *conversation.Conversation) (orchestrator.Reply, error) {
	if id, ok := tools.UserIDFrom(ctx); ok {
		f.mu.Lock()
		f.userIDs = append(f.userIDs, id)
		f.mu.Unlock()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return orchestrator.Reply{}, ctx.Err()
		}
	}
	return f.reply, f.err
}

type fakeSuggester struct {
	options []string
}

func (f *fakeSuggester) Generate(context.Context, []conversation.Turn) []string {
	return f.options
}

type countingNotifier struct {
	calls atomic.Int64
}

func (n *countingNotifier) Typing(context.Context, int64) error {
	n.calls.Add(1)
	return nil
}

func newAssistant(t *testing.T, r Replier, s Suggester, opts ...Option) (*Assistant, *conversation.Store) {
	t.Helper()
	store := conversation.NewStore()
	a, err := New(store, r, s, log.NewNop(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return a, store
}

// ============================================================================
// Message flow
// ============================================================================

func TestOnUserMessage(t *testing.T) {
	replier := &fakeReplier{reply: orchestrator.Reply{Text: "ответ", Media: []string{"pie.png"}}}
	a, store := newAssistant(t, replier, &fakeSuggester{options: []string{"Депозиты"}})

	resp, err := a.OnUserMessage(context.Background(), 42, "привет")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "ответ" {
		t.Errorf("text = %q", resp.Text)
	}
	if len(resp.Media) != 1 || len(resp.QuickReplies) != 1 {
		t.Errorf("response = %+v", resp)
	}

	// history: system prompt, user, assistant
	conv := store.GetOrCreate("42")
	turns := conv.Recent(0)
	if len(turns) != 3 {
		t.Fatalf("history length = %d", len(turns))
	}
	if turns[1].Kind != conversation.KindUser || turns[1].Text != "привет" {
		t.Errorf("user turn = %+v", turns[1])
	}
	if turns[2].Kind != conversation.KindAssistant || turns[2].Text != "ответ" {
		t.Errorf("assistant turn = %+v", turns[2])
	}
}

func TestOnUserMessageInjectsUserID(t *testing.T) {
	replier := &fakeReplier{reply: orchestrator.Reply{Text: "x"}}
	a, _ := newAssistant(t, replier, &fakeSuggester{})

	if _, err := a.OnUserMessage(context.Background(), 7, "привет"); err != nil {
		t.Fatal(err)
	}
	if len(replier.userIDs) != 1 || replier.userIDs[0] != 7 {
		t.Errorf("replier saw user ids %v", replier.userIDs)
	}
}

func TestOnUserMessageReplierFailure(t *testing.T) {
	replier := &fakeReplier{err: errors.New("boom")}
	a, store := newAssistant(t, replier, &fakeSuggester{})

	if _, err := a.OnUserMessage(context.Background(), 42, "привет"); err == nil {
		t.Fatal("expected error")
	}
	// no assistant turn persisted on failure
	turns := store.GetOrCreate("42").Recent(0)
	for _, turn := range turns {
		if turn.Kind == conversation.KindAssistant {
			t.Error("assistant turn persisted despite failure")
		}
	}
}

func TestOnSessionStart(t *testing.T) {
	replier := &fakeReplier{reply: orchestrator.Reply{Text: "Здравствуйте!"}}
	a, store := newAssistant(t, replier, &fakeSuggester{})

	if _, err := a.OnSessionStart(context.Background(), 42); err != nil {
		t.Fatal(err)
	}
	turns := store.GetOrCreate("42").Recent(0)
	if turns[1].Text != SessionOpener {
		t.Errorf("opener turn = %q", turns[1].Text)
	}
}

func TestSameUserTurnsSerialized(t *testing.T) {
	var inFlight, maxInFlight atomic.Int64
	replier := &trackingReplier{inFlight: &inFlight, maxInFlight: &maxInFlight}
	a, _ := newAssistant(t, replier, &fakeSuggester{})

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = a.OnUserMessage(context.Background(), 1, "привет")
		}()
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent turns for one user = %d, want 1", maxInFlight.Load())
	}
}

type trackingReplier struct {
	inFlight    *atomic.Int64
	maxInFlight *atomic.Int64
}

func (r *trackingReplier) Respond(context.Context, *conversation.Conversation) (orchestrator.Reply, error) {
	cur := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		prev := r.maxInFlight.Load()
		if cur <= prev || r.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return orchestrator.Reply{Text: "ок"}, nil
}

// ============================================================================
// Typing indication
// ============================================================================

func TestTypingHeartbeat(t *testing.T) {
	notifier := &countingNotifier{}
	replier := &fakeReplier{reply: orchestrator.Reply{Text: "x"}, delay: 25 * time.Millisecond}
	a, _ := newAssistant(t, replier, &fakeSuggester{},
		WithNotifier(notifier), WithHeartbeat(10*time.Millisecond))

	if _, err := a.OnUserMessage(context.Background(), 1, "привет"); err != nil {
		t.Fatal(err)
	}
	if notifier.calls.Load() < 2 {
		t.Errorf("typing signaled %d times, want at least 2", notifier.calls.Load())
	}
}

// goleak (TestMain) verifies the heartbeat goroutine is drained even when
// the replier fails.
func TestTypingStopsOnReplierFailure(t *testing.T) {
	notifier := &countingNotifier{}
	replier := &fakeReplier{err: errors.New("boom"), delay: 10 * time.Millisecond}
	a, _ := newAssistant(t, replier, &fakeSuggester{},
		WithNotifier(notifier), WithHeartbeat(5*time.Millisecond))

	_, _ = a.OnUserMessage(context.Background(), 1, "привет")
}
