package conversation

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestNewConversationSeededWithSystemPrompt(t *testing.T) {
	s := NewStore()
	conv := s.GetOrCreate("u1")

	if got := conv.Len(); got != 1 {
		t.Fatalf("new conversation has %d turns, want 1", got)
	}
	turns := conv.Recent(0)
	if turns[0].Kind != KindDeveloper {
		t.Errorf("seed turn kind = %v, want developer", turns[0].Kind)
	}
	if turns[0].Text != SystemPrompt {
		t.Errorf("seed turn does not carry the system prompt")
	}
}

func TestGetOrCreateIdempotent(t *testing.T) {
	s := NewStore()
	first := s.GetOrCreate("u1")
	second := s.GetOrCreate("u1")

	if first != second {
		t.Error("GetOrCreate returned different instances for the same user")
	}
	if first.Len() != 1 {
		t.Errorf("conversation re-seeded: %d turns, want exactly 1 developer turn", first.Len())
	}
	if s.Len() != 1 {
		t.Errorf("store holds %d sessions, want 1", s.Len())
	}
}

func TestAppendOnlyOrdering(t *testing.T) {
	s := NewStore()
	conv := s.GetOrCreate("u1")

	conv.AppendUser("Здравствуйте")
	conv.AppendAssistant("Здравствуйте! Чем могу помочь?")
	conv.AppendUser("Хочу накопить на квартиру")

	turns := conv.Recent(0)
	wantKinds := []Kind{KindDeveloper, KindUser, KindAssistant, KindUser}
	if len(turns) != len(wantKinds) {
		t.Fatalf("got %d turns, want %d", len(turns), len(wantKinds))
	}
	for i, k := range wantKinds {
		if turns[i].Kind != k {
			t.Errorf("turn %d kind = %v, want %v", i, turns[i].Kind, k)
		}
	}
}

func TestToolResultRequiresMatchingCall(t *testing.T) {
	s := NewStore()
	conv := s.GetOrCreate("u1")

	err := conv.AppendToolResult("call_missing", map[string]any{"ok": true})
	if !errors.Is(err, ErrUnmatchedCall) {
		t.Fatalf("unmatched result error = %v, want ErrUnmatchedCall", err)
	}

	if err := conv.AppendToolCall("generate_saving_strategies", "call_1", map[string]any{"financial_goal": float64(1000000)}); err != nil {
		t.Fatalf("AppendToolCall: %v", err)
	}
	if err := conv.AppendToolResult("call_1", map[string]any{"strategies": []any{}}); err != nil {
		t.Fatalf("matched result rejected: %v", err)
	}
}

func TestToolTurnShapeValidation(t *testing.T) {
	if _, err := ToolCallTurn("", "call_1", nil); !errors.Is(err, ErrInvalidTurn) {
		t.Errorf("tool call without name accepted: %v", err)
	}
	if _, err := ToolCallTurn("compare_goals", "", nil); !errors.Is(err, ErrInvalidTurn) {
		t.Errorf("tool call without call id accepted: %v", err)
	}
	if _, err := ToolResultTurn("", nil); !errors.Is(err, ErrInvalidTurn) {
		t.Errorf("tool result without call id accepted: %v", err)
	}
}

func TestRecentReturnsDeepCopy(t *testing.T) {
	s := NewStore()
	conv := s.GetOrCreate("u1")
	if err := conv.AppendToolCall("compare_goals", "call_1", map[string]any{
		"nested": map[string]any{"k": "v"},
	}); err != nil {
		t.Fatal(err)
	}

	turns := conv.Recent(0)
	turns[0].Text = "mutated"
	turns[1].Args["nested"].(map[string]any)["k"] = "mutated"
	turns = append(turns[:0], turns[1:]...)
	_ = turns

	fresh := conv.Recent(0)
	if fresh[0].Text != SystemPrompt {
		t.Error("mutating the returned slice leaked into conversation state")
	}
	if fresh[1].Args["nested"].(map[string]any)["k"] != "v" {
		t.Error("mutating nested payloads leaked into conversation state")
	}
}

func TestRecentWindow(t *testing.T) {
	s := NewStore()
	conv := s.GetOrCreate("u1")
	for i := range 15 {
		conv.AppendUser(fmt.Sprintf("msg %d", i))
	}

	if got := len(conv.Recent(10)); got != 10 {
		t.Errorf("Recent(10) returned %d turns, want 10", got)
	}
	if got := len(conv.Recent(0)); got != 16 {
		t.Errorf("Recent(0) returned %d turns, want all 16", got)
	}
	if got := len(conv.Recent(-1)); got != 16 {
		t.Errorf("Recent(-1) returned %d turns, want all 16", got)
	}

	last := conv.Recent(1)
	if last[0].Text != "msg 14" {
		t.Errorf("Recent(1) = %q, want the newest turn", last[0].Text)
	}
}

func TestGreetingFlagTransitionsOnce(t *testing.T) {
	s := NewStore()
	conv := s.GetOrCreate("u1")

	if !conv.ShouldGreet() {
		t.Fatal("fresh conversation should greet")
	}
	conv.MarkGreeted()
	if conv.ShouldGreet() {
		t.Error("greeting flag did not flip")
	}
	conv.MarkGreeted()
	if conv.ShouldGreet() {
		t.Error("greeting flag flipped back")
	}
}

func TestBeginSerializesSameUser(t *testing.T) {
	s := NewStore()

	conv, release := s.Begin("u1")
	conv.AppendUser("first")

	entered := make(chan struct{})
	done := make(chan struct{})
	go func() {
		c2, rel2 := s.Begin("u1")
		close(entered)
		c2.AppendUser("second")
		rel2()
		close(done)
	}()

	select {
	case <-entered:
		t.Fatal("second turn for the same user entered before the first released")
	default:
	}

	release()
	<-done

	turns := conv.Recent(0)
	if turns[len(turns)-1].Text != "second" {
		t.Error("serialized turns applied out of order")
	}
}

func TestDifferentUsersProceedInParallel(t *testing.T) {
	s := NewStore()

	_, releaseA := s.Begin("alice")
	defer releaseA()

	// Must not block even while alice's turn lock is held.
	acquired := make(chan struct{})
	go func() {
		_, releaseB := s.Begin("bob")
		releaseB()
		close(acquired)
	}()
	<-acquired
}

func TestConcurrentFirstTimeCreation(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	convs := make([]*Conversation, 32)
	for i := range convs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			convs[i] = s.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(convs); i++ {
		if convs[i] != convs[0] {
			t.Fatal("concurrent GetOrCreate produced distinct conversations")
		}
	}
}
