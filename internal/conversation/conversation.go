// Package conversation implements the per-user dialogue model: an
// append-only ordered log of turns, a greeting flag, and a process-lifetime
// session store with per-user serialization.
package conversation

import (
	"fmt"
	"sync"
)

// SystemPrompt seeds every new conversation as its first developer turn.
// Kept verbatim from the production bot persona.
const SystemPrompt = "Ты цифровой ассистент банка ZamanBank. Твоя цель помочь клиенту банка. " +
	"Поздоровайся с пользователем, рассказав о функционале бота, затем отвечай на вопросы клиента как справочник: " +
	"напрямую и полностью, без введения или заключения. Пытайся использовать functions если это уместно. " +
	"Если не хватает данных для вызова функции, спроси их у пользователя. " +
	"При запросе данных у пользователя спрашивай по одному полю за раз и не предлагай контекстных действий. " +
	"При аналитике данных давай персонализированные советы по оптимизации трат и увеличению сбережений."

// Conversation owns the ordered turn sequence for one user.
//
// Invariants:
//   - insertion order is chronological order and is never reordered;
//   - existing turns are never edited or deleted, only appended;
//   - every tool-result turn's call id matches a prior tool-call turn.
//
// Individual methods are safe for concurrent use. Serializing a whole
// message turn (read-orchestrate-append) is the Store's job, see Begin.
type Conversation struct {
	userID string

	mu      sync.RWMutex
	turns   []Turn
	greeted bool
}

func newConversation(userID string) *Conversation {
	c := &Conversation{userID: userID}
	c.turns = append(c.turns, DeveloperTurn(SystemPrompt))
	return c
}

// UserID returns the owning user identifier.
func (c *Conversation) UserID() string {
	return c.userID
}

// AppendUser appends a user turn. Empty text is allowed by design.
func (c *Conversation) AppendUser(text string) {
	c.append(UserTurn(text))
}

// AppendAssistant appends an assistant turn.
func (c *Conversation) AppendAssistant(text string) {
	c.append(AssistantTurn(text))
}

// AppendDeveloper appends an injected-context turn. Used only when the
// caller deliberately wants the context retained in long-term history; the
// orchestrator's per-call FAQ context never goes through here.
func (c *Conversation) AppendDeveloper(text string) {
	c.append(DeveloperTurn(text))
}

// AppendToolCall appends a tool-call turn.
func (c *Conversation) AppendToolCall(name, callID string, args map[string]any) error {
	t, err := ToolCallTurn(name, callID, args)
	if err != nil {
		return err
	}
	c.append(t)
	return nil
}

// AppendToolResult appends a tool-result turn after verifying its call id
// matches a previously appended tool-call turn.
func (c *Conversation) AppendToolResult(callID string, payload map[string]any) error {
	t, err := ToolResultTurn(callID, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	matched := false
	for _, prev := range c.turns {
		if prev.Kind == KindToolCall && prev.CallID == callID {
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("%w: call id %q", ErrUnmatchedCall, callID)
	}
	c.turns = append(c.turns, t)
	return nil
}

func (c *Conversation) append(t Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
}

// Recent returns a deep copy of the last n turns, or of the whole history
// when n <= 0. The copy shares no state with the conversation.
func (c *Conversation) Recent(n int) []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := 0
	if n > 0 && len(c.turns) > n {
		start = len(c.turns) - n
	}
	out := make([]Turn, 0, len(c.turns)-start)
	for _, t := range c.turns[start:] {
		out = append(out, t.Clone())
	}
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// ShouldGreet reports whether the one-time opening greeting instruction has
// not yet been issued for this conversation.
func (c *Conversation) ShouldGreet() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.greeted
}

// MarkGreeted records that the greeting instruction has been issued. The
// transition happens at most once; further calls are no-ops.
func (c *Conversation) MarkGreeted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.greeted = true
}
