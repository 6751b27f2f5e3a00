package conversation

import (
	"github.com/firebase/genkit/go/ai"
)

// Messages projects turns onto the model wire format, preserving order and
// structured tool payloads. This is the full-context view used for
// follow-up calls after tool dispatch.
func Messages(turns []Turn) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Kind {
		case KindUser:
			msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(t.Text)))
		case KindAssistant:
			msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(t.Text)))
		case KindDeveloper:
			msgs = append(msgs, ai.NewSystemMessage(ai.NewTextPart(t.Text)))
		case KindToolCall:
			msgs = append(msgs, &ai.Message{
				Role: ai.RoleModel,
				Content: []*ai.Part{ai.NewToolRequestPart(&ai.ToolRequest{
					Name:  t.ToolName,
					Ref:   t.CallID,
					Input: t.Args,
				})},
			})
		case KindToolResult:
			msgs = append(msgs, &ai.Message{
				Role: ai.RoleTool,
				Content: []*ai.Part{ai.NewToolResponsePart(&ai.ToolResponse{
					Ref:    t.CallID,
					Output: t.Result,
				})},
			})
		}
	}
	return msgs
}

// TextMessages projects only the turns that carry plain textual content.
// Tool-call and tool-result turns without text are excluded; their
// structured payloads are preserved by the Messages projection instead.
// This is the filtered view submitted on the first model call of a turn.
func TextMessages(turns []Turn) []*ai.Message {
	textual := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.HasText() {
			textual = append(textual, t)
		}
	}
	return Messages(textual)
}

// LastUserText returns the text of the most recent user turn, or "" when no
// user turn exists.
func LastUserText(turns []Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Kind == KindUser {
			return turns[i].Text
		}
	}
	return ""
}

// LastTexts returns up to n most recent textual contents, oldest first.
// Used by the quick-reply pass to build its lookup query.
func LastTexts(turns []Turn, n int) []string {
	var collected []string
	for i := len(turns) - 1; i >= 0 && len(collected) < n; i-- {
		if turns[i].HasText() {
			collected = append(collected, turns[i].Text)
		}
	}
	// Reverse into chronological order.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}
