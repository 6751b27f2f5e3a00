package conversation

import (
	"errors"
	"fmt"
)

// Sentinel errors for turn construction and history mutation.
var (
	// ErrInvalidTurn indicates a turn was constructed with a malformed shape
	// (e.g. a tool call without a name or call id).
	ErrInvalidTurn = errors.New("invalid turn")

	// ErrUnmatchedCall indicates a tool result referenced a call id with no
	// prior tool-call turn in the same conversation.
	ErrUnmatchedCall = errors.New("tool result does not match any tool call")
)

// Kind discriminates the closed set of turn variants.
type Kind int

const (
	// KindUser is a message authored by the end user.
	KindUser Kind = iota

	// KindAssistant is a message authored by the model for the user.
	KindAssistant

	// KindDeveloper is injected context (system instructions, FAQ excerpts)
	// never shown to the user.
	KindDeveloper

	// KindToolCall is a model-issued request to invoke a registered tool.
	KindToolCall

	// KindToolResult is the normalized outcome of a tool invocation,
	// correlated to its tool call by CallID.
	KindToolResult
)

// String returns the wire-level role name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	case KindDeveloper:
		return "developer"
	case KindToolCall:
		return "tool-call"
	case KindToolResult:
		return "tool-result"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Turn is one atomic entry in a conversation's ordered history.
//
// Which fields are populated depends on Kind: textual turns carry Text,
// tool-call turns carry ToolName, CallID and Args, tool-result turns carry
// CallID and Result. Unrecognized shapes are rejected at construction, not
// accumulated silently.
type Turn struct {
	Kind Kind

	// Text is the plain content of user/assistant/developer turns. Empty
	// strings are allowed by design. Tool turns may leave it empty.
	Text string

	// ToolName names the requested tool (tool-call turns only).
	ToolName string

	// CallID is the opaque correlation token linking a tool call to its
	// result. Supplied by the model and echoed back verbatim.
	CallID string

	// Args is the parsed argument payload of a tool-call turn.
	Args map[string]any

	// Result is the normalized payload of a tool-result turn.
	Result map[string]any
}

// UserTurn builds a user-authored turn.
func UserTurn(text string) Turn {
	return Turn{Kind: KindUser, Text: text}
}

// AssistantTurn builds an assistant-authored turn.
func AssistantTurn(text string) Turn {
	return Turn{Kind: KindAssistant, Text: text}
}

// DeveloperTurn builds an injected-context turn.
func DeveloperTurn(text string) Turn {
	return Turn{Kind: KindDeveloper, Text: text}
}

// ToolCallTurn builds a tool-call turn. Name and call id are mandatory.
func ToolCallTurn(name, callID string, args map[string]any) (Turn, error) {
	if name == "" {
		return Turn{}, fmt.Errorf("%w: tool call without tool name", ErrInvalidTurn)
	}
	if callID == "" {
		return Turn{}, fmt.Errorf("%w: tool call %q without call id", ErrInvalidTurn, name)
	}
	return Turn{Kind: KindToolCall, ToolName: name, CallID: callID, Args: deepCopyMap(args)}, nil
}

// ToolResultTurn builds a tool-result turn. The call id is mandatory; whether
// it matches a prior tool call is enforced by Conversation.AppendToolResult.
func ToolResultTurn(callID string, payload map[string]any) (Turn, error) {
	if callID == "" {
		return Turn{}, fmt.Errorf("%w: tool result without call id", ErrInvalidTurn)
	}
	return Turn{Kind: KindToolResult, CallID: callID, Result: deepCopyMap(payload)}, nil
}

// HasText reports whether the turn carries plain textual content.
func (t Turn) HasText() bool {
	return t.Text != ""
}

// Clone returns a deep, non-aliasing copy of the turn. Callers may freely
// mutate the copy without affecting conversation state.
func (t Turn) Clone() Turn {
	c := t
	c.Args = deepCopyMap(t.Args)
	c.Result = deepCopyMap(t.Result)
	return c
}

// deepCopyMap copies a JSON-compatible map, recursing into nested maps and
// slices. Scalar values are immutable and copied by assignment.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}
