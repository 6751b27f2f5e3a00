// Package orchestrator runs one assistant turn end to end: ground the
// history with FAQ context, submit to the model, dispatch any tool requests
// in order, and produce the final client-facing reply.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/zamanbank/assistant/internal/conversation"
	"github.com/zamanbank/assistant/internal/knowledge"
	"github.com/zamanbank/assistant/internal/markdown"
	"github.com/zamanbank/assistant/internal/tools"
)

// Fixed strings spoken by the protocol. Kept verbatim from the production
// bot; translations or rewording break downstream tests and client UX.
const (
	// FallbackText is the client-visible reply when the model call fails.
	FallbackText = "Error generating response."

	// NoFAQText substitutes the FAQ context when retrieval has nothing.
	NoFAQText = "No FAQ information available."

	// faqPrefix marks the ephemeral FAQ context message.
	faqPrefix = "FAQ RAG: "

	// greetingInstruction is issued once per conversation.
	greetingInstruction = `Start your response with "Здравствуйте!"`

	// followUpInstruction shapes the post-tool synthesis call.
	followUpInstruction = "Present the result of the function call in the context of the conversation. " +
		"Derive insights from the data and make calls to action for the user."
)

// defaultHistoryWindow is how many recent turns go into the first model call.
const defaultHistoryWindow = 10

// Reply is the final product of one orchestrated turn.
type Reply struct {
	// Text is the reply body, escaped for the MarkdownV2 transport.
	Text string
	// Media lists attachment references lifted from tool results.
	Media []string
}

// FAQ answers a free-form question over the knowledge corpus.
type FAQ interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Dispatcher executes tool requests by name.
type Dispatcher interface {
	Refs() []ai.ToolRef
	Known(name string) bool
	Dispatch(ctx context.Context, name string, args map[string]any) (tools.Result, error)
}

// Orchestrator coordinates model calls and tool dispatch for one turn.
// Stateless across turns; safe for concurrent use over distinct
// conversations. The caller serializes turns of the same conversation.
type Orchestrator struct {
	completer     Completer
	dispatcher    Dispatcher
	faq           FAQ
	logger        *slog.Logger
	historyWindow int
}

// New creates an Orchestrator. A nil logger uses slog.Default();
// historyWindow <= 0 uses the default of 10 turns.
func New(completer Completer, dispatcher Dispatcher, faq FAQ, logger *slog.Logger, historyWindow int) (*Orchestrator, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if faq == nil {
		return nil, errors.New("faq is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	return &Orchestrator{
		completer:     completer,
		dispatcher:    dispatcher,
		faq:           faq,
		logger:        logger,
		historyWindow: historyWindow,
	}, nil
}

// Respond runs one turn against the conversation. The user's message must
// already be appended. Tool calls and results are persisted to the
// conversation; the final reply text is returned for the caller to persist.
//
// Model failures never surface as errors: the client always gets a reply,
// if only the fallback line.
func (o *Orchestrator) Respond(ctx context.Context, conv *conversation.Conversation) (Reply, error) {
	recent := conv.Recent(o.historyWindow)
	messages := conversation.TextMessages(recent)

	// Ephemeral FAQ grounding: lives only in this submission, never in the
	// conversation history.
	messages = append(messages, ai.NewSystemMessage(ai.NewTextPart(faqPrefix+o.faqContext(ctx, recent))))

	instructions := ""
	if conv.ShouldGreet() {
		instructions = greetingInstruction
		conv.MarkGreeted()
	}

	resp, err := o.completer.Complete(ctx, Request{
		Messages:     messages,
		Tools:        o.dispatcher.Refs(),
		Instructions: instructions,
	})
	if err != nil {
		o.logger.Error("model call failed", "user_id", conv.UserID(), "error", err)
		return Reply{Text: markdown.EscapeV2(FallbackText)}, nil
	}

	requests := toolRequests(resp)
	if len(requests) == 0 {
		return Reply{Text: markdown.EscapeV2(responseText(resp))}, nil
	}

	media, err := o.runTools(ctx, conv, resp)
	if err != nil {
		return Reply{}, err
	}

	// Second call over the full history, now including tool results. The
	// model must not chain further tool calls here.
	followUp, err := o.completer.Complete(ctx, Request{
		Messages:     conversation.Messages(conv.Recent(0)),
		Instructions: followUpInstruction,
	})
	if err != nil {
		o.logger.Error("follow-up model call failed", "user_id", conv.UserID(), "error", err)
		return Reply{Text: markdown.EscapeV2(FallbackText), Media: media}, nil
	}

	return Reply{Text: markdown.EscapeV2(responseText(followUp)), Media: media}, nil
}

// faqContext retrieves FAQ grounding for the latest user message. Retrieval
// problems degrade to the sentinel text, never to a failed turn.
func (o *Orchestrator) faqContext(ctx context.Context, recent []conversation.Turn) string {
	query := conversation.LastUserText(recent)
	if query == "" {
		return NoFAQText
	}

	answer, err := o.faq.Ask(ctx, query)
	if err != nil {
		if !errors.Is(err, knowledge.ErrNoInformation) {
			o.logger.Warn("faq retrieval failed", "error", err)
		}
		return NoFAQText
	}
	return answer
}

// runTools walks the model response in output order, persisting interleaved
// text and dispatching each tool call at most once per call id. Returns
// media references lifted from result payloads.
func (o *Orchestrator) runTools(ctx context.Context, conv *conversation.Conversation, resp *ai.ModelResponse) ([]string, error) {
	var media []string
	seen := make(map[string]bool)
	for _, part := range resp.Message.Content {
		// Interleaved text in a tool-calling response still belongs to the
		// dialogue record, in the position the model emitted it.
		if part.IsText() {
			if strings.TrimSpace(part.Text) != "" {
				conv.AppendAssistant(part.Text)
			}
			continue
		}
		req := part.ToolRequest
		if req == nil {
			continue
		}

		callID := req.Ref
		if callID == "" {
			callID = req.Name
		}
		if seen[callID] {
			o.logger.Warn("duplicate tool call id, skipping", "tool", req.Name, "call_id", callID, "user_id", conv.UserID())
			continue
		}
		seen[callID] = true
		args := requestArgs(req)

		if err := conv.AppendToolCall(req.Name, callID, args); err != nil {
			return nil, fmt.Errorf("recording tool call %q: %w", req.Name, err)
		}

		var result tools.Result
		if !o.dispatcher.Known(req.Name) {
			o.logger.Warn("model requested unknown tool", "tool", req.Name, "user_id", conv.UserID())
			result = tools.Failure(fmt.Sprintf("tool %s failed", req.Name))
		} else {
			var err error
			result, err = o.dispatcher.Dispatch(ctx, req.Name, args)
			if err != nil {
				o.logger.Warn("tool dispatch failed", "tool", req.Name, "error", err)
				result = tools.Failure(fmt.Sprintf("tool %s failed", req.Name))
			}
		}

		media = append(media, liftMedia(result.Output)...)

		if err := conv.AppendToolResult(callID, result.Output); err != nil {
			return nil, fmt.Errorf("recording tool result %q: %w", req.Name, err)
		}
	}
	return media, nil
}

// toolRequests extracts tool requests from a model response in output order.
func toolRequests(resp *ai.ModelResponse) []*ai.ToolRequest {
	if resp == nil || resp.Message == nil {
		return nil
	}
	var requests []*ai.ToolRequest
	for _, part := range resp.Message.Content {
		if part.ToolRequest != nil {
			requests = append(requests, part.ToolRequest)
		}
	}
	return requests
}

// requestArgs normalizes a tool request's input into a JSON object.
func requestArgs(req *ai.ToolRequest) map[string]any {
	if req.Input == nil {
		return map[string]any{}
	}
	if m, ok := req.Input.(map[string]any); ok {
		return m
	}
	// Non-object input is preserved under a fixed key rather than dropped.
	return map[string]any{"input": req.Input}
}

// responseText returns the response's text, or the fallback when the model
// produced nothing usable.
func responseText(resp *ai.ModelResponse) string {
	if resp == nil {
		return FallbackText
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return FallbackText
	}
	return text
}

// liftMedia pulls attachment references out of a tool result payload and
// removes them from the model-visible output.
func liftMedia(output map[string]any) []string {
	raw, ok := output["media"]
	if !ok {
		return nil
	}
	delete(output, "media")

	switch items := raw.(type) {
	case []string:
		return items
	case []any:
		var out []string
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
