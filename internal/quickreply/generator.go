// Package quickreply suggests short button labels for the user's next
// message. Suggestions are a garnish: every failure path degrades to no
// buttons, never to a failed turn.
package quickreply

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/sync/errgroup"

	"github.com/zamanbank/assistant/internal/conversation"
	"github.com/zamanbank/assistant/internal/knowledge"
	"github.com/zamanbank/assistant/internal/orchestrator"
)

// maxOptions caps how many buttons are offered.
const maxOptions = 8

// faqLookupDepth is how many recent texts feed the FAQ grounding query.
const faqLookupDepth = 2

// instruction mirrors the production bot's suggestion prompt.
const instruction = "Your next reply is not visible to the user. Generate contextual text actions to respond with. " +
	"Each on new line. 1-5 words per option. Only letters. No punctuation or numeration. " +
	"These will be used as button labels. Only add relevant contextual actions. " +
	"Prefer the " + SuggestName + " tool when available."

// RelevanceChecker probes whether a candidate label is covered by the FAQ
// corpus. Used to drop suggestions the assistant could not follow up on.
type RelevanceChecker interface {
	HasRelevant(ctx context.Context, query string) (bool, error)
}

// Config tunes the generator.
type Config struct {
	// FilterEnabled turns on the FAQ relevance filter over candidates.
	FilterEnabled bool
}

// Generator produces quick-reply options from a conversation's recent turns.
//
// Safe for concurrent use.
type Generator struct {
	completer orchestrator.Completer
	faq       orchestrator.FAQ
	relevance RelevanceChecker
	refs      []ai.ToolRef
	cfg       Config
	logger    *slog.Logger
}

// New creates a Generator. faq and relevance may be nil, disabling FAQ
// grounding and the relevance filter respectively. refs are the tools
// offered alongside the suggestion tool. A nil logger uses slog.Default().
func New(completer orchestrator.Completer, faq orchestrator.FAQ, relevance RelevanceChecker, refs []ai.ToolRef, cfg Config, logger *slog.Logger) (*Generator, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		completer: completer,
		faq:       faq,
		relevance: relevance,
		refs:      refs,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Generate returns quick-reply options for the conversation's current state.
// It never fails: any error or panic degrades to nil (no buttons).
func (g *Generator) Generate(ctx context.Context, turns []conversation.Turn) (options []string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			g.logger.Error("quick reply generation panicked", "panic", recovered)
			options = nil
		}
	}()

	messages := conversation.TextMessages(turns)
	messages = append(messages, ai.NewSystemMessage(ai.NewTextPart("FAQ RAG: "+g.faqContext(ctx, turns))))

	resp, err := g.completer.Complete(ctx, orchestrator.Request{
		Messages:     messages,
		Tools:        g.refs,
		Instructions: instruction,
	})
	if err != nil {
		g.logger.Warn("quick reply model call failed", "error", err)
		return nil
	}

	candidates := postProcess(extractOptions(resp))
	if g.cfg.FilterEnabled && g.relevance != nil {
		candidates = g.filterRelevant(ctx, candidates)
	}
	return candidates
}

// faqContext grounds the suggestion call with FAQ context over the last two
// texts, newest first. Failures degrade to the sentinel.
func (g *Generator) faqContext(ctx context.Context, turns []conversation.Turn) string {
	if g.faq == nil {
		return orchestrator.NoFAQText
	}
	texts := conversation.LastTexts(turns, faqLookupDepth)
	if len(texts) == 0 {
		return orchestrator.NoFAQText
	}
	// newest first, matching the production query shape
	for i, j := 0, len(texts)-1; i < j; i, j = i+1, j-1 {
		texts[i], texts[j] = texts[j], texts[i]
	}

	answer, err := g.faq.Ask(ctx, strings.Join(texts, "\n"))
	if err != nil {
		if !errors.Is(err, knowledge.ErrNoInformation) {
			g.logger.Warn("quick reply faq lookup failed", "error", err)
		}
		return orchestrator.NoFAQText
	}
	return answer
}

// filterRelevant keeps candidates the FAQ corpus can speak to, probing
// concurrently. A failed probe keeps its candidate: dropping on error would
// punish the user for infrastructure trouble.
func (g *Generator) filterRelevant(ctx context.Context, candidates []string) []string {
	if len(candidates) == 0 {
		return candidates
	}

	keep := make([]bool, len(candidates))
	var eg errgroup.Group
	for i, candidate := range candidates {
		eg.Go(func() error {
			relevant, err := g.relevance.HasRelevant(ctx, candidate)
			if err != nil {
				g.logger.Debug("relevance probe failed", "candidate", candidate, "error", err)
				keep[i] = true
				return nil
			}
			keep[i] = relevant
			return nil
		})
	}
	_ = eg.Wait() // goroutines only record, never error

	var out []string
	for i, candidate := range candidates {
		if keep[i] {
			out = append(out, candidate)
		}
	}
	return out
}

// extractOptions reads suggestions from the response: the suggestion tool
// request when present, otherwise the text split into lines.
func extractOptions(resp *ai.ModelResponse) []string {
	if resp == nil || resp.Message == nil {
		return nil
	}

	for _, part := range resp.Message.Content {
		if part.ToolRequest == nil || part.ToolRequest.Name != SuggestName {
			continue
		}
		switch in := part.ToolRequest.Input.(type) {
		case map[string]any:
			if raw, ok := in["options"].([]any); ok {
				var out []string
				for _, item := range raw {
					if s, ok := item.(string); ok {
						out = append(out, s)
					}
				}
				return out
			}
			if typed, ok := in["options"].([]string); ok {
				return typed
			}
		case SuggestInput:
			return in.Options
		}
	}

	return strings.Split(resp.Text(), "\n")
}

// postProcess normalizes raw candidates into button labels: bullet markers
// and periods stripped, first letter capitalized, empties dropped, capped.
func postProcess(raw []string) []string {
	var out []string
	for _, candidate := range raw {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "- ")
		candidate = strings.ReplaceAll(candidate, ".", "")
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		out = append(out, capitalize(candidate))
		if len(out) == maxOptions {
			break
		}
	}
	return out
}

// capitalize uppercases the first rune and lowercases the rest.
func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	for i := 1; i < len(runes); i++ {
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}
