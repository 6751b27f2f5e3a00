package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// Request is one model submission: the projected message history, the tools
// the model may request, and optional per-call instructions.
type Request struct {
	Messages     []*ai.Message
	Tools        []ai.ToolRef
	Instructions string
}

// Completer submits a request to a text model and returns its raw response.
// Defined here, by the consumer, so tests can script responses.
type Completer interface {
	Complete(ctx context.Context, req Request) (*ai.ModelResponse, error)
}

// GenkitCompleter is the production Completer. Tool requests are returned
// to the caller instead of being auto-executed, so the orchestrator owns
// dispatch order and error shaping.
type GenkitCompleter struct {
	g       *genkit.Genkit
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGenkitCompleter binds a Genkit instance to a model name. A nil limiter
// disables client-side rate limiting; a zero timeout means 60 seconds.
func NewGenkitCompleter(g *genkit.Genkit, model string, limiter *rate.Limiter, timeout time.Duration) *GenkitCompleter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GenkitCompleter{g: g, model: model, limiter: limiter, timeout: timeout}
}

// Complete implements Completer.
func (c *GenkitCompleter) Complete(ctx context.Context, req Request) (*ai.ModelResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := req.Messages
	if req.Instructions != "" {
		messages = append(messages[:len(messages):len(messages)],
			ai.NewSystemMessage(ai.NewTextPart(req.Instructions)))
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(c.model),
		ai.WithMessages(messages...),
	}
	if len(req.Tools) > 0 {
		opts = append(opts,
			ai.WithTools(req.Tools...),
			ai.WithReturnToolRequests(true),
		)
	}

	resp, err := genkit.Generate(callCtx, c.g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generating model response: %w", err)
	}
	return resp, nil
}
