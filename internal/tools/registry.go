package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ErrUnknownTool indicates a dispatch for a name that was never registered.
var ErrUnknownTool = errors.New("unknown tool")

// executor runs one tool against already-decoded arguments.
type executor func(ctx context.Context, args map[string]any) (map[string]any, error)

// Registry dispatches tool requests by name and exposes the registered
// tools as Genkit refs for model calls.
//
// Safe for concurrent use: the executor map is built once and only read.
type Registry struct {
	g         *genkit.Genkit
	logger    *slog.Logger
	executors map[string]executor
}

func newRegistry(g *genkit.Genkit, h *Handler) *Registry {
	return &Registry{
		g:      g,
		logger: slog.Default(),
		executors: map[string]executor{
			SavingStrategiesName: typed(h.SavingStrategies),
			FinancialSummaryName: typed(h.FinancialSummary),
			InvestmentsName:      typed(h.Investments),
			CompareGoalsName:     typed(h.CompareGoals),
		},
	}
}

// typed adapts a typed handler method to the executor signature. The model
// sends arguments as a JSON object; a marshal round-trip decodes them into
// the handler's input struct.
func typed[In any](handler func(context.Context, In) (map[string]any, error)) executor {
	return func(ctx context.Context, args map[string]any) (map[string]any, error) {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshaling arguments: %w", err)
		}
		var in In
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		return handler(ctx, in)
	}
}

// Refs returns Genkit tool refs for every registered tool, for passing to
// model calls.
func (r *Registry) Refs() []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(toolNames))
	for _, name := range toolNames {
		if tool := genkit.LookupTool(r.g, name); tool != nil {
			refs = append(refs, tool)
		}
	}
	return refs
}

// Known reports whether name is a registered tool.
func (r *Registry) Known(name string) bool {
	_, ok := r.executors[name]
	return ok
}

// Dispatch executes the named tool. Handler errors and panics are converted
// into a failure Result so the caller can always pair the call with a
// result; only an unknown name returns an error.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (result Result, err error) {
	exec, ok := r.executors[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", recovered)
			result = Failure(fmt.Sprintf("tool %s failed", name))
			err = nil
		}
	}()

	output, execErr := exec(ctx, args)
	if execErr != nil {
		r.logger.Warn("tool failed", "tool", name, "error", execErr)
		return Failure(fmt.Sprintf("tool %s failed", name)), nil
	}
	return Result{Output: output}, nil
}
