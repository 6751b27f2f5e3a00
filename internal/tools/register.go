package tools

import (
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Tool name constants registered with Genkit. These are the names the model
// emits in its tool requests.
const (
	SavingStrategiesName = "generate_saving_strategies"
	FinancialSummaryName = "get_user_financial_summary"
	InvestmentsName      = "get_investment_recommendations"
	CompareGoalsName     = "compare_goals"
)

// toolNames is the single source of truth for registered tool names.
var toolNames = []string{
	SavingStrategiesName,
	FinancialSummaryName,
	InvestmentsName,
	CompareGoalsName,
}

// ToolNames returns all registered tool names.
func ToolNames() []string {
	return toolNames
}

// RegisterAll registers the banking tools with Genkit and returns a Registry
// that dispatches them. Genkit holds the schemas the model sees; the
// orchestrator executes through the Registry so it controls ordering and
// error shaping.
func RegisterAll(g *genkit.Genkit, h *Handler) (*Registry, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handler is required")
	}

	genkit.DefineTool(g, SavingStrategiesName,
		"Generate saving strategies based on bank's services.",
		func(ctx *ai.ToolContext, in SavingStrategiesInput) (map[string]any, error) {
			return h.SavingStrategies(ctx.Context, in)
		})
	genkit.DefineTool(g, FinancialSummaryName,
		"Summarize the client's income, expenses and top spending categories over recent days.",
		func(ctx *ai.ToolContext, in FinancialSummaryInput) (map[string]any, error) {
			return h.FinancialSummary(ctx.Context, in)
		})
	genkit.DefineTool(g, InvestmentsName,
		"Get investment recommendations for the client's risk level (1 = low, 2 = medium, 3 = high).",
		func(ctx *ai.ToolContext, in InvestmentInput) (map[string]any, error) {
			return h.Investments(ctx.Context, in)
		})
	genkit.DefineTool(g, CompareGoalsName,
		"Compare the client's financial goal with finished goals of similar clients.",
		func(ctx *ai.ToolContext, in CompareGoalsInput) (map[string]any, error) {
			return h.CompareGoals(ctx.Context, in)
		})

	return newRegistry(g, h), nil
}
