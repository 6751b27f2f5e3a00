package tools

// SavingStrategiesInput defines input for generate_saving_strategies.
type SavingStrategiesInput struct {
	FinancialGoal  int64 `json:"financial_goal" jsonschema_description:"The client's financial goal in KZT."`
	CurrentBalance int64 `json:"current_balance" jsonschema_description:"The client's current balance in KZT."`
	MonthlySavings int64 `json:"monthly_savings" jsonschema_description:"How much the client saves monthly."`
}

// FinancialSummaryInput defines input for get_user_financial_summary.
type FinancialSummaryInput struct {
	LastNDays int `json:"last_n_days" jsonschema_description:"How many recent days to analyze. 0 means the whole history."`
}

// InvestmentInput defines input for get_investment_recommendations.
type InvestmentInput struct {
	RiskLevel int `json:"risk_level" jsonschema_description:"Risk appetite: 1 = low, 2 = medium, 3 = high."`
}

// CompareGoalsInput defines input for compare_goals (none needed; the user
// is taken from the request context).
type CompareGoalsInput struct{}
