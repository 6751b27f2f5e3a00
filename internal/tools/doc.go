// Package tools defines the assistant's banking tools and their dispatch.
//
// Four tools are exposed to the model:
//
//  1. generate_saving_strategies: simulate deposit products against a goal
//  2. get_user_financial_summary: income/expense analytics over a window
//  3. get_investment_recommendations: portfolio advice by risk level
//  4. compare_goals: finished goals of clients with similar spending
//
// Tools are registered with Genkit for schema exposure, but execution goes
// through Registry.Dispatch so the orchestrator controls ordering and error
// shaping. Handler methods hold the business logic and are testable without
// Genkit.
package tools
