package tools

// Result is the outcome of one tool invocation, shaped for the model's
// tool-result message. A failed invocation still produces a Result so the
// conversation keeps its call/result pairing.
type Result struct {
	Output map[string]any
}

// Failure builds the result for a tool that could not run. The message is
// intentionally generic; real causes go to the log, not the model.
func Failure(msg string) Result {
	return Result{Output: map[string]any{"error": msg}}
}
