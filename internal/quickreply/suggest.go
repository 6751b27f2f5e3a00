package quickreply

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/jsonschema-go/jsonschema"
)

// SuggestName is the forced-output tool the model fills with button labels.
const SuggestName = "suggest_replies"

// SuggestInput is the suggestion payload. The model emits it as a tool
// request; it is never executed.
type SuggestInput struct {
	Options []string `json:"options" jsonschema_description:"Button labels, 1-5 words each, letters only, at most 8."`
}

// SuggestSchema is the JSON schema of SuggestInput, exposed for registry
// contracts and debugging endpoints.
var SuggestSchema = mustSchema[SuggestInput]()

func mustSchema[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}
	return schema
}

// RegisterSuggestTool defines the suggestion tool with Genkit so model calls
// can reference it. The handler is a stub: the generator reads the tool
// request itself and never dispatches it.
func RegisterSuggestTool(g *genkit.Genkit) ai.Tool {
	return genkit.DefineTool(g, SuggestName,
		"Propose short quick-reply button labels for the user's next message.",
		func(_ *ai.ToolContext, in SuggestInput) (map[string]any, error) {
			return map[string]any{"options": in.Options}, nil
		})
}
