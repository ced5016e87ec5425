// Package genai abstracts the external model-invocation capability consumed
// by the dialogue engine: send a prompt plus an optional output schema, get
// back free text or a schema-conformant object.
package genai

import "context"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single prompt message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OutputSchema requests a structured, schema-conformant response.
type OutputSchema struct {
	// Name labels the schema for the upstream API.
	Name string `json:"name"`

	// Schema is a JSON-schema object describing the required output shape.
	Schema map[string]any `json:"schema"`
}

// Request is a single generation request.
type Request struct {
	Messages []Message

	// Schema, when set, constrains the output to a JSON object.
	Schema *OutputSchema

	// MaxTokens bounds the completion length. Zero means provider default.
	MaxTokens int

	// Temperature overrides the provider default when non-nil.
	Temperature *float32
}

// Result is either free text or a decoded schema object, depending on
// whether the request carried a schema.
type Result struct {
	Text   string
	Object map[string]any
}

// Generator is the engine's view of the model provider. Implementations may
// have unbounded latency; callers impose timeouts through ctx.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Result, error)
}
