// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a hosted model API (e.g., OpenAI GPT-4o, Anthropic
// Claude, Google Gemini) and exposes a uniform blocking-completion interface so
// the coaching loop stays provider-agnostic. Every conversation turn in
// LingoMirror is a single synchronous request/response exchange, so the
// interface is intentionally narrow: one Complete call, no streaming, no tool
// calling.
//
// Implementors must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Usage holds token accounting information returned by the LLM backend.
// All counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages and
	// system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Provided as a convenience;
	// some providers return it directly rather than computing it from the parts.
	TotalTokens int
}

// CompletionRequest carries everything the LLM needs to produce a response.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message must be
	// from the "user" role — several backends reject histories that end on an
	// assistant turn, which is why the prompt builder enforces role alternation
	// before a request is constructed.
	Messages []Message

	// Temperature controls output randomness in the range [0.0, 2.0]. Lower
	// values produce more deterministic outputs. A value of 0.0 typically
	// requests greedy (argmax) decoding.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int

	// SystemPrompt is an optional high-priority instruction injected before the
	// conversation history. If the provider does not natively support a
	// dedicated system prompt, implementors should prepend it as a
	// "system"-role message.
	SystemPrompt string
}

// CompletionResponse is the full result of a Complete call.
type CompletionResponse struct {
	// Content is the full text of the assistant's reply. The response decoder
	// is responsible for policing its format; providers return it verbatim.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	//
	// Returns an error if the request fails or if ctx is cancelled before the
	// completion arrives. Callers must never assume the returned Content obeys
	// any particular format.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
