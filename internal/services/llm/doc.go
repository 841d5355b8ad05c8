// Package llm wraps the hosted chat-completion API used by the generation
// stage.
//
// The client speaks the OpenAI-compatible chat completions protocol and
// defaults to the Groq endpoint. Requests always ask for JSON-only output;
// DecodeLLMJSON tolerates the formatting quirks models produce anyway (code
// fences, leading prose). Transient failures (429, 5xx, timeouts) are retried
// with exponential backoff, honoring Retry-After when the server provides it.
package llm
