// Package llm defines the narrow interface codescope needs from a
// text-generation provider, and a Gemini-backed implementation of it.
package llm

import "context"

// Client generates text from a single prompt. Implementations must be
// safe for use from one goroutine at a time; the rotation executor
// builds a fresh client per credential attempt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Factory builds a client from an opaque credential. The rotation
// executor calls it once per attempt with the credential at the
// current cursor.
type Factory func(ctx context.Context, credential string) (Client, error)
