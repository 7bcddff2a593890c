package llm

import (
	"context"
	"sync"
)

// Call records one request made to a FakeClient.
type Call struct {
	System string
	Prompt string
	Tier   ModelTier
	JSON   bool
}

// FakeClient is an in-memory Client for tests and dry runs. Respond computes
// the reply for each call; when nil, Text and JSON are returned as-is.
type FakeClient struct {
	Respond func(call Call) (string, error)
	Text    string
	JSON    string

	mu    sync.Mutex
	calls []Call
}

func (f *FakeClient) reply(call Call) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.Respond != nil {
		return f.Respond(call)
	}
	if call.JSON {
		return f.JSON, nil
	}
	return f.Text, nil
}

// GenerateContent implements Client.
func (f *FakeClient) GenerateContent(_ context.Context, system, prompt string, tier ModelTier) (string, error) {
	return f.reply(Call{System: system, Prompt: prompt, Tier: tier})
}

// GenerateJSON implements Client.
func (f *FakeClient) GenerateJSON(_ context.Context, system, prompt string, tier ModelTier) (string, error) {
	return f.reply(Call{System: system, Prompt: prompt, Tier: tier, JSON: true})
}

// GetModel implements Client.
func (f *FakeClient) GetModel(tier ModelTier) string { return "fake-" + string(tier) }

// Close implements Client.
func (f *FakeClient) Close() error { return nil }

// Calls returns a copy of the recorded calls.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
