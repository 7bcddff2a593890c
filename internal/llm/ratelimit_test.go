package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitedClient_Delegates(t *testing.T) {
	fake := &FakeClient{Text: "hello", JSON: `{"a":1}`}
	c := NewRateLimitedClient(fake, 0, 0)

	text, err := c.GenerateContent(context.Background(), "sys", "p", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	js, err := c.GenerateJSON(context.Background(), "sys", "p", TierAdvanced)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, js)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "sys", calls[0].System)
	assert.False(t, calls[0].JSON)
	assert.True(t, calls[1].JSON)
	assert.Equal(t, "fake-lite", c.GetModel(TierLite))
	assert.NoError(t, c.Close())
}

func TestRateLimitedClient_HonorsContext(t *testing.T) {
	fake := &FakeClient{Text: "x"}
	c := NewRateLimitedClient(fake, 0.001, 1)

	_, err := c.GenerateContent(context.Background(), "", "first", TierLite)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.GenerateContent(ctx, "", "second", TierLite)
	assert.Error(t, err)
	assert.Len(t, fake.Calls(), 1)
}
