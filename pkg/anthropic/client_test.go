package anthropic

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_MockClient(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	req := CompletionRequest{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   512,
		Temperature: 0.2,
		System:      "You price marketplace jobs.",
		CacheSystem: true,
		Prompt:      "Price this job",
	}
	expected := &Completion{
		ID:    "msg_123",
		Text:  `{"min_amount": 100}`,
		Usage: Usage{InputTokens: 10, OutputTokens: 5},
	}
	mc.On("Complete", ctx, req).Return(expected, nil)

	resp, err := mc.Complete(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "msg_123", resp.ID)
	assert.Equal(t, `{"min_amount": 100}`, resp.Text)
	assert.Equal(t, int64(10), resp.Usage.InputTokens)
	mc.AssertExpectations(t)
}

func TestComplete_MockClientError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()
	mc.On("Complete", ctx, CompletionRequest{}).Return(nil, errors.New("overloaded"))

	resp, err := mc.Complete(ctx, CompletionRequest{})
	require.Error(t, err)
	assert.Nil(t, resp)
}

func TestNewParams_CachedSystem(t *testing.T) {
	params := newParams(CompletionRequest{
		Model:       "claude-haiku-4-5-20251001",
		MaxTokens:   256,
		Temperature: 0.3,
		System:      "guidance",
		CacheSystem: true,
		Prompt:      "hello",
	})

	assert.Equal(t, sdk.Model("claude-haiku-4-5-20251001"), params.Model)
	assert.Equal(t, int64(256), params.MaxTokens)
	assert.InDelta(t, 0.3, params.Temperature.Value, 1e-9)
	require.Len(t, params.Messages, 1)
	assert.Equal(t, sdk.MessageParamRoleUser, params.Messages[0].Role)
	require.Len(t, params.System, 1)
	assert.Equal(t, "guidance", params.System[0].Text)
	assert.Equal(t, sdk.CacheControlEphemeralTTL(systemCacheTTL), params.System[0].CacheControl.TTL)
}

func TestNewParams_NoSystem(t *testing.T) {
	params := newParams(CompletionRequest{Model: "m", MaxTokens: 10, Prompt: "hi"})
	assert.Empty(t, params.System)
}

func TestFromSDKMessage_JoinsTextBlocks(t *testing.T) {
	msg := &sdk.Message{
		ID:    "msg_9",
		Model: sdk.Model("claude-haiku-4-5-20251001"),
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "first"},
			{Type: "tool_use"},
			{Type: "text", Text: "second"},
		},
		Usage: sdk.Usage{
			InputTokens:              120,
			OutputTokens:             30,
			CacheCreationInputTokens: 80,
			CacheReadInputTokens:     40,
		},
	}

	got := fromSDKMessage(msg)
	assert.Equal(t, "msg_9", got.ID)
	assert.Equal(t, "claude-haiku-4-5-20251001", got.Model)
	assert.Equal(t, "first\nsecond", got.Text)
	assert.Equal(t, Usage{InputTokens: 120, OutputTokens: 30, CacheWriteTokens: 80, CacheReadTokens: 40}, got.Usage)
}

func TestNewClient_ReturnsSDKClient(t *testing.T) {
	c := NewClient("sk-ant-test")
	_, ok := c.(*sdkClient)
	assert.True(t, ok)
}
