package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/config"
)

func TestResponderInjectsEmotionIntoPrompt(t *testing.T) {
	fake := &fakeChatModel{reply: "That sounds hard. Try a short walk."}
	r, err := NewResponder(context.Background(), fake, false)
	require.NoError(t, err)

	reply, err := r.Respond(context.Background(), emotion.Sad, "  I lost my keys  ")
	require.NoError(t, err)
	assert.Equal(t, "That sounds hard. Try a short walk.", reply)

	prompt := fake.lastPrompt()
	require.Len(t, prompt, 2)
	assert.Equal(t, schema.System, prompt[0].Role)
	assert.Contains(t, prompt[0].Content, "The user is feeling sad.")
	assert.Contains(t, prompt[0].Content, "2 sentences max")
	assert.Equal(t, schema.User, prompt[1].Role)
	assert.Equal(t, "I lost my keys", prompt[1].Content)
}

func TestResponderPropagatesModelError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("upstream 500")}
	r, err := NewResponder(context.Background(), fake, false)
	require.NoError(t, err)

	_, err = r.Respond(context.Background(), emotion.Happy, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 500")
}

func TestResponderStreamsChunks(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"You're ", "not ", "alone."}}
	r, err := NewResponder(context.Background(), fake, true)
	require.NoError(t, err)
	assert.True(t, r.StreamingEnabled())

	var deltas []string
	reply, err := r.RespondStream(context.Background(), emotion.Fear, "scared", func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, "You're not alone.", reply)
	assert.Equal(t, []string{"You're ", "not ", "alone."}, deltas)
}

func TestResponderStreamFallsBackWhenDisabled(t *testing.T) {
	fake := &fakeChatModel{reply: "Glad to hear it!"}
	r, err := NewResponder(context.Background(), fake, false)
	require.NoError(t, err)

	var deltas []string
	reply, err := r.RespondStream(context.Background(), emotion.Happy, "yay", func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, "Glad to hear it!", reply)
	assert.Equal(t, []string{"Glad to hear it!"}, deltas)
}

func TestTemplateResponderCoversEveryLabel(t *testing.T) {
	for _, label := range emotion.Labels() {
		reply, err := TemplateResponder{}.Respond(context.Background(), label, "")
		require.NoError(t, err)
		assert.NotEmpty(t, reply)
		assert.LessOrEqual(t, strings.Count(reply, ". "), 2, "label=%s", label)
	}
	fallback, _ := TemplateResponder{}.Respond(context.Background(), "bored", "")
	assert.Equal(t, templateReplies[emotion.Neutral], fallback)
}

func TestNewChatModelRequiresCredentials(t *testing.T) {
	_, err := NewChatModel(context.Background(), config.AIConfig{Provider: config.ProviderOpenAI, OpenAIModel: "m"}, "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewChatModel(context.Background(), config.AIConfig{Provider: config.ProviderArk}, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUnconfiguredModelFailsEveryCall(t *testing.T) {
	r, err := NewResponder(context.Background(), Unconfigured(ErrNotConfigured), false)
	require.NoError(t, err)
	_, err = r.Respond(context.Background(), emotion.Neutral, "hello")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
