package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
)

const responderSystemPrompt = `You are an empathetic AI companion. The user is feeling {emotion}. Generate a warm, caring response (2 sentences max) that:
1. Acknowledges their emotion with empathy
2. Offers one psychology-based or motivational suggestion

Be human-like, calming, and genuinely supportive. Use simple, warm language.`

// Responder writes the companion's reply through an eino chain.
type Responder struct {
	chain     compose.Runnable[map[string]any, *schema.Message]
	streaming bool
}

// NewResponder compiles the response chain on top of chatModel.
func NewResponder(ctx context.Context, chatModel model.ChatModel, streaming bool) (*Responder, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(responderSystemPrompt),
		schema.UserMessage("{text}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile responder chain: %w", err)
	}

	return &Responder{chain: runnable, streaming: streaming}, nil
}

// StreamingEnabled 指示是否开启流式输出。
func (r *Responder) StreamingEnabled() bool {
	return r.streaming
}

// Respond returns the full reply for the fused emotion.
func (r *Responder) Respond(ctx context.Context, final emotion.Label, text string) (string, error) {
	msg, err := r.chain.Invoke(ctx, chainInput(final, text))
	if err != nil {
		return "", fmt.Errorf("failed to run responder chain: %w", err)
	}
	if msg == nil {
		return "", errors.New("responder returned no message")
	}

	log.Printf("[ai] generated response emotion=%s length=%d", final, len(msg.Content))
	return msg.Content, nil
}

// RespondStream reports each chunk to onDelta and returns the concatenated
// reply. With streaming disabled the whole reply is delivered as one delta.
func (r *Responder) RespondStream(ctx context.Context, final emotion.Label, text string, onDelta func(string)) (string, error) {
	if !r.streaming {
		reply, err := r.Respond(ctx, final, text)
		if err == nil && onDelta != nil {
			onDelta(reply)
		}
		return reply, err
	}

	stream, err := r.chain.Stream(ctx, chainInput(final, text))
	if err != nil {
		return "", fmt.Errorf("failed to stream responder chain: %w", err)
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		builder.WriteString(chunk.Content)
		if onDelta != nil {
			onDelta(chunk.Content)
		}
	}

	log.Printf("[ai] streamed response emotion=%s length=%d", final, builder.Len())
	return builder.String(), nil
}

func chainInput(final emotion.Label, text string) map[string]any {
	if final == "" {
		final = emotion.Neutral
	}
	return map[string]any{
		"emotion": string(final),
		"text":    strings.TrimSpace(text),
	}
}
