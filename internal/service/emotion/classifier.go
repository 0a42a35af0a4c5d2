package emotion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	analysis "github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
)

const classifierSystemPrompt = "You are an emotion detection AI. Analyze the text and return ONLY ONE emotion: happy, sad, angry, fear, or neutral. Respond with just the emotion word, nothing else."

// Classifier 使用大模型将用户文本归入固定的情绪标签集合。
type Classifier struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewClassifier 创建情绪分类服务。chatModel 可与回复生成共用。
func NewClassifier(ctx context.Context, chatModel model.ChatModel) (*Classifier, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(classifierSystemPrompt),
		schema.UserMessage("{text}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile emotion classifier chain: %w", err)
	}

	return &Classifier{chain: runnable}, nil
}

// Classify 返回文本情绪。模型不可用或输出不在标签集合内时返回错误，不做回退。
func (c *Classifier) Classify(ctx context.Context, text string) (analysis.Label, error) {
	msg, err := c.chain.Invoke(ctx, map[string]any{"text": strings.TrimSpace(text)})
	if err != nil {
		return "", fmt.Errorf("classifier invoke: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", errors.New("classifier returned empty output")
	}

	label, err := analysis.ParseLabel(msg.Content)
	if err != nil {
		log.Printf("[emotion] unparseable classifier output %q", msg.Content)
		return "", err
	}

	log.Printf("[emotion] detected text emotion=%s", label)
	return label, nil
}

// KeywordClassifier 基于关键词启发式分类，不依赖远程模型。
type KeywordClassifier struct{}

// Classify never fails.
func (KeywordClassifier) Classify(_ context.Context, text string) (analysis.Label, error) {
	return analysis.Analyze(text).Emotion, nil
}
