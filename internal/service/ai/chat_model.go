package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/empathai/backend/internal/config"
)

// ErrNotConfigured means the selected provider is missing its credential or model.
var ErrNotConfigured = errors.New("AI provider credentials are not configured")

// NewChatModel 根据配置创建模型实例。modelName 非空时覆盖配置中的模型名。
func NewChatModel(ctx context.Context, cfg config.AIConfig, modelName string) (model.ChatModel, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: provider=%s", ErrNotConfigured, cfg.Provider)
	}

	var temperature *float32
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		temperature = &val
	}

	var topP *float32
	if cfg.TopP != nil {
		val := float32(*cfg.TopP)
		topP = &val
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		if modelName == "" {
			modelName = cfg.OpenAIModel
		}
		return NewOpenAIModel(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       modelName,
			Temperature: temperature,
			TopP:        topP,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		})
	case config.ProviderArk:
		if modelName == "" {
			modelName = cfg.Model
		}
		arkCfg := &ark.ChatModelConfig{
			BaseURL:     cfg.BaseURL,
			Region:      cfg.Region,
			APIKey:      cfg.APIKey,
			AccessKey:   cfg.AccessKey,
			SecretKey:   cfg.SecretKey,
			Model:       modelName,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
			TopP:        topP,
		}
		if cfg.Timeout > 0 {
			timeout := cfg.Timeout
			arkCfg.Timeout = &timeout
		}
		return ark.NewChatModel(ctx, arkCfg)
	default:
		return nil, fmt.Errorf("provider %q has no chat model", cfg.Provider)
	}
}

// Unconfigured is a chat model that fails every call with err. It lets the
// server start without credentials and report the problem per request.
func Unconfigured(err error) model.ChatModel {
	return unconfiguredModel{err: err}
}

type unconfiguredModel struct {
	err error
}

func (m unconfiguredModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return nil, m.err
}

func (m unconfiguredModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, m.err
}

func (m unconfiguredModel) BindTools([]*schema.ToolInfo) error {
	return m.err
}
