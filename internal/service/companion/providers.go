package companion

import (
	"context"
	"errors"
	"log"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/config"
	"github.com/zhouzirui/empathai/backend/internal/service/ai"
	emotionservice "github.com/zhouzirui/empathai/backend/internal/service/emotion"
)

// NewCollaborators builds the text classifier and responder for the
// configured provider. Missing credentials do not fail startup: the returned
// collaborators fail every call with ai.ErrNotConfigured instead.
func NewCollaborators(ctx context.Context, cfg config.AIConfig) (Classifier, StreamingResponder, error) {
	if cfg.Provider == config.ProviderKeyword {
		log.Println("[companion] provider=keyword, using heuristic classifier and template replies")
		return emotionservice.KeywordClassifier{}, templateStreamer{}, nil
	}

	chatModel, err := ai.NewChatModel(ctx, cfg, "")
	if errors.Is(err, ai.ErrNotConfigured) {
		log.Printf("[companion] warning: %v; requests will fail until credentials are set", err)
		chatModel = ai.Unconfigured(err)
	} else if err != nil {
		return nil, nil, err
	}

	classifierModel := chatModel
	if cfg.ClassifierModel != "" && cfg.Enabled() {
		classifierModel, err = ai.NewChatModel(ctx, cfg, cfg.ClassifierModel)
		if err != nil {
			return nil, nil, err
		}
	}

	classifier, err := emotionservice.NewClassifier(ctx, classifierModel)
	if err != nil {
		return nil, nil, err
	}
	responder, err := ai.NewResponder(ctx, chatModel, cfg.StreamResponse)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[companion] AI initialized provider=%s stream=%t", cfg.Provider, cfg.StreamResponse)
	return classifier, responder, nil
}

// templateStreamer delivers template replies as a single delta.
type templateStreamer struct {
	ai.TemplateResponder
}

func (t templateStreamer) RespondStream(ctx context.Context, final emotion.Label, text string, onDelta func(string)) (string, error) {
	reply, err := t.Respond(ctx, final, text)
	if err == nil && onDelta != nil {
		onDelta(reply)
	}
	return reply, err
}
