package ai

import (
	"context"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
)

var templateReplies = map[emotion.Label]string{
	emotion.Happy:   "It's wonderful to hear you're feeling happy! Take a moment to savor it, maybe jot down what made today good so you can revisit it later.",
	emotion.Sad:     "I'm sorry you're feeling down, and it's okay to feel this way. Try reaching out to someone you trust or taking a short walk, small steps can ease the weight.",
	emotion.Angry:   "It sounds like something really got to you, and your frustration makes sense. Try a few slow, deep breaths before deciding what to do next.",
	emotion.Fear:    "Feeling anxious can be overwhelming, and you're not alone in this. Try grounding yourself by naming five things you can see around you right now.",
	emotion.Neutral: "Thanks for sharing how things are going. A short pause to check in with yourself, like a quick stretch or a glass of water, can be a nice reset.",
}

// TemplateResponder answers from fixed per-emotion replies. It backs the
// keyword provider so the companion runs without model credentials.
type TemplateResponder struct{}

// Respond implements the responder contract.
func (TemplateResponder) Respond(_ context.Context, final emotion.Label, _ string) (string, error) {
	if reply, ok := templateReplies[final]; ok {
		return reply, nil
	}
	return templateReplies[emotion.Neutral], nil
}
