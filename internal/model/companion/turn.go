package companion

import (
	"time"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
)

// Turn captures one submission cycle. FinalEmotion is always
// emotion.Fuse(VisionEmotion, TextEmotion).
type Turn struct {
	ID            string        `json:"id"`
	InputText     string        `json:"inputText"`
	VisionEmotion emotion.Label `json:"visionEmotion"`
	TextEmotion   emotion.Label `json:"textEmotion"`
	FinalEmotion  emotion.Label `json:"finalEmotion"`
	Response      string        `json:"aiResponse"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// HistoryEntry is an immutable record of a completed turn's final emotion.
type HistoryEntry struct {
	Emotion   emotion.Label `json:"emotion"`
	Timestamp time.Time     `json:"timestamp"`
}
