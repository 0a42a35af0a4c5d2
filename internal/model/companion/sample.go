package companion

import (
	"time"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
)

// SampleSource tells which modality produced a sample.
type SampleSource string

const (
	SourceVision SampleSource = "vision"
	SourceText   SampleSource = "text"
)

// EmotionSample is one classifier reading. Vision samples are overwritten by
// the next one; text samples are consumed by fusion right away.
type EmotionSample struct {
	Label      emotion.Label `json:"emotion"`
	Confidence float64       `json:"confidence"`
	Source     SampleSource  `json:"source"`
	CapturedAt time.Time     `json:"capturedAt"`
}

// ClampConfidence keeps c inside [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
