package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var negatives = []Label{Sad, Angry, Fear}
var nonNegatives = []Label{Happy, Neutral}

func TestFuseNegativeVisionAlwaysWins(t *testing.T) {
	texts := append(Labels(), "")
	for _, vision := range negatives {
		for _, text := range texts {
			assert.Equal(t, vision, Fuse(vision, text), "vision=%q text=%q", vision, text)
		}
	}
}

func TestFuseNegativeTextWinsOverCalmVision(t *testing.T) {
	visions := append([]Label{""}, nonNegatives...)
	for _, vision := range visions {
		for _, text := range negatives {
			assert.Equal(t, text, Fuse(vision, text), "vision=%q text=%q", vision, text)
		}
	}
}

func TestFusePrefersTextWhenBothCalm(t *testing.T) {
	visions := append([]Label{""}, nonNegatives...)
	for _, vision := range visions {
		for _, text := range nonNegatives {
			assert.Equal(t, text, Fuse(vision, text), "vision=%q text=%q", vision, text)
		}
	}
}

func TestFuseFallsBackToVisionThenNeutral(t *testing.T) {
	assert.Equal(t, Happy, Fuse(Happy, ""))
	assert.Equal(t, Neutral, Fuse(Neutral, ""))
	assert.Equal(t, Neutral, Fuse("", ""))
}

func TestFuseIsTotalAndDeterministic(t *testing.T) {
	all := append(Labels(), "")
	for _, vision := range all {
		for _, text := range all {
			first := Fuse(vision, text)
			assert.True(t, first.Valid(), "Fuse(%q, %q) = %q is not a label", vision, text, first)
			for i := 0; i < 3; i++ {
				assert.Equal(t, first, Fuse(vision, text))
			}
		}
	}
}

func TestFuseScenarios(t *testing.T) {
	cases := []struct {
		name   string
		vision Label
		text   Label
		want   Label
	}{
		{"happy face, sad words", Happy, Sad, Sad},
		{"no camera, happy words", "", Happy, Happy},
		{"angry face, happy words", Angry, Happy, Angry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Fuse(tc.vision, tc.text))
		})
	}
}
