package emotion

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Label 表示系统接受的情绪标签，集合是封闭的。
type Label string

const (
	Happy   Label = "happy"
	Sad     Label = "sad"
	Angry   Label = "angry"
	Fear    Label = "fear"
	Neutral Label = "neutral"
)

// ErrUnknownLabel is returned when a raw string cannot be mapped onto the label set.
var ErrUnknownLabel = errors.New("unknown emotion label")

var canonical = []Label{Happy, Sad, Angry, Fear, Neutral}

// Labels returns the label set in canonical display order.
func Labels() []Label {
	return append([]Label(nil), canonical...)
}

var synonyms = map[string]Label{
	"happy":     Happy,
	"happiness": Happy,
	"joy":       Happy,
	"joyful":    Happy,
	"glad":      Happy,
	"sad":       Sad,
	"sadness":   Sad,
	"unhappy":   Sad,
	"angry":     Angry,
	"anger":     Angry,
	"mad":       Angry,
	"fear":      Fear,
	"fearful":   Fear,
	"afraid":    Fear,
	"scared":    Fear,
	"anxious":   Fear,
	"neutral":   Neutral,
	"calm":      Neutral,
}

// ParseLabel normalizes model or client output onto the label set. Case,
// surrounding whitespace, quotes and trailing punctuation are ignored.
func ParseLabel(raw string) (Label, error) {
	normalized := strings.ToLower(strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}))
	if label, ok := synonyms[normalized]; ok {
		return label, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, raw)
}

// ParseOptionalLabel accepts the empty string as "no signal".
func ParseOptionalLabel(raw string) (Label, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return ParseLabel(raw)
}

// Valid reports whether l is a member of the label set.
func (l Label) Valid() bool {
	for _, c := range canonical {
		if l == c {
			return true
		}
	}
	return false
}

// Title returns the capitalized label used for chart axes.
func (l Label) Title() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

var emojiByLabel = map[Label]string{
	Happy:   "😊",
	Sad:     "😔",
	Angry:   "😠",
	Fear:    "😨",
	Neutral: "😐",
}

var colorByLabel = map[Label]string{
	Happy:   "hsl(var(--primary))",
	Sad:     "hsl(200, 70%, 60%)",
	Angry:   "hsl(0, 70%, 60%)",
	Fear:    "hsl(280, 70%, 70%)",
	Neutral: "hsl(var(--muted-foreground))",
}

// Emoji returns the face shown next to a label; unknown labels get the neutral face.
func Emoji(l Label) string {
	if e, ok := emojiByLabel[l]; ok {
		return e
	}
	return emojiByLabel[Neutral]
}

// Color returns the chart bar color for a label.
func Color(l Label) string {
	if c, ok := colorByLabel[l]; ok {
		return c
	}
	return colorByLabel[Happy]
}
