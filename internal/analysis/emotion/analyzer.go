package emotion

import (
	"strings"
)

// Decision 给出关键词启发式的识别结果。
type Decision struct {
	Emotion Label
	Score   int
}

var keywordBuckets = map[Label][]string{
	Happy: {
		"happy", "glad", "great", "awesome", "amazing", "wonderful", "excited", "love", "thank",
		"thanks", "grateful", "joy", "fantastic", "proud", "relieved", "yay", "lol", "haha",
	},
	Sad: {
		"sad", "unhappy", "cry", "crying", "depressed", "lonely", "alone", "hurt", "miss",
		"heartbroken", "lost", "down", "upset", "sorrow", "tired of", "hopeless", "grief",
	},
	Angry: {
		"angry", "furious", "rage", "mad", "annoyed", "pissed", "hate", "irritated",
		"frustrated", "fed up", "outrage", "sick of", "unfair",
	},
	Fear: {
		"afraid", "scared", "fear", "anxious", "anxiety", "nervous", "worried", "panic",
		"terrified", "frightened", "dread", "overwhelmed", "stressed",
	},
}

// tieOrder resolves equal scores; negative labels come first so that a mixed
// message is not read as positive.
var tieOrder = []Label{Fear, Angry, Sad, Happy}

// Analyze scores an utterance against keyword buckets. Text with no matching
// keyword is Neutral with Score 0.
func Analyze(text string) Decision {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Decision{Emotion: Neutral}
	}

	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(normalized, isWordBreak) {
		words[w] = true
	}

	scores := make(map[Label]int)
	for label, keywords := range keywordBuckets {
		for _, kw := range keywords {
			matched := words[kw]
			if strings.Contains(kw, " ") {
				matched = strings.Contains(normalized, kw)
			}
			if matched {
				scores[label] += 3
			}
		}
	}

	if exclamations := strings.Count(text, "!"); exclamations > 0 && scores[Happy] > 0 {
		scores[Happy] += exclamations
	}

	best := Neutral
	bestScore := 0
	for _, label := range tieOrder {
		if s := scores[label]; s > bestScore {
			best = label
			bestScore = s
		}
	}

	return Decision{Emotion: best, Score: bestScore}
}

func isWordBreak(r rune) bool {
	return !(r == '\'' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
}
