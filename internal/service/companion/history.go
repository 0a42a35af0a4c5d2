package companion

import (
	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/model/companion"
)

// DefaultHistoryLimit bounds how many entries a session retains.
const DefaultHistoryLimit = 1000

// Bucket is one bar of the emotion histogram.
type Bucket struct {
	Emotion emotion.Label `json:"emotion"`
	Label   string        `json:"label"`
	Count   int           `json:"count"`
	Color   string        `json:"color"`
}

// History is an append-only log of final emotions backed by a ring buffer.
// Once full, the oldest entries drop out of the window but Total keeps
// counting. History is not safe for concurrent use; the owning session
// guards it.
type History struct {
	entries  []companion.HistoryEntry
	start    int
	total    int
	capacity int
}

// NewHistory returns an empty history retaining at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryLimit
	}
	return &History{capacity: capacity}
}

// Record appends an entry.
func (h *History) Record(entry companion.HistoryEntry) {
	h.total++
	if len(h.entries) < h.capacity {
		h.entries = append(h.entries, entry)
		return
	}
	h.entries[h.start] = entry
	h.start = (h.start + 1) % h.capacity
}

// Len is the number of retained entries.
func (h *History) Len() int { return len(h.entries) }

// Total is the number of entries ever recorded.
func (h *History) Total() int { return h.total }

// Entries returns the retained window, oldest first.
func (h *History) Entries() []companion.HistoryEntry {
	out := make([]companion.HistoryEntry, 0, len(h.entries))
	out = append(out, h.entries[h.start:]...)
	out = append(out, h.entries[:h.start]...)
	return out
}

// Frequencies counts labels over the retained window. Buckets appear in
// first-occurrence order.
func (h *History) Frequencies() []Bucket {
	index := make(map[emotion.Label]int)
	var buckets []Bucket
	for _, entry := range h.Entries() {
		if i, ok := index[entry.Emotion]; ok {
			buckets[i].Count++
			continue
		}
		index[entry.Emotion] = len(buckets)
		buckets = append(buckets, Bucket{
			Emotion: entry.Emotion,
			Label:   entry.Emotion.Title(),
			Count:   1,
			Color:   emotion.Color(entry.Emotion),
		})
	}
	return buckets
}
