// Package vision holds the camera-side emotion signal: a latest-only feed that
// real classifiers push into, and a simulated camera that fills it on a timer.
package vision

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/model/companion"
)

var (
	// ErrCameraUnavailable means the camera capability cannot be granted.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrInvalidSample is returned for samples outside the label set.
	ErrInvalidSample = errors.New("invalid vision sample")
)

// Source yields the latest known vision reading, or false when the camera is
// inactive or has not produced anything yet.
type Source interface {
	LatestSample() (companion.EmotionSample, bool)
}

// Feed keeps only the most recent vision sample.
type Feed struct {
	mu      sync.RWMutex
	latest  companion.EmotionSample
	present bool
	version uint64
	now     func() time.Time
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{now: time.Now}
}

// Publish overwrites the latest sample.
func (f *Feed) Publish(sample companion.EmotionSample) error {
	if !sample.Label.Valid() {
		return fmt.Errorf("%w: emotion %q", ErrInvalidSample, sample.Label)
	}
	sample.Source = companion.SourceVision
	sample.Confidence = companion.ClampConfidence(sample.Confidence)
	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = f.now().UTC()
	}

	f.mu.Lock()
	f.latest = sample
	f.present = true
	f.version++
	f.mu.Unlock()
	return nil
}

// Clear forgets the latest sample, as when the camera stops.
func (f *Feed) Clear() {
	f.mu.Lock()
	if f.present {
		f.latest = companion.EmotionSample{}
		f.present = false
		f.version++
	}
	f.mu.Unlock()
}

// LatestSample implements Source.
func (f *Feed) LatestSample() (companion.EmotionSample, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.present
}

// Version increases on every change so watchers can skip unchanged reads.
func (f *Feed) Version() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.version
}

// LatestLabel returns the current vision label or "" without a signal.
func LatestLabel(src Source) emotion.Label {
	if src == nil {
		return ""
	}
	sample, ok := src.LatestSample()
	if !ok {
		return ""
	}
	return sample.Label
}
