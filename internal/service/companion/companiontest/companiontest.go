// Package companiontest provides scripted classifier and responder doubles
// for exercising companion.Service from transport tests.
package companiontest

import (
	"context"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/observe"
	"github.com/zhouzirui/empathai/backend/internal/service/companion"
	"github.com/zhouzirui/empathai/backend/internal/service/vision"
)

// Classifier returns Label or Err. When Gate is non-nil each call blocks
// until Gate yields or is closed.
type Classifier struct {
	mu    sync.Mutex
	Label emotion.Label
	Err   error
	Gate  chan struct{}
	calls int
}

// Classify implements companion.Classifier.
func (c *Classifier) Classify(ctx context.Context, _ string) (emotion.Label, error) {
	c.mu.Lock()
	c.calls++
	gate, label, err := c.Gate, c.Label, c.Err
	c.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return label, err
}

// Calls reports how many times Classify ran.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Responder replies with Reply, streaming Chunks when set.
type Responder struct {
	Reply  string
	Chunks []string
	Err    error
}

// Respond implements companion.Responder.
func (r *Responder) Respond(context.Context, emotion.Label, string) (string, error) {
	return r.Reply, r.Err
}

// RespondStream implements companion.StreamingResponder.
func (r *Responder) RespondStream(_ context.Context, _ emotion.Label, _ string, onDelta func(string)) (string, error) {
	if r.Err != nil {
		return "", r.Err
	}
	if len(r.Chunks) == 0 {
		onDelta(r.Reply)
		return r.Reply, nil
	}
	var full string
	for _, c := range r.Chunks {
		onDelta(c)
		full += c
	}
	return full, nil
}

// NewService builds a companion service around the doubles with a fast,
// deterministic camera simulator and an isolated meter provider.
func NewService(t testing.TB, c companion.Classifier, r companion.Responder) *companion.Service {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())))
	if err != nil {
		t.Fatalf("NewMetrics err: %v", err)
	}
	svc := companion.NewService(companion.NewPipeline(c, r, m), companion.Config{
		HistoryLimit: 100,
		Camera:       vision.SimulatorConfig{Enabled: true, Interval: 20 * time.Millisecond, Seed: 42},
	}, m)
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc
}
