package vision

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/model/companion"
)

// DefaultInterval matches the browser camera's detection period.
const DefaultInterval = 3 * time.Second

// SimulatorConfig configures the simulated camera.
type SimulatorConfig struct {
	Enabled  bool
	Interval time.Duration
	// Seed makes the emitted sequence reproducible; zero picks a random seed.
	Seed uint64
}

// Simulator stands in for a camera plus face classifier: while active it
// publishes a random label with 60-100% confidence every Interval.
type Simulator struct {
	feed     *Feed
	enabled  bool
	interval time.Duration
	seed     uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulator binds a simulator to the feed it writes into.
func NewSimulator(feed *Feed, cfg SimulatorConfig) *Simulator {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Simulator{
		feed:     feed,
		enabled:  cfg.Enabled,
		interval: interval,
		seed:     seed,
	}
}

// Start activates the camera. Calling Start on an active camera is a no-op.
func (s *Simulator) Start() error {
	if !s.enabled {
		return ErrCameraUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done, rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15)))
	log.Printf("[vision] camera started interval=%s", s.interval)
	return nil
}

// Stop releases the camera and clears the feed. Stopping an inactive camera
// is a no-op.
func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.feed.Clear()
	log.Printf("[vision] camera stopped")
}

// Active reports whether the camera loop is running.
func (s *Simulator) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Simulator) run(ctx context.Context, done chan<- struct{}, rnd *rand.Rand) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	labels := emotion.Labels()
	for {
		sample := companion.EmotionSample{
			Label:      labels[rnd.IntN(len(labels))],
			Confidence: rnd.Float64()*0.4 + 0.6,
		}
		if err := s.feed.Publish(sample); err != nil {
			log.Printf("[vision] publish failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
