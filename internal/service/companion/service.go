package companion

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/model/companion"
	"github.com/zhouzirui/empathai/backend/internal/observe"
	"github.com/zhouzirui/empathai/backend/internal/service/vision"
)

// Config tunes per-session resources.
type Config struct {
	HistoryLimit int
	Camera       vision.SimulatorConfig
}

// HistoryView is the aggregate served to the chart.
type HistoryView struct {
	Entries     []companion.HistoryEntry `json:"entries"`
	Total       int                      `json:"total"`
	Frequencies []Bucket                 `json:"frequencies"`
}

type session struct {
	id        string
	createdAt time.Time
	feed      *vision.Feed
	camera    *vision.Simulator

	mu         sync.Mutex
	state      companion.SubmissionState
	generation uint64
	lastErr    string
	turn       *companion.Turn
	history    *History
	closed     bool
}

func (s *session) snapshot() companion.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := companion.Snapshot{
		ID:           s.id,
		CreatedAt:    s.createdAt,
		State:        s.state,
		LastError:    s.lastErr,
		CameraActive: s.camera.Active(),
		HistoryTotal: s.history.Total(),
	}
	if sample, ok := s.feed.LatestSample(); ok {
		snap.Vision = &sample
	}
	if s.turn != nil {
		turn := *s.turn
		snap.Turn = &turn
	}
	return snap
}

// Service owns companion sessions: their vision feed, simulated camera,
// current turn and history.
type Service struct {
	pipeline *Pipeline
	cfg      Config
	metrics  *observe.Metrics
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService builds a session store around the pipeline.
func NewService(pipeline *Pipeline, cfg Config, metrics *observe.Metrics) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Service{
		pipeline: pipeline,
		cfg:      cfg,
		metrics:  metrics,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// CreateSession provisions an anonymous session in the idle state.
func (s *Service) CreateSession(ctx context.Context) (companion.Snapshot, error) {
	feed := vision.NewFeed()
	sess := &session{
		id:        uuid.NewString(),
		createdAt: s.now().UTC(),
		feed:      feed,
		camera:    vision.NewSimulator(feed, s.cfg.Camera),
		state:     companion.StateIdle,
		history:   NewHistory(s.cfg.HistoryLimit),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.metrics.ActiveSessions.Add(ctx, 1)
	log.Printf("[companion] session created id=%s", sess.id)
	return sess.snapshot(), nil
}

func (s *Service) lookup(sessionID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GetSession returns the current view of a session.
func (s *Service) GetSession(_ context.Context, sessionID string) (companion.Snapshot, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return companion.Snapshot{}, err
	}
	return sess.snapshot(), nil
}

// DeleteSession stops the camera and drops the session with its history.
// An in-flight submission finishes but its result is discarded.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.release(ctx, sess)
	log.Printf("[companion] session deleted id=%s", sessionID)
	return nil
}

func (s *Service) release(ctx context.Context, sess *session) {
	if sess.camera.Active() {
		s.metrics.ActiveCameras.Add(ctx, -1)
	}
	sess.camera.Stop()

	sess.mu.Lock()
	sess.closed = true
	sess.generation++
	sess.mu.Unlock()

	s.metrics.ActiveSessions.Add(ctx, -1)
}

// Close releases every session. Used on shutdown.
func (s *Service) Close(ctx context.Context) {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		s.release(ctx, sess)
	}
	if len(sessions) > 0 {
		log.Printf("[companion] released %d sessions", len(sessions))
	}
}

// VisionFeed exposes the session's feed so transports can watch it.
func (s *Service) VisionFeed(sessionID string) (*vision.Feed, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.feed, nil
}

// PublishVision stores a sample pushed by an external classifier.
func (s *Service) PublishVision(_ context.Context, sessionID string, sample companion.EmotionSample) (companion.EmotionSample, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return companion.EmotionSample{}, err
	}
	if err := sess.feed.Publish(sample); err != nil {
		return companion.EmotionSample{}, err
	}
	latest, _ := sess.feed.LatestSample()
	return latest, nil
}

// StartCamera turns on the simulated camera. Idempotent.
func (s *Service) StartCamera(ctx context.Context, sessionID string) (companion.Snapshot, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return companion.Snapshot{}, err
	}
	wasActive := sess.camera.Active()
	if err := sess.camera.Start(); err != nil {
		log.Printf("[vision] camera start failed session=%s: %v", sessionID, err)
		return companion.Snapshot{}, err
	}
	if !wasActive {
		s.metrics.ActiveCameras.Add(ctx, 1)
		log.Printf("[vision] camera started session=%s", sessionID)
	}
	return sess.snapshot(), nil
}

// StopCamera releases the simulated camera and clears the vision reading. Idempotent.
func (s *Service) StopCamera(ctx context.Context, sessionID string) (companion.Snapshot, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return companion.Snapshot{}, err
	}
	if sess.camera.Active() {
		s.metrics.ActiveCameras.Add(ctx, -1)
		log.Printf("[vision] camera stopped session=%s", sessionID)
	}
	sess.camera.Stop()
	sess.feed.Clear()
	return sess.snapshot(), nil
}

// Submit runs one turn for the session. The latest vision label is read when
// the submission starts. The turn and its history entry are committed only on
// success; a failure leaves the previous turn and history untouched.
func (s *Service) Submit(ctx context.Context, sessionID, text string, obs *Observer) (companion.Turn, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return companion.Turn{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return companion.Turn{}, ErrEmptyText
	}

	sess.mu.Lock()
	if sess.state.InFlight() {
		sess.mu.Unlock()
		s.metrics.RecordSubmission(ctx, "rejected")
		return companion.Turn{}, ErrSubmissionInFlight
	}
	sess.generation++
	gen := sess.generation
	sess.state = companion.StateSubmitting
	sess.mu.Unlock()

	visionLabel := vision.LatestLabel(sess.feed)

	// Intermediate states are published as they happen; the terminal state is
	// published after the commit below.
	tracked := &Observer{
		OnState: func(state companion.SubmissionState) {
			if !state.InFlight() {
				return
			}
			sess.mu.Lock()
			if sess.generation == gen {
				sess.state = state
			}
			sess.mu.Unlock()
			obs.state(state)
		},
	}
	if obs != nil {
		tracked.OnEmotion = obs.OnEmotion
		tracked.OnDelta = obs.OnDelta
	}

	result, runErr := s.pipeline.Run(ctx, text, visionLabel, tracked)

	turn := companion.Turn{
		ID:            uuid.NewString(),
		InputText:     text,
		VisionEmotion: visionLabel,
		TextEmotion:   result.TextEmotion,
		FinalEmotion:  result.FinalEmotion,
		Response:      result.Response,
		CreatedAt:     s.now().UTC(),
	}

	sess.mu.Lock()
	current := sess.generation == gen && !sess.closed
	if current {
		if runErr != nil {
			sess.state = companion.StateFailed
			sess.lastErr = runErr.Error()
		} else {
			sess.state = companion.StateComplete
			sess.lastErr = ""
			sess.turn = &turn
			sess.history.Record(companion.HistoryEntry{Emotion: turn.FinalEmotion, Timestamp: turn.CreatedAt})
		}
	}
	sess.mu.Unlock()

	if !current {
		log.Printf("[companion] discarded stale result session=%s generation=%d", sessionID, gen)
		if runErr == nil {
			runErr = ErrSessionNotFound
		}
		return companion.Turn{}, runErr
	}
	if runErr != nil {
		obs.state(companion.StateFailed)
		return companion.Turn{}, runErr
	}
	obs.state(companion.StateComplete)
	return turn, nil
}

// History returns the session's history window with its frequency table.
func (s *Service) History(_ context.Context, sessionID string) (HistoryView, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return HistoryView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return HistoryView{
		Entries:     sess.history.Entries(),
		Total:       sess.history.Total(),
		Frequencies: sess.history.Frequencies(),
	}, nil
}

// Analyze runs a stateless turn for the combined endpoint.
func (s *Service) Analyze(ctx context.Context, text string, visionLabel emotion.Label) (Result, error) {
	return s.pipeline.Run(ctx, text, visionLabel, nil)
}
