package companion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/model/companion"
	"github.com/zhouzirui/empathai/backend/internal/observe"
	"github.com/zhouzirui/empathai/backend/internal/service/vision"
)

type stubClassifier struct {
	label emotion.Label
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (c *stubClassifier) Classify(ctx context.Context, _ string) (emotion.Label, error) {
	c.calls.Add(1)
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return c.label, c.err
}

type stubResponder struct {
	reply  string
	err    error
	calls  atomic.Int32
	mu     sync.Mutex
	gotEmo emotion.Label
}

func (r *stubResponder) Respond(_ context.Context, final emotion.Label, _ string) (string, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.gotEmo = final
	r.mu.Unlock()
	return r.reply, r.err
}

type streamingResponder struct {
	stubResponder
	chunks []string
}

func (r *streamingResponder) RespondStream(_ context.Context, _ emotion.Label, _ string, onDelta func(string)) (string, error) {
	var full string
	for _, c := range r.chunks {
		onDelta(c)
		full += c
	}
	return full, nil
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())))
	require.NoError(t, err)
	return m
}

func newTestService(t *testing.T, c Classifier, r Responder) *Service {
	t.Helper()
	m := testMetrics(t)
	svc := NewService(NewPipeline(c, r, m), Config{
		HistoryLimit: 10,
		Camera:       vision.SimulatorConfig{Enabled: true, Interval: 10 * time.Millisecond, Seed: 7},
	}, m)
	t.Cleanup(func() { svc.Close(context.Background()) })
	return svc
}

func TestPipelineRunFusesVisionAndText(t *testing.T) {
	cls := &stubClassifier{label: emotion.Sad}
	resp := &stubResponder{reply: "  I'm here for you.  "}
	p := NewPipeline(cls, resp, testMetrics(t))

	var states []companion.SubmissionState
	obs := &Observer{OnState: func(s companion.SubmissionState) { states = append(states, s) }}

	res, err := p.Run(context.Background(), "bad day", emotion.Happy, obs)
	require.NoError(t, err)
	assert.Equal(t, emotion.Sad, res.TextEmotion)
	assert.Equal(t, emotion.Sad, res.FinalEmotion)
	assert.Equal(t, "I'm here for you.", res.Response)
	assert.Equal(t, emotion.Sad, resp.gotEmo)
	assert.Equal(t, []companion.SubmissionState{
		companion.StateSubmitting,
		companion.StateAwaitingClassification,
		companion.StateAwaitingResponse,
		companion.StateComplete,
	}, states)
}

func TestPipelineRejectsUnknownClassifierLabel(t *testing.T) {
	p := NewPipeline(&stubClassifier{label: "bored"}, &stubResponder{reply: "x"}, testMetrics(t))
	_, err := p.Run(context.Background(), "meh", "", nil)
	require.ErrorIs(t, err, ErrClassification)
	assert.ErrorIs(t, err, emotion.ErrUnknownLabel)
}

func TestPipelineEmptyReplyFails(t *testing.T) {
	p := NewPipeline(&stubClassifier{label: emotion.Happy}, &stubResponder{reply: "   "}, testMetrics(t))
	_, err := p.Run(context.Background(), "yay", "", nil)
	assert.ErrorIs(t, err, ErrResponse)
}

func TestPipelineStreamsDeltas(t *testing.T) {
	resp := &streamingResponder{chunks: []string{"You ", "got ", "this."}}
	p := NewPipeline(&stubClassifier{label: emotion.Fear}, resp, testMetrics(t))

	var deltas []string
	var gotText, gotFinal emotion.Label
	res, err := p.Run(context.Background(), "exam tomorrow", emotion.Neutral, &Observer{
		OnDelta:   func(d string) { deltas = append(deltas, d) },
		OnEmotion: func(text, final emotion.Label) { gotText, gotFinal = text, final },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"You ", "got ", "this."}, deltas)
	assert.Equal(t, "You got this.", res.Response)
	assert.Equal(t, emotion.Fear, gotText)
	assert.Equal(t, emotion.Fear, gotFinal)
	assert.Zero(t, resp.calls.Load())
}

func TestSubmitRecordsTurnAndHistory(t *testing.T) {
	svc := newTestService(t, &stubClassifier{label: emotion.Happy}, &stubResponder{reply: "Great to hear!"})
	ctx := context.Background()
	sess, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, companion.StateIdle, sess.State)

	turn, err := svc.Submit(ctx, sess.ID, "  I passed my exam  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "I passed my exam", turn.InputText)
	assert.Equal(t, emotion.Label(""), turn.VisionEmotion)
	assert.Equal(t, emotion.Happy, turn.FinalEmotion)

	snap, err := svc.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, companion.StateComplete, snap.State)
	require.NotNil(t, snap.Turn)
	assert.Equal(t, "Great to hear!", snap.Turn.Response)
	assert.Equal(t, 1, snap.HistoryTotal)
}

func TestSubmitUsesPublishedVision(t *testing.T) {
	svc := newTestService(t, &stubClassifier{label: emotion.Happy}, &stubResponder{reply: "ok"})
	ctx := context.Background()
	sess, _ := svc.CreateSession(ctx)

	_, err := svc.PublishVision(ctx, sess.ID, companion.EmotionSample{Label: emotion.Angry, Confidence: 1.4})
	require.NoError(t, err)

	turn, err := svc.Submit(ctx, sess.ID, "all good", nil)
	require.NoError(t, err)
	assert.Equal(t, emotion.Angry, turn.VisionEmotion)
	assert.Equal(t, emotion.Angry, turn.FinalEmotion)

	snap, _ := svc.GetSession(ctx, sess.ID)
	require.NotNil(t, snap.Vision)
	assert.Equal(t, 1.0, snap.Vision.Confidence)
}

func TestSubmitClassifierFailureLeavesStateUntouched(t *testing.T) {
	cls := &stubClassifier{label: emotion.Happy}
	resp := &stubResponder{reply: "Nice!"}
	svc := newTestService(t, cls, resp)
	ctx := context.Background()
	sess, _ := svc.CreateSession(ctx)

	first, err := svc.Submit(ctx, sess.ID, "good day", nil)
	require.NoError(t, err)

	cls.err = errors.New("status 500")
	var last companion.SubmissionState
	_, err = svc.Submit(ctx, sess.ID, "another", &Observer{OnState: func(s companion.SubmissionState) { last = s }})
	require.ErrorIs(t, err, ErrClassification)
	assert.Equal(t, companion.StateFailed, last)
	assert.EqualValues(t, 1, resp.calls.Load())

	snap, _ := svc.GetSession(ctx, sess.ID)
	assert.Equal(t, companion.StateFailed, snap.State)
	assert.NotEmpty(t, snap.LastError)
	require.NotNil(t, snap.Turn)
	assert.Equal(t, first.ID, snap.Turn.ID)

	view, err := svc.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Total)
	assert.Len(t, view.Entries, 1)
}

func TestSubmitEmptyTextMakesNoCall(t *testing.T) {
	cls := &stubClassifier{label: emotion.Happy}
	resp := &stubResponder{reply: "hi"}
	svc := newTestService(t, cls, resp)
	ctx := context.Background()
	sess, _ := svc.CreateSession(ctx)

	_, err := svc.Submit(ctx, sess.ID, " \n\t ", nil)
	require.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, cls.calls.Load())
	assert.Zero(t, resp.calls.Load())

	snap, _ := svc.GetSession(ctx, sess.ID)
	assert.Equal(t, companion.StateIdle, snap.State)
	assert.Nil(t, snap.Turn)
}

func TestSubmitRejectsOverlap(t *testing.T) {
	cls := &stubClassifier{label: emotion.Sad, gate: make(chan struct{})}
	svc := newTestService(t, cls, &stubResponder{reply: "hugs"})
	ctx := context.Background()
	sess, _ := svc.CreateSession(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, sess.ID, "first", nil)
		done <- err
	}()

	require.Eventually(t, func() bool { return cls.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	snap, _ := svc.GetSession(ctx, sess.ID)
	assert.Equal(t, companion.StateAwaitingClassification, snap.State)

	_, err := svc.Submit(ctx, sess.ID, "second", nil)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(cls.gate)
	require.NoError(t, <-done)

	view, _ := svc.History(ctx, sess.ID)
	assert.Equal(t, 1, view.Total)
}

func TestDeleteDiscardsInFlightResult(t *testing.T) {
	cls := &stubClassifier{label: emotion.Sad, gate: make(chan struct{})}
	svc := newTestService(t, cls, &stubResponder{reply: "hugs"})
	ctx := context.Background()
	sess, _ := svc.CreateSession(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(ctx, sess.ID, "first", nil)
		done <- err
	}()
	require.Eventually(t, func() bool { return cls.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.DeleteSession(ctx, sess.ID))
	close(cls.gate)
	assert.ErrorIs(t, <-done, ErrSessionNotFound)

	_, err := svc.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCameraLifecycle(t *testing.T) {
	svc := newTestService(t, &stubClassifier{label: emotion.Happy}, &stubResponder{reply: "ok"})
	ctx := context.Background()
	sess, _ := svc.CreateSession(ctx)

	snap, err := svc.StartCamera(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, snap.CameraActive)
	_, err = svc.StartCamera(ctx, sess.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		s, _ := svc.GetSession(ctx, sess.ID)
		return s.Vision != nil
	}, time.Second, 5*time.Millisecond)

	snap, err = svc.StopCamera(ctx, sess.ID)
	require.NoError(t, err)
	assert.False(t, snap.CameraActive)
	assert.Nil(t, snap.Vision)
}

func TestCameraUnavailable(t *testing.T) {
	m := testMetrics(t)
	svc := NewService(NewPipeline(&stubClassifier{}, &stubResponder{}, m), Config{}, m)
	sess, _ := svc.CreateSession(context.Background())
	_, err := svc.StartCamera(context.Background(), sess.ID)
	assert.ErrorIs(t, err, vision.ErrCameraUnavailable)
}

func TestUnknownSession(t *testing.T) {
	svc := newTestService(t, &stubClassifier{}, &stubResponder{})
	ctx := context.Background()
	_, err := svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Submit(ctx, "missing", "hi", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, "missing"), ErrSessionNotFound)
}

func TestAnalyzeIsStateless(t *testing.T) {
	svc := newTestService(t, &stubClassifier{label: emotion.Happy}, &stubResponder{reply: "Keep it up!"})
	res, err := svc.Analyze(context.Background(), "I won", emotion.Angry)
	require.NoError(t, err)
	assert.Equal(t, emotion.Happy, res.TextEmotion)
	assert.Equal(t, emotion.Angry, res.FinalEmotion)
	assert.Equal(t, "Keep it up!", res.Response)
}
