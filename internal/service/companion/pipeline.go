package companion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zhouzirui/empathai/backend/internal/analysis/emotion"
	"github.com/zhouzirui/empathai/backend/internal/model/companion"
	"github.com/zhouzirui/empathai/backend/internal/observe"
)

var (
	ErrEmptyText          = errors.New("text is required")
	ErrClassification     = errors.New("failed to detect emotion from text")
	ErrResponse           = errors.New("failed to generate empathetic response")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
)

// Classifier maps free text onto the label set.
type Classifier interface {
	Classify(ctx context.Context, text string) (emotion.Label, error)
}

// Responder writes a short empathetic reply keyed on the fused emotion.
type Responder interface {
	Respond(ctx context.Context, final emotion.Label, text string) (string, error)
}

// StreamingResponder additionally reports the reply as it is generated.
type StreamingResponder interface {
	Responder
	RespondStream(ctx context.Context, final emotion.Label, text string, onDelta func(string)) (string, error)
}

// Observer receives progress from a pipeline run. Any field may be nil.
type Observer struct {
	OnState   func(companion.SubmissionState)
	OnEmotion func(text, final emotion.Label)
	OnDelta   func(string)
}

func (o *Observer) state(s companion.SubmissionState) {
	if o != nil && o.OnState != nil {
		o.OnState(s)
	}
}

// Result is the output of one successful run.
type Result struct {
	TextEmotion  emotion.Label `json:"textEmotion"`
	FinalEmotion emotion.Label `json:"finalEmotion"`
	Response     string        `json:"empatheticResponse"`
}

// Pipeline runs classify, fuse and respond for one text submission. It holds
// no per-turn state and is safe for concurrent use.
type Pipeline struct {
	classifier Classifier
	responder  Responder
	metrics    *observe.Metrics
}

// NewPipeline wires the remote collaborators. A nil metrics uses the default instance.
func NewPipeline(classifier Classifier, responder Responder, metrics *observe.Metrics) *Pipeline {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Pipeline{classifier: classifier, responder: responder, metrics: metrics}
}

// Run executes a turn. vision is the latest camera label or "". Either remote
// failure aborts the run with no partial result.
func (p *Pipeline) Run(ctx context.Context, text string, vision emotion.Label, obs *Observer) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}

	ctx, span := observe.StartSpan(ctx, "companion.turn",
		trace.WithAttributes(attribute.String("vision_emotion", string(vision))))
	defer span.End()

	obs.state(companion.StateSubmitting)
	obs.state(companion.StateAwaitingClassification)

	textEmotion, err := p.classify(ctx, text)
	if err != nil {
		return Result{}, p.fail(ctx, span, obs, "classify", fmt.Errorf("%w: %w", ErrClassification, err))
	}

	final := emotion.Fuse(vision, textEmotion)
	log.Printf("[companion] vision=%q text=%s final=%s", vision, textEmotion, final)
	if obs != nil && obs.OnEmotion != nil {
		obs.OnEmotion(textEmotion, final)
	}

	obs.state(companion.StateAwaitingResponse)
	reply, err := p.respond(ctx, final, text, obs)
	if err != nil {
		return Result{}, p.fail(ctx, span, obs, "respond", fmt.Errorf("%w: %w", ErrResponse, err))
	}

	p.metrics.RecordSubmission(ctx, "complete")
	p.metrics.RecordFinalEmotion(ctx, string(final))
	span.SetAttributes(attribute.String("final_emotion", string(final)))
	obs.state(companion.StateComplete)

	return Result{TextEmotion: textEmotion, FinalEmotion: final, Response: reply}, nil
}

func (p *Pipeline) classify(ctx context.Context, text string) (emotion.Label, error) {
	start := time.Now()
	label, err := p.classifier.Classify(ctx, text)
	p.metrics.ClassifyDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	if !label.Valid() {
		return "", fmt.Errorf("%w: %q", emotion.ErrUnknownLabel, label)
	}
	return label, nil
}

func (p *Pipeline) respond(ctx context.Context, final emotion.Label, text string, obs *Observer) (string, error) {
	start := time.Now()
	defer func() {
		p.metrics.RespondDuration.Record(ctx, time.Since(start).Seconds())
	}()

	var (
		reply string
		err   error
	)
	if streaming, ok := p.responder.(StreamingResponder); ok && obs != nil && obs.OnDelta != nil {
		reply, err = streaming.RespondStream(ctx, final, text, obs.OnDelta)
	} else {
		reply, err = p.responder.Respond(ctx, final, text)
	}
	if err != nil {
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("empty response from model")
	}
	return reply, nil
}

func (p *Pipeline) fail(ctx context.Context, span trace.Span, obs *Observer, stage string, err error) error {
	log.Printf("[companion] %s failed: %v", stage, err)
	p.metrics.RecordProviderError(ctx, stage)
	p.metrics.RecordSubmission(ctx, "failed")
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	obs.state(companion.StateFailed)
	return err
}
