// Package app wires the voxtask pipeline together: utterances emitted by the
// segmenter are encoded to WAV, transcribed, and fed into the agent loop, and
// the agent's final answers are handed to the presentation layer.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/voxtask/voxtask/internal/observe"
	"github.com/voxtask/voxtask/pkg/audio"
	"github.com/voxtask/voxtask/pkg/audio/segment"
	"github.com/voxtask/voxtask/pkg/provider/transcribe"
)

// Conversation is the slice of the agent loop the pipeline needs.
// [agent.Loop] satisfies it.
type Conversation interface {
	Send(ctx context.Context, text string) (string, error)
	Reset()
}

// App consumes utterances from a segmenter and drives them through
// transcription and the agent loop, one at a time and in arrival order.
type App struct {
	seg         *segment.Segmenter
	transcriber transcribe.Provider
	conv        Conversation

	sampleRate int
	onAnswer   func(ctx context.Context, text string)
	metrics    *observe.Metrics
	log        *slog.Logger

	finishRequested atomic.Bool
}

// Option is a functional option for configuring an [App].
type Option func(*App)

// WithSampleRate sets the sample rate used when encoding utterances to WAV.
// Defaults to [segment.DefaultSampleRate]. It must match the rate the
// segmenter's audio was captured at.
func WithSampleRate(rate int) Option {
	return func(a *App) {
		if rate > 0 {
			a.sampleRate = rate
		}
	}
}

// WithAnswerHandler registers fn to receive the agent's final answers. When
// unset, answers are only logged.
func WithAnswerHandler(fn func(ctx context.Context, text string)) Option {
	return func(a *App) { a.onAnswer = fn }
}

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) {
		if m != nil {
			a.metrics = m
		}
	}
}

// New creates the pipeline. Segmenter, transcriber and conversation are all
// required.
func New(seg *segment.Segmenter, transcriber transcribe.Provider, conv Conversation, opts ...Option) (*App, error) {
	if seg == nil {
		return nil, errors.New("app: segmenter is required")
	}
	if transcriber == nil {
		return nil, errors.New("app: transcriber is required")
	}
	if conv == nil {
		return nil, errors.New("app: conversation is required")
	}
	a := &App{
		seg:         seg,
		transcriber: transcriber,
		conv:        conv,
		sampleRate:  segment.DefaultSampleRate,
		log:         slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	return a, nil
}

// RequestFinish marks the current conversation as finished. The conversation
// is reset once the in-flight utterance completes, so it is safe to call from
// the finish tool while the agent turn that invoked it is still running.
// Wire it via [agent.WithFinishHandler].
func (a *App) RequestFinish(context.Context) error {
	a.finishRequested.Store(true)
	return nil
}

// Run consumes utterances until ctx is cancelled. Utterances are handled
// strictly one at a time: an utterance spoken while the previous one is still
// being answered waits in the segmenter's channel.
func (a *App) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case utterance := <-a.seg.Utterances():
			a.handleUtterance(ctx, utterance)
		}
	}
}

// handleUtterance drives one utterance through the full pipeline. Failures
// never stop Run: a failed utterance is logged and dropped, and the next one
// is processed normally.
func (a *App) handleUtterance(ctx context.Context, samples []float32) {
	start := time.Now()
	a.metrics.PendingUtterances.Add(ctx, 1)
	defer a.metrics.PendingUtterances.Add(ctx, -1)

	if a.log.Enabled(ctx, slog.LevelDebug) {
		a.log.Debug("utterance detected",
			"samples", len(samples),
			"duration", time.Duration(len(samples))*time.Second/time.Duration(a.sampleRate),
			"envelope", audio.Downsample(samples, 256, 16),
		)
	}

	wav := audio.EncodeWAV(samples, a.sampleRate)

	tStart := time.Now()
	text, err := a.transcriber.Transcribe(ctx, wav)
	a.metrics.TranscriptionDuration.Record(ctx, time.Since(tStart).Seconds())
	if err != nil {
		// The utterance is lost here, deliberately and loudly: there is no
		// text to guess at, so the turn cannot proceed.
		a.metrics.RecordProviderRequest(ctx, "transcription", "transcribe", "error")
		a.metrics.RecordProviderError(ctx, "transcription", "transcribe")
		a.metrics.RecordUtterance(ctx, "failed")
		a.log.Error("utterance dropped: transcription failed",
			"error", err,
			"samples", len(samples),
		)
		return
	}

	a.metrics.RecordProviderRequest(ctx, "transcription", "transcribe", "ok")

	if strings.TrimSpace(text) == "" {
		a.metrics.RecordUtterance(ctx, "dropped")
		a.log.Debug("utterance dropped: empty transcript", "samples", len(samples))
		return
	}

	a.log.Info("utterance transcribed", "text", text)

	answer, err := a.conv.Send(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			a.log.Debug("agent turn cancelled")
			return
		}
		a.metrics.RecordUtterance(ctx, "failed")
		a.log.Error("agent turn failed", "error", err)
		return
	}

	a.metrics.PipelineDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("outcome", "handled")))
	a.metrics.RecordUtterance(ctx, "handled")

	if answer != "" {
		if a.onAnswer != nil {
			a.onAnswer(ctx, answer)
		} else {
			a.log.Info("assistant answer", "text", answer)
		}
	}

	if a.finishRequested.Swap(false) {
		a.conv.Reset()
		a.log.Info("conversation finished")
	}
}
