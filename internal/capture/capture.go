// Package capture receives the live microphone stream over WebSocket and
// feeds it into the utterance segmenter. Clients send raw little-endian
// 16-bit PCM as binary messages; one capture session may be active at a time.
package capture

import (
	"errors"
	"log/slog"
	"sync"

	"net/http"

	"github.com/coder/websocket"

	"github.com/voxtask/voxtask/internal/observe"
	"github.com/voxtask/voxtask/pkg/audio"
)

// Sink consumes the decoded audio stream. *segment.Segmenter satisfies it.
type Sink interface {
	// Ingest appends a frame of PCM samples to the stream.
	Ingest(frame []float32)

	// Reset discards any buffered, unemitted audio.
	Reset()
}

// Handler upgrades HTTP requests to WebSocket capture sessions.
type Handler struct {
	sink    Sink
	metrics *observe.Metrics
	log     *slog.Logger

	mu     sync.Mutex
	active bool
}

// Option is a functional option for configuring a [Handler].
type Option func(*Handler)

// WithLogger sets the logger used for session diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMetrics sets the metrics instance used to track active sessions.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// NewHandler creates a capture handler feeding the given sink.
func NewHandler(sink Sink, opts ...Option) (*Handler, error) {
	if sink == nil {
		return nil, errors.New("capture: handler requires a sink")
	}
	h := &Handler{
		sink: sink,
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h, nil
}

var _ http.Handler = (*Handler)(nil)

// ServeHTTP accepts the WebSocket handshake and pumps binary PCM messages
// into the sink until the client disconnects. A second concurrent session is
// rejected with [websocket.StatusTryAgainLater] so two microphones cannot
// interleave samples into one stream.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("capture handshake failed", "error", err)
		return
	}

	if !h.acquire() {
		conn.Close(websocket.StatusTryAgainLater, "another capture session is active")
		return
	}
	defer h.release()

	ctx := r.Context()
	h.metrics.ActiveSessions.Add(ctx, 1)
	defer h.metrics.ActiveSessions.Add(ctx, -1)

	// Stale audio from a previous session must not leak into this one.
	h.sink.Reset()

	h.log.Info("capture session started", "remote", r.RemoteAddr)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				h.log.Info("capture session closed", "remote", r.RemoteAddr)
			} else {
				h.log.Warn("capture session aborted", "remote", r.RemoteAddr, "error", err)
			}
			return
		}

		switch typ {
		case websocket.MessageBinary:
			if len(data)%2 != 0 {
				h.log.Warn("dropping trailing byte of odd-length PCM message", "len", len(data))
				data = data[:len(data)-1]
			}
			if len(data) == 0 {
				continue
			}
			h.sink.Ingest(audio.PCM16ToFloat32(data))

		case websocket.MessageText:
			if string(data) == "reset" {
				h.sink.Reset()
				continue
			}
			h.log.Debug("ignoring unknown text message", "message", string(data))
		}
	}
}

func (h *Handler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active {
		return false
	}
	h.active = true
	return true
}

func (h *Handler) release() {
	h.mu.Lock()
	h.active = false
	h.mu.Unlock()
}
