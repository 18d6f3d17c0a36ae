// Package segment implements energy-based utterance segmentation over a
// continuous stream of float32 audio frames.
//
// A Segmenter classifies fixed-size sub-blocks of each incoming frame as
// voiced or silent by their RMS energy, accumulates voiced audio, and emits
// the accumulated buffer as one utterance once a silence timeout follows
// enough voiced material. Emission happens through a buffered channel so the
// capture path never blocks on the consumer.
//
// A Segmenter is not safe for concurrent use: Ingest and Reset must be called
// from a single goroutine (normally the capture callback). The Utterances
// channel is the only cross-goroutine boundary.
package segment

import (
	"log/slog"
	"math"
	"time"
)

// Defaults applied by [New] for zero-valued [Config] fields.
const (
	DefaultSampleRate     = 16000
	DefaultBlockSize      = 1024
	DefaultVoiceThreshold = 0.05
	DefaultSilenceTimeout = time.Second
	DefaultMinUtterance   = 100 * time.Millisecond

	// defaultChannelDepth is the buffer depth of the utterance channel. If the
	// consumer falls this far behind, further utterances are dropped with a
	// warning rather than stalling audio capture.
	defaultChannelDepth = 4
)

// Config holds the tuning parameters of a [Segmenter]. Zero values are
// replaced with the package defaults by [New].
type Config struct {
	// SampleRate is the capture sample rate in Hz. Used to convert the
	// duration thresholds below into sample counts.
	SampleRate int

	// BlockSize is the sub-block length in samples over which RMS energy is
	// computed. Frames shorter than one block are discarded to avoid spurious
	// RMS readings on tiny buffers.
	BlockSize int

	// VoiceThreshold is the RMS amplitude (normalised, 0.0–1.0) above which a
	// sub-block counts as voiced.
	VoiceThreshold float64

	// SilenceTimeout is the span of uninterrupted silence after voiced audio
	// that closes an utterance.
	SilenceTimeout time.Duration

	// MinUtterance is the minimum duration of accumulated voiced audio an
	// utterance must reach before it may be emitted. Shorter accumulations are
	// kept and extended by later speech instead.
	MinUtterance time.Duration
}

// withDefaults returns cfg with zero fields replaced by package defaults.
func (cfg Config) withDefaults() Config {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.VoiceThreshold <= 0 {
		cfg.VoiceThreshold = DefaultVoiceThreshold
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = DefaultSilenceTimeout
	}
	if cfg.MinUtterance <= 0 {
		cfg.MinUtterance = DefaultMinUtterance
	}
	return cfg
}

// Segmenter accumulates voiced audio and emits utterances. Create instances
// with [New]; the zero value is not usable.
type Segmenter struct {
	cfg Config

	// silenceSamples / minSamples are the duration thresholds converted to
	// sample counts at construction so Ingest does no float math per frame.
	silenceSamples int
	minSamples     int

	buf           []float32
	silentSamples int

	utterances chan []float32
}

// New returns a ready Segmenter with cfg applied on top of the defaults.
func New(cfg Config) *Segmenter {
	cfg = cfg.withDefaults()
	return &Segmenter{
		cfg:            cfg,
		silenceSamples: int(cfg.SilenceTimeout.Seconds() * float64(cfg.SampleRate)),
		minSamples:     int(cfg.MinUtterance.Seconds() * float64(cfg.SampleRate)),
		utterances:     make(chan []float32, defaultChannelDepth),
	}
}

// Utterances returns the channel on which completed utterance buffers are
// delivered. Ownership of each emitted slice transfers to the receiver; the
// Segmenter never touches it again.
func (s *Segmenter) Utterances() <-chan []float32 {
	return s.utterances
}

// Ingest processes one captured frame. Frames shorter than the configured
// block size (including empty frames) are discarded. Larger frames are
// processed in sub-blocks of BlockSize samples so that silence-timeout
// accuracy is independent of how large the driver's capture buffers are; a
// partial trailing sub-block still contributes its true sample count to the
// silence counter.
//
// Ingest does only in-memory arithmetic and never blocks: if the utterance
// channel is full the completed utterance is dropped with a warning.
func (s *Segmenter) Ingest(frame []float32) {
	if len(frame) < s.cfg.BlockSize {
		return
	}

	for start := 0; start < len(frame); start += s.cfg.BlockSize {
		end := start + s.cfg.BlockSize
		if end > len(frame) {
			end = len(frame)
		}
		s.ingestBlock(frame[start:end])
	}
}

// ingestBlock classifies one sub-block and updates accumulation state,
// emitting a completed utterance when the silence timeout fires.
func (s *Segmenter) ingestBlock(block []float32) {
	if rms(block) > s.cfg.VoiceThreshold {
		s.buf = append(s.buf, block...)
		s.silentSamples = 0
		return
	}

	s.silentSamples += len(block)
	if s.silentSamples <= s.silenceSamples || len(s.buf) <= s.minSamples {
		return
	}

	utterance := s.buf
	s.buf = nil
	s.silentSamples = 0

	select {
	case s.utterances <- utterance:
	default:
		slog.Warn("segment: utterance channel full, dropping utterance",
			"samples", len(utterance),
			"duration", time.Duration(len(utterance))*time.Second/time.Duration(s.cfg.SampleRate),
		)
	}
}

// Reset discards all accumulated audio and the silence counter, returning the
// Segmenter to its freshly constructed state. Call it at the start of each
// recording session.
func (s *Segmenter) Reset() {
	s.buf = nil
	s.silentSamples = 0
}

// rms returns the root-mean-square amplitude of a normalised sample block.
// Returns 0 for an empty block.
func rms(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sum float64
	for _, v := range block {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(block)))
}
