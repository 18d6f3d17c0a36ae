// Package transcribe defines the Provider interface for batch speech-to-text
// backends.
//
// A transcription provider accepts one complete WAV-encoded utterance and
// returns its text. Providers are deliberately batch-shaped: segmentation
// happens upstream (pkg/audio/segment), so by the time audio reaches a
// provider it is already one utterance.
//
// Implementations must be safe for concurrent use; multiple utterances may be
// in flight at once.
package transcribe

import "context"

// Provider is the abstraction over any batch transcription backend.
type Provider interface {
	// Transcribe sends one WAV-encoded utterance to the backend and returns
	// the transcribed text. An empty string with a nil error means the
	// backend heard nothing intelligible.
	//
	// A non-nil error means the utterance was NOT transcribed — callers that
	// choose to degrade to a placeholder must do so explicitly and log the
	// failure, never silently.
	Transcribe(ctx context.Context, wav []byte) (string, error)
}
