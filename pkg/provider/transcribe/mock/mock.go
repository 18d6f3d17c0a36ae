// Package mock provides a test double for the transcribe.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/voxtask/voxtask/pkg/provider/transcribe"
)

// Compile-time assertion that Provider implements transcribe.Provider.
var _ transcribe.Provider = (*Provider)(nil)

// Call records a single invocation of Transcribe.
type Call struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// WAV is the payload passed to Transcribe.
	WAV []byte
}

// Provider is a mock transcription backend. Zero values cause Transcribe to
// return ("", nil). Set Err to inject a failure.
//
// Provider is safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Text is returned by every Transcribe call.
	Text string

	// Err, if non-nil, is returned by every Transcribe call.
	Err error

	// Calls records every invocation in order. Read after the test.
	Calls []Call
}

// Transcribe implements transcribe.Provider.
func (p *Provider) Transcribe(ctx context.Context, wav []byte) (string, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{Ctx: ctx, WAV: wav})
	text, err := p.Text, p.Err
	p.mu.Unlock()

	if err != nil {
		return "", err
	}
	return text, nil
}
