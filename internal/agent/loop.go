// Package agent runs the conversation loop between transcribed user
// utterances, the chat completion provider, and the task tools.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxtask/voxtask/pkg/provider/chat"
)

// DefaultMaxTurns bounds how many model round trips a single utterance may
// trigger before the loop gives up with [ErrTurnLimit].
const DefaultMaxTurns = 16

// ErrTurnLimit is returned by [Loop.Send] when a single utterance exceeds the
// configured number of model round trips without producing a final answer.
var ErrTurnLimit = errors.New("turn limit exceeded")

// ResponseCreator is the slice of the chat provider the loop needs.
// [chat.Client] satisfies it.
type ResponseCreator interface {
	CreateResponse(ctx context.Context, req *chat.Request) (*chat.Response, error)
}

// Loop drives one conversation with the model. Each [Loop.Send] call feeds a
// user utterance in, resolves any requested tool calls, and returns the
// model's final text. Conversation history lives server-side: the loop only
// threads the previous response ID between requests.
//
// A Loop is safe for concurrent use, but utterances are conversational turns
// and should be sent one at a time. Starting a new Send cancels a still
// in-flight one.
type Loop struct {
	client       ResponseCreator
	dispatcher   *Dispatcher
	instructions string
	maxTurns     int
	log          *slog.Logger

	mu                 sync.Mutex
	previousResponseID string
	cancelInflight     context.CancelFunc

	// generation counts Reset calls. A Send that started under an older
	// generation must not commit response IDs from requests that were still
	// in flight when the conversation was discarded.
	generation uint64
}

// LoopOption is a functional option for configuring a [Loop].
type LoopOption func(*Loop)

// WithInstructions sets the system preamble sent on the first request of a
// fresh conversation.
func WithInstructions(instructions string) LoopOption {
	return func(l *Loop) { l.instructions = instructions }
}

// WithMaxTurns overrides [DefaultMaxTurns]. Values < 1 are ignored.
func WithMaxTurns(n int) LoopOption {
	return func(l *Loop) {
		if n >= 1 {
			l.maxTurns = n
		}
	}
}

// WithLogger sets the logger used for per-turn diagnostics.
func WithLogger(log *slog.Logger) LoopOption {
	return func(l *Loop) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoop creates a conversation loop over the given provider and dispatcher.
// Both are required.
func NewLoop(client ResponseCreator, dispatcher *Dispatcher, opts ...LoopOption) (*Loop, error) {
	if client == nil {
		return nil, errors.New("agent: loop requires a response creator")
	}
	if dispatcher == nil {
		return nil, errors.New("agent: loop requires a dispatcher")
	}
	l := &Loop{
		client:     client,
		dispatcher: dispatcher,
		maxTurns:   DefaultMaxTurns,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Send feeds one user utterance into the conversation and blocks until the
// model produces a final text answer, all requested tool calls resolved along
// the way. An empty return string is valid: the model may answer through tool
// effects alone.
//
// Send fails with [ErrTurnLimit] when the model keeps requesting tools past
// the turn cap, with [context.Canceled] after [Loop.Cancel], and with the
// wrapped provider or tool error otherwise. Any failure abandons the turn;
// the conversation thread itself stays usable.
func (l *Loop) Send(ctx context.Context, text string) (string, error) {
	l.mu.Lock()
	if l.cancelInflight != nil {
		l.cancelInflight()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancelInflight = cancel
	prev := l.previousResponseID
	gen := l.generation
	l.mu.Unlock()
	defer cancel()

	var input []chat.InputItem
	if prev == "" && l.instructions != "" {
		input = append(input, chat.Message(chat.RoleDeveloper, l.instructions))
	}
	input = append(input, chat.Message(chat.RoleUser, text))

	for turn := range l.maxTurns {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		tStart := time.Now()
		resp, err := l.client.CreateResponse(ctx, &chat.Request{
			Input:              input,
			Tools:              l.dispatcher.Definitions(),
			PreviousResponseID: prev,
		})
		l.dispatcher.metrics.AgentTurnDuration.Record(ctx, time.Since(tStart).Seconds())
		if err != nil {
			l.dispatcher.metrics.RecordProviderRequest(ctx, "chat", "responses", "error")
			return "", fmt.Errorf("agent: create response: %w", err)
		}
		l.dispatcher.metrics.RecordProviderRequest(ctx, "chat", "responses", "ok")

		// The HTTP response may still arrive after a Cancel or Reset fired;
		// the turn is abandoned then, and a reset conversation must not get
		// its cleared thread resurrected by a stale response ID.
		if err := ctx.Err(); err != nil {
			return "", err
		}
		prev = resp.ID
		l.commitResponseID(resp.ID, gen)

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			return resp.AssistantText(), nil
		}

		l.log.Debug("resolving tool calls", "turn", turn, "count", len(calls))
		input, err = l.executeCalls(ctx, calls)
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("agent: %w after %d turns", ErrTurnLimit, l.maxTurns)
}

// executeCalls runs all requested tool calls concurrently and collects their
// outputs in request order. The turn is all-or-nothing: one failing call
// cancels its siblings and fails the turn.
func (l *Loop) executeCalls(ctx context.Context, calls []chat.OutputItem) ([]chat.InputItem, error) {
	outputs := make([]chat.InputItem, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			result, err := l.dispatcher.Dispatch(gctx, call.Name, call.Arguments)
			if err != nil {
				return fmt.Errorf("tool %q with arguments %s: %w", call.Name, call.Arguments, err)
			}
			outputs[i] = chat.FunctionOutput(call.CallID, result)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	return outputs, nil
}

// Cancel aborts the in-flight Send, if any. The conversation thread survives
// and the next Send continues from the last completed response.
func (l *Loop) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancelInflight != nil {
		l.cancelInflight()
	}
}

// Reset aborts any in-flight Send and forgets the conversation thread. The
// next Send starts a fresh conversation, instruction preamble included.
func (l *Loop) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancelInflight != nil {
		l.cancelInflight()
		l.cancelInflight = nil
	}
	l.previousResponseID = ""
	l.generation++
}

// commitResponseID records id as the conversation head, unless the
// conversation was reset while the request that produced id was in flight.
func (l *Loop) commitResponseID(id string, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.generation != gen {
		return
	}
	l.previousResponseID = id
}
