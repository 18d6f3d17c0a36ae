// Package mock provides a scriptable test double for the chat client.
//
// Use Client in unit tests to feed a fixed sequence of Responses API replies
// to a conversation loop and to inspect the requests it built, without a live
// remote service.
//
// Example:
//
//	c := &mock.Client{
//	    Responses: []*chat.Response{
//	        {ID: "resp_1", Status: "completed", Output: []chat.OutputItem{...}},
//	    },
//	}
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/voxtask/voxtask/pkg/provider/chat"
)

// Call records a single invocation of CreateResponse.
type Call struct {
	// Ctx is the context passed to CreateResponse.
	Ctx context.Context
	// Req is the request passed to CreateResponse.
	Req *chat.Request
}

// Client is a mock Responses API client. Each CreateResponse call consumes
// the next entry of Responses in order; calls beyond the scripted sequence
// return an error. Set Err to make every call fail instead.
//
// Client is safe for concurrent use.
type Client struct {
	mu sync.Mutex

	// Responses is the scripted sequence of replies, consumed in order.
	Responses []*chat.Response

	// Err, if non-nil, is returned by every CreateResponse call.
	Err error

	// Block, if non-nil, makes CreateResponse wait until the channel is
	// closed or the context is cancelled before answering. Useful for
	// cancellation tests.
	Block chan struct{}

	// Calls records every invocation in order. Read after the test.
	Calls []Call

	next int
}

// CallCount returns how many times CreateResponse has been invoked. Safe to
// call while a request is blocked in flight.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// CreateResponse implements the conversation loop's client interface.
func (c *Client) CreateResponse(ctx context.Context, req *chat.Request) (*chat.Response, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, Call{Ctx: ctx, Req: req})
	block := c.Block
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	if c.next >= len(c.Responses) {
		return nil, fmt.Errorf("mock: no scripted response for call %d", c.next+1)
	}
	resp := c.Responses[c.next]
	c.next++
	return resp, nil
}
