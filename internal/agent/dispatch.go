package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/voxtask/voxtask/internal/observe"
	"github.com/voxtask/voxtask/internal/tasks"
	"github.com/voxtask/voxtask/pkg/provider/chat"
)

// FunctionName is the closed set of operations the model may invoke. Adding
// an operation means adding a constant here, a schema in toolDefinitions and
// a case in Dispatch.
type FunctionName string

const (
	FuncCreateItem   FunctionName = "createItem"
	FuncGetAllItems  FunctionName = "getAllItems"
	FuncGetItem      FunctionName = "getItem"
	FuncDeleteItem   FunctionName = "deleteItem"
	FuncUpdateItem   FunctionName = "updateItem"
	FuncSetItemState FunctionName = "setItemState"
	FuncFinish       FunctionName = "finish"
)

// ErrUnknownFunction is returned by Dispatch for names outside the closed set.
var ErrUnknownFunction = errors.New("unknown function")

// toolDefinitions is the catalogue offered to the model. Names, field names
// and required lists are part of the remote contract.
var toolDefinitions = []chat.Tool{
	{
		Type: "function", Name: string(FuncCreateItem),
		Description: "Create a new task item with a title and an optional description.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"title": {"type": "string", "description": "Short task title."},
				"description": {"type": "string", "description": "Free-text detail."}
			},
			"required": ["title"]
		}`),
	},
	{
		Type: "function", Name: string(FuncGetAllItems),
		Description: "List all task items.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	},
	{
		Type: "function", Name: string(FuncGetItem),
		Description: "Fetch a single task item by its id.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Task id."}
			},
			"required": ["id"]
		}`),
	},
	{
		Type: "function", Name: string(FuncDeleteItem),
		Description: "Delete a task item by its id.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Task id."}
			},
			"required": ["id"]
		}`),
	},
	{
		Type: "function", Name: string(FuncUpdateItem),
		Description: "Replace the title and description of an existing task item.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Task id."},
				"title": {"type": "string", "description": "New task title."},
				"description": {"type": "string", "description": "New free-text detail."}
			},
			"required": ["id", "title", "description"]
		}`),
	},
	{
		Type: "function", Name: string(FuncSetItemState),
		Description: "Set the state of a task item to open or closed.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Task id."},
				"state": {"type": "string", "enum": ["open", "closed"], "description": "New state."}
			},
			"required": ["id", "state"]
		}`),
	},
	{
		Type: "function", Name: string(FuncFinish),
		Description: "End the current voice interaction once the user's request has been handled.",
		Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
	},
}

// Dispatcher routes model-requested function calls to the task store. It is
// stateless apart from its injected collaborators and safe for concurrent
// use, since a single turn fans calls out across goroutines.
type Dispatcher struct {
	store    tasks.Store
	onFinish func(ctx context.Context) error
	metrics  *observe.Metrics
}

// DispatcherOption is a functional option for configuring a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithFinishHandler registers fn to run when the model invokes the finish
// tool, e.g. to stop the recording session. Without a handler, finish only
// acknowledges.
func WithFinishHandler(fn func(ctx context.Context) error) DispatcherOption {
	return func(d *Dispatcher) { d.onFinish = fn }
}

// WithMetrics sets the metrics instance used for tool-call accounting.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// NewDispatcher constructs a Dispatcher over the given task store.
// The store is required.
func NewDispatcher(store tasks.Store, opts ...DispatcherOption) (*Dispatcher, error) {
	if store == nil {
		return nil, errors.New("agent: dispatcher requires a task store")
	}
	d := &Dispatcher{store: store}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d, nil
}

// Definitions returns the tool catalogue to offer the model.
func (d *Dispatcher) Definitions() []chat.Tool {
	return toolDefinitions
}

// Dispatch decodes args against the named function's schema, performs the
// operation, and returns the JSON-encoded result. Unknown names fail with
// [ErrUnknownFunction]; store failures propagate wrapped.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args string) (string, error) {
	start := time.Now()
	result, err := d.dispatch(ctx, name, args)

	status := "ok"
	if err != nil {
		status = "error"
	}
	d.metrics.ToolExecutionDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("tool", name)))
	d.metrics.RecordToolCall(ctx, name, status)

	return result, err
}

func (d *Dispatcher) dispatch(ctx context.Context, name string, args string) (string, error) {
	switch FunctionName(name) {
	case FuncCreateItem:
		var in struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		created, err := d.store.Create(ctx, tasks.Task{Title: in.Title, Description: in.Description, Status: tasks.StatusOpen})
		if err != nil {
			return "", err
		}
		return encodeResult(created)

	case FuncGetAllItems:
		items, err := d.store.List(ctx)
		if err != nil {
			return "", err
		}
		if items == nil {
			items = []tasks.Task{}
		}
		return encodeResult(struct {
			Items []tasks.Task `json:"items"`
		}{Items: items})

	case FuncGetItem:
		var in struct {
			ID string `json:"id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		task, err := d.store.Get(ctx, in.ID)
		if err != nil {
			return "", err
		}
		return encodeResult(task)

	case FuncDeleteItem:
		var in struct {
			ID string `json:"id"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		if err := d.store.Delete(ctx, in.ID); err != nil {
			return "", err
		}
		return encodeResult(struct {
			Deleted string `json:"deleted"`
		}{Deleted: in.ID})

	case FuncUpdateItem:
		var in struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		current, err := d.store.Get(ctx, in.ID)
		if err != nil {
			return "", err
		}
		current.Title = in.Title
		current.Description = in.Description
		if err := d.store.Update(ctx, current); err != nil {
			return "", err
		}
		return encodeResult(current)

	case FuncSetItemState:
		var in struct {
			ID    string `json:"id"`
			State string `json:"state"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		status := tasks.Status(in.State)
		if !status.IsValid() {
			return "", fmt.Errorf("agent: invalid state %q", in.State)
		}
		if err := d.store.SetStatus(ctx, in.ID, status); err != nil {
			return "", err
		}
		task, err := d.store.Get(ctx, in.ID)
		if err != nil {
			return "", err
		}
		return encodeResult(task)

	case FuncFinish:
		if d.onFinish != nil {
			if err := d.onFinish(ctx); err != nil {
				return "", err
			}
		}
		return encodeResult(struct {
			Finished bool `json:"finished"`
		}{Finished: true})
	}

	return "", fmt.Errorf("agent: %w: %q", ErrUnknownFunction, name)
}

// decodeArgs unmarshals the JSON argument payload strictly: unknown fields
// are an error so schema drift between model and dispatcher surfaces loudly.
func decodeArgs(args string, dst any) error {
	if args == "" {
		args = "{}"
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(args)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("agent: decode arguments: %w", err)
	}
	return nil
}

// encodeResult marshals a dispatch result back to JSON.
func encodeResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("agent: encode result: %w", err)
	}
	return string(data), nil
}
