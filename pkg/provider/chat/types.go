// Package chat provides a minimal client for an OpenAI Responses-style
// tool-calling API.
//
// The wire contract is the subset voxtask depends on: a request carries a
// model name, an ordered input list (instructions / user text / tool
// outputs), the tool catalogue, and an optional previous-response identifier
// that threads conversational state server-side; a response carries an
// identifier, a status, and an output list mixing assistant messages with
// requested function calls.
package chat

import "encoding/json"

// Input item and output item type discriminators.
const (
	ItemMessage            = "message"
	ItemFunctionCall       = "function_call"
	ItemFunctionCallOutput = "function_call_output"
)

// Roles used in message input items.
const (
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a Responses API request body.
type Request struct {
	Model string `json:"model"`

	// Input is the ordered list of items for this turn: instructions and
	// user text as messages, plus function_call_output items answering the
	// previous response's function calls.
	Input []InputItem `json:"input"`

	// Tools is the function catalogue offered to the model.
	Tools []Tool `json:"tools,omitempty"`

	// PreviousResponseID threads conversational context across calls without
	// resending history. Empty means a fresh conversation.
	PreviousResponseID string `json:"previous_response_id,omitempty"`
}

// InputItem is one entry of a request's input list. Type selects which of the
// remaining fields are meaningful: "message" uses Role and Content,
// "function_call_output" uses CallID and Output.
type InputItem struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	// CallID correlates a function_call_output with the function_call that
	// requested it.
	CallID string `json:"call_id,omitempty"`
	Output string `json:"output,omitempty"`
}

// Message returns a message input item with the given role and text.
func Message(role, content string) InputItem {
	return InputItem{Type: ItemMessage, Role: role, Content: content}
}

// FunctionOutput returns a function_call_output input item answering the
// function call identified by callID.
func FunctionOutput(callID, output string) InputItem {
	return InputItem{Type: ItemFunctionCallOutput, CallID: callID, Output: output}
}

// Tool describes one callable function offered to the model. Parameters is a
// JSON Schema object describing the function's arguments.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Response is a Responses API response body.
type Response struct {
	ID                 string       `json:"id"`
	Status             string       `json:"status"`
	Output             []OutputItem `json:"output"`
	PreviousResponseID string       `json:"previous_response_id,omitempty"`
}

// OutputItem is one entry of a response's output list. Type "message" carries
// Role and Content segments; type "function_call" carries ID, CallID, Name,
// and the JSON-encoded Arguments.
type OutputItem struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`

	// message fields
	Role    string          `json:"role,omitempty"`
	Content []OutputContent `json:"content,omitempty"`

	// function_call fields
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// OutputContent is one text segment of an assistant message.
type OutputContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// FunctionCalls returns the function_call entries of the response's output
// list, in order.
func (r *Response) FunctionCalls() []OutputItem {
	var calls []OutputItem
	for _, item := range r.Output {
		if item.Type == ItemFunctionCall {
			calls = append(calls, item)
		}
	}
	return calls
}

// AssistantText returns the concatenated text segments, in order and with no
// separator, of the first assistant message in the output list. It returns
// "" when the response contains no assistant message — that is a valid
// model answer, not an error.
func (r *Response) AssistantText() string {
	for _, item := range r.Output {
		if item.Type != ItemMessage || item.Role != RoleAssistant {
			continue
		}
		var text string
		for _, seg := range item.Content {
			text += seg.Text
		}
		return text
	}
	return ""
}
