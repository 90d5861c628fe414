// Package mcpserver exposes the engine's operations over the Model
// Context Protocol: a JSON-RPC 2.0 message loop on stdin/stdout. All
// semantics live in pkg/engine; this package is transport only.
package mcpserver

import "encoding/json"

// Message is a JSON-RPC 2.0 message (request, response or
// notification).
type Message struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

// Standard JSON-RPC error codes.
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

func resultMessage(id any, result any) *Message {
	return &Message{Jsonrpc: "2.0", ID: id, Result: result}
}

func errorMessage(id any, code int, message string) *Message {
	return &Message{Jsonrpc: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
}

// isNotification reports whether the message expects no response.
func (m *Message) isNotification() bool {
	return m.Method != "" && m.ID == nil
}

// Tool describes one callable tool for tools/list.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

// toolResult is the MCP tools/call payload.
type toolResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textResult(text string) *toolResult {
	return &toolResult{Content: []toolContent{{Type: "text", Text: text}}}
}

func errorResult(text string) *toolResult {
	return &toolResult{Content: []toolContent{{Type: "text", Text: text}}, IsError: true}
}
