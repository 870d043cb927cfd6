// Package rpc implements the line-delimited JSON-RPC 2.0 server editors use
// to request completions.
package rpc

import "encoding/json"

// Request represents a JSON-RPC request. Requests without an ID are
// notifications.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents a JSON-RPC error.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ServerInfo contains server identification.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientInfo contains client identification.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams contains client initialization parameters.
type InitializeParams struct {
	ClientInfo ClientInfo `json:"clientInfo"`
	RootPath   string     `json:"rootPath,omitempty"`
}

// InitializeResult contains server initialization response.
type InitializeResult struct {
	ServerInfo   ServerInfo   `json:"serverInfo"`
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities declares what the server supports.
type Capabilities struct {
	Completion bool `json:"completion"`
	// Concurrent means requests may be answered out of order.
	Concurrent bool `json:"concurrent"`
}

// CompleteParams contains parameters for a completion request.
type CompleteParams struct {
	File   string `json:"file"`
	Text   string `json:"text"`
	Offset int    `json:"offset"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
)
