package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/treetile/internal/container"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandGetTree       CommandType = "GET_TREE"
	CommandFocusCycle    CommandType = "FOCUS_CYCLE"
	CommandSetState      CommandType = "SET_STATE"
	CommandResizeBorders CommandType = "RESIZE_BORDERS"
	CommandSplit         CommandType = "SPLIT"
	CommandResize        CommandType = "RESIZE"
	CommandMove          CommandType = "MOVE"
	CommandSubscribe     CommandType = "SUBSCRIBE"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	UptimeSeconds    int64  `json:"uptime_seconds"`
	DaemonRunning    bool   `json:"daemon_running"`
	Monitors         int    `json:"monitors"`
	Workspaces       int    `json:"workspaces"`
	Windows          int    `json:"windows"`
	FocusedWorkspace string `json:"focused_workspace,omitempty"`
	FocusedWindow    uint32 `json:"focused_window,omitempty"`
}

// TreeData represents the data returned by GET_TREE
type TreeData struct {
	Monitors []container.Node `json:"monitors"`
}

// WindowTarget names the window a command acts on. Zero means the focused
// window.
type WindowTarget struct {
	Handle uint32 `json:"handle,omitempty"`
}

type FocusCyclePayload struct {
	Direction string `json:"direction"`
}

type SetStatePayload struct {
	WindowTarget
	State string `json:"state"`
}

type ResizeBordersPayload struct {
	WindowTarget
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

type SplitPayload struct {
	WindowTarget
	Orientation string `json:"orientation"`
}

type ResizePayload struct {
	WindowTarget
	Delta float64 `json:"delta"`
}

type MovePayload struct {
	WindowTarget
	Direction string `json:"direction"`
}

// WindowData identifies the window a command ended on.
type WindowData struct {
	Handle uint32 `json:"handle"`
	State  string `json:"state"`
}

// EventData is one line of a SUBSCRIBE stream.
type EventData struct {
	Name  string          `json:"name"`
	Event json.RawMessage `json:"event,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data any) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
