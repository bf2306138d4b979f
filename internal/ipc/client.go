package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/treetile/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket path.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for an explicit socket path.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	return conn, nil
}

func writeRequest(conn net.Conn, command CommandType, payload any) error {
	req := Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}

	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func readResponse(reader *bufio.Reader) (*Response, error) {
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// call sends one request and decodes the response data into out when out
// is non-nil.
func (c *Client) call(command CommandType, payload any, out any) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := writeRequest(conn, command, payload); err != nil {
		return err
	}
	resp, err := readResponse(bufio.NewReader(conn))
	if err != nil {
		return err
	}

	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetTree retrieves a snapshot of the container tree.
func (c *Client) GetTree() (*TreeData, error) {
	var data TreeData
	if err := c.call(CommandGetTree, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// FocusCycle focuses the next or previous window ("next" or "prev").
func (c *Client) FocusCycle(direction string) (*WindowData, error) {
	var data *WindowData
	if err := c.call(CommandFocusCycle, FocusCyclePayload{Direction: direction}, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// SetState transitions a window. handle 0 targets the focused window.
func (c *Client) SetState(handle uint32, state string) (*WindowData, error) {
	var data *WindowData
	payload := SetStatePayload{WindowTarget: WindowTarget{Handle: handle}, State: state}
	if err := c.call(CommandSetState, payload, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// ResizeBorders adds to a window's border delta.
func (c *Client) ResizeBorders(handle uint32, left, top, right, bottom int) error {
	payload := ResizeBordersPayload{
		WindowTarget: WindowTarget{Handle: handle},
		Left:         left,
		Top:          top,
		Right:        right,
		Bottom:       bottom,
	}
	return c.call(CommandResizeBorders, payload, nil)
}

// Split changes the tiling direction at a window.
func (c *Client) Split(handle uint32, orientation string) error {
	return c.call(CommandSplit, SplitPayload{WindowTarget: WindowTarget{Handle: handle}, Orientation: orientation}, nil)
}

// Resize grows (or with a negative delta shrinks) a tiling window's share.
func (c *Client) Resize(handle uint32, delta float64) error {
	return c.call(CommandResize, ResizePayload{WindowTarget: WindowTarget{Handle: handle}, Delta: delta}, nil)
}

// Move reorders a window among its siblings.
func (c *Client) Move(handle uint32, direction string) error {
	return c.call(CommandMove, MovePayload{WindowTarget: WindowTarget{Handle: handle}, Direction: direction}, nil)
}

// Subscribe streams published events to fn until ctx is cancelled, fn
// returns an error, or the daemon closes the connection.
func (c *Client) Subscribe(ctx context.Context, fn func(EventData) error) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if err := writeRequest(conn, CommandSubscribe, nil); err != nil {
		return err
	}
	reader := bufio.NewReader(conn)
	if _, err := readResponse(reader); err != nil {
		return err
	}
	conn.SetDeadline(time.Time{})

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("event stream closed: %w", err)
		}
		var evt EventData
		if err := json.Unmarshal(line, &evt); err != nil {
			return fmt.Errorf("failed to parse event: %w", err)
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
