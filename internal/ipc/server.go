package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/geom"
	"github.com/1broseidon/treetile/internal/tiling"
	"github.com/1broseidon/treetile/internal/wm"
)

// subscribeBuffer is how many events a slow SUBSCRIBE client may fall
// behind before events are dropped for it.
const subscribeBuffer = 256

const requestTimeout = 5 * time.Second

// ServerOptions configures a Server.
type ServerOptions struct {
	SocketPath string
	Logger     *slog.Logger
}

// Server handles IPC requests from clients. Every tree read and command runs
// inside one bus step.
type Server struct {
	socketPath   string
	listener     net.Listener
	bus          *bus.Bus
	tree         *container.Tree
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
	conns        sync.WaitGroup
	done         chan struct{}
}

// NewServer creates a new IPC server
func NewServer(b *bus.Bus, tree *container.Tree, opts ServerOptions) (*Server, error) {
	if opts.SocketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Remove existing socket if present
	os.Remove(opts.SocketPath)

	return &Server{
		socketPath: opts.SocketPath,
		bus:        b,
		tree:       tree,
		logger:     logger,
		startTime:  time.Now(),
		done:       make(chan struct{}),
	}, nil
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("ipc server listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShuttingDown() {
				return
			}
			s.logger.Warn("ipc accept failed", "error", err)
			continue
		}

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

func (s *Server) isShuttingDown() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	conn.SetReadDeadline(time.Now().Add(requestTimeout))
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Debug("ipc read failed", "error", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	req, err := ParseRequest(data)
	if err != nil {
		s.send(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		return
	}

	if req.Command == CommandSubscribe {
		s.stream(conn, reader)
		return
	}

	s.send(conn, s.handleCommand(req))
}

func (s *Server) send(conn net.Conn, resp *Response) bool {
	data, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("ipc marshal failed", "error", err)
		return false
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug("ipc write failed", "error", err)
		return false
	}
	return true
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetTree:
		return s.handleGetTree()
	case CommandFocusCycle:
		return s.handleFocusCycle(req.Payload)
	case CommandSetState:
		return s.handleSetState(req.Payload)
	case CommandResizeBorders:
		return s.handleResizeBorders(req.Payload)
	case CommandSplit:
		return s.handleSplit(req.Payload)
	case CommandResize:
		return s.handleResize(req.Payload)
	case CommandMove:
		return s.handleMove(req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	}
	_ = s.bus.Exclusive(func(bus.Dispatcher) error {
		status.Monitors = len(s.tree.Monitors())
		status.Workspaces = len(s.tree.Workspaces())
		status.Windows = len(s.tree.Windows())
		if ws := s.tree.FocusedWorkspace(); ws != nil {
			status.FocusedWorkspace = ws.Name
		}
		if w := s.tree.FocusedWindow(); w != nil {
			status.FocusedWindow = uint32(w.Handle())
		}
		return nil
	})
	return ok(status)
}

func (s *Server) handleGetTree() *Response {
	var data TreeData
	_ = s.bus.Exclusive(func(bus.Dispatcher) error {
		data.Monitors = s.tree.Snapshot()
		return nil
	})
	return ok(data)
}

func (s *Server) handleFocusCycle(payload json.RawMessage) *Response {
	var req FocusCyclePayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(err.Error())
	}
	dir, err := wm.ParseDirection(req.Direction)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	resp, err := s.bus.Invoke(wm.FocusCycle{Direction: dir})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to cycle focus: %v", err))
	}
	w, _ := resp.Data.(container.Window)
	return ok(windowData(w))
}

func (s *Server) handleSetState(payload json.RawMessage) *Response {
	var req SetStatePayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(err.Error())
	}
	state, err := container.ParseState(req.State)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	var result container.Window
	err = s.onWindow(req.WindowTarget, func(d bus.Dispatcher, w container.Window) error {
		resp, err := d.Invoke(wm.SetWindowState{Window: w, State: state})
		if err != nil {
			return err
		}
		result, _ = resp.Data.(container.Window)
		return nil
	})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to set state: %v", err))
	}
	return ok(windowData(result))
}

func (s *Server) handleResizeBorders(payload json.RawMessage) *Response {
	var req ResizeBordersPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(err.Error())
	}
	delta := geom.RectDelta{DeltaLeft: req.Left, DeltaTop: req.Top, DeltaRight: req.Right, DeltaBottom: req.Bottom}

	var result container.Window
	err := s.onWindow(req.WindowTarget, func(d bus.Dispatcher, w container.Window) error {
		result = w
		_, err := d.Invoke(wm.ResizeWindowBorders{Window: w, Delta: delta})
		return err
	})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to resize borders: %v", err))
	}
	return ok(windowData(result))
}

func (s *Server) handleSplit(payload json.RawMessage) *Response {
	var req SplitPayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(err.Error())
	}
	orientation, err := tiling.ParseOrientation(req.Orientation)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	var result container.Window
	err = s.onWindow(req.WindowTarget, func(d bus.Dispatcher, w container.Window) error {
		result = w
		_, err := d.Invoke(wm.ChangeTilingDirection{Window: w, Orientation: orientation})
		return err
	})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to split: %v", err))
	}
	return ok(windowData(result))
}

func (s *Server) handleResize(payload json.RawMessage) *Response {
	var req ResizePayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(err.Error())
	}

	var result container.Window
	err := s.onWindow(req.WindowTarget, func(d bus.Dispatcher, w container.Window) error {
		result = w
		_, err := d.Invoke(wm.ResizeWindow{Window: w, Delta: req.Delta})
		return err
	})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to resize: %v", err))
	}
	return ok(windowData(result))
}

func (s *Server) handleMove(payload json.RawMessage) *Response {
	var req MovePayload
	if err := decodePayload(payload, &req); err != nil {
		return NewErrorResponse(err.Error())
	}
	dir, err := wm.ParseDirection(req.Direction)
	if err != nil {
		return NewErrorResponse(err.Error())
	}

	var result container.Window
	err = s.onWindow(req.WindowTarget, func(d bus.Dispatcher, w container.Window) error {
		result = w
		_, err := d.Invoke(wm.MoveWindow{Window: w, Direction: dir})
		return err
	})
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to move: %v", err))
	}
	return ok(windowData(result))
}

// onWindow resolves target and runs fn in the same bus step, so the window
// cannot be replaced in between.
func (s *Server) onWindow(target WindowTarget, fn func(bus.Dispatcher, container.Window) error) error {
	return s.bus.Exclusive(func(d bus.Dispatcher) error {
		w, err := s.resolve(target)
		if err != nil {
			return err
		}
		return fn(d, w)
	})
}

func (s *Server) resolve(target WindowTarget) (container.Window, error) {
	if target.Handle == 0 {
		w := s.tree.FocusedWindow()
		if w == nil {
			return nil, errors.New("no focused window")
		}
		return w, nil
	}
	w, found := s.tree.WindowByHandle(container.Handle(target.Handle))
	if !found {
		return nil, fmt.Errorf("window %d is not managed", target.Handle)
	}
	return w, nil
}

// stream acknowledges a SUBSCRIBE request, then writes one EventData line per
// published event until the client hangs up or the server stops.
func (s *Server) stream(conn net.Conn, reader *bufio.Reader) {
	events, cancel := s.bus.Subscribe(subscribeBuffer)
	defer cancel()

	if !s.send(conn, ok(nil)) {
		return
	}

	// Any read result means the client is gone.
	hangup := make(chan struct{})
	go func() {
		defer close(hangup)
		_, _ = io.Copy(io.Discard, reader)
	}()

	for {
		select {
		case <-hangup:
			return
		case <-s.done:
			return
		case evt, open := <-events:
			if !open {
				return
			}
			line, err := encodeEvent(evt)
			if err != nil {
				s.logger.Debug("ipc encode event failed", "event", evt.Name(), "error", err)
				continue
			}
			if _, err := conn.Write(line); err != nil {
				return
			}
		}
	}
}

func encodeEvent(evt bus.Event) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	line, err := json.Marshal(EventData{Name: evt.Name(), Event: payload})
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

func decodePayload(payload json.RawMessage, out any) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func windowData(w container.Window) *WindowData {
	if w == nil {
		return nil
	}
	return &WindowData{Handle: uint32(w.Handle()), State: w.State().String()}
}

func ok(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
	s.conns.Wait()
}
