// Package stream implements the broadcast server for pair browsing: it fans
// captured frames out to every connected viewer over WebSocket and routes
// viewer input back into the page through the debug session.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/entrhq/surf/pkg/cdp"
	"github.com/entrhq/surf/pkg/logging"
)

// ErrAlreadyRunning is returned by Start when the server is not stopped.
var ErrAlreadyRunning = errors.New("stream server already running")

// Driver is the capture and input surface the server drives. The debug
// session manager implements it.
type Driver interface {
	StartCapture(onFrame func(cdp.Frame), opts cdp.CaptureOptions) error
	StopCapture() error
	InjectMouse(in cdp.MouseInput) error
	InjectKeyboard(in cdp.KeyboardInput) error
	InjectTouch(in cdp.TouchInput) error
}

// Options configures the broadcast server.
type Options struct {
	// Addr is the listen address (default 127.0.0.1:8787)
	Addr string

	// Capture configures the screencast started for viewers
	Capture cdp.CaptureOptions

	// SendBuffer is the per-client outbound buffer in messages; a client
	// whose buffer is full misses frames instead of queueing a backlog
	// (default 16)
	SendBuffer int
}

// Default server settings
const (
	DefaultAddr       = "127.0.0.1:8787"
	DefaultSendBuffer = 16
)

type serverState int

const (
	stateStopped serverState = iota
	stateStarting
	stateRunning
	stateStopping
)

// Server owns the set of connected viewers and the streaming on/off state.
// Streaming is true iff a capture is active; the server is the single
// source of truth for that state and broadcasts it on every transition.
type Server struct {
	mu         sync.Mutex
	driver     Driver
	opts       Options
	logger     *logging.Logger
	upgrader   websocket.Upgrader
	state      serverState
	streaming  bool
	clients    map[*client]struct{}
	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a stopped broadcast server driving capture and input
// through driver.
func NewServer(driver Driver, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.SendBuffer == 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	logger, _ := logging.NewLogger("stream")

	return &Server{
		driver:  driver,
		opts:    opts,
		logger:  logger,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Start opens the listening socket and begins capturing. It fails if the
// server is not stopped; a capture failure aborts startup and returns the
// server to the stopped state.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.state != stateStopped {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.state = stateStarting
	s.mu.Unlock()

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		s.setState(stateStopped)
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}

	router := chi.NewRouter()
	router.Get("/stream", s.handleStream)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	httpServer := &http.Server{Handler: router}

	s.mu.Lock()
	s.listener = listener
	s.httpServer = httpServer
	s.mu.Unlock()

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("serve failed: %v", err)
		}
	}()

	if err := s.startCapture(); err != nil {
		_ = httpServer.Close()
		s.mu.Lock()
		s.listener = nil
		s.httpServer = nil
		s.state = stateStopped
		s.mu.Unlock()
		return err
	}

	s.setState(stateRunning)
	s.logger.Infof("stream server listening on %s", listener.Addr())
	return nil
}

// Stop is idempotent: it stops the capture if one is active, closes every
// connected client, closes the listening socket and clears the client set.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state != stateRunning && s.state != stateStarting {
		s.mu.Unlock()
		return nil
	}
	s.state = stateStopping
	streaming := s.streaming
	s.streaming = false
	clients := s.clients
	s.clients = make(map[*client]struct{})
	httpServer := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if streaming {
		_ = s.driver.StopCapture() // ignore errors, keep tearing down
	}
	for c := range clients {
		c.close()
	}
	if httpServer != nil {
		_ = httpServer.Close()
	}

	s.setState(stateStopped)
	s.logger.Infof("stream server stopped")
	return nil
}

// Addr returns the bound listen address, nil when not running. Useful when
// the configured address uses port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Streaming reports whether a capture is currently feeding viewers.
func (s *Server) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// ClientCount returns the number of connected viewers.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) setState(st serverState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// startCapture begins the screencast feeding broadcastFrame.
func (s *Server) startCapture() error {
	if err := s.driver.StartCapture(s.broadcastFrame, s.opts.Capture); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	s.mu.Lock()
	s.streaming = true
	s.mu.Unlock()
	return nil
}

// handleStream upgrades a viewer connection and serves it until it drops.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	c := newClient(conn, s.opts.SendBuffer)

	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	resume := !s.streaming
	s.mu.Unlock()

	s.logger.Infof("client %s connected from %s", c.id, r.RemoteAddr)

	// A viewer arriving after an auto-stop brings the capture back.
	if resume {
		if err := s.startCapture(); err != nil {
			s.logger.Errorf("failed to resume capture: %v", err)
		}
	}

	go c.writePump()
	s.broadcastState()
	s.readPump(c)
}

// readPump consumes messages from one client until the connection drops.
func (s *Server) readPump(c *client) {
	defer s.removeClient(c)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleMessage(c, data)
	}
}

// handleMessage validates and dispatches one inbound client message.
// Protocol errors are isolated: the offending client gets an error message
// and stays connected; no other client or server state is affected.
func (s *Server) handleMessage(c *client, data []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.trySend(ErrorMessage{Type: MessageError, Error: "invalid JSON"})
		return
	}

	switch envelope.Type {
	case MessageInputMouse:
		var in cdp.MouseInput
		if err := json.Unmarshal(data, &in); err != nil {
			c.trySend(ErrorMessage{Type: MessageError, Error: "malformed mouse input"})
			return
		}
		if err := s.driver.InjectMouse(in); err != nil {
			c.trySend(ErrorMessage{Type: MessageError, Error: fmt.Sprintf("mouse input failed: %v", err)})
		}

	case MessageInputKeyboard:
		var in cdp.KeyboardInput
		if err := json.Unmarshal(data, &in); err != nil {
			c.trySend(ErrorMessage{Type: MessageError, Error: "malformed keyboard input"})
			return
		}
		if err := s.driver.InjectKeyboard(in); err != nil {
			c.trySend(ErrorMessage{Type: MessageError, Error: fmt.Sprintf("keyboard input failed: %v", err)})
		}

	case MessageInputTouch:
		var in cdp.TouchInput
		if err := json.Unmarshal(data, &in); err != nil {
			c.trySend(ErrorMessage{Type: MessageError, Error: "malformed touch input"})
			return
		}
		if err := s.driver.InjectTouch(in); err != nil {
			c.trySend(ErrorMessage{Type: MessageError, Error: fmt.Sprintf("touch input failed: %v", err)})
		}

	default:
		c.trySend(ErrorMessage{Type: MessageError, Error: fmt.Sprintf("unknown message type %q", envelope.Type)})
	}
}

// removeClient drops a client from the set. When the last viewer leaves
// while streaming, the capture stops but the listening socket stays open;
// the next connection resumes it.
func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, c)
	autoStop := len(s.clients) == 0 && s.streaming && s.state == stateRunning
	if autoStop {
		s.streaming = false
	}
	s.mu.Unlock()

	c.close()

	if autoStop {
		if err := s.driver.StopCapture(); err != nil {
			s.logger.Warnf("failed to stop capture: %v", err)
		}
		s.logger.Infof("last client left, capture stopped")
	}

	s.logger.Infof("client %s disconnected", c.id)
	s.broadcastState()
}

// broadcastState sends the current shared state to every connected client.
func (s *Server) broadcastState() {
	s.mu.Lock()
	msg := StateMessage{
		Type:      MessageState,
		Connected: true,
		Streaming: s.streaming,
		Clients:   len(s.clients),
	}
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.trySend(msg)
	}
}

// broadcastFrame fans one captured frame out to every connected client.
// Delivery is best effort: a client that is not currently writable skips
// this frame rather than queueing a backlog.
func (s *Server) broadcastFrame(frame cdp.Frame) {
	msg := FrameMessage{
		Type:     MessageFrame,
		Data:     frame.Data,
		Metadata: frame.Metadata,
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if !c.trySend(msg) {
			s.logger.Debugf("client %s not writable, frame skipped", c.id)
		}
	}
}
