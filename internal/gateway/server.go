package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/resonance-go/internal/telemetry/logger"
)

// Server limits.
const (
	maxLineBytes       = 1 << 20
	DefaultMaxConns    = 32
	DefaultIdleTimeout = 5 * time.Minute
	requestTimeout     = 2 * time.Minute
)

// Server serves the gateway protocol on a Unix domain socket.
type Server struct {
	path        string
	handler     *Handler
	logger      logger.Logger
	idleTimeout time.Duration
	slots       chan struct{}

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMaxConnections bounds concurrently served connections.
func WithMaxConnections(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.slots = make(chan struct{}, n)
		}
	}
}

// WithIdleTimeout closes connections that send nothing for d.
func WithIdleTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a gateway server.
func NewServer(socketPath string, handler *Handler, opts ...ServerOption) *Server {
	s := &Server{
		path:        socketPath,
		handler:     handler,
		logger:      logger.Default(),
		idleTimeout: DefaultIdleTimeout,
		slots:       make(chan struct{}, DefaultMaxConns),
		conns:       make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the socket. A stale socket file left by a previous run is
// removed; a live one is an error.
func (s *Server) Listen() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}

	if _, err := os.Stat(s.path); err == nil {
		if conn, err := net.DialTimeout("unix", s.path, time.Second); err == nil {
			conn.Close()
			return fmt.Errorf("gateway already running at %s", s.path)
		}
		if err := os.Remove(s.path); err != nil {
			return fmt.Errorf("remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("restrict socket permissions: %w", err)
	}

	s.listener = ln
	s.running.Store(true)
	s.logger.Info("gateway listening", "socket", s.path)
	return nil
}

// ListenAndServe binds the socket and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Serve accepts connections on a bound socket until Shutdown.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("gateway: Serve called before Listen")
	}

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		select {
		case s.slots <- struct{}{}:
		default:
			s.logger.Warn("gateway connection limit reached, rejecting")
			s.reject(conn)
			continue
		}

		s.track(conn, true)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.slots }()
			defer s.track(conn, false)
			s.handleConnection(conn)
		}()
	}
}

// Shutdown stops accepting connections, unblocks idle readers and waits
// for in-flight requests and async publishes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var closeErr error
	if s.listener != nil {
		closeErr = s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.handler.Close(ctx); err != nil {
		return err
	}
	_ = os.Remove(s.path)
	return closeErr
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *Server) reject(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = json.NewEncoder(conn).Encode(Response{
		Error: &ErrorBody{Code: ErrInternal.Code, Message: "too many gateway connections"},
	})
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	enc := json.NewEncoder(conn)

	for {
		if s.idleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && s.running.Load() && !isTimeout(err) {
				s.logger.Debug("gateway connection read failed", "error", err)
			}
			return
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.serveLine(line)
		if err := enc.Encode(resp); err != nil {
			s.logger.Debug("gateway write failed", "error", err)
			return
		}
		if !s.running.Load() {
			return
		}
	}
}

func (s *Server) serveLine(line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{Error: errorBody(ErrBadRequest.WithDetails(err.Error()))}
	}
	if req.ID == "" {
		req.ID = ulid.Make().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	ctx = logger.WithRequestID(ctx, req.ID)
	ctx = logger.WithLogger(ctx, s.logger.With("method", req.Method))

	return s.handler.Handle(ctx, req)
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
