package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/spacecore/spacecore/internal/logger"
	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/eventbus"
	"github.com/spacecore/spacecore/pkg/registry"
)

// eventSubscribeBuffer bounds how many events a subscribed connection can
// fall behind by before the bus starts dropping for it.
const eventSubscribeBuffer = 64

// Server listens on a Unix domain socket and dispatches each line-delimited
// request it receives into a registry.Registry. One Server serves every
// connection for the life of the daemon process.
type Server struct {
	socketPath string
	registry   *registry.Registry
	rc         *registry.RequestContext
	bus        *eventbus.Bus

	listener net.Listener

	activeConns sync.WaitGroup
	shutdown    chan struct{}
	shutdownCtx context.Context
	cancelConns context.CancelFunc
	shutdownOne sync.Once
}

// NewServer constructs a Server. rc is shared across every connection and
// every dispatched call; it must already be fully assembled (every
// subsystem singleton wired in) before Serve is called.
func NewServer(socketPath string, reg *registry.Registry, rc *registry.RequestContext, bus *eventbus.Bus) *Server {
	shutdownCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath:  socketPath,
		registry:    reg,
		rc:          rc,
		bus:         bus,
		shutdown:    make(chan struct{}),
		shutdownCtx: shutdownCtx,
		cancelConns: cancel,
	}
}

// Serve binds the socket and accepts connections until ctx is canceled or
// Stop is called. A stale socket file from an unclean previous shutdown is
// removed before binding.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	logger.Info("daemon listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		s.initiateShutdown()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("accept error", "error", err)
				continue
			}
		}

		s.activeConns.Add(1)
		go func() {
			defer s.activeConns.Done()
			defer conn.Close()
			s.handleConn(s.shutdownCtx, conn)
		}()
	}
}

func (s *Server) initiateShutdown() {
	s.shutdownOne.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.cancelConns()
	})
}

func (s *Server) gracefulShutdown() error {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("daemon shutdown timed out waiting for connections to drain")
	}
	_ = os.Remove(s.socketPath)
	logger.Info("daemon stopped")
	return nil
}

// Stop initiates graceful shutdown and blocks until it completes or ctx is
// canceled, whichever comes first.
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(Response{Error: toWireError(errors.InvalidArgument("malformed request line"))})
			continue
		}

		if req.Method == subscribeMethod {
			s.streamEvents(ctx, conn, enc, req)
			return
		}

		result, err := s.dispatch(ctx, req)
		if err != nil {
			_ = enc.Encode(Response{ID: req.ID, Error: toWireError(err)})
			continue
		}
		raw, err := json.Marshal(result)
		if err != nil {
			_ = enc.Encode(Response{ID: req.ID, Error: toWireError(errors.Internal("failed to encode response: " + err.Error()))})
			continue
		}
		_ = enc.Encode(Response{ID: req.ID, Result: raw})
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) (any, error) {
	rc := *s.rc
	rc.LibraryID = req.LibraryID
	return s.registry.Dispatch(ctx, &rc, req.Method, req.Params)
}

// streamEvents switches the connection from request/response mode into a
// one-way event stream: it acknowledges the subscription, then forwards
// every bus event as a line until the connection or context closes.
func (s *Server) streamEvents(ctx context.Context, conn net.Conn, enc *json.Encoder, req Request) {
	_ = enc.Encode(Response{ID: req.ID, Result: json.RawMessage(`{"subscribed":true}`)})

	sub := s.bus.Subscribe(eventSubscribeBuffer, nil)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := enc.Encode(EventLine{Event: raw}); err != nil {
				return
			}
		}
	}
}
