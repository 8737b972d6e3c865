package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/LanguageMachines/timblserver/internal/config"
)

var ErrImproperConversion = errors.New("worker task was not a net.Conn")

// ConnArgs bundles everything a ConnectionHandler needs to service one
// accepted connection.
type ConnArgs struct {
	Conn    net.Conn
	Session uint64
	R       *bufio.Reader
	W       *bufio.Writer
	Log     *zerolog.Logger
	Debug   bool
	Bases   *config.BaseMap
}

// ConnectionHandler is the capability-set abstraction spec.md §9 asks
// for in place of interface inheritance: one method, implemented once
// per wire protocol (text, httpx, jsonrpc), with no shared base type.
type ConnectionHandler interface {
	OnConnection(ctx context.Context, args *ConnArgs)
}

// Server holds the process-wide state: configuration, the shared
// read-only BaseMap, and the protocol handler selected by cfg.Protocol.
// Mirrors the teacher's net.Server shape (address/port/worker pool/
// cancel), generalized to dispatch through ConnectionHandler instead of
// a fixed order-message loop.
type Server struct {
	cfg     config.Configuration
	bases   *config.BaseMap
	handler ConnectionHandler
	pool    WorkerPool
	cancel  context.CancelFunc
	nextID  atomic.Uint64
}

// New constructs a Server ready for Run. handler is the protocol
// implementation selected by cfg.Protocol at the launcher layer.
func New(cfg config.Configuration, bases *config.BaseMap, handler ConnectionHandler) *Server {
	return &Server{
		cfg:     cfg,
		bases:   bases,
		handler: handler,
		pool:    NewWorkerPool(cfg.MaxConn),
	}
}

// Shutdown cancels the server's context, unwinding the accept loop and
// the worker pool.
func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run starts the listener and blocks until ctx is canceled or the
// listener fails. Grounded on the teacher's internal/net/server.go Run:
// same tomb-supervised worker pool plus accept loop shape, generalized
// to hand each accepted connection to a ConnectionHandler instead of a
// fixed message parser.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", s.cfg.Port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return err
	}
	// Closing the listener once ctx is done unblocks a pending Accept, so
	// cancellation ends the accept loop without waiting for a new client.
	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	log.Info().Str("port", s.cfg.Port).Str("protocol", s.cfg.Protocol).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client connected")
			s.pool.AddTask(conn)
		}
	}
}

// handleConnection adapts one accepted net.Conn into a ConnArgs and
// dispatches it to the configured ConnectionHandler. Only a misrouted
// task type is fatal to the pool, matching the teacher's own
// ErrImproperConversion handling.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Debug().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error closing connection")
		}
	}()

	id := s.nextID.Add(1)
	sessionLog := log.With().Uint64("session", id).Logger()

	args := &ConnArgs{
		Conn:    conn,
		Session: id,
		R:       bufio.NewReader(conn),
		W:       bufio.NewWriter(conn),
		Log:     &sessionLog,
		Debug:   s.cfg.Debug,
		Bases:   s.bases,
	}

	s.handler.OnConnection(t.Context(nil), args)
	return nil
}
