package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danmuck/netstring/internal/channel"
	"github.com/danmuck/netstring/internal/logging"
	"github.com/danmuck/netstring/internal/transport"
	"github.com/rs/zerolog"
)

// Config defines one listener's per-connection channel behavior.
type Config struct {
	Name          string
	Channel       channel.Config
	InboxCapacity int
	Handler       Handler
}

func DefaultConfig() Config {
	return Config{
		Name:          "netstring-serve",
		Channel:       channel.DefaultConfig(),
		InboxCapacity: channel.DefaultInboxCapacity,
		Handler:       EchoHandler,
	}
}

// Service accepts stream connections and runs one Channel per connection.
type Service struct {
	cfg Config
	log zerolog.Logger

	connsMu sync.Mutex
	conns   map[net.Conn]struct{}
	closed  bool
	active  atomic.Int64
	seq     atomic.Uint64
	wg      sync.WaitGroup
}

func NewService(cfg Config) *Service {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = DefaultConfig().Name
	}
	if cfg.Handler == nil {
		cfg.Handler = EchoHandler
	}
	if cfg.InboxCapacity < 0 {
		cfg.InboxCapacity = 0
	}
	return &Service{
		cfg:   cfg,
		log:   logging.Component("server").With().Str("service", cfg.Name).Logger(),
		conns: make(map[net.Conn]struct{}),
	}
}

// Serve runs the accept loop until ctx is cancelled or ln fails. Open
// connections are closed on cancellation and Serve waits for their channels.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	defer s.wg.Wait()
	defer ln.Close()
	go func() {
		<-ctx.Done()
		s.closeAllConns()
		_ = ln.Close()
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.closeAllConns()
			return fmt.Errorf("accept: %w", err)
		}
		if !s.trackConn(conn) {
			_ = conn.Close()
			return nil
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// ActiveConns reports connections currently being served.
func (s *Service) ActiveConns() int {
	return int(s.active.Load())
}

func (s *Service) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	defer s.untrackConn(conn)

	connID := strconv.FormatUint(s.seq.Add(1), 10)
	log := s.log.With().Str("remote", conn.RemoteAddr().String()).Str("conn", connID).Logger()
	active := s.active.Add(1)
	log.Info().Int64("active_conns", active).Msg("client connected")
	defer func() {
		remaining := s.active.Add(-1)
		log.Info().Int64("active_conns", remaining).Msg("client disconnected")
	}()

	tc := transport.NewConn(conn)
	inbox := channel.NewInbox(s.cfg.InboxCapacity)
	cfg := s.cfg.Channel
	cfg.Name = s.cfg.Name
	cfg.Conn = connID
	ch := channel.Open(tc, inbox, cfg)

	if err := s.respond(ch, inbox); err != nil {
		log.Warn().Err(err).Msg("stopped responding")
		inbox.Discard()
	}
	if err := ch.Close(); err != nil {
		log.Debug().Err(err).Msg("channel already released")
	}
	ch.Wait()
	if err := ch.Err(); err != nil {
		log.Warn().Err(err).Msg("channel write failure")
	}
}

// respond feeds inbound messages to the handler until the peer stops sending.
// Replies are flushed whenever the inbox has nothing buffered.
func (s *Service) respond(ch *channel.Channel, inbox *channel.Inbox) error {
	pending := false
	for msg := range inbox.Messages() {
		reply, ok := s.cfg.Handler(msg)
		if ok {
			if err := ch.Send(reply); err != nil {
				return err
			}
			pending = true
		}
		if pending && len(inbox.Messages()) == 0 {
			if err := ch.Flush(); err != nil {
				return err
			}
			pending = false
		}
	}
	if pending {
		return ch.Flush()
	}
	return nil
}

// trackConn refuses connections accepted after shutdown began.
func (s *Service) trackConn(conn net.Conn) bool {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Service) untrackConn(conn net.Conn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	delete(s.conns, conn)
}

// closeAllConns unblocks every reader pump; each handler then drains and exits.
func (s *Service) closeAllConns() {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
		delete(s.conns, conn)
	}
}
