package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/danmuck/netstring/internal/channel"
	"github.com/danmuck/netstring/internal/logging"
	"github.com/danmuck/netstring/internal/transport"
	"github.com/rs/zerolog"
)

var ErrNoReply = errors.New("client: connection closed before reply")

// Config defines dial target and channel settings for one session.
type Config struct {
	Name    string
	Network string
	Addr    string
	// Timeout bounds the dial. Zero means no bound beyond ctx.
	Timeout       time.Duration
	Channel       channel.Config
	InboxCapacity int
}

func DefaultConfig() Config {
	return Config{
		Name:          "netstring-send",
		Network:       "tcp",
		Addr:          "127.0.0.1:7400",
		Timeout:       5 * time.Second,
		Channel:       channel.DefaultConfig(),
		InboxCapacity: channel.DefaultInboxCapacity,
	}
}

// Session is a dialed connection wrapped in a running Channel.
type Session struct {
	conn  net.Conn
	ch    *channel.Channel
	inbox *channel.Inbox
	log   zerolog.Logger
}

func Dial(ctx context.Context, cfg Config) (*Session, error) {
	network := strings.TrimSpace(cfg.Network)
	if network == "" {
		network = "tcp"
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("client dial: missing addr")
	}

	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("client dial %s %s: %w", network, addr, err)
	}

	chCfg := cfg.Channel
	if strings.TrimSpace(chCfg.Name) == "" || chCfg.Name == channel.DefaultName {
		chCfg.Name = cfg.Name
	}
	tc := transport.NewConn(conn)
	inbox := channel.NewInbox(cfg.InboxCapacity)
	s := &Session{
		conn:  conn,
		ch:    channel.Open(tc, inbox, chCfg),
		inbox: inbox,
		log:   logging.Component("client").With().Str("remote", conn.RemoteAddr().String()).Logger(),
	}
	s.log.Debug().Msg("session connected")
	return s, nil
}

func (s *Session) Channel() *channel.Channel {
	return s.ch
}

func (s *Session) Inbox() *channel.Inbox {
	return s.inbox
}

func (s *Session) Messages() <-chan string {
	return s.inbox.Messages()
}

// Request sends text, flushes, and waits for the next inbound message.
func (s *Session) Request(ctx context.Context, text string) (string, error) {
	if err := s.ch.Send(text); err != nil {
		return "", err
	}
	if err := s.ch.Flush(); err != nil {
		return "", err
	}
	select {
	case reply, ok := <-s.inbox.Messages():
		if !ok {
			return "", ErrNoReply
		}
		return reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// SendLast writes text as the final message. Replies still in flight are dropped.
func (s *Session) SendLast(text string) error {
	return s.ch.SendLast(text)
}

// Close flushes anything queued, releases the channel and closes the connection.
// It is safe to call after SendLast.
func (s *Session) Close() error {
	var errs []error
	if err := s.ch.Flush(); err != nil && !errors.Is(err, channel.ErrChannelClosed) {
		errs = append(errs, err)
	}
	if err := s.ch.Close(); err != nil && !errors.Is(err, channel.ErrChannelClosed) {
		errs = append(errs, err)
	}
	s.inbox.Discard()
	s.ch.Wait()
	if err := s.ch.Err(); err != nil {
		errs = append(errs, err)
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, err)
	}
	s.log.Debug().Msg("session closed")
	return errors.Join(errs...)
}
