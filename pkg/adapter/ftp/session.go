package ftp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/internal/ratelimiter"
)

// State is the authentication state of a session.
type State int

const (
	StateAwaitingUser State = iota
	StateAwaitingPass
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateAwaitingUser:
		return "awaiting-user"
	case StateAwaitingPass:
		return "awaiting-pass"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Session drives one FTP control connection.
//
// Commands are processed strictly in receipt order. A reader goroutine owns
// the socket's read side so that a client disconnect is noticed even while a
// command is sleeping through an injected delay or waiting for a passive
// peer; either wait is then cancelled through the session context.
type Session struct {
	id      string
	server  *FTPAdapter
	conn    net.Conn
	reader  *textproto.Reader
	writer  *bufio.Writer
	limiter *ratelimiter.RateLimiter

	state        State
	username     string
	cwd          string
	transferType string
	passive      *PassiveDataChannel

	// lastCode is the most recent reply code, used for metrics.
	lastCode int
}

// NewSession wraps an accepted control connection.
func NewSession(server *FTPAdapter, conn net.Conn) *Session {
	rl := server.config.RateLimit
	return &Session{
		id:           uuid.NewString(),
		server:       server,
		conn:         conn,
		reader:       textproto.NewReader(bufio.NewReader(conn)),
		writer:       bufio.NewWriter(conn),
		limiter:      ratelimiter.New(rl.RequestsPerSecond, rl.Burst),
		state:        StateAwaitingUser,
		cwd:          "/",
		transferType: "A",
	}
}

// ID returns the unique connection identifier.
func (s *Session) ID() string {
	return s.id
}

// Serve sends the banner and processes commands until QUIT, a connection
// error, idle timeout or ctx cancellation. The connection is always closed on
// return and a panic only ends this session.
func (s *Session) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("[%s] Panic in FTP session from %s: %v", s.tag(), s.conn.RemoteAddr(), r)
		}
		cancel(nil)
		if err := s.close(); err != nil {
			logger.Debug("[%s] Session cleanup: %v", s.tag(), err)
		}
	}()

	logger.Info("[%s] Connection from %s", s.tag(), s.conn.RemoteAddr())

	if err := s.reply(ReplyServiceReady, s.server.config.WelcomeMessage); err != nil {
		logger.Debug("[%s] Failed to send banner: %v", s.tag(), err)
		return
	}

	lines := make(chan string)
	go s.readLoop(ctx, cancel, lines)

	for {
		select {
		case <-ctx.Done():
			s.logEnd(context.Cause(ctx))
			return
		case line := <-lines:
			if err := s.handleLine(ctx, line); err != nil {
				s.logEnd(err)
				return
			}
		}
	}
}

// readLoop feeds command lines to Serve. Any read failure cancels the
// session with ErrConnectionLost as the cause.
func (s *Session) readLoop(ctx context.Context, cancel context.CancelCauseFunc, lines chan<- string) {
	idle := s.server.config.IdleTimeout
	for {
		if idle > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(idle))
		}

		line, err := s.reader.ReadLine()
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
				cancel(fmt.Errorf("%w: closed by client", ErrConnectionLost))
			case errors.As(err, &netErr) && netErr.Timeout():
				cancel(fmt.Errorf("%w: idle timeout after %v", ErrConnectionLost, idle))
			default:
				cancel(fmt.Errorf("%w: %v", ErrConnectionLost, err))
			}
			return
		}

		select {
		case lines <- line:
		case <-ctx.Done():
			return
		}
	}
}

// handleLine runs the per-command algorithm: behavior lookup, optional
// delay, optional injected error, then the command's own semantics.
//
// A non-nil return ends the session.
func (s *Session) handleLine(ctx context.Context, line string) error {
	start := time.Now()
	cmd, arg := parseCommand(line)
	if cmd == "" {
		return nil
	}

	s.logCommand(cmd, arg)

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	handler, ok := commandHandlers[cmd]
	if !ok {
		err := s.reply(ReplyCommandUnknown, "Unknown command.")
		s.server.metrics.RecordCommand(cmd, s.lastCode, time.Since(start))
		return err
	}

	b := s.server.behaviors.Get(cmd)

	if b.DelaySeconds > 0 {
		delay := time.Duration(b.DelaySeconds) * time.Second
		logger.Debug("[%s] Delaying %s reply by %v", s.tag(), cmd, delay)
		s.server.metrics.RecordDelay(cmd, delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return context.Cause(ctx)
		}
	}

	var err error
	switch {
	case b.ErrorEnabled:
		err = s.reply(ReplyCommandFailed, fmt.Sprintf("%s command failed.", cmd))
	case s.server.config.RequireAuth && s.state != StateAuthenticated && !preAuthCommands[cmd]:
		err = s.reply(ReplyNotLoggedIn, "Please login with USER and PASS.")
	default:
		err = handler(ctx, s, arg)
	}

	s.server.metrics.RecordCommand(cmd, s.lastCode, time.Since(start))
	return err
}

// reply writes one "code text" line, bounded by the write timeout.
func (s *Session) reply(code int, text string) error {
	s.lastCode = code
	logger.Info("[%s] < %d %s", s.tag(), code, text)

	if wt := s.server.config.WriteTimeout; wt > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(wt))
	}
	if _, err := fmt.Fprintf(s.writer, "%d %s\r\n", code, text); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return nil
}

// discardPassive closes the pending passive channel, if any.
func (s *Session) discardPassive() {
	if s.passive == nil {
		return
	}
	if err := s.passive.Close(); err != nil {
		logger.Debug("[%s] Closing passive listener: %v", s.tag(), err)
	}
	s.passive = nil
}

// close releases the passive listener and the control connection.
func (s *Session) close() error {
	s.state = StateClosed

	var result *multierror.Error
	if s.passive != nil {
		if err := s.passive.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close passive listener: %w", err))
		}
		s.passive = nil
	}
	if err := s.conn.Close(); err != nil && !isClosedConn(err) {
		result = multierror.Append(result, fmt.Errorf("close control connection: %w", err))
	}
	return result.ErrorOrNil()
}

func (s *Session) logCommand(cmd, arg string) {
	switch {
	case cmd == "PASS":
		logger.Info("[%s] > PASS ****", s.tag())
	case arg == "":
		logger.Info("[%s] > %s", s.tag(), cmd)
	default:
		logger.Info("[%s] > %s %s", s.tag(), cmd, arg)
	}
}

func (s *Session) logEnd(err error) {
	switch {
	case err == nil, errors.Is(err, errQuit):
		logger.Info("[%s] Session closed", s.tag())
	case errors.Is(err, context.Canceled):
		logger.Info("[%s] Session closed by server shutdown", s.tag())
	default:
		logger.Info("[%s] Session ended: %v", s.tag(), err)
	}
}

// tag is the short connection id used in log lines.
func (s *Session) tag() string {
	return s.id[:8]
}

// parseCommand splits a control line into an upper-case verb and its argument.
func parseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	return strings.ToUpper(cmd), strings.TrimSpace(arg)
}
