package ftp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/vfs"
)

// Reply codes. Each command uses one fixed code per outcome.
const (
	ReplyDataOpening       = 150
	ReplyCommandOK         = 200
	ReplyServiceReady      = 220
	ReplyClosing           = 221
	ReplyTransferComplete  = 226
	ReplyEnteringPassive   = 227
	ReplyLoggedIn          = 230
	ReplyFileActionOK      = 250
	ReplyPathCreated       = 257
	ReplyNeedPassword      = 331
	ReplyCantOpenData      = 425
	ReplyTransferAborted   = 426
	ReplyCommandFailed     = 500
	ReplyCommandUnknown    = 500
	ReplySyntaxError       = 501
	ReplyBadSequence       = 503
	ReplyParamNotSupported = 504
	ReplyNotLoggedIn       = 530
	ReplyFileUnavailable   = 550
)

type commandHandler func(ctx context.Context, s *Session, arg string) error

var commandHandlers map[string]commandHandler

func init() {
	commandHandlers = map[string]commandHandler{
		"USER": handleUSER,
		"PASS": handlePASS,
		"PWD":  handlePWD,
		"TYPE": handleTYPE,
		"PASV": handlePASV,
		"LIST": handleLIST,
		"CWD":  handleCWD,
		"STOR": handleSTOR,
		"QUIT": handleQUIT,
	}
}

// preAuthCommands are accepted before login when RequireAuth is set.
var preAuthCommands = map[string]bool{
	"USER": true,
	"PASS": true,
	"QUIT": true,
}

func handleUSER(ctx context.Context, s *Session, arg string) error {
	if arg == "" {
		return s.reply(ReplySyntaxError, "USER requires a user name.")
	}
	s.username = arg
	s.state = StateAwaitingPass
	return s.reply(ReplyNeedPassword, fmt.Sprintf("User %s OK. Password required.", arg))
}

// handlePASS accepts any password. Without RequireAuth it also succeeds when
// no USER was sent.
func handlePASS(ctx context.Context, s *Session, arg string) error {
	if s.server.config.RequireAuth && s.state != StateAwaitingPass {
		return s.reply(ReplyBadSequence, "Login with USER first.")
	}
	s.state = StateAuthenticated
	return s.reply(ReplyLoggedIn, "User logged in, proceed.")
}

func handlePWD(ctx context.Context, s *Session, arg string) error {
	quoted := strings.ReplaceAll(s.cwd, `"`, `""`)
	return s.reply(ReplyPathCreated, `"`+quoted+`" is current directory.`)
}

func handleTYPE(ctx context.Context, s *Session, arg string) error {
	fields := strings.Fields(strings.ToUpper(arg))
	if len(fields) == 0 {
		return s.reply(ReplySyntaxError, "TYPE requires a type code.")
	}
	switch fields[0] {
	case "A", "I":
		s.transferType = fields[0]
		return s.reply(ReplyCommandOK, fmt.Sprintf("Type set to %s.", fields[0]))
	default:
		return s.reply(ReplyParamNotSupported, fmt.Sprintf("Type %s not supported.", fields[0]))
	}
}

// handlePASV replaces any pending passive channel with a new one.
func handlePASV(ctx context.Context, s *Session, arg string) error {
	s.discardPassive()

	host := s.passiveHost()
	p, err := OpenPassive(ctx, host, s.server.config.DataTimeout)
	if err != nil {
		logger.Warn("[%s] %v", s.tag(), err)
		return s.reply(ReplyCantOpenData, "Can't open passive connection.")
	}
	s.passive = p
	s.server.metrics.RecordPassiveChannel("opened")

	advertised := host
	if s.server.config.PublicHost != "" {
		advertised = s.server.config.PublicHost
	}
	return s.reply(ReplyEnteringPassive, passiveReply(advertised, p.Addr().Port))
}

// handleLIST sends an "ls -l" listing of the current directory, or of the
// optional path argument, over the pending passive channel.
func handleLIST(ctx context.Context, s *Session, arg string) error {
	if err := s.requirePassive(); err != nil {
		return s.reply(ReplyBadSequence, "Bad sequence of commands: use PASV first.")
	}

	target := listTarget(arg)
	if target == "" {
		target = "."
	}

	fs := s.server.fs
	dir, err := fs.Resolve(s.cwd, target)
	if err != nil {
		s.discardPassive()
		return s.reply(ReplyFileUnavailable, fmt.Sprintf("%s: No such file or directory.", target))
	}

	var entries []vfs.Entry
	if dir.IsDir() {
		entries, err = fs.List(dir.Path)
		if err != nil {
			s.discardPassive()
			return s.reply(ReplyFileUnavailable, fmt.Sprintf("%s: No such file or directory.", target))
		}
	} else {
		entries = []vfs.Entry{dir}
	}

	if err := s.reply(ReplyDataOpening, "Here comes the directory listing."); err != nil {
		return err
	}

	p := s.passive
	s.passive = nil
	n, err := p.Send(ctx, formatListing(dir, entries))
	s.server.metrics.RecordBytesTransferred("download", n)
	return s.finishTransfer(err)
}

func handleCWD(ctx context.Context, s *Session, arg string) error {
	if arg == "" {
		return s.reply(ReplySyntaxError, "CWD requires a path.")
	}

	e, err := s.server.fs.Resolve(s.cwd, arg)
	if err != nil {
		return s.reply(ReplyFileUnavailable, fmt.Sprintf("%s: No such file or directory.", arg))
	}
	if !e.IsDir() {
		return s.reply(ReplyFileUnavailable, fmt.Sprintf("%s: Not a directory.", arg))
	}

	s.cwd = e.Path
	return s.reply(ReplyFileActionOK, fmt.Sprintf("Directory changed to %s.", e.Path))
}

// handleSTOR receives a file over the pending passive channel and stores it
// under the current directory, or under the directory part of the argument.
func handleSTOR(ctx context.Context, s *Session, arg string) error {
	if arg == "" {
		return s.reply(ReplySyntaxError, "STOR requires a file name.")
	}
	if err := s.requirePassive(); err != nil {
		return s.reply(ReplyBadSequence, "Bad sequence of commands: use PASV first.")
	}

	fs := s.server.fs
	dirSpec, name := path.Split(arg)
	if dirSpec == "" {
		dirSpec = "."
	}

	dir, err := fs.Resolve(s.cwd, dirSpec)
	if err == nil && !dir.IsDir() {
		err = &vfs.FSError{Code: vfs.ErrNotDirectory, Message: "not a directory", Path: dir.Path}
	}
	if err == nil {
		err = vfs.ValidateName(name)
	}
	if err == nil {
		if existing, lerr := fs.Resolve(dir.Path, name); lerr == nil && existing.IsDir() {
			err = &vfs.FSError{Code: vfs.ErrIsDirectory, Message: "is a directory", Path: existing.Path}
		}
	}
	if err != nil {
		s.discardPassive()
		return s.reply(ReplyFileUnavailable, fmt.Sprintf("%s: %s.", arg, describeFSError(err)))
	}

	if err := s.reply(ReplyDataOpening, "Ok to send data."); err != nil {
		return err
	}

	p := s.passive
	s.passive = nil
	data, err := p.Receive(ctx)
	if err != nil {
		return s.finishTransfer(err)
	}
	s.server.metrics.RecordBytesTransferred("upload", int64(len(data)))
	s.server.metrics.RecordPassiveChannel("transferred")

	stored, err := fs.PutFile(dir.Path, name, data)
	if err != nil {
		return s.reply(ReplyFileUnavailable, fmt.Sprintf("%s: %s.", arg, describeFSError(err)))
	}
	logger.Debug("[%s] Stored %s (%d bytes)", s.tag(), stored.Path, stored.Size)
	return s.reply(ReplyTransferComplete, "Transfer complete.")
}

func handleQUIT(ctx context.Context, s *Session, arg string) error {
	s.state = StateClosed
	if err := s.reply(ReplyClosing, "Goodbye."); err != nil {
		return err
	}
	return errQuit
}

// requirePassive reports ErrBadSequence when no PASV preceded a transfer.
func (s *Session) requirePassive() error {
	if s.passive == nil {
		return ErrBadSequence
	}
	return nil
}

// finishTransfer sends the final reply of LIST or STOR for err.
func (s *Session) finishTransfer(err error) error {
	switch {
	case err == nil:
		s.server.metrics.RecordPassiveChannel("transferred")
		return s.reply(ReplyTransferComplete, "Transfer complete.")
	case errors.Is(err, ErrChannelTimeout):
		s.server.metrics.RecordPassiveChannel("timeout")
		logger.Warn("[%s] No data connection within %v", s.tag(), s.server.config.DataTimeout)
		return s.reply(ReplyCantOpenData, "Can't open data connection.")
	default:
		s.server.metrics.RecordPassiveChannel("aborted")
		logger.Warn("[%s] Data transfer failed: %v", s.tag(), err)
		return s.reply(ReplyTransferAborted, "Connection closed; transfer aborted.")
	}
}

// passiveHost is the local IPv4 address the data listener binds.
func (s *Session) passiveHost() string {
	if addr, ok := s.conn.LocalAddr().(*net.TCPAddr); ok {
		if ip4 := addr.IP.To4(); ip4 != nil {
			return ip4.String()
		}
	}
	return "127.0.0.1"
}

// passiveReply formats the 227 text "Entering Passive Mode (h1,h2,h3,h4,p1,p2).".
func passiveReply(host string, port int) string {
	ip := net.ParseIP(host).To4()
	if ip == nil {
		ip = net.IPv4(127, 0, 0, 1).To4()
	}
	return fmt.Sprintf("Entering Passive Mode (%d,%d,%d,%d,%d,%d).",
		ip[0], ip[1], ip[2], ip[3], port/256, port%256)
}

func describeFSError(err error) string {
	var fsErr *vfs.FSError
	if !errors.As(err, &fsErr) {
		return err.Error()
	}
	switch fsErr.Code {
	case vfs.ErrNotFound:
		return "No such file or directory"
	case vfs.ErrNotDirectory:
		return "Not a directory"
	case vfs.ErrIsDirectory:
		return "Is a directory"
	default:
		return "Invalid file name"
	}
}
