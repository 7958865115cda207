package ftp

import "errors"

var (
	// ErrBadSequence is returned when LIST or STOR arrives without a PASV.
	ErrBadSequence = errors.New("bad sequence of commands")

	// ErrChannelTimeout is returned when no peer connects to a passive port
	// within the data timeout.
	ErrChannelTimeout = errors.New("passive data channel timed out")

	// ErrConnectionLost is returned when the control or data connection drops.
	ErrConnectionLost = errors.New("connection lost")

	// errQuit ends a session after a QUIT reply.
	errQuit = errors.New("quit")
)
