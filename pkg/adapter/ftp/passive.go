package ftp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// dataChunkSize is the unit of reads and writes on a data connection. Each
// chunk gets a fresh deadline so slow but live peers are not cut off.
const dataChunkSize = 32 * 1024

// PassiveDataChannel is a one-shot passive-mode data listener.
//
// It binds an OS-assigned port, accepts exactly one connection, transfers
// data in one direction and closes everything. It is also closed when the
// owning session's context ends, so no listener outlives its session.
type PassiveDataChannel struct {
	listener *net.TCPListener
	timeout  time.Duration

	closeOnce sync.Once
	closeErr  error
	stop      func() bool
}

// OpenPassive binds a listener on host with an ephemeral port.
func OpenPassive(ctx context.Context, host string, timeout time.Duration) (*PassiveDataChannel, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp4", net.JoinHostPort(host, "0"))
	if err != nil {
		return nil, fmt.Errorf("passive listen on %s: %w", host, err)
	}

	p := &PassiveDataChannel{
		listener: ln.(*net.TCPListener),
		timeout:  timeout,
	}
	p.stop = context.AfterFunc(ctx, func() { _ = p.Close() })
	return p, nil
}

// Addr returns the bound listener address.
func (p *PassiveDataChannel) Addr() *net.TCPAddr {
	return p.listener.Addr().(*net.TCPAddr)
}

// Send accepts the peer, writes data and closes the channel.
func (p *PassiveDataChannel) Send(ctx context.Context, data []byte) (int64, error) {
	conn, err := p.accept(ctx)
	if err != nil {
		return 0, err
	}

	n, err := p.transfer(ctx, conn, func() (int64, error) {
		var written int64
		r := bytes.NewReader(data)
		buf := make([]byte, dataChunkSize)
		for {
			m, rerr := r.Read(buf)
			if m > 0 {
				if err := p.setDeadline(conn); err != nil {
					return written, err
				}
				w, werr := conn.Write(buf[:m])
				written += int64(w)
				if werr != nil {
					return written, werr
				}
			}
			if rerr == io.EOF {
				return written, nil
			}
		}
	})
	return n, err
}

// Receive accepts the peer, reads until it closes and closes the channel.
func (p *PassiveDataChannel) Receive(ctx context.Context) ([]byte, error) {
	conn, err := p.accept(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	_, err = p.transfer(ctx, conn, func() (int64, error) {
		chunk := make([]byte, dataChunkSize)
		for {
			if err := p.setDeadline(conn); err != nil {
				return int64(buf.Len()), err
			}
			n, rerr := conn.Read(chunk)
			buf.Write(chunk[:n])
			if rerr == io.EOF {
				return int64(buf.Len()), nil
			}
			if rerr != nil {
				return int64(buf.Len()), rerr
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close closes the listener. Safe to call multiple times.
func (p *PassiveDataChannel) Close() error {
	p.closeOnce.Do(func() {
		if p.stop != nil {
			p.stop()
		}
		if err := p.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			p.closeErr = err
		}
	})
	return p.closeErr
}

// accept waits for the single peer, then closes the listener so no second
// connection can be accepted.
func (p *PassiveDataChannel) accept(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	if p.timeout > 0 {
		_ = p.listener.SetDeadline(time.Now().Add(p.timeout))
	}

	conn, err := p.listener.Accept()
	_ = p.Close()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ErrChannelTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
	return conn, nil
}

// transfer runs fn on conn, closing conn when ctx ends or fn returns.
func (p *PassiveDataChannel) transfer(ctx context.Context, conn net.Conn, fn func() (int64, error)) (int64, error) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	n, err := fn()

	var result *multierror.Error
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("%w: %v", ErrConnectionLost, err))
	}
	if stop() {
		if cerr := conn.Close(); cerr != nil && !isClosedConn(cerr) {
			result = multierror.Append(result, fmt.Errorf("close data connection: %w", cerr))
		}
	} else if err == nil {
		// ctx ended mid-transfer and closed conn under us.
		result = multierror.Append(result, fmt.Errorf("%w: %v", ErrConnectionLost, ctx.Err()))
	}
	return n, result.ErrorOrNil()
}

func (p *PassiveDataChannel) setDeadline(conn net.Conn) error {
	if p.timeout <= 0 {
		return nil
	}
	return conn.SetDeadline(time.Now().Add(p.timeout))
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection")
}
