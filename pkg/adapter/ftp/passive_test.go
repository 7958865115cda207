package ftp

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassiveSendAcceptsExactlyOnce(t *testing.T) {
	p, err := OpenPassive(context.Background(), "127.0.0.1", 2*time.Second)
	require.NoError(t, err)
	addr := p.Addr().String()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		_, err := p.Send(context.Background(), []byte("listing\r\n"))
		done <- err
	}()

	got, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "listing\r\n", string(got))
	require.NoError(t, <-done)

	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err, "listener must be closed after the first peer")
}

func TestPassiveReceive(t *testing.T) {
	p, err := OpenPassive(context.Background(), "127.0.0.1", 2*time.Second)
	require.NoError(t, err)

	go func() {
		conn, err := net.Dial("tcp", p.Addr().String())
		if err != nil {
			return
		}
		_, _ = conn.Write([]byte("uploaded bytes"))
		_ = conn.Close()
	}()

	data, err := p.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "uploaded bytes", string(data))
}

func TestPassiveTimeout(t *testing.T) {
	p, err := OpenPassive(context.Background(), "127.0.0.1", 100*time.Millisecond)
	require.NoError(t, err)

	_, err = p.Receive(context.Background())
	assert.ErrorIs(t, err, ErrChannelTimeout)
}

func TestPassiveClosedWithSessionContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, err := OpenPassive(ctx, "127.0.0.1", 5*time.Second)
	require.NoError(t, err)
	addr := p.Addr().String()

	cancel()

	assert.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
		}
		return err != nil
	}, 2*time.Second, 20*time.Millisecond)

	_, err = p.Send(ctx, []byte("x"))
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.NoError(t, p.Close())
}

func TestPassiveReply(t *testing.T) {
	assert.Equal(t, "Entering Passive Mode (127,0,0,1,195,80).", passiveReply("127.0.0.1", 50000))
	assert.Equal(t, "Entering Passive Mode (10,1,2,3,0,21).", passiveReply("10.1.2.3", 21))
	assert.Equal(t, "Entering Passive Mode (127,0,0,1,4,0).", passiveReply("not-an-ip", 1024))
}
