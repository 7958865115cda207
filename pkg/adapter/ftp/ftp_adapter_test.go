package ftp

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, cfg FTPConfig) (*FTPAdapter, context.CancelFunc, chan error) {
	t.Helper()

	cfg.Port = -1
	a := New(cfg, nil)
	a.SetStores(vfs.New(), behavior.NewStore())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	select {
	case <-a.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("adapter never became ready")
	}
	return a, cancel, done
}

func TestConfigDefaults(t *testing.T) {
	cfg := FTPConfig{}
	cfg.applyDefaults()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.IdleTimeout)
	assert.Equal(t, 30*time.Second, cfg.DataTimeout)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.NotEmpty(t, cfg.WelcomeMessage)
	require.NoError(t, cfg.validate())
}

func TestNewPanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		New(FTPConfig{Port: 70000}, nil)
	})
}

func TestServeRequiresStores(t *testing.T) {
	a := New(FTPConfig{Port: -1}, nil)
	assert.Error(t, a.Serve(context.Background()))
}

func TestGracefulShutdownClosesIdleSessions(t *testing.T) {
	a, cancel, done := newTestAdapter(t, FTPConfig{ShutdownTimeout: 2 * time.Second})

	conn, err := net.Dial("tcp", a.Addr())
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return a.GetActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	start := time.Now()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(0), a.GetActiveConnections())

	_, err = net.DialTimeout("tcp", a.Addr(), 200*time.Millisecond)
	assert.Error(t, err, "listener must be closed")
}

func TestShutdownInterruptsDelay(t *testing.T) {
	a, cancel, done := newTestAdapter(t, FTPConfig{ShutdownTimeout: 2 * time.Second})
	_, err := a.behaviors.Set(context.Background(), "PWD", false, behavior.MaxDelaySeconds)
	require.NoError(t, err)

	conn, err := net.Dial("tcp", a.Addr())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("PWD\r\n"))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	start := time.Now()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStopIsIdempotent(t *testing.T) {
	a, cancel, done := newTestAdapter(t, FTPConfig{})
	defer cancel()

	ctx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, a.Stop(ctx))
	require.NoError(t, a.Stop(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestMaxConnectionsQueuesExtraClients(t *testing.T) {
	a, cancel, done := newTestAdapter(t, FTPConfig{MaxConnections: 1})
	defer func() {
		cancel()
		<-done
	}()

	first, err := net.Dial("tcp", a.Addr())
	require.NoError(t, err)
	defer first.Close()
	assert.Eventually(t, func() bool { return a.GetActiveConnections() == 1 }, 2*time.Second, 10*time.Millisecond)

	second, err := net.Dial("tcp", a.Addr())
	require.NoError(t, err)
	defer second.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), a.GetActiveConnections())

	require.NoError(t, first.Close())

	_ = second.SetReadDeadline(time.Now().Add(3 * time.Second))
	banner, err := bufio.NewReader(second).ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(banner, "220 "), banner)
}
