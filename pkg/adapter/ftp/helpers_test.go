package ftp

import (
	"context"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/marmos91/dittoftp/pkg/behavior"
	"github.com/marmos91/dittoftp/pkg/vfs"
	"github.com/stretchr/testify/require"
)

// testServer is a running adapter with its shared stores.
type testServer struct {
	adapter   *FTPAdapter
	fs        *vfs.FileSystem
	behaviors *behavior.Store
}

func startServer(t *testing.T, cfg FTPConfig) *testServer {
	t.Helper()

	cfg.Port = -1
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 2 * time.Second
	}

	ts := &testServer{
		adapter:   New(cfg, nil),
		fs:        vfs.New(),
		behaviors: behavior.NewStore(),
	}
	ts.adapter.SetStores(ts.fs, ts.behaviors)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.adapter.Serve(ctx) }()

	select {
	case <-ts.adapter.Ready():
	case err := <-done:
		t.Fatalf("adapter failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("adapter never became ready")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("adapter did not shut down")
		}
	})
	return ts
}

// dialClient connects and logs in with the jlaffaye client.
func (ts *testServer) dialClient(t *testing.T) *ftp.ServerConn {
	t.Helper()

	c, err := ftp.Dial(ts.adapter.Addr(),
		ftp.DialWithTimeout(5*time.Second),
		ftp.DialWithDisabledEPSV(true),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Quit() })

	require.NoError(t, c.Login("tester", "secret"))
	return c
}

// rawClient speaks the control protocol line by line.
type rawClient struct {
	t    *testing.T
	conn net.Conn
	tp   *textproto.Conn
}

func (ts *testServer) dialRaw(t *testing.T) *rawClient {
	t.Helper()

	conn, err := net.DialTimeout("tcp", ts.adapter.Addr(), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &rawClient{t: t, conn: conn, tp: textproto.NewConn(conn)}
	code, _ := c.read()
	require.Equal(t, ReplyServiceReady, code)
	return c
}

func (c *rawClient) read() (int, string) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(15 * time.Second))
	code, msg, err := c.tp.ReadResponse(0)
	require.NoError(c.t, err)
	return code, msg
}

func (c *rawClient) cmd(format string, args ...any) (int, string) {
	c.t.Helper()
	require.NoError(c.t, c.tp.PrintfLine(format, args...))
	return c.read()
}

// pasv issues PASV and returns the advertised data address.
func (c *rawClient) pasv() string {
	c.t.Helper()
	code, msg := c.cmd("PASV")
	require.Equal(c.t, ReplyEnteringPassive, code, msg)
	return parsePasvReply(c.t, msg)
}

func parsePasvReply(t *testing.T, msg string) string {
	t.Helper()

	start, end := strings.Index(msg, "("), strings.Index(msg, ")")
	require.True(t, start >= 0 && end > start, msg)

	var h1, h2, h3, h4, p1, p2 int
	_, err := fmt.Sscanf(msg[start+1:end], "%d,%d,%d,%d,%d,%d", &h1, &h2, &h3, &h4, &p1, &p2)
	require.NoError(t, err)
	return fmt.Sprintf("%d.%d.%d.%d:%d", h1, h2, h3, h4, p1*256+p2)
}
