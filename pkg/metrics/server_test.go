package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyClass(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{150, "preliminary"},
		{226, "success"},
		{331, "intermediate"},
		{425, "transient_error"},
		{500, "permanent_error"},
		{550, "permanent_error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReplyClass(tt.code), tt.code)
	}
}

func TestServerServesIndexAndStops(t *testing.T) {
	srv := NewServer(ServerConfig{Port: -1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server never became ready")
	}

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", srv.Port()))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "/metrics")

	resp, err = http.Get(fmt.Sprintf("http://127.0.0.1:%d/nope", srv.Port()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
