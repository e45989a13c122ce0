package app

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashd/internal/metrics"
)

func TestAppRunsHashingAndMetricsSurfaces(t *testing.T) {
	a, err := New(Config{
		Port:         0,
		LogLevel:     "error",
		ReapInterval: time.Second,
		MetricsAddr:  "127.0.0.1:0",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	var addr net.Addr
	require.Eventually(t, func() bool {
		addr = a.server.Addr()
		return addr != nil
	}, time.Second, time.Millisecond)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("test\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("test"))
	assert.Equal(t, hex.EncodeToString(sum[:])+"\n", line)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not shut down")
	}
}

func TestMetricsServerHealthz(t *testing.T) {
	srv := newMetricsServer("127.0.0.1:0", metrics.New().Registry())

	ln, err := net.Listen("tcp", srv.Addr)
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
