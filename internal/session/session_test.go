package session

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashd/internal/logging"
	"hashd/internal/metrics"
)

func newTestLogger() logging.Logger {
	return logging.New(logging.Options{Level: "error", DisableMessage: true, DisableWarning: true})
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestSessionHashesSingleLine(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	h, err := Spawn(context.Background(), "t1", server, newTestLogger(), metrics.Noop{}, 0)
	require.NoError(t, err)
	require.True(t, h.IsAlive())

	_, err = client.Write([]byte("hello\n"))
	require.NoError(t, err)

	reply := readLine(t, client)
	assert.Equal(t, sha256Hex("hello"), reply)
}

func TestSessionEmptyLine(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	_, err := Spawn(context.Background(), "t2", server, newTestLogger(), metrics.Noop{}, 0)
	require.NoError(t, err)

	_, err = client.Write([]byte("\n"))
	require.NoError(t, err)

	reply := readLine(t, client)
	assert.Equal(t, sha256Hex(""), reply)
}

func TestSessionTwoLinesOneWrite(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	_, err := Spawn(context.Background(), "t3", server, newTestLogger(), metrics.Noop{}, 0)
	require.NoError(t, err)

	go func() {
		_, _ = client.Write([]byte("aaa\nbbb\n"))
	}()

	r := bufio.NewReader(client)
	first, err := r.ReadString('\n')
	require.NoError(t, err)
	second, err := r.ReadString('\n')
	require.NoError(t, err)

	assert.Equal(t, sha256Hex("aaa")+"\n", first)
	assert.Equal(t, sha256Hex("bbb")+"\n", second)
}

func TestSessionLineSplitAcrossWrites(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	_, err := Spawn(context.Background(), "t4", server, newTestLogger(), metrics.Noop{}, 0)
	require.NoError(t, err)

	go func() {
		_, _ = client.Write([]byte("hel"))
		time.Sleep(5 * time.Millisecond)
		_, _ = client.Write([]byte("lo\n"))
	}()

	reply := readLine(t, client)
	assert.Equal(t, sha256Hex("hello"), reply)
}

func TestSessionLineLongerThanBuffer(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	_, err := Spawn(context.Background(), "t5", server, newTestLogger(), metrics.Noop{}, 0)
	require.NoError(t, err)

	payload := strings.Repeat("x", 5000)
	go func() {
		_, _ = client.Write([]byte(payload))
		_, _ = client.Write([]byte("\n"))
	}()

	reply := readLine(t, client)
	assert.Equal(t, sha256Hex(payload), reply)
}

func TestSessionTerminateClosesConnection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	h, err := Spawn(context.Background(), "t6", server, newTestLogger(), metrics.Noop{}, 0)
	require.NoError(t, err)

	// net.Pipe rejects deadlines once the remote end is closed, so the
	// deadline is set before Terminate closes the session's end.
	buf := make([]byte, 1)
	deadline := time.Now().Add(time.Second)
	require.NoError(t, client.SetReadDeadline(deadline))
	h.Terminate()
	_, err = client.Read(buf)
	assert.Error(t, err)

	require.Eventually(t, func() bool { return !h.IsAlive() }, time.Second, time.Millisecond)
}

func TestSessionTerminateIsIdempotent(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	h, err := Spawn(context.Background(), "t7", server, newTestLogger(), metrics.Noop{}, 0)
	require.NoError(t, err)
	h.Terminate()
	h.Terminate()
	h.Terminate()
}

func readLine(t *testing.T, r net.Conn) string {
	t.Helper()
	line, err := bufio.NewReader(r).ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}
