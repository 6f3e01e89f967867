package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wscore "github.com/getmockd/wsbridge/pkg/websocket"
)

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setJSONOutput(t *testing.T, v bool) {
	t.Helper()
	old := jsonOutput
	jsonOutput = v
	t.Cleanup(func() { jsonOutput = old })
}

func TestWSSend_DeliversToServer(t *testing.T) {
	srv, wsURL, _ := startServe(t, nil, false)

	got := make(chan string, 1)
	srv.Subscribe(wscore.ListenerFuncs{
		Message: func(data []byte, _ int, _ string) { got <- string(data) },
	})

	var out bytes.Buffer
	opts := wsOptions{timeout: 5 * time.Second}
	require.NoError(t, wsSend(context.Background(), &out, opts, wsURL, "hello server"))
	assert.Contains(t, out.String(), "Sent to "+wsURL)

	select {
	case msg := <-got:
		assert.Equal(t, "hello server", msg)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive the message")
	}
}

func TestWSSend_JSONOutput(t *testing.T) {
	setJSONOutput(t, true)
	_, wsURL, _ := startServe(t, nil, false)

	var out bytes.Buffer
	require.NoError(t, wsSend(context.Background(), &out, wsOptions{timeout: 5 * time.Second}, wsURL, "x"))

	var res map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, true, res["success"])
	assert.Equal(t, "x", res["message"])
}

func TestWSSend_DialFailure(t *testing.T) {
	url := "ws://127.0.0.1:" + strconv.Itoa(getFreePort(t)) + "/"
	err := wsSend(context.Background(), &bytes.Buffer{}, wsOptions{timeout: time.Second}, url, "x")
	assert.Error(t, err)
}

func TestWSListen_ReceivesBroadcast(t *testing.T) {
	_, wsURL, httpURL := startServe(t, nil, false)

	var out, errw syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- wsListen(context.Background(), &out, &errw, wsOptions{timeout: 5 * time.Second, count: 2}, wsURL)
	}()
	waitClients(t, httpURL, 1)

	httpDo(t, http.MethodPost, httpURL+"/broadcast", "one")
	httpDo(t, http.MethodPost, httpURL+"/broadcast", "two")

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not return")
	}
	assert.Equal(t, "one\ntwo\n", out.String())
	assert.Contains(t, errw.String(), "Received 2 messages")
}

func TestWSListen_StopsOnCancel(t *testing.T) {
	_, wsURL, httpURL := startServe(t, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- wsListen(ctx, &syncBuffer{}, &syncBuffer{}, wsOptions{timeout: 5 * time.Second}, wsURL)
	}()
	waitClients(t, httpURL, 1)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not stop")
	}
}

func TestWSConnect_EchoSession(t *testing.T) {
	_, wsURL, _ := startServe(t, nil, true)

	inR, inW := io.Pipe()
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- wsConnect(context.Background(), inR, &out, wsOptions{timeout: 5 * time.Second}, wsURL)
	}()

	_, err := inW.Write([]byte("ping\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "< ping")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "> ping")

	require.NoError(t, inW.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("connect did not return after stdin closed")
	}
}
