package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxprep/interviewclient/internal/protocol"
)

var testUpgrader = websocket.Upgrader{}

// wsServer runs an httptest server whose handler receives each upgraded
// connection.
func wsServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, baseURL string, cfg Config) *Client {
	t.Helper()
	cfg.WSBaseURL = baseURL
	if cfg.SessionID == "" {
		cfg.SessionID = "test-session"
	}
	c := NewClient(cfg, StaticToken("test-token"), zerolog.Nop())
	t.Cleanup(c.Disconnect)
	return c
}

// errorCollector accumulates emitted client errors.
type errorCollector struct {
	mu   sync.Mutex
	errs []*ClientError
}

func (ec *errorCollector) collect(err *ClientError) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.errs = append(ec.errs, err)
}

func (ec *errorCollector) all() []*ClientError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return append([]*ClientError(nil), ec.errs...)
}

func (ec *errorCollector) byCode(code ErrorCode) []*ClientError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	var out []*ClientError
	for _, e := range ec.errs {
		if e.Code == code {
			out = append(out, e)
		}
	}
	return out
}

func waitFor(t *testing.T, ch <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatal(msg)
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	c := testClient(t, "ws://localhost:0", DefaultConfig())
	var ec errorCollector
	c.OnClientError(ec.collect)

	err := c.StartInterview(StartOptions{})
	require.Error(t, err)

	var cerr *ClientError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrCodeNotConnected, cerr.Code)
	assert.True(t, cerr.Recoverable)

	emitted := ec.byCode(ErrCodeNotConnected)
	assert.Len(t, emitted, 1, "exactly one error per dropped command")
}

func TestConnectDispatchesMessages(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		msgs := []string{
			`{"type":"status","state":"ready"}`,
			`{"type":"transcript_delta","role":"interviewer","delta":"Hi","is_final":true,"sequence":1}`,
		}
		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := testClient(t, "ws"+strings.TrimPrefix(srv.URL, "http"), DefaultConfig())

	gotStatus := make(chan protocol.InterviewState, 1)
	gotDelta := make(chan protocol.TranscriptDeltaMessage, 1)
	c.OnStatus(func(s protocol.InterviewState) { gotStatus <- s })
	c.OnTranscriptDelta(func(m protocol.TranscriptDeltaMessage) { gotDelta <- m })

	c.Connect()

	select {
	case s := <-gotStatus:
		assert.Equal(t, protocol.StateReady, s)
	case <-time.After(3 * time.Second):
		t.Fatal("status listener never fired")
	}
	select {
	case m := <-gotDelta:
		assert.Equal(t, "Hi", m.Delta)
		assert.True(t, m.IsFinal)
	case <-time.After(3 * time.Second):
		t.Fatal("transcript delta listener never fired")
	}

	assert.Equal(t, 1, c.Transcript().Len(), "final delta lands in the transcript")
}

func TestEndpointIncludesSessionAndToken(t *testing.T) {
	authed := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed <- r.URL.Path + "?" + r.URL.RawQuery
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.SessionID = "abc-123"
	c := testClient(t, "ws"+strings.TrimPrefix(srv.URL, "http"), cfg)
	c.Connect()

	select {
	case got := <-authed:
		assert.Equal(t, "/ws/interview/abc-123?token=test-token", got)
	case <-time.After(3 * time.Second):
		t.Fatal("server never saw the dial")
	}
}

func TestEndpointSchemeConversion(t *testing.T) {
	c := testClient(t, "https://interviews.example.com", DefaultConfig())
	endpoint, err := c.endpoint()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(endpoint, "wss://interviews.example.com/ws/interview/"),
		"https must dial wss, got %s", endpoint)
}

func TestUnknownMessageTypeIsIgnored(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"future_thing","x":1}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"status","state":"ready"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := testClient(t, "ws"+strings.TrimPrefix(srv.URL, "http"), DefaultConfig())
	var ec errorCollector
	c.OnClientError(ec.collect)
	gotStatus := make(chan struct{}, 1)
	c.OnStatus(func(protocol.InterviewState) { gotStatus <- struct{}{} })

	c.Connect()
	waitFor(t, gotStatus, "status after unknown message never arrived")

	assert.Empty(t, ec.byCode(ErrCodeParse), "unknown tags are not parse errors")
}

func TestMalformedMessageEmitsParseError(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{broken`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := testClient(t, "ws"+strings.TrimPrefix(srv.URL, "http"), DefaultConfig())
	parseErr := make(chan *ClientError, 1)
	c.OnClientError(func(err *ClientError) {
		if err.Code == ErrCodeParse {
			parseErr <- err
		}
	})

	c.Connect()

	select {
	case err := <-parseErr:
		assert.True(t, err.Recoverable)
	case <-time.After(3 * time.Second):
		t.Fatal("parse error never emitted")
	}
	assert.Equal(t, StateOpen, c.State(), "a bad frame must not drop the connection")
}

func TestReconnectAfterServerDrop(t *testing.T) {
	var mu sync.Mutex
	accepts := 0
	srv := wsServer(t, func(conn *websocket.Conn) {
		mu.Lock()
		accepts++
		n := accepts
		mu.Unlock()
		if n == 1 {
			// Drop the first connection immediately.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := DefaultConfig()
	cfg.ReconnectBaseDelay = 5 * time.Millisecond
	c := testClient(t, "ws"+strings.TrimPrefix(srv.URL, "http"), cfg)

	var connMu sync.Mutex
	var transitions []bool
	reconnected := make(chan struct{}, 1)
	c.OnConnectionChange(func(connected bool) {
		connMu.Lock()
		transitions = append(transitions, connected)
		n := len(transitions)
		connMu.Unlock()
		if connected && n >= 3 {
			reconnected <- struct{}{}
		}
	})

	c.Connect()
	waitFor(t, reconnected, "client never reconnected after server drop")

	connMu.Lock()
	defer connMu.Unlock()
	assert.Equal(t, []bool{true, false, true}, transitions[:3])
}

func TestReconnectExhaustion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReconnectBaseDelay = time.Millisecond
	cfg.MaxReconnectAttempts = 3
	// Nothing listens here; every dial fails.
	c := testClient(t, "ws://127.0.0.1:1", cfg)

	var ec errorCollector
	terminal := make(chan struct{}, 1)
	c.OnClientError(func(err *ClientError) {
		ec.collect(err)
		if err.Code == ErrCodeMaxReconnect {
			terminal <- struct{}{}
		}
	})

	c.Connect()
	waitFor(t, terminal, "reconnect exhaustion never reported")

	// Give any stray timers a chance to misfire.
	time.Sleep(50 * time.Millisecond)

	fatal := ec.byCode(ErrCodeMaxReconnect)
	require.Len(t, fatal, 1, "exactly one terminal error")
	assert.False(t, fatal[0].Recoverable)
	assert.Len(t, ec.byCode(ErrCodeConnection), 3, "one connection error per failed attempt")
	assert.Equal(t, StateClosed, c.State())
}

func TestDisconnectIsTerminal(t *testing.T) {
	srv := wsServer(t, func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := DefaultConfig()
	cfg.ReconnectBaseDelay = time.Millisecond
	c := testClient(t, "ws"+strings.TrimPrefix(srv.URL, "http"), cfg)

	connected := make(chan struct{}, 1)
	c.OnConnectionChange(func(up bool) {
		if up {
			connected <- struct{}{}
		}
	})
	var ec errorCollector
	c.OnClientError(ec.collect)

	c.Connect()
	waitFor(t, connected, "never connected")

	c.Disconnect()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, StateClosed, c.State())
	assert.Empty(t, ec.all(), "intentional disconnect emits no errors")

	// Connect after Disconnect stays a no-op.
	c.Connect()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StateClosed, c.State())
}
