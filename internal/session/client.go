// Package session implements the real-time interview session client: socket
// lifecycle with reconnection backoff, typed inbound message dispatch, and
// outbound command construction.
package session

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ConnectionState describes the client's connection lifecycle. Transitions
// are driven only by socket lifecycle events and by an explicit Disconnect.
type ConnectionState string

const (
	StateConnecting   ConnectionState = "connecting"
	StateOpen         ConnectionState = "open"
	StateReconnecting ConnectionState = "reconnecting"
	StateClosed       ConnectionState = "closed"
)

// TokenProvider supplies the authentication token embedded in the endpoint
// query string. Injected at construction so the client never reads storage
// itself.
type TokenProvider interface {
	Token() (string, error)
}

// StaticToken is a fixed-value TokenProvider.
type StaticToken string

// Token returns the fixed token value.
func (s StaticToken) Token() (string, error) { return string(s), nil }

// Config configures the session client. The backoff constants are tuned
// empirically; they are policy, not invariants.
type Config struct {
	// WSBaseURL is the backend base URL, e.g. "ws://localhost:8000".
	// http(s) schemes are converted to ws(s).
	WSBaseURL string
	// SessionID is embedded in the endpoint path.
	SessionID string
	// ReconnectBaseDelay is the linear backoff unit (default: 1.5s).
	// Attempt n waits n × ReconnectBaseDelay.
	ReconnectBaseDelay time.Duration
	// MaxReconnectAttempts is the retry budget before the client gives up
	// permanently (default: 8).
	MaxReconnectAttempts int
	// DialTimeout bounds a single connection attempt (default: 10s).
	DialTimeout time.Duration
	// Transcript configures transcript retention.
	Transcript TranscriptConfig
}

// DefaultConfig returns sensible defaults for everything but the endpoint.
func DefaultConfig() Config {
	return Config{
		ReconnectBaseDelay:   1500 * time.Millisecond,
		MaxReconnectAttempts: 8,
		DialTimeout:          10 * time.Second,
		Transcript:           DefaultTranscriptConfig(),
	}
}

// Client maintains the duplex connection to the interview backend. It owns
// the socket for its entire lifetime: it dials, reads, dispatches inbound
// messages to registered listeners, sends outbound commands, and reconnects
// with linear backoff after unexpected closes.
//
// A generation counter invalidates stale read loops and reconnect timers:
// every dial bumps the generation, and any event carrying an old generation
// is ignored. Once Disconnect has been called the client is terminal.
type Client struct {
	config    Config
	tokens    TokenProvider
	logger    zerolog.Logger
	dialer    *websocket.Dialer
	clientID  string
	listeners listeners

	transcript *Transcript

	mu          sync.Mutex
	state       ConnectionState
	conn        *websocket.Conn
	generation  int
	intentional bool
	attempts    int
	retryTimer  *time.Timer
}

// NewClient creates a session client. Listeners should be registered before
// Connect.
func NewClient(config Config, tokens TokenProvider, logger zerolog.Logger) *Client {
	if config.ReconnectBaseDelay <= 0 {
		config.ReconnectBaseDelay = 1500 * time.Millisecond
	}
	if config.MaxReconnectAttempts <= 0 {
		config.MaxReconnectAttempts = 8
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 10 * time.Second
	}

	clientID := uuid.NewString()
	return &Client{
		config:   config,
		tokens:   tokens,
		clientID: clientID,
		logger: logger.With().
			Str("component", "session").
			Str("client_id", clientID).
			Logger(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.DialTimeout,
		},
		transcript: NewTranscript(config.Transcript),
		state:      StateClosed,
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Transcript returns the accumulated transcript.
func (c *Client) Transcript() *Transcript { return c.transcript }

// Connect opens the socket. It is a no-op while a connection attempt is in
// flight or the connection is open, and permanently a no-op after
// Disconnect. Failures surface through error listeners, not a return value:
// the client runs inside an event-driven host with no synchronous caller.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.intentional || c.state == StateConnecting || c.state == StateOpen {
		c.mu.Unlock()
		return
	}
	if c.state == StateClosed {
		// Fresh explicit attempt, not a retry: the budget starts over.
		c.attempts = 0
	}
	c.state = StateConnecting
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	go c.dial(gen)
}

// Disconnect closes the connection and cancels any pending reconnect. This
// is terminal: no reconnection occurs afterward, even if a close event from
// the old socket arrives later, and no further listeners fire.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.intentional {
		c.mu.Unlock()
		return
	}
	c.intentional = true
	c.state = StateClosed
	c.generation++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
	c.logger.Info().Msg("Disconnected")
}

// endpoint builds {wsBaseURL}/ws/interview/{sessionID}?token=...
func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.config.WSBaseURL)
	if err != nil {
		return "", fmt.Errorf("parse ws base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported ws base url scheme %q", u.Scheme)
	}
	u.Path = "/ws/interview/" + c.config.SessionID

	token, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("read auth token: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) dial(gen int) {
	endpoint, err := c.endpoint()
	if err != nil {
		c.dialFailed(gen, err)
		return
	}

	conn, _, err := c.dialer.Dial(endpoint, nil)
	if err != nil {
		c.dialFailed(gen, err)
		return
	}

	c.mu.Lock()
	if gen != c.generation || c.intentional {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info().Str("session_id", c.config.SessionID).Msg("Connected to interview session")
	c.emitConnection(true)

	go c.readLoop(conn, gen)
}

func (c *Client) dialFailed(gen int, err error) {
	if c.stale(gen) {
		return
	}
	c.logger.Warn().Err(err).Msg("Connection attempt failed")
	c.emitClientError(&ClientError{
		Code:        ErrCodeConnection,
		Message:     "connection failed",
		Recoverable: true,
		Err:         err,
	})
	c.handleClosed(gen)
}

func (c *Client) stale(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation || c.intentional
}

// readLoop reads frames until the socket closes, then routes the close into
// the reconnect machinery unless the disconnect was intentional.
func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.stale(gen) {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("Socket error")
				c.emitClientError(&ClientError{
					Code:        ErrCodeConnection,
					Message:     "connection lost",
					Recoverable: true,
					Err:         err,
				})
			}
			c.emitConnection(false)
			c.handleClosed(gen)
			return
		}
		c.route(data)
	}
}

// handleClosed reacts to an unexpected close: either schedules the next
// retry with linear backoff or, once the budget is spent, fires a single
// terminal MAX_RECONNECT error.
func (c *Client) handleClosed(gen int) {
	c.mu.Lock()
	if gen != c.generation || c.intentional {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.attempts++
	if c.attempts >= c.config.MaxReconnectAttempts {
		c.state = StateClosed
		c.mu.Unlock()
		c.logger.Error().Int("attempts", c.config.MaxReconnectAttempts).Msg("Reconnect budget exhausted")
		c.emitClientError(&ClientError{
			Code:        ErrCodeMaxReconnect,
			Message:     "exceeded maximum reconnection attempts",
			Recoverable: false,
		})
		return
	}
	attempt := c.attempts
	delay := time.Duration(attempt) * c.config.ReconnectBaseDelay
	c.state = StateReconnecting
	c.retryTimer = time.AfterFunc(delay, func() { c.retry(gen) })
	c.mu.Unlock()

	c.logger.Warn().Int("attempt", attempt).Dur("delay", delay).Msg("Connection closed, reconnecting")
}

// retry fires when the backoff timer elapses. The intentional flag and the
// generation are re-checked at fire time so a timer that raced Disconnect or
// a superseding Connect never dials.
func (c *Client) retry(gen int) {
	c.mu.Lock()
	if c.intentional || gen != c.generation || c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.state = StateConnecting
	c.generation++
	next := c.generation
	c.mu.Unlock()

	c.dial(next)
}
