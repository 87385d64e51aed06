package transcription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-meeting-copilot/internal/credentials"
	"ai-meeting-copilot/internal/models"
	"ai-meeting-copilot/internal/observability/logging"
	"ai-meeting-copilot/internal/observability/metrics"
)

// Config holds websocket client settings. Zero values take the defaults.
type Config struct {
	URL          string
	Model        string
	Language     string
	SampleRateHz int

	// Provider is the credential name resolved on every dial.
	Provider string

	MaxReconnects     int
	BackoffBase       time.Duration
	KeepaliveInterval time.Duration
	FinalGrace        time.Duration
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "deepgram"
	}
	if c.Model == "" {
		c.Model = "nova-2"
	}
	if c.SampleRateHz == 0 {
		c.SampleRateHz = 16000
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 3
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = time.Second
	}
	if c.KeepaliveInterval == 0 {
		c.KeepaliveInterval = 8 * time.Second
	}
	if c.FinalGrace == 0 {
		c.FinalGrace = 800 * time.Millisecond
	}
}

// Client maintains one websocket recognition stream per session id.
// It implements Streamer.
type Client struct {
	cfg       Config
	creds     credentials.Resolver
	transport Transport
	cb        Callback
	metrics   *metrics.Metrics

	mu      sync.Mutex
	streams map[string]*stream
}

// NewClient creates a websocket recognition client.
func NewClient(cfg Config, creds credentials.Resolver, transport Transport, cb Callback) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:       cfg,
		creds:     creds,
		transport: transport,
		cb:        cb,
		metrics:   metrics.DefaultMetrics,
		streams:   make(map[string]*stream),
	}
}

// stream is one live (session, channel) recognition connection.
type stream struct {
	id       string
	channel  models.Channel
	language string

	lifecycle *connLifecycle

	connMu sync.Mutex
	conn   Conn

	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	lastAudio atomic.Int64 // unix nanos of the last audio write
	log       zerolog.Logger
}

func (s *stream) setConn(c Conn) {
	s.connMu.Lock()
	s.conn = c
	s.connMu.Unlock()
}

func (s *stream) getConn() Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

func (s *stream) requestStop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// StartSession opens a streaming connection for id. If a session with the
// same id already exists it is stopped first, so restart is idempotent.
func (c *Client) StartSession(ctx context.Context, id string, channel models.Channel, language string) error {
	if language == "" {
		language = c.cfg.Language
	}

	// Credential check up front; the key is re-resolved on every dial.
	if _, err := c.creds.APIKey(c.cfg.Provider); err != nil {
		return err
	}

	c.mu.Lock()
	existing := c.streams[id]
	c.mu.Unlock()
	if existing != nil {
		_ = c.StopSession(ctx, id)
	}

	s := &stream{
		id:        id,
		channel:   channel,
		language:  language,
		lifecycle: newConnLifecycle(),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		log:       logging.WithStream(id, string(channel), c.cfg.Provider),
	}

	if err := s.lifecycle.ToConnecting(); err != nil {
		return err
	}
	conn, err := c.dial(ctx, s)
	if err != nil {
		s.lifecycle.ToDisconnected()
		return fmt.Errorf("open recognition stream %s: %w", id, err)
	}

	c.mu.Lock()
	c.streams[id] = s
	c.mu.Unlock()

	c.metrics.StreamsActive.WithLabelValues(string(channel)).Inc()
	s.log.Info().Str("language", language).Msg("Recognition stream opened")

	go c.run(s, conn)
	return nil
}

// SendAudioChunk forwards raw PCM to the provider. The chunk is silently
// dropped (logged, not raised) when the connection is not Connected, since
// audio producers must never block on transport health.
func (c *Client) SendAudioChunk(id string, data []byte) {
	c.mu.Lock()
	s := c.streams[id]
	c.mu.Unlock()

	if s == nil || !s.lifecycle.IsConnected() {
		ch := "unknown"
		if s != nil {
			ch = string(s.channel)
		}
		c.metrics.AudioChunksDropped.WithLabelValues(ch).Inc()
		return
	}

	conn := s.getConn()
	if conn == nil {
		c.metrics.AudioChunksDropped.WithLabelValues(string(s.channel)).Inc()
		return
	}

	if err := conn.WriteMessage(BinaryMessage, data); err != nil {
		s.log.Warn().Err(err).Msg("Dropping audio chunk: write failed")
		c.metrics.AudioChunksDropped.WithLabelValues(string(s.channel)).Inc()
		return
	}
	s.lastAudio.Store(time.Now().UnixNano())
	c.metrics.AudioBytesSent.WithLabelValues(string(s.channel)).Add(float64(len(data)))
	c.metrics.AudioFramesSent.WithLabelValues(string(s.channel)).Inc()
}

// StopSession gracefully ends the session: it sends the end-of-stream
// control message, waits briefly for trailing final results, then closes
// with the normal code. The session always leaves the live set.
func (c *Client) StopSession(ctx context.Context, id string) error {
	c.mu.Lock()
	s := c.streams[id]
	delete(c.streams, id)
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	s.lifecycle.ToClosing()
	s.requestStop()

	if conn := s.getConn(); conn != nil {
		if err := conn.WriteMessage(TextMessage, closeStreamFrame()); err == nil {
			// Trailing finals arrive through the read loop during this window.
			select {
			case <-s.doneCh:
			case <-time.After(c.cfg.FinalGrace):
			case <-ctx.Done():
			}
		}
		_ = conn.WriteClose(websocket.CloseNormalClosure)
		_ = conn.Close()
	}

	select {
	case <-s.doneCh:
	case <-time.After(2 * time.Second):
		s.log.Warn().Msg("Timed out waiting for stream loop to exit")
	}

	s.lifecycle.ToDisconnected()
	c.metrics.StreamsActive.WithLabelValues(string(s.channel)).Dec()
	s.log.Info().Msg("Recognition stream stopped")
	return nil
}

// StopAll stops every live session.
func (c *Client) StopAll(ctx context.Context) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.streams))
	for id := range c.streams {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		_ = c.StopSession(ctx, id)
	}
}

// dial resolves the credential and opens one provider connection.
func (c *Client) dial(ctx context.Context, s *stream) (Conn, error) {
	key, err := c.creds.APIKey(c.cfg.Provider)
	if err != nil {
		return nil, err
	}

	u, err := streamURL(c.cfg.URL, c.cfg.Model, s.language, c.cfg.SampleRateHz)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Token "+key)
	return c.transport.Dial(ctx, u, header)
}

// run supervises one stream: it pumps the read loop and reconnects with
// exponential backoff on unexpected closes.
func (c *Client) run(s *stream, conn Conn) {
	defer close(s.doneCh)

	attempts := 0
	for {
		s.setConn(conn)
		if err := s.lifecycle.ToConnected(); err != nil {
			// Stop raced the dial; tear down quietly.
			conn.Close()
			return
		}

		keepaliveDone := make(chan struct{})
		go c.keepaliveLoop(s, conn, keepaliveDone)

		readErr := c.readLoop(s, conn)

		close(keepaliveDone)
		s.setConn(nil)
		conn.Close()

		if s.lifecycle.IsClosing() || isNormalClose(readErr) {
			return
		}

		if isRejection(readErr) {
			c.metrics.StreamRejections.WithLabelValues(string(s.channel)).Inc()
			s.log.Error().Err(readErr).Msg("Stream rejected by provider, not retrying")
			c.terminate(s, fmt.Errorf("%w: %v", ErrRejected, readErr))
			return
		}

		// Unexpected close: retry with backoff, re-resolving the credential
		// on each attempt since it may have rotated.
		next, ok := c.reconnect(s, &attempts, readErr)
		if !ok {
			return
		}
		conn = next
		attempts = 0
	}
}

// reconnect retries the dial up to MaxReconnects times. Returns the new
// connection, or ok=false once the stream is terminal.
func (c *Client) reconnect(s *stream, attempts *int, cause error) (Conn, bool) {
	for {
		*attempts++
		if *attempts > c.cfg.MaxReconnects {
			s.log.Error().Err(cause).Int("attempts", c.cfg.MaxReconnects).Msg("Giving up on stream after repeated failures")
			c.terminate(s, fmt.Errorf("%w after %d attempts: %v", ErrDropped, c.cfg.MaxReconnects, cause))
			return nil, false
		}

		if err := s.lifecycle.ToReconnecting(); err != nil {
			return nil, false
		}
		c.metrics.StreamReconnects.WithLabelValues(string(s.channel)).Inc()

		backoff := c.cfg.BackoffBase << (*attempts - 1)
		s.log.Warn().Err(cause).Int("attempt", *attempts).Dur("backoff", backoff).Msg("Stream lost, reconnecting")

		select {
		case <-s.stopCh:
			return nil, false
		case <-time.After(backoff):
		}

		if err := s.lifecycle.ToConnecting(); err != nil {
			return nil, false
		}
		conn, err := c.dial(context.Background(), s)
		if err == nil {
			s.log.Info().Int("attempt", *attempts).Msg("Stream reconnected")
			return conn, true
		}
		if errors.Is(err, credentials.ErrCredentialMissing) {
			c.terminate(s, err)
			return nil, false
		}
		cause = err
	}
}

// terminate removes the stream from the live set and surfaces a terminal
// error event.
func (c *Client) terminate(s *stream, err error) {
	c.mu.Lock()
	if c.streams[s.id] == s {
		delete(c.streams, s.id)
	}
	c.mu.Unlock()

	s.lifecycle.ToDisconnected()
	c.metrics.StreamsActive.WithLabelValues(string(s.channel)).Dec()
	c.cb.OnStreamError(s.id, s.channel, err)
}

// readLoop pumps inbound frames until the connection errors or closes.
func (c *Client) readLoop(s *stream, conn Conn) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != TextMessage {
			continue
		}

		ev, empty, perr := parseResult(data, s.channel)
		if perr != nil {
			s.log.Warn().Err(perr).Msg("Skipping unparseable provider frame")
			continue
		}
		if empty {
			// Voice activity without usable text; tracked, not emitted.
			c.metrics.EmptyResults.WithLabelValues(string(s.channel)).Inc()
			s.log.Debug().Msg("Empty transcript result")
			continue
		}
		if ev == nil {
			continue
		}

		if ev.IsFinal {
			c.metrics.TranscriptsFinal.WithLabelValues(string(s.channel)).Inc()
		} else {
			c.metrics.TranscriptsPartial.WithLabelValues(string(s.channel)).Inc()
		}
		c.cb.OnTranscript(s.id, *ev)
	}
}

// keepaliveLoop sends the keepalive control message while the connection is
// connected and idle, since providers close idle connections.
func (c *Client) keepaliveLoop(s *stream, conn Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.lifecycle.IsConnected() {
				continue
			}
			idleFor := time.Since(time.Unix(0, s.lastAudio.Load()))
			if idleFor < c.cfg.KeepaliveInterval {
				continue
			}
			if err := conn.WriteMessage(TextMessage, keepAliveFrame()); err != nil {
				s.log.Debug().Err(err).Msg("Keepalive write failed")
				continue
			}
			c.metrics.StreamKeepalives.WithLabelValues(string(s.channel)).Inc()
		}
	}
}

// Auth/policy close codes terminate the session permanently.
var rejectionCodes = []int{
	websocket.ClosePolicyViolation, // 1008
	4401,                           // provider auth failure
	4403,                           // provider forbidden
}

func isRejection(err error) bool {
	var ce *websocket.CloseError
	if !errors.As(err, &ce) {
		return false
	}
	for _, code := range rejectionCodes {
		if ce.Code == code {
			return true
		}
	}
	return false
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure)
}
