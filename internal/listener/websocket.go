// Package listener maintains a reconnecting WebSocket subscription to a
// node's new-head notifications, handing each new level straight to a
// BlockHandler so the caller can publish a page-ready notice without
// waiting for the next polling cycle.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Config configures the WebSocket listener.
type Config struct {
	URL            string // Base WebSocket URL (e.g., "wss://node.example.com")
	Platform       string
	Network        string
	MaxRetries     int           // Max reconnection attempts (default: 25)
	ReconnectDelay time.Duration // Base delay between reconnects (default: 1s)
}

// BlockHandler is called when a new head is received.
type BlockHandler func(platform, network string, level uint64, hash string)

// Listener subscribes to a node's head-notification stream and calls
// onNewBlock for every new head, reconnecting with linear backoff on
// disconnect.
type Listener struct {
	config     Config
	onNewBlock BlockHandler
	conn       *websocket.Conn
	mu         sync.RWMutex

	connectedAt   time.Time
	messageCount  uint64
	lastMessageAt time.Time
}

// New creates a new WebSocket listener.
func New(config Config, onNewBlock BlockHandler) *Listener {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 25
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = time.Second
	}
	return &Listener{config: config, onNewBlock: onNewBlock}
}

// Run starts the listener. It blocks until the context is cancelled, or
// returns an error once MaxRetries connection attempts in a row have
// failed.
func (l *Listener) Run(ctx context.Context) error {
	wsURL, err := l.buildURL()
	if err != nil {
		return fmt.Errorf("build websocket url: %w", err)
	}

	for attempt := 0; attempt < l.config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		slog.Info("connecting to node", "attempt", attempt+1, "max_retries", l.config.MaxRetries, "url", wsURL)

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err == nil {
			l.mu.Lock()
			l.conn = conn
			l.connectedAt = time.Now()
			l.messageCount = 0
			l.mu.Unlock()

			slog.Info("websocket connected", "url", wsURL)

			err = l.listen(ctx)
			if err == context.Canceled {
				return err
			}

			l.mu.Lock()
			uptime := time.Since(l.connectedAt)
			msgCount := l.messageCount
			if l.conn != nil {
				_ = l.conn.Close()
				l.conn = nil
			}
			l.mu.Unlock()

			slog.Warn("websocket disconnected", "err", err, "uptime", uptime.Round(time.Second), "messages_received", msgCount)

			attempt = 0
			continue
		}

		slog.Warn("failed to connect to node", "attempt", attempt+1, "err", err)

		delay := time.Duration(attempt+1) * l.config.ReconnectDelay
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("max retries (%d) reached", l.config.MaxRetries)
}

func (l *Listener) buildURL() (string, error) {
	parsed, err := url.Parse(l.config.URL)
	if err != nil {
		return "", err
	}

	wsScheme := "ws"
	if parsed.Scheme == "https" || parsed.Scheme == "wss" {
		wsScheme = "wss"
	}

	wsURL := url.URL{
		Scheme:   wsScheme,
		Host:     parsed.Host,
		Path:     parsed.Path,
		RawQuery: fmt.Sprintf("subscribe=newHeads&platform=%s&network=%s", l.config.Platform, l.config.Network),
	}
	return wsURL.String(), nil
}

// headNotification is the wire shape of one new-head push message,
// common to both Tezos' monitor/heads/main feed and an Ethereum node's
// eth_subscribe("newHeads") result payload.
type headNotification struct {
	Level uint64 `json:"level"`
	Hash  string `json:"hash"`
}

func (l *Listener) listen(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := l.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		var head headNotification
		if err := json.Unmarshal(data, &head); err != nil {
			slog.Warn("websocket unmarshal failed", "err", err, "data_len", len(data))
			continue
		}

		l.mu.Lock()
		l.messageCount++
		l.lastMessageAt = time.Now()
		msgNum := l.messageCount
		l.mu.Unlock()

		slog.Info("websocket new head", "platform", l.config.Platform, "network", l.config.Network, "level", head.Level, "msg_num", msgNum)

		l.onNewBlock(l.config.Platform, l.config.Network, head.Level, head.Hash)
	}
}

// Close gracefully closes the WebSocket connection.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		err := l.conn.Close()
		l.conn = nil
		return err
	}
	return nil
}

// IsConnected returns whether the listener is currently connected.
func (l *Listener) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.conn != nil
}

// Stats returns current connection statistics.
func (l *Listener) Stats() (connected bool, uptime time.Duration, messageCount uint64, lastMessage time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	connected = l.conn != nil
	if connected {
		uptime = time.Since(l.connectedAt)
	}
	messageCount = l.messageCount
	lastMessage = l.lastMessageAt
	return
}
