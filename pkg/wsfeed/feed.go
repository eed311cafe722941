// Package wsfeed streams live quote updates over a WebSocket and pushes
// them into a quote sink. It supplements the REST pollers on venues that
// offer a push feed: the snapshot store keeps whichever quote is newer.
package wsfeed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// QuoteSink receives parsed quote updates. The snapshot store implements it.
type QuoteSink interface {
	UpsertQuote(q types.PriceQuote)
}

// Config holds feed configuration.
type Config struct {
	URL                   string
	Venue                 types.VenueID
	DialTimeout           time.Duration
	PongTimeout           time.Duration
	PingInterval          time.Duration
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
	ReconnectBackoffMult  float64
	Logger                *zap.Logger
}

// Feed manages one WebSocket connection to a venue's quote stream.
type Feed struct {
	cfg       Config
	sink      QuoteSink
	reconnect *reconnector

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	conn       *websocket.Conn
	subscribed map[string]bool

	connected    atomic.Bool
	lastPongUnix atomic.Int64
}

// New creates a feed writing into sink.
func New(cfg Config, sink QuoteSink) *Feed {
	ctx, cancel := context.WithCancel(context.Background())

	return &Feed{
		cfg:  cfg,
		sink: sink,
		reconnect: newReconnector(reconnectConfig{
			initialDelay: cfg.ReconnectInitialDelay,
			maxDelay:     cfg.ReconnectMaxDelay,
			multiplier:   cfg.ReconnectBackoffMult,
			jitter:       0.2,
		}, cfg.Logger),
		ctx:        ctx,
		cancel:     cancel,
		subscribed: make(map[string]bool),
	}
}

// Start dials the feed and launches the read, ping, and watchdog loops.
func (f *Feed) Start() error {
	f.cfg.Logger.Info("quote-feed-starting",
		zap.String("venue", string(f.cfg.Venue)),
		zap.String("url", f.cfg.URL))

	if err := f.connect(f.ctx); err != nil {
		return fmt.Errorf("initial connection: %w", err)
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()

	return nil
}

// Close tears down the connection and waits for the loops.
func (f *Feed) Close() {
	f.cancel()

	f.mu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.mu.Unlock()

	f.wg.Wait()
	f.cfg.Logger.Info("quote-feed-closed", zap.String("venue", string(f.cfg.Venue)))
}

// Connected reports whether the feed currently has a live connection.
func (f *Feed) Connected() bool {
	return f.connected.Load()
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: f.cfg.DialTimeout}

	conn, _, err := dialer.DialContext(ctx, f.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		f.lastPongUnix.Store(time.Now().Unix())
		return nil
	})

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()

	f.connected.Store(true)
	f.lastPongUnix.Store(time.Now().Unix())
	ConnectedGauge.WithLabelValues(string(f.cfg.Venue)).Set(1)

	f.cfg.Logger.Info("quote-feed-connected", zap.String("venue", string(f.cfg.Venue)))

	// Re-subscribe everything the previous connection carried.
	return f.sendSubscribe(f.subscribedMarkets())
}

// Subscribe adds markets to the live subscription set.
func (f *Feed) Subscribe(marketIDs []string) error {
	if len(marketIDs) == 0 {
		return nil
	}

	f.mu.Lock()
	fresh := make([]string, 0, len(marketIDs))
	for _, id := range marketIDs {
		if !f.subscribed[id] {
			f.subscribed[id] = true
			fresh = append(fresh, id)
		}
	}
	f.mu.Unlock()

	return f.sendSubscribe(fresh)
}

func (f *Feed) sendSubscribe(marketIDs []string) error {
	if len(marketIDs) == 0 {
		return nil
	}

	f.mu.RLock()
	conn := f.conn
	f.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}

	msg := map[string]any{"type": "subscribe", "markets": marketIDs}
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}

	f.cfg.Logger.Debug("quote-feed-subscribed",
		zap.String("venue", string(f.cfg.Venue)),
		zap.Int("count", len(marketIDs)))

	return nil
}

func (f *Feed) subscribedMarkets() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]string, 0, len(f.subscribed))
	for id := range f.subscribed {
		out = append(out, id)
	}
	return out
}

// quoteMessage is the wire shape of one quote update.
type quoteMessage struct {
	Type     string  `json:"type"`
	MarketID string  `json:"market"`
	Side     string  `json:"side"`
	Bid      float64 `json:"bid"`
	Ask      float64 `json:"ask"`
	AskSize  float64 `json:"ask_size"`
	TsMS     int64   `json:"timestamp_ms"`
}

func (f *Feed) readLoop() {
	defer f.wg.Done()

	for {
		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if f.ctx.Err() != nil {
				return
			}
			f.handleDisconnect(err)
			if f.ctx.Err() != nil {
				return
			}
			continue
		}

		var msg quoteMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ParseErrorsTotal.WithLabelValues(string(f.cfg.Venue)).Inc()
			f.cfg.Logger.Warn("quote-feed-parse-failed", zap.Error(err))
			continue
		}
		if msg.Type != "quote" {
			continue
		}

		side := types.SideYes
		if msg.Side == "no" || msg.Side == "NO" {
			side = types.SideNo
		}

		f.sink.UpsertQuote(types.PriceQuote{
			MarketID:  msg.MarketID,
			Side:      side,
			BestBid:   types.MicrosFromFloat(msg.Bid),
			BestAsk:   types.MicrosFromFloat(msg.Ask),
			Size:      int64(msg.AskSize),
			Timestamp: time.UnixMilli(msg.TsMS),
		})
		MessagesTotal.WithLabelValues(string(f.cfg.Venue)).Inc()
	}
}

func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.mu.RLock()
			conn := f.conn
			f.mu.RUnlock()
			if conn == nil || !f.connected.Load() {
				continue
			}

			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(f.cfg.DialTimeout)); err != nil {
				f.cfg.Logger.Warn("quote-feed-ping-failed", zap.Error(err))
				continue
			}

			// A silent peer is a dead peer.
			last := time.Unix(f.lastPongUnix.Load(), 0)
			if time.Since(last) > f.cfg.PongTimeout {
				f.cfg.Logger.Warn("quote-feed-pong-timeout",
					zap.Time("last-pong", last))
				conn.Close()
			}
		}
	}
}

func (f *Feed) handleDisconnect(cause error) {
	f.connected.Store(false)
	ConnectedGauge.WithLabelValues(string(f.cfg.Venue)).Set(0)
	DisconnectsTotal.WithLabelValues(string(f.cfg.Venue)).Inc()

	f.cfg.Logger.Warn("quote-feed-disconnected",
		zap.String("venue", string(f.cfg.Venue)),
		zap.Error(cause))

	if err := f.reconnect.run(f.ctx, f.connect); err != nil {
		f.cfg.Logger.Error("quote-feed-reconnect-abandoned", zap.Error(err))
	}
}
