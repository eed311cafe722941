package wsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

type collectingSink struct {
	mu     sync.Mutex
	quotes []types.PriceQuote
}

func (s *collectingSink) UpsertQuote(q types.PriceQuote) {
	s.mu.Lock()
	s.quotes = append(s.quotes, q)
	s.mu.Unlock()
}

func (s *collectingSink) all() []types.PriceQuote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.PriceQuote(nil), s.quotes...)
}

// wsServer is a minimal quote stream endpoint. It records subscribe
// messages and pushes canned payloads.
type wsServer struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu         sync.Mutex
	conn       *websocket.Conn
	subscribes [][]string
}

func newWSServer(t *testing.T) (*wsServer, string) {
	s := &wsServer{t: t}
	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (s *wsServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	for {
		var msg struct {
			Type    string   `json:"type"`
			Markets []string `json:"markets"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "subscribe" {
			s.mu.Lock()
			s.subscribes = append(s.subscribes, msg.Markets)
			s.mu.Unlock()
		}
	}
}

func (s *wsServer) push(payload string) {
	deadline := time.Now().Add(time.Second)
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			require.NoError(s.t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
			return
		}
		if time.Now().After(deadline) {
			s.t.Fatal("no connection to push to")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestFeed(t *testing.T, url string, sink QuoteSink) *Feed {
	f := New(Config{
		URL:                   url,
		Venue:                 types.VenuePolymkt,
		DialTimeout:           time.Second,
		PongTimeout:           5 * time.Second,
		PingInterval:          time.Second,
		ReconnectInitialDelay: 10 * time.Millisecond,
		ReconnectMaxDelay:     50 * time.Millisecond,
		ReconnectBackoffMult:  2.0,
		Logger:                zaptest.NewLogger(t),
	}, sink)
	return f
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestFeedDeliversQuotes(t *testing.T) {
	srv, url := newWSServer(t)
	sink := &collectingSink{}

	f := newTestFeed(t, url, sink)
	require.NoError(t, f.Start())
	defer f.Close()

	require.True(t, f.Connected())

	srv.push(`{"type":"quote","market":"0xabc","side":"yes","bid":0.44,"ask":0.45,"ask_size":100,"timestamp_ms":1700000000000}`)
	srv.push(`{"type":"quote","market":"0xabc","side":"no","bid":0.54,"ask":0.55,"ask_size":80,"timestamp_ms":1700000000001}`)

	waitFor(t, func() bool { return len(sink.all()) == 2 }, "expected two quotes")

	quotes := sink.all()
	assert.Equal(t, "0xabc", quotes[0].MarketID)
	assert.Equal(t, types.SideYes, quotes[0].Side)
	assert.Equal(t, types.MicrosFromFloat(0.45), quotes[0].BestAsk)
	assert.Equal(t, int64(100), quotes[0].Size)
	assert.Equal(t, time.UnixMilli(1700000000000), quotes[0].Timestamp)
	assert.Equal(t, types.SideNo, quotes[1].Side)
}

func TestFeedIgnoresNonQuoteMessages(t *testing.T) {
	srv, url := newWSServer(t)
	sink := &collectingSink{}

	f := newTestFeed(t, url, sink)
	require.NoError(t, f.Start())
	defer f.Close()

	srv.push(`{"type":"heartbeat"}`)
	srv.push(`not even json`)
	srv.push(`{"type":"quote","market":"0xabc","side":"yes","bid":0.44,"ask":0.45,"ask_size":100,"timestamp_ms":1700000000000}`)

	waitFor(t, func() bool { return len(sink.all()) == 1 }, "expected one quote")
}

func TestFeedSubscribe(t *testing.T) {
	srv, url := newWSServer(t)
	sink := &collectingSink{}

	f := newTestFeed(t, url, sink)
	require.NoError(t, f.Start())
	defer f.Close()

	require.NoError(t, f.Subscribe([]string{"0xabc", "0xdef"}))
	// Already-subscribed markets are not re-sent.
	require.NoError(t, f.Subscribe([]string{"0xabc"}))

	waitFor(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.subscribes) == 1
	}, "expected one subscribe message")

	srv.mu.Lock()
	defer srv.mu.Unlock()
	assert.ElementsMatch(t, []string{"0xabc", "0xdef"}, srv.subscribes[0])
}

func TestFeedStartFailsWhenUnreachable(t *testing.T) {
	sink := &collectingSink{}
	f := newTestFeed(t, "ws://127.0.0.1:1/ws", sink)
	assert.Error(t, f.Start())
}

func TestReconnectorBackoffGrowsAndCaps(t *testing.T) {
	r := newReconnector(reconnectConfig{
		initialDelay: 10 * time.Millisecond,
		maxDelay:     40 * time.Millisecond,
		multiplier:   2.0,
	}, zaptest.NewLogger(t))

	assert.Equal(t, 10*time.Millisecond, r.next())
	r.grow()
	assert.Equal(t, 20*time.Millisecond, r.next())
	r.grow()
	assert.Equal(t, 40*time.Millisecond, r.next())
	r.grow()
	// Capped.
	assert.Equal(t, 40*time.Millisecond, r.next())

	r.reset()
	assert.Equal(t, 10*time.Millisecond, r.next())
}

func TestReconnectorStopsOnCancel(t *testing.T) {
	r := newReconnector(reconnectConfig{
		initialDelay: time.Hour,
		maxDelay:     time.Hour,
		multiplier:   2.0,
	}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.run(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconnectorRetriesUntilSuccess(t *testing.T) {
	r := newReconnector(reconnectConfig{
		initialDelay: time.Millisecond,
		maxDelay:     5 * time.Millisecond,
		multiplier:   2.0,
	}, zaptest.NewLogger(t))

	attempts := 0
	err := r.run(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return assert.AnError
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}
