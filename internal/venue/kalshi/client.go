// Package kalshi implements the venue contracts for the centralized,
// REST-based venue. One authenticated HTTP client serves market data,
// orders, and resolution status.
package kalshi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crossvenue/prediction-arb/internal/venue"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Client talks to the venue's trade API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *zap.Logger
}

// New creates a client.
func New(cfg *Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

// Venue identifies this client's venue.
func (c *Client) Venue() types.VenueID { return types.VenueKalshi }

type eventJSON struct {
	Ticker    string    `json:"event_ticker"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	CloseTime time.Time `json:"close_time"`
	Status    string    `json:"status"` // "open", "closed", "settled"
	Markets   []struct {
		Ticker string `json:"ticker"`
	} `json:"markets"`
}

// FetchEvents returns the venue's currently listed events.
func (c *Client) FetchEvents(ctx context.Context) ([]types.Event, error) {
	var raw struct {
		Events []eventJSON `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/events?status=open", nil, &raw); err != nil {
		return nil, err
	}

	events := make([]types.Event, 0, len(raw.Events))
	for _, e := range raw.Events {
		status := types.EventOpen
		switch e.Status {
		case "settled":
			status = types.EventResolved
		case "closed":
			status = types.EventClosed
		}
		ev := types.Event{
			Venue:     types.VenueKalshi,
			ID:        e.Ticker,
			Title:     e.Title,
			Category:  e.Category,
			ExpiresAt: e.CloseTime,
			Status:    status,
		}
		for _, m := range e.Markets {
			ev.Markets = append(ev.Markets, types.Market{ID: m.Ticker, EventID: e.Ticker})
		}
		events = append(events, ev)
	}

	c.logger.Debug("events-fetched",
		zap.String("venue", string(types.VenueKalshi)),
		zap.Int("count", len(events)))

	return events, nil
}

// Quote prices arrive in integer cents.
type quoteJSON struct {
	Ticker    string `json:"ticker"`
	YesBid    int64  `json:"yes_bid"`
	YesAsk    int64  `json:"yes_ask"`
	NoBid     int64  `json:"no_bid"`
	NoAsk     int64  `json:"no_ask"`
	Liquidity int64  `json:"liquidity"`
	UpdatedMS int64  `json:"updated_ms"`
}

const centMicros = types.Dollar / 100

// FetchQuotes returns best bid/ask for both sides of the given markets.
func (c *Client) FetchQuotes(ctx context.Context, marketIDs []string) ([]types.PriceQuote, error) {
	if len(marketIDs) == 0 {
		return nil, nil
	}

	path := "/markets?tickers=" + url.QueryEscape(strings.Join(marketIDs, ","))
	var raw struct {
		Markets []quoteJSON `json:"markets"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	quotes := make([]types.PriceQuote, 0, len(raw.Markets)*2)
	for _, m := range raw.Markets {
		ts := time.UnixMilli(m.UpdatedMS)
		quotes = append(quotes,
			types.PriceQuote{
				MarketID:  m.Ticker,
				Side:      types.SideYes,
				BestBid:   types.Micros(m.YesBid) * centMicros,
				BestAsk:   types.Micros(m.YesAsk) * centMicros,
				Size:      m.Liquidity,
				Timestamp: ts,
			},
			types.PriceQuote{
				MarketID:  m.Ticker,
				Side:      types.SideNo,
				BestBid:   types.Micros(m.NoBid) * centMicros,
				BestAsk:   types.Micros(m.NoAsk) * centMicros,
				Size:      m.Liquidity,
				Timestamp: ts,
			},
		)
	}
	return quotes, nil
}

type orderJSON struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"` // "executed", "resting", "canceled"
	FilledCount int64  `json:"filled_count"`
	AvgPrice    int64  `json:"avg_fill_price"` // cents
}

// SubmitOrder places an immediate-or-cancel limit order.
func (c *Client) SubmitOrder(ctx context.Context, req venue.OrderRequest) (*venue.OrderResult, error) {
	side := "yes"
	if req.Side == types.SideNo {
		side = "no"
	}
	action := "buy"
	if req.Action == venue.ActionSell {
		action = "sell"
	}

	body := map[string]any{
		"ticker":        req.MarketID,
		"side":          side,
		"action":        action,
		"type":          "limit",
		"time_in_force": "ioc",
		"count":         req.Size,
		"price":         int64(req.LimitPrice / centMicros),
	}

	var resp struct {
		Order orderJSON `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return nil, err
	}

	result := &venue.OrderResult{
		OrderID:    resp.Order.OrderID,
		FilledSize: resp.Order.FilledCount,
		AvgPrice:   types.Micros(resp.Order.AvgPrice) * centMicros,
	}

	switch resp.Order.Status {
	case "executed":
		if resp.Order.FilledCount >= req.Size {
			result.State = types.OrderFilled
		} else {
			result.State = types.OrderPartiallyFilled
		}
	case "canceled":
		if resp.Order.FilledCount > 0 {
			result.State = types.OrderPartiallyFilled
		} else {
			result.State = types.OrderRejected
		}
	default:
		result.State = types.OrderSubmitted
	}

	return result, nil
}

// CancelOrder cancels a resting order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+orderID, nil, nil)
}

// FetchResolution reports whether an event has settled and to which side.
func (c *Client) FetchResolution(ctx context.Context, eventID string) (*types.Resolution, error) {
	var raw struct {
		Event struct {
			Status string `json:"status"`
			Result string `json:"result"` // "yes" or "no" once settled
		} `json:"event"`
	}
	if err := c.do(ctx, http.MethodGet, "/events/"+eventID, nil, &raw); err != nil {
		return nil, err
	}
	return &types.Resolution{
		Resolved: raw.Event.Status == "settled",
		Outcome:  raw.Event.Result == "yes",
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, reqBody any, out any) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return &types.TransientVenueError{Venue: types.VenueKalshi, Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.TransientVenueError{Venue: types.VenueKalshi, Op: "read " + path, Err: err}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &types.TransientVenueError{
			Venue: types.VenueKalshi,
			Op:    method + " " + path,
			Err:   fmt.Errorf("status %d: %s", resp.StatusCode, string(data)),
		}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return nil
}
