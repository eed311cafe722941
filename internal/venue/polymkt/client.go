// Package polymkt implements the venue contracts for the decentralized,
// blockchain-settled venue. Market data comes over REST; orders are signed
// EIP-712 payloads submitted to the venue's CLOB gateway.
package polymkt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Client fetches events and quotes from the venue's data API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// ClientConfig holds data client configuration.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a data client.
func NewClient(cfg *ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

// Venue identifies this client's venue.
func (c *Client) Venue() types.VenueID { return types.VenuePolymkt }

type eventJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	EndDate   time.Time `json:"end_date"`
	Closed    bool      `json:"closed"`
	Resolved  bool      `json:"resolved"`
	Markets   []struct {
		ConditionID string `json:"condition_id"`
	} `json:"markets"`
}

// FetchEvents returns the venue's currently listed events.
func (c *Client) FetchEvents(ctx context.Context) ([]types.Event, error) {
	var raw []eventJSON
	if err := c.getJSON(ctx, "/events?active=true", &raw); err != nil {
		return nil, err
	}

	events := make([]types.Event, 0, len(raw))
	for _, e := range raw {
		status := types.EventOpen
		switch {
		case e.Resolved:
			status = types.EventResolved
		case e.Closed:
			status = types.EventClosed
		}
		ev := types.Event{
			Venue:     types.VenuePolymkt,
			ID:        e.ID,
			Title:     e.Title,
			Category:  e.Category,
			ExpiresAt: e.EndDate,
			Status:    status,
		}
		for _, m := range e.Markets {
			ev.Markets = append(ev.Markets, types.Market{ID: m.ConditionID, EventID: e.ID})
		}
		events = append(events, ev)
	}

	c.logger.Debug("events-fetched",
		zap.String("venue", string(types.VenuePolymkt)),
		zap.Int("count", len(events)))

	return events, nil
}

type bookJSON struct {
	MarketID string `json:"market"`
	Sides    map[string]struct {
		Bid  float64 `json:"bid"`
		Ask  float64 `json:"ask"`
		Size float64 `json:"ask_size"`
	} `json:"sides"`
	Timestamp int64 `json:"timestamp_ms"`
}

// FetchQuotes returns best bid/ask for both sides of the given markets.
func (c *Client) FetchQuotes(ctx context.Context, marketIDs []string) ([]types.PriceQuote, error) {
	if len(marketIDs) == 0 {
		return nil, nil
	}

	path := "/books?markets=" + url.QueryEscape(strings.Join(marketIDs, ","))
	var raw []bookJSON
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}

	quotes := make([]types.PriceQuote, 0, len(raw)*2)
	for _, book := range raw {
		ts := time.UnixMilli(book.Timestamp)
		for sideName, level := range book.Sides {
			side := types.SideYes
			if strings.EqualFold(sideName, "no") {
				side = types.SideNo
			}
			quotes = append(quotes, types.PriceQuote{
				MarketID:  book.MarketID,
				Side:      side,
				BestBid:   types.MicrosFromFloat(level.Bid),
				BestAsk:   types.MicrosFromFloat(level.Ask),
				Size:      int64(level.Size),
				Timestamp: ts,
			})
		}
	}
	return quotes, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &types.TransientVenueError{Venue: types.VenuePolymkt, Op: "get " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.TransientVenueError{Venue: types.VenuePolymkt, Op: "read " + path, Err: err}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &types.TransientVenueError{
			Venue: types.VenuePolymkt,
			Op:    "get " + path,
			Err:   fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
