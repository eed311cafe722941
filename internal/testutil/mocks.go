package testutil

import (
	"context"
	"sync"

	"github.com/crossvenue/prediction-arb/internal/venue"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

// MockDataClient serves canned events and quotes for one venue.
type MockDataClient struct {
	VenueID types.VenueID

	mu     sync.RWMutex
	events []types.Event
	quotes map[string][]types.PriceQuote // market id -> both sides
	err    error
}

// NewMockDataClient creates a data client for the given venue.
func NewMockDataClient(venueID types.VenueID) *MockDataClient {
	return &MockDataClient{
		VenueID: venueID,
		quotes:  make(map[string][]types.PriceQuote),
	}
}

// SetEvents replaces the canned event list.
func (m *MockDataClient) SetEvents(events []types.Event) {
	m.mu.Lock()
	m.events = events
	m.mu.Unlock()
}

// SetQuotes replaces the canned quotes for a market.
func (m *MockDataClient) SetQuotes(marketID string, quotes ...types.PriceQuote) {
	m.mu.Lock()
	m.quotes[marketID] = quotes
	m.mu.Unlock()
}

// SetError makes every fetch fail with err until cleared.
func (m *MockDataClient) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockDataClient) Venue() types.VenueID { return m.VenueID }

func (m *MockDataClient) FetchEvents(ctx context.Context) ([]types.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]types.Event(nil), m.events...), nil
}

func (m *MockDataClient) FetchQuotes(ctx context.Context, marketIDs []string) ([]types.PriceQuote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []types.PriceQuote
	for _, id := range marketIDs {
		out = append(out, m.quotes[id]...)
	}
	return out, nil
}

// MockOrderClient scripts per-call order results. Results are consumed in
// submission order; when the script runs out, orders fill fully at limit.
type MockOrderClient struct {
	VenueID types.VenueID

	mu       sync.Mutex
	script   []ScriptedOrder
	Requests []venue.OrderRequest
}

// ScriptedOrder is one scripted response.
type ScriptedOrder struct {
	Result *venue.OrderResult
	Err    error
}

// NewMockOrderClient creates an order client for the given venue.
func NewMockOrderClient(venueID types.VenueID) *MockOrderClient {
	return &MockOrderClient{VenueID: venueID}
}

// Script appends scripted responses.
func (m *MockOrderClient) Script(orders ...ScriptedOrder) {
	m.mu.Lock()
	m.script = append(m.script, orders...)
	m.mu.Unlock()
}

func (m *MockOrderClient) Venue() types.VenueID { return m.VenueID }

func (m *MockOrderClient) SubmitOrder(ctx context.Context, req venue.OrderRequest) (*venue.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next.Result, next.Err
	}

	return &venue.OrderResult{
		OrderID:    "mock-order",
		FilledSize: req.Size,
		AvgPrice:   req.LimitPrice,
		State:      types.OrderFilled,
	}, nil
}

func (m *MockOrderClient) CancelOrder(ctx context.Context, orderID string) error {
	return nil
}

// MockSettlementClient serves canned resolutions by event id.
type MockSettlementClient struct {
	mu          sync.RWMutex
	resolutions map[string]*types.Resolution
	err         error
}

// NewMockSettlementClient creates an empty settlement client. Unknown
// events report unresolved.
func NewMockSettlementClient() *MockSettlementClient {
	return &MockSettlementClient{resolutions: make(map[string]*types.Resolution)}
}

// Resolve marks an event resolved to the given outcome.
func (m *MockSettlementClient) Resolve(eventID string, outcomeYes bool) {
	m.mu.Lock()
	m.resolutions[eventID] = &types.Resolution{Resolved: true, Outcome: outcomeYes}
	m.mu.Unlock()
}

// SetError makes every fetch fail with err until cleared.
func (m *MockSettlementClient) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockSettlementClient) FetchResolution(ctx context.Context, eventID string) (*types.Resolution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if res, ok := m.resolutions[eventID]; ok {
		return res, nil
	}
	return &types.Resolution{}, nil
}
