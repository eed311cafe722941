package httpserver

import (
	"net/http"

	"github.com/crossvenue/prediction-arb/internal/matcher"
	"github.com/crossvenue/prediction-arb/internal/position"
	"github.com/crossvenue/prediction-arb/internal/riskbreaker"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

type apiHandler struct {
	pairs   *matcher.PairStore
	tracker *position.Tracker
	breaker *riskbreaker.Breaker
	logger  *zap.Logger
}

func newAPIHandler(pairs *matcher.PairStore, tracker *position.Tracker, breaker *riskbreaker.Breaker, logger *zap.Logger) *apiHandler {
	return &apiHandler{pairs: pairs, tracker: tracker, breaker: breaker, logger: logger}
}

type pairJSON struct {
	ID          string  `json:"id"`
	EventAID    string  `json:"event_a_id"`
	EventBID    string  `json:"event_b_id"`
	MarketAID   string  `json:"market_a_id"`
	MarketBID   string  `json:"market_b_id"`
	Confidence  float64 `json:"confidence"`
	ExpiryDelta string  `json:"expiry_delta"`
	Active      bool    `json:"active"`
}

// handlePairs returns every known pair, active first is not guaranteed.
func (h *apiHandler) handlePairs(w http.ResponseWriter, r *http.Request) {
	pairs := h.pairs.AllPairs()

	out := make([]pairJSON, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairJSON{
			ID:          p.ID,
			EventAID:    p.EventAID,
			EventBID:    p.EventBID,
			MarketAID:   p.MarketAID,
			MarketBID:   p.MarketBID,
			Confidence:  p.Confidence,
			ExpiryDelta: p.ExpiryDelta.String(),
			Active:      p.Active,
		})
	}
	h.writeJSON(w, out)
}

type legJSON struct {
	Venue         string `json:"venue"`
	MarketID      string `json:"market_id"`
	Side          string `json:"side"`
	NetSize       int64  `json:"net_size"`
	AvgCostMicros int64  `json:"avg_cost_micros"`
	RealizedPnL   int64  `json:"realized_pnl_micros"`
	UnrealizedPnL int64  `json:"unrealized_pnl_micros"`
}

type positionJSON struct {
	PairID   string    `json:"pair_id"`
	Status   string    `json:"status"`
	Unhedged bool      `json:"unhedged"`
	Legs     []legJSON `json:"legs"`
}

func (h *apiHandler) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := h.tracker.All()

	out := make([]positionJSON, 0, len(positions))
	for _, pos := range positions {
		pj := positionJSON{
			PairID:   pos.PairID,
			Status:   string(pos.Status),
			Unhedged: pos.Unhedged,
			Legs:     make([]legJSON, 0, len(pos.Legs)),
		}
		for _, leg := range pos.Legs {
			pj.Legs = append(pj.Legs, legJSON{
				Venue:         string(leg.Venue),
				MarketID:      leg.MarketID,
				Side:          string(leg.Side),
				NetSize:       leg.NetSize,
				AvgCostMicros: int64(leg.AvgCost),
				RealizedPnL:   int64(leg.RealizedPnL),
				UnrealizedPnL: int64(leg.UnrealizedPnL),
			})
		}
		out = append(out, pj)
	}
	h.writeJSON(w, out)
}

func (h *apiHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.tracker.Statistics())
}

func (h *apiHandler) handleBreaker(w http.ResponseWriter, r *http.Request) {
	if h.breaker == nil {
		// Running without a risk breaker; the route exists either way.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		if err := json.NewEncoder(w).Encode(map[string]string{"error": "breaker disabled"}); err != nil {
			h.logger.Error("encode-response-failed", zap.Error(err))
		}
		return
	}
	h.writeJSON(w, h.breaker.Status())
}

func (h *apiHandler) writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encode-response-failed", zap.Error(err))
	}
}
