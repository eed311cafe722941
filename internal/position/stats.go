package position

import "github.com/crossvenue/prediction-arb/pkg/types"

// Statistics is an aggregate snapshot across all tracked positions.
type Statistics struct {
	Total         int          `json:"total"`
	Open          int          `json:"open"`
	Settled       int          `json:"settled"`
	Won           int          `json:"won"`
	Lost          int          `json:"lost"`
	Unhedged      int          `json:"unhedged"`
	RealizedPnL   types.Micros `json:"realized_pnl_micros"`
	UnrealizedPnL types.Micros `json:"unrealized_pnl_micros"`
}

// Statistics aggregates counts and PnL over every tracked pair.
func (t *Tracker) Statistics() Statistics {
	var s Statistics
	for _, pos := range t.All() {
		s.Total++
		switch pos.Status {
		case StatusOpen:
			s.Open++
		case StatusSettled:
			s.Settled++
			if pos.RealizedPnL() > 0 {
				s.Won++
			} else {
				s.Lost++
			}
		}
		if pos.Unhedged {
			s.Unhedged++
		}
		s.RealizedPnL += pos.RealizedPnL()
		s.UnrealizedPnL += pos.UnrealizedPnL()
	}
	return s
}
