package matcher

import (
	"sync"
	"time"

	"github.com/crossvenue/prediction-arb/pkg/types"
	"github.com/google/uuid"
)

// Pair is a matched cross-venue event pair. Owned by the pair store;
// downstream components hold only the immutable ID.
type Pair struct {
	ID          string
	EventAID    string // decentralized venue event
	EventBID    string // centralized venue event
	MarketAID   string
	MarketBID   string
	Confidence  float64
	ExpiryDelta time.Duration
	Active      bool
	CreatedAt   time.Time
	RetiredAt   time.Time
}

// PairStore owns the lifecycle of matched pairs. Retired pairs stay in the
// store so positions and settlements can still resolve their ids.
type PairStore struct {
	mu       sync.RWMutex
	pairs    map[string]*Pair
	byEvent  map[string]string // "A:<eventID>" / "B:<eventID>" -> pair id
	byMarket map[string]string // market id (either venue) -> pair id
}

// NewPairStore creates an empty pair store.
func NewPairStore() *PairStore {
	return &PairStore{
		pairs:    make(map[string]*Pair),
		byEvent:  make(map[string]string),
		byMarket: make(map[string]string),
	}
}

// Reconcile folds one matcher run into the store. Existing pairs persist
// even if the new run scored them differently; new pairings are admitted
// only when neither event already belongs to an active pair.
func (s *PairStore) Reconcile(candidates []Candidate, now time.Time) []Pair {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []Pair
	for _, c := range candidates {
		if s.lockedActivePairFor(c.EventA.ID, c.EventB.ID) != nil {
			continue
		}

		p := &Pair{
			ID:          uuid.New().String(),
			EventAID:    c.EventA.ID,
			EventBID:    c.EventB.ID,
			MarketAID:   c.EventA.BinaryMarket().ID,
			MarketBID:   c.EventB.BinaryMarket().ID,
			Confidence:  c.Confidence,
			ExpiryDelta: c.ExpiryDelta,
			Active:      true,
			CreatedAt:   now,
		}
		s.pairs[p.ID] = p
		s.byEvent["A:"+p.EventAID] = p.ID
		s.byEvent["B:"+p.EventBID] = p.ID
		s.byMarket[p.MarketAID] = p.ID
		s.byMarket[p.MarketBID] = p.ID
		created = append(created, *p)
	}

	return created
}

func (s *PairStore) lockedActivePairFor(eventAID, eventBID string) *Pair {
	if id, ok := s.byEvent["A:"+eventAID]; ok && s.pairs[id].Active {
		return s.pairs[id]
	}
	if id, ok := s.byEvent["B:"+eventBID]; ok && s.pairs[id].Active {
		return s.pairs[id]
	}
	return nil
}

// Retire marks a pair inactive, keeping it for historical reference.
func (s *PairStore) Retire(pairID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pairs[pairID]
	if !ok || !p.Active {
		return false
	}
	p.Active = false
	p.RetiredAt = now
	return true
}

// RetireForInactiveEvents retires every active pair whose underlying event
// is no longer open on either venue. Returns the retired pair ids.
func (s *PairStore) RetireForInactiveEvents(isActive func(pair Pair) bool, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var retired []string
	for id, p := range s.pairs {
		if !p.Active {
			continue
		}
		if !isActive(*p) {
			p.Active = false
			p.RetiredAt = now
			retired = append(retired, id)
		}
	}
	return retired
}

// Get returns a copy of a pair by id.
func (s *PairStore) Get(pairID string) (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pairs[pairID]
	if !ok {
		return Pair{}, false
	}
	return *p, true
}

// ActivePairs returns copies of all active pairs.
func (s *PairStore) ActivePairs() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Pair, 0, len(s.pairs))
	for _, p := range s.pairs {
		if p.Active {
			out = append(out, *p)
		}
	}
	return out
}

// AllPairs returns copies of every pair, active and retired.
func (s *PairStore) AllPairs() []Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Pair, 0, len(s.pairs))
	for _, p := range s.pairs {
		out = append(out, *p)
	}
	return out
}

// PairForMarket returns the active pair containing the given market id.
func (s *PairStore) PairForMarket(marketID string) (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byMarket[marketID]
	if !ok {
		return Pair{}, false
	}
	p := s.pairs[id]
	if !p.Active {
		return Pair{}, false
	}
	return *p, true
}

// MatchedEvent reports whether the event currently belongs to an active pair.
func (s *PairStore) MatchedEvent(venue types.VenueID, eventID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := "B:" + eventID
	if venue == types.VenuePolymkt {
		key = "A:" + eventID
	}
	id, ok := s.byEvent[key]
	return ok && s.pairs[id].Active
}
