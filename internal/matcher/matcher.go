// Package matcher pairs economically equivalent events across the two
// venues. Matching is fuzzy on title text, hard on expiry tolerance, and
// strictly one-to-one per run.
package matcher

import (
	"sort"
	"time"

	"github.com/adrg/strutil"
	strmetrics "github.com/adrg/strutil/metrics"
	"github.com/crossvenue/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// Scoring weights. Text similarity dominates; the rest nudge borderline
// candidates over or under the threshold.
const (
	weightText     = 0.4
	weightKeywords = 0.25
	weightExpiry   = 0.15
	weightCategory = 0.1
	weightNumbers  = 0.1
)

// Config holds matcher configuration.
type Config struct {
	Threshold       float64
	ExpiryTolerance time.Duration
	Logger          *zap.Logger
}

// Matcher scores and assigns cross-venue event pairs.
type Matcher struct {
	cfg    Config
	jaro   *strmetrics.JaroWinkler
	logger *zap.Logger
}

// New creates a matcher.
func New(cfg Config) *Matcher {
	return &Matcher{
		cfg:    cfg,
		jaro:   strmetrics.NewJaroWinkler(),
		logger: cfg.Logger,
	}
}

// Score computes the match confidence for one candidate pair. Returns 0 if
// the pair is ineligible regardless of text score (expiry delta beyond
// tolerance, or either event missing its binary market).
func (m *Matcher) Score(a, b *types.Event) float64 {
	if a.BinaryMarket() == nil || b.BinaryMarket() == nil {
		return 0
	}

	delta := expiryDelta(a, b)
	if delta > m.cfg.ExpiryTolerance {
		return 0
	}

	text := strutil.Similarity(normalizeTitle(a.Title), normalizeTitle(b.Title), m.jaro)
	kw := keywordOverlap(keywords(a.Title), keywords(b.Title))

	// Expiry proximity: full credit at identical expiries, fading linearly
	// to zero at the tolerance boundary.
	expiry := 1.0 - float64(delta)/float64(m.cfg.ExpiryTolerance)

	score := text*weightText + kw*weightKeywords + expiry*weightExpiry

	if a.Category != "" && equalFold(a.Category, b.Category) {
		score += weightCategory
	}

	if numbersAgree(extractNumbers(a.Title), extractNumbers(b.Title)) {
		score += weightNumbers
	}

	return score
}

// candidate is a scored cross-venue pairing before assignment.
type candidate struct {
	aIdx  int
	bIdx  int
	score float64
}

// Match produces the one-to-one assignment of venue A events to venue B
// events with confidence above threshold. Greedy by descending score, so
// the strongest candidates claim their counterparts first; ties break on
// event ids for run-to-run stability.
func (m *Matcher) Match(eventsA, eventsB []types.Event) []Candidate {
	var candidates []candidate
	for i := range eventsA {
		for j := range eventsB {
			score := m.Score(&eventsA[i], &eventsB[j])
			if score >= m.cfg.Threshold {
				candidates = append(candidates, candidate{aIdx: i, bIdx: j, score: score})
			}
		}
	}

	sort.Slice(candidates, func(x, y int) bool {
		if candidates[x].score != candidates[y].score {
			return candidates[x].score > candidates[y].score
		}
		ax, ay := eventsA[candidates[x].aIdx].ID, eventsA[candidates[y].aIdx].ID
		if ax != ay {
			return ax < ay
		}
		return eventsB[candidates[x].bIdx].ID < eventsB[candidates[y].bIdx].ID
	})

	usedA := make(map[int]struct{})
	usedB := make(map[int]struct{})

	var out []Candidate
	for _, c := range candidates {
		if _, taken := usedA[c.aIdx]; taken {
			continue
		}
		if _, taken := usedB[c.bIdx]; taken {
			continue
		}
		usedA[c.aIdx] = struct{}{}
		usedB[c.bIdx] = struct{}{}

		out = append(out, Candidate{
			EventA:      eventsA[c.aIdx],
			EventB:      eventsB[c.bIdx],
			Confidence:  c.score,
			ExpiryDelta: expiryDelta(&eventsA[c.aIdx], &eventsB[c.bIdx]),
		})
	}

	return out
}

// Candidate is a matched cross-venue event pairing from one run.
type Candidate struct {
	EventA      types.Event
	EventB      types.Event
	Confidence  float64
	ExpiryDelta time.Duration
}

func expiryDelta(a, b *types.Event) time.Duration {
	d := a.ExpiresAt.Sub(b.ExpiresAt)
	if d < 0 {
		d = -d
	}
	return d
}

func equalFold(a, b string) bool {
	return normalizeTitle(a) == normalizeTitle(b)
}
