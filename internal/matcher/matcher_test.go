package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/internal/testutil"
	"github.com/crossvenue/prediction-arb/pkg/types"
)

func newMatcher(threshold float64) *Matcher {
	return New(Config{
		Threshold:       threshold,
		ExpiryTolerance: 24 * time.Hour,
		Logger:          zap.NewNop(),
	})
}

func TestScoreIdenticalTitles(t *testing.T) {
	m := newMatcher(0.7)
	expires := time.Now().Add(72 * time.Hour)

	a := testutil.Event(types.VenuePolymkt, "ev-a", "Will Bitcoin hit $100,000 by March?", expires)
	b := testutil.Event(types.VenueKalshi, "ev-b", "Will Bitcoin hit $100,000 by March?", expires)

	score := m.Score(&a, &b)
	// Identical titles, categories, numbers and expiries earn every weight.
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestScoreParaphrasedTitles(t *testing.T) {
	m := newMatcher(0.7)
	expires := time.Now().Add(72 * time.Hour)

	a := testutil.Event(types.VenuePolymkt, "ev-a", "Will Bitcoin hit $100,000 by March?", expires)
	b := testutil.Event(types.VenueKalshi, "ev-b", "Bitcoin above $100,000 before March?", expires)

	score := m.Score(&a, &b)
	assert.Greater(t, score, 0.6)
	assert.Less(t, score, 1.0)
}

func TestScoreUnrelatedTitles(t *testing.T) {
	m := newMatcher(0.7)
	expires := time.Now().Add(72 * time.Hour)

	a := testutil.Event(types.VenuePolymkt, "ev-a", "Will Bitcoin hit $100,000 by March?", expires)
	b := testutil.Event(types.VenueKalshi, "ev-b", "Will it rain in Seattle tomorrow?", expires)

	assert.Less(t, m.Score(&a, &b), 0.7)
}

func TestScoreExpiryBeyondToleranceIsZero(t *testing.T) {
	m := newMatcher(0.7)
	expires := time.Now().Add(72 * time.Hour)

	a := testutil.Event(types.VenuePolymkt, "ev-a", "Will X win the election?", expires)
	b := testutil.Event(types.VenueKalshi, "ev-b", "Will X win the election?", expires.Add(25*time.Hour))

	// Identical titles cannot rescue a pair whose expiries disagree by more
	// than the tolerance.
	assert.Equal(t, 0.0, m.Score(&a, &b))

	within := testutil.Event(types.VenueKalshi, "ev-b", "Will X win the election?", expires.Add(23*time.Hour))
	assert.Greater(t, m.Score(&a, &within), 0.0)
}

func TestScoreNonBinaryEventIsZero(t *testing.T) {
	m := newMatcher(0.7)
	expires := time.Now().Add(72 * time.Hour)

	a := testutil.Event(types.VenuePolymkt, "ev-a", "Will X win?", expires)
	b := testutil.Event(types.VenueKalshi, "ev-b", "Will X win?", expires)
	b.Markets = append(b.Markets, types.Market{ID: "extra", EventID: "ev-b"})

	assert.Equal(t, 0.0, m.Score(&a, &b))
}

func TestMatchOneToOne(t *testing.T) {
	m := newMatcher(0.5)
	expires := time.Now().Add(72 * time.Hour)

	// One venue A event resembling two venue B events; only the stronger
	// pairing may claim it.
	eventsA := []types.Event{
		testutil.Event(types.VenuePolymkt, "a1", "Will Bitcoin hit $100,000 by March?", expires),
	}
	eventsB := []types.Event{
		testutil.Event(types.VenueKalshi, "b1", "Will Bitcoin hit $100,000 by March?", expires),
		testutil.Event(types.VenueKalshi, "b2", "Will Bitcoin hit $100,000 by April?", expires),
	}

	out := m.Match(eventsA, eventsB)
	require.Len(t, out, 1)
	assert.Equal(t, "a1", out[0].EventA.ID)
	assert.Equal(t, "b1", out[0].EventB.ID)
}

func TestMatchIsDeterministic(t *testing.T) {
	m := newMatcher(0.5)
	expires := time.Now().Add(72 * time.Hour)

	eventsA := []types.Event{
		testutil.Event(types.VenuePolymkt, "a1", "Will X win the election?", expires),
		testutil.Event(types.VenuePolymkt, "a2", "Will Y win the election?", expires),
	}
	eventsB := []types.Event{
		testutil.Event(types.VenueKalshi, "b1", "Will X win the election?", expires),
		testutil.Event(types.VenueKalshi, "b2", "Will Y win the election?", expires),
	}

	first := m.Match(eventsA, eventsB)
	for i := 0; i < 10; i++ {
		again := m.Match(eventsA, eventsB)
		require.Equal(t, first, again)
	}
}

func TestMatchBelowThresholdExcluded(t *testing.T) {
	m := newMatcher(0.9)
	expires := time.Now().Add(72 * time.Hour)

	eventsA := []types.Event{
		testutil.Event(types.VenuePolymkt, "a1", "Will Bitcoin hit $100,000?", expires),
	}
	eventsB := []types.Event{
		testutil.Event(types.VenueKalshi, "b1", "Will it rain in Seattle?", expires),
	}

	assert.Empty(t, m.Match(eventsA, eventsB))
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "punctuation-stripped", in: "Will Bitcoin hit $100,000?", want: "will bitcoin hit 100000"},
		{name: "whitespace-collapsed", in: "  Will   X\twin? ", want: "will x win"},
		{name: "casefolds", in: "WILL X WIN", want: "will x win"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTitle(tt.in))
		})
	}
}

func TestExtractNumbers(t *testing.T) {
	nums := extractNumbers("Will BTC close above $100,000 with 50% odds by 2026?")
	assert.Contains(t, nums, "$100,000")
	assert.Contains(t, nums, "50%")
	assert.Contains(t, nums, "2026")
}

func TestKeywordOverlap(t *testing.T) {
	a := keywords("Will Bitcoin hit $100,000 by March?")
	b := keywords("Bitcoin above $100,000 before March?")

	overlap := keywordOverlap(a, b)
	assert.Greater(t, overlap, 0.0)
	assert.LessOrEqual(t, overlap, 1.0)

	assert.Equal(t, 0.0, keywordOverlap(a, map[string]struct{}{}))
}
