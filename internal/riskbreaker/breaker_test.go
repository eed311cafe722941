package riskbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crossvenue/prediction-arb/pkg/types"
)

type stubExposure struct {
	exposure types.Micros
}

func (s *stubExposure) UnhedgedExposure() types.Micros { return s.exposure }

func newBreaker(t *testing.T, maxExposure float64, ratio float64, src *stubExposure) *Breaker {
	t.Helper()
	b, err := New(&Config{
		CheckInterval:   time.Second,
		MaxExposure:     types.MicrosFromFloat(maxExposure),
		HysteresisRatio: ratio,
		Source:          src,
		Logger:          zap.NewNop(),
	})
	require.NoError(t, err)
	return b
}

func TestBreakerStartsEnabled(t *testing.T) {
	b := newBreaker(t, 100, 0.5, &stubExposure{})
	assert.True(t, b.Allow())
}

func TestBreakerTripsAtMaxExposure(t *testing.T) {
	src := &stubExposure{}
	b := newBreaker(t, 100, 0.5, src)

	src.exposure = types.MicrosFromFloat(99.99)
	b.Check(time.Now())
	assert.True(t, b.Allow())

	// Exactly at the limit trips.
	src.exposure = types.MicrosFromFloat(100)
	b.Check(time.Now())
	assert.False(t, b.Allow())
}

func TestBreakerHysteresis(t *testing.T) {
	src := &stubExposure{exposure: types.MicrosFromFloat(150)}
	b := newBreaker(t, 100, 0.5, src)

	b.Check(time.Now())
	require.False(t, b.Allow())

	// Back under the limit but above the hysteresis threshold: stays tripped.
	src.exposure = types.MicrosFromFloat(80)
	b.Check(time.Now())
	assert.False(t, b.Allow())

	// Exactly at the threshold is still too high.
	src.exposure = types.MicrosFromFloat(50)
	b.Check(time.Now())
	assert.False(t, b.Allow())

	// Below the threshold re-enables.
	src.exposure = types.MicrosFromFloat(49.99)
	b.Check(time.Now())
	assert.True(t, b.Allow())
}

func TestBreakerStatus(t *testing.T) {
	src := &stubExposure{exposure: types.MicrosFromFloat(42)}
	b := newBreaker(t, 100, 0.5, src)

	now := time.Now()
	b.Check(now)

	st := b.Status()
	assert.True(t, st.Enabled)
	assert.Equal(t, types.MicrosFromFloat(42), st.LastExposure)
	assert.Equal(t, now, st.LastCheck)
	assert.Equal(t, types.MicrosFromFloat(100), st.MaxExposure)
	assert.Equal(t, types.MicrosFromFloat(50), st.EnableThreshold)
}

func TestBreakerConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "nil-source", cfg: Config{CheckInterval: time.Second, MaxExposure: 1, HysteresisRatio: 0.5}},
		{name: "zero-interval", cfg: Config{MaxExposure: 1, HysteresisRatio: 0.5, Source: &stubExposure{}}},
		{name: "zero-max-exposure", cfg: Config{CheckInterval: time.Second, HysteresisRatio: 0.5, Source: &stubExposure{}}},
		{name: "ratio-above-one", cfg: Config{CheckInterval: time.Second, MaxExposure: 1, HysteresisRatio: 1.5, Source: &stubExposure{}}},
		{name: "ratio-zero", cfg: Config{CheckInterval: time.Second, MaxExposure: 1, Source: &stubExposure{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Logger = zap.NewNop()
			_, err := New(&tt.cfg)
			require.Error(t, err)
			var cfgErr *types.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
