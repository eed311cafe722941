package types

import "fmt"

// Micros is a fixed-point dollar amount in micro-units (1_000_000 = $1.00).
// All prices, fees and PnL flow through this type so money arithmetic never
// touches floating point.
type Micros int64

// Dollar is one dollar expressed in micro-units.
const Dollar Micros = 1_000_000

// MicrosFromFloat converts a float dollar amount to micro-units, rounding
// half away from zero. Only used at the edges (config parsing, venue API
// responses); internal arithmetic stays in Micros.
func MicrosFromFloat(v float64) Micros {
	if v >= 0 {
		return Micros(v*1e6 + 0.5)
	}
	return Micros(v*1e6 - 0.5)
}

// Float64 converts back to a float dollar amount for display and metrics.
func (m Micros) Float64() float64 {
	return float64(m) / 1e6
}

// String formats the amount as a dollar string.
func (m Micros) String() string {
	return fmt.Sprintf("$%.6f", m.Float64())
}

// MulSize multiplies a per-unit price by a contract count.
func (m Micros) MulSize(size int64) Micros {
	return m * Micros(size)
}
