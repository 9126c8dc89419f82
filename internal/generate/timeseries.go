package generate

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// timeseries generates OHLC random-walk rows when the declared columns look
// like daily market data (a date column plus open/high/low/close).
type timeseries struct {
	start     time.Time
	basePrice float64
	drift     float64
}

func newTimeseries(columns []string, rows int, rng *rand.Rand) *timeseries {
	lower := make(map[string]bool, len(columns))
	for _, c := range columns {
		lower[strings.ToLower(c)] = true
	}

	hasDate := lower["date"] || lower["datetime"] || lower["ts"]
	hasOHLC := (lower["open"] || lower["opening_price"]) &&
		(lower["close"] || lower["closing_price"]) &&
		(lower["high"] || lower["highest_price"]) &&
		(lower["low"] || lower["lowest_price"])
	if !hasDate || !hasOHLC {
		return nil
	}

	return &timeseries{
		start:     time.Now().UTC().AddDate(0, 0, -rows),
		basePrice: 10 + rng.Float64()*90,
		drift:     (rng.Float64() - 0.5) * 0.002,
	}
}

func (t *timeseries) row(index int, rng *rand.Rand) map[string]string {
	day := t.start.AddDate(0, 0, index)

	step := rng.NormFloat64()*0.02 + t.drift
	open := maxF(0.01, t.basePrice*(1+step))
	closeP := maxF(0.01, open*(1+rng.NormFloat64()*0.01))
	high := maxF(open, closeP) * (1 + absF(rng.NormFloat64()*0.01))
	low := minF(open, closeP) * (1 - absF(rng.NormFloat64()*0.01))
	volume := int(maxF(1, 150*(1+absF(rng.NormFloat64()))))
	changePct := (closeP - open) / open * 100

	t.basePrice = closeP

	date := day.Format("2006-01-02")
	return map[string]string{
		"date":                     date,
		"datetime":                 date + "T00:00:00",
		"ts":                       date + "T00:00:00",
		"open":                     money(open),
		"opening_price":            money(open),
		"close":                    money(closeP),
		"closing_price":            money(closeP),
		"high":                     money(high),
		"highest_price":            money(high),
		"low":                      money(low),
		"lowest_price":             money(low),
		"current_price":            money(closeP),
		"price_change_percentage":  fmt.Sprintf("%.4f", changePct),
		"volume":                   fmt.Sprintf("%d", volume),
	}
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
