package seriesdb

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/etnz/seriesdb/date"
)

// This file contains the point-in-time query layer: frequency inference,
// point-to-point returns and risk ratios over a bounded window. Queries
// return ErrUnavailable instead of raising so batch reporting over many keys
// can skip gaps without crashing.

// ErrUnavailable is returned when a query cannot be answered from the data:
// an endpoint outside the series range, a non-positive start price, too few
// observations, or zero volatility.
var ErrUnavailable = errors.New("unavailable")

// minRiskObservations is the minimum number of returns a risk ratio needs.
const minRiskObservations = 20

// Frequency describes the inferred observation cadence of a series and the
// matching annualization factor. Mixing a weekly series with a fixed
// 252-trading-day assumption silently produces wrong risk statistics, so the
// factor is always inferred, never assumed.
type Frequency struct {
	Name    string
	PerYear float64
}

var (
	FreqDaily   = Frequency{"daily", 252}
	FreqWeekly  = Frequency{"weekly", 52}
	FreqMonthly = Frequency{"monthly", 12}
)

// InferFrequency classifies a history as daily, weekly or monthly from the
// median gap between consecutive observation dates. Larger gaps yield a
// rounded 365/gap estimate. A history with fewer than two observations is
// assumed daily.
func InferFrequency(h *date.History) Frequency {
	days := h.Days()
	if len(days) < 2 {
		return FreqDaily
	}
	gaps := make([]int, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		gaps = append(gaps, days[i].Sub(days[i-1]))
	}
	slices.Sort(gaps)
	gap := float64(gaps[len(gaps)/2])
	if len(gaps)%2 == 0 {
		gap = float64(gaps[len(gaps)/2-1]+gaps[len(gaps)/2]) / 2
	}
	switch {
	case gap <= 2:
		return FreqDaily
	case gap <= 10:
		return FreqWeekly
	case gap <= 45:
		return FreqMonthly
	default:
		return Frequency{"sparse", math.Round(365 / gap)}
	}
}

// Return computes the cumulative return between the observation nearest at
// or after start and the observation nearest at or before end.
//
// It returns ErrUnavailable when either endpoint falls outside the series
// range, when the resolved end date is not strictly after the resolved start
// date, or when the start price is non-positive. It never extrapolates.
func Return(h *date.History, window date.Range) (float64, error) {
	startOn, startPrice, ok := h.OnOrAfter(window.From)
	if !ok {
		return 0, fmt.Errorf("%w: no observation on or after %s", ErrUnavailable, window.From)
	}
	endOn, endPrice, ok := h.OnOrBefore(window.To)
	if !ok {
		return 0, fmt.Errorf("%w: no observation on or before %s", ErrUnavailable, window.To)
	}
	if !endOn.After(startOn) {
		return 0, fmt.Errorf("%w: window %s resolves to %s..%s", ErrUnavailable, window, startOn, endOn)
	}
	if startPrice <= 0 {
		return 0, fmt.Errorf("%w: non-positive start price %g on %s", ErrUnavailable, startPrice, startOn)
	}
	return endPrice/startPrice - 1, nil
}

// RiskKind selects the risk ratio to compute.
type RiskKind int

const (
	Sharpe RiskKind = iota
	Sortino
)

func (k RiskKind) String() string {
	if k == Sortino {
		return "sortino"
	}
	return "sharpe"
}

// ParseRiskKind parses "sharpe" or "sortino".
func ParseRiskKind(s string) (RiskKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sharpe":
		return Sharpe, nil
	case "sortino":
		return Sortino, nil
	}
	return Sharpe, fmt.Errorf("unknown risk ratio %q: want sharpe or sortino", s)
}

// RiskRatio computes an annualized Sharpe or Sortino ratio over the window:
// (annualized return − rfAnnual) / annualized risk, where risk is the full
// volatility for Sharpe and the downside deviation for Sortino, both
// annualized by the inferred observations per year.
//
// It returns ErrUnavailable when fewer than minRiskObservations returns fall
// inside the window, or when the risk term is zero or non-finite.
func RiskRatio(h *date.History, window date.Range, kind RiskKind, rfAnnual float64) (float64, error) {
	sub := h.Within(window)
	returns := periodReturns(sub)
	if len(returns) < minRiskObservations {
		return 0, fmt.Errorf("%w: %d observations in %s, want at least %d",
			ErrUnavailable, len(returns), window, minRiskObservations)
	}

	perYear := InferFrequency(sub).PerYear

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var risk float64
	switch kind {
	case Sortino:
		// Downside deviation only: positive periods carry no risk.
		sum := 0.0
		for _, r := range returns {
			if r < 0 {
				sum += r * r
			}
		}
		risk = math.Sqrt(sum / float64(len(returns)))
	default:
		sum := 0.0
		for _, r := range returns {
			d := r - mean
			sum += d * d
		}
		risk = math.Sqrt(sum / float64(len(returns)-1))
	}

	annualizedReturn := mean * perYear
	annualizedRisk := risk * math.Sqrt(perYear)
	if annualizedRisk == 0 || math.IsNaN(annualizedRisk) || math.IsInf(annualizedRisk, 0) {
		return 0, fmt.Errorf("%w: zero or non-finite %s risk in %s", ErrUnavailable, kind, window)
	}
	return (annualizedReturn - rfAnnual) / annualizedRisk, nil
}

// periodReturns computes simple period-over-period returns, skipping pairs
// with a non-positive base price.
func periodReturns(h *date.History) []float64 {
	out := make([]float64, 0, h.Len())
	prev := math.NaN()
	for _, v := range h.Values() {
		if !math.IsNaN(prev) && prev > 0 {
			out = append(out, v/prev-1)
		}
		prev = v
	}
	return out
}
