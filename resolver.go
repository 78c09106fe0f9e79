package seriesdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Rhymond/go-money"
	"github.com/etnz/seriesdb/date"
)

// This file contains the currency resolver: given a currency code it
// produces a daily "units of reference currency per unit of local currency"
// history, trying a cache, then a direct pair instrument, then the inverted
// reciprocal pair, then a legacy single-code instrument.

// ErrUnresolvedCurrency is returned when no resolution step succeeds. It is
// never coerced to a 1.0 series: silently treating an unknown currency as
// the reference would corrupt every downstream return.
var ErrUnresolvedCurrency = errors.New("unresolved currency")

// subUnit describes a minor-unit quote convention: some venues quote in
// pence or cents while the ISO currency is the major unit.
type subUnit struct {
	code  string  // major-unit ISO code
	scale float64 // major units per quoted sub-unit
}

// subUnits maps sub-unit codes, as sources spell them, to their major unit.
var subUnits = map[string]subUnit{
	"GBp": {"GBP", 0.01},
	"GBX": {"GBP", 0.01},
	"ZAc": {"ZAR", 0.01},
	"ILA": {"ILS", 0.01},
	"KWf": {"KWD", 0.001},
}

// normalizeCurrency maps a currency code to its major-unit ISO code and the
// scale factor converting quoted values to major units.
func normalizeCurrency(code string) (string, float64) {
	if su, ok := subUnits[code]; ok {
		return su.code, su.scale
	}
	return code, 1
}

// QuoteSource supplies the daily close history of a quoted instrument. The
// store-backed service satisfies it, and tests inject fixed tables.
type QuoteSource interface {
	Quotes(ctx context.Context, symbol string, window date.Range) (*date.History, error)
}

// QuoteFunc adapts a function to the QuoteSource interface.
type QuoteFunc func(ctx context.Context, symbol string, window date.Range) (*date.History, error)

func (f QuoteFunc) Quotes(ctx context.Context, symbol string, window date.Range) (*date.History, error) {
	return f(ctx, symbol, window)
}

// RateCache memoizes resolved conversion histories for the duration of one
// run, keyed by currency pair and window: a resolution is only reused for
// the exact window it was fetched for, so a later wider query never sees a
// history truncated to an earlier narrower one. It is the only shared
// mutable state of a parallel update run, so it is safe for concurrent use.
// Construct a fresh one per run: it is injected, never global, so tests and
// parallel runs don't share hidden state.
type RateCache struct {
	mu    sync.Mutex
	rates map[string]*date.History
}

// NewRateCache returns an empty cache.
func NewRateCache() *RateCache {
	return &RateCache{rates: make(map[string]*date.History)}
}

func (c *RateCache) get(key string) (*date.History, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.rates[key]
	return h, ok
}

func (c *RateCache) put(key string, h *date.History) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[key] = h
}

// Resolver converts a local-currency code into a daily conversion history
// toward one reference currency.
type Resolver struct {
	ref   string // reference currency, e.g. "USD" or "KRW"
	src   QuoteSource
	cache *RateCache
	log   *slog.Logger
}

// NewResolver returns a resolver toward the given reference currency.
func NewResolver(ref string, src QuoteSource, cache *RateCache, log *slog.Logger) *Resolver {
	if cache == nil {
		cache = NewRateCache()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{ref: ref, src: src, cache: cache, log: log}
}

// Reference returns the resolver's reference currency code.
func (r *Resolver) Reference() string { return r.ref }

// pairSymbol names the quoted instrument for "quote units per 1 base unit".
func pairSymbol(base, quote string) string { return base + quote + "=X" }

// legacySymbol names the older single-code instrument convention, which
// quotes local units per 1 USD.
func legacySymbol(code string) string { return code + "=X" }

// Resolve returns the daily history of reference units per unit of the given
// currency, forward-filled onto the contiguous daily calendar of the window.
// Conversion histories are joined to price series by calendar date, not
// timestamp, since sources use different intraday cutoffs.
func (r *Resolver) Resolve(ctx context.Context, code string, window date.Range) (*date.History, error) {
	major, scale := normalizeCurrency(code)

	if money.GetCurrency(major) == nil {
		return nil, fmt.Errorf("%w: unknown currency code %q", ErrUnresolvedCurrency, code)
	}

	// Equal currency: a constant series aligned to the window, no
	// instrument fetch. The sub-unit scale still applies (GBp vs GBP).
	if major == r.ref {
		h := &date.History{}
		for day := range window.Days() {
			h.Append(day, scale)
		}
		return h, nil
	}

	cacheKey := major + "/" + r.ref + "/" + window.String()
	if h, ok := r.cache.get(cacheKey); ok {
		return scaled(h, scale, window), nil
	}

	h, err := r.lookup(ctx, major, window)
	if err != nil {
		return nil, fmt.Errorf("%w: %q to %q: %w", ErrUnresolvedCurrency, code, r.ref, err)
	}
	r.cache.put(cacheKey, h)
	return scaled(h, scale, window), nil
}

// lookup tries each resolution step in order, first success wins.
func (r *Resolver) lookup(ctx context.Context, major string, window date.Range) (*date.History, error) {
	var errs error

	// Direct pair: reference units per 1 local unit.
	direct := pairSymbol(major, r.ref)
	if h, err := r.src.Quotes(ctx, direct, window); err == nil && h.Len() > 0 {
		return h, nil
	} else if err != nil {
		errs = errors.Join(errs, fmt.Errorf("direct %s: %w", direct, err))
	}

	// Reciprocal pair: local units per 1 reference unit, inverted.
	// Non-finite inversions (zero or NaN quotes) are dropped.
	reciprocal := pairSymbol(r.ref, major)
	if h, err := r.src.Quotes(ctx, reciprocal, window); err == nil && h.Len() > 0 {
		if inv := h.Invert(); inv.Len() > 0 {
			return inv, nil
		}
		errs = errors.Join(errs, fmt.Errorf("reciprocal %s: all quotes invert to non-finite", reciprocal))
	} else if err != nil {
		errs = errors.Join(errs, fmt.Errorf("reciprocal %s: %w", reciprocal, err))
	}

	// Legacy convention: "KRW=X" quotes KRW per USD. Only meaningful when
	// the reference is USD, and inverted like the reciprocal.
	if r.ref == "USD" {
		legacy := legacySymbol(major)
		if h, err := r.src.Quotes(ctx, legacy, window); err == nil && h.Len() > 0 {
			if inv := h.Invert(); inv.Len() > 0 {
				r.log.Debug("resolved through legacy instrument", "currency", major, "symbol", legacy)
				return inv, nil
			}
		} else if err != nil {
			errs = errors.Join(errs, fmt.Errorf("legacy %s: %w", legacy, err))
		}
	}

	if errs == nil {
		errs = errors.New("no instrument returned data")
	}
	return nil, errs
}

// scaled applies the sub-unit scale and forward-fills onto the window's
// daily calendar.
func scaled(h *date.History, scale float64, window date.Range) *date.History {
	if scale != 1 {
		h = h.Scale(scale)
	}
	return h.ForwardFill(window)
}
