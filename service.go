package seriesdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/etnz/seriesdb/date"
	"github.com/etnz/seriesdb/recorder"
)

// This file contains the query API surface consumed by external reporting
// code, and the batch update orchestration. Updates are single-writer per
// key and embarrassingly parallel across keys; a fetch failure for one key
// never aborts the others.

// Fetcher supplies raw observations for one symbol over a requested window.
// Implementations must honor the context: a caller-supplied timeout expiring
// is treated as an ordinary fetch failure.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, kind Kind, window date.Range) ([]Row, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc func(ctx context.Context, symbol string, kind Kind, window date.Range) ([]Row, error)

func (f FetchFunc) Fetch(ctx context.Context, symbol string, kind Kind, window date.Range) ([]Row, error) {
	return f(ctx, symbol, kind, window)
}

// Service wires the store, the fetcher, the resolver and the query layer
// behind the public operations.
type Service struct {
	cfg     *Config
	store   *Store
	fetch   Fetcher
	cache   *RateCache
	rec     recorder.Recorder
	log     *slog.Logger
	workers int
}

// Option tunes a Service.
type Option func(*Service)

// WithRecorder installs a run recorder.
func WithRecorder(r recorder.Recorder) Option { return func(s *Service) { s.rec = r } }

// WithLogger installs a logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithWorkers bounds the update parallelism across keys.
func WithWorkers(n int) Option { return func(s *Service) { s.workers = n } }

// NewService returns a service over the configured store directory.
func NewService(cfg *Config, fetch Fetcher, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		fetch:   fetch,
		cache:   NewRateCache(),
		rec:     recorder.NewNoop(),
		log:     slog.Default(),
		workers: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = NewStore(cfg.StoreDir, s.log)
	return s
}

// Store exposes the underlying store, for cleanup tooling.
func (s *Service) Store() *Store { return s.store }

// instrument returns the declaration for a key.
func (s *Service) instrument(key string) (Instrument, Schema, error) {
	inst, ok := s.cfg.Instruments[key]
	if !ok {
		return Instrument{}, Schema{}, fmt.Errorf("unknown key %q", key)
	}
	kind, err := ParseKind(inst.Kind)
	if err != nil {
		return Instrument{}, Schema{}, err
	}
	schema, err := SchemaFor(kind)
	if err != nil {
		return Instrument{}, Schema{}, err
	}
	return inst, schema, nil
}

// GetSeries returns the stored series for a key.
func (s *Service) GetSeries(key string) (*Series, error) {
	_, schema, err := s.instrument(key)
	if err != nil {
		return nil, err
	}
	return s.store.Read(key, schema)
}

// effectiveMode applies the configured lookback override to append updates.
func (s *Service) effectiveMode(mode UpdateMode) UpdateMode {
	if mode.Name == "append" && s.cfg.LookbackDays > 0 {
		return Incremental(s.cfg.LookbackDays)
	}
	return mode
}

// Update fetches fresh observations for one key and merges them into the
// store. It returns the net number of rows added. A fetch failure leaves the
// stored series untouched and is returned to the caller; it never corrupts
// state.
func (s *Service) Update(ctx context.Context, key string, mode UpdateMode) (int, error) {
	inst, schema, err := s.instrument(key)
	if err != nil {
		return 0, err
	}
	mode = s.effectiveMode(mode)

	existing, err := s.store.Read(key, schema)
	if err != nil {
		return 0, err
	}

	window, ok := mode.FetchWindow(existing, date.Today())
	if !ok {
		s.log.Debug("series up to date", "key", key)
		return 0, nil
	}

	// Conversion series are not quoted under their own symbol: their rows
	// are built from resolved rates, one field per reference currency.
	var batch []Row
	if schema.Kind == KindFX {
		batch, err = s.conversionBatch(ctx, inst, window)
	} else {
		batch, err = s.fetchWithFallbacks(ctx, inst, schema.Kind, window)
	}
	if err != nil {
		// Source unavailable: the merge contract is (existing, unchanged).
		s.log.Warn("fetch failed, keeping stored series", "key", key, "err", err)
		return 0, fmt.Errorf("fetch %q: %w", key, err)
	}

	// Stamp the series metadata on every fetched row.
	for i := range batch {
		batch[i].Symbol = inst.Symbol
		batch[i].Currency = inst.Currency
		batch[i].QuoteType = inst.Kind
	}

	merged, changed := Merge(existing, batch, mode)
	if !changed {
		s.log.Debug("merge produced no change", "key", key)
		return 0, nil
	}
	if err := s.store.Write(key, merged); err != nil {
		return 0, err
	}
	added := merged.Len() - existing.Len()
	s.log.Info("series updated", "key", key, "mode", mode.Name, "rows", merged.Len(), "added", added)
	return added, nil
}

// fetchWithFallbacks tries the primary symbol then each fallback until one
// returns observations.
func (s *Service) fetchWithFallbacks(ctx context.Context, inst Instrument, kind Kind, window date.Range) ([]Row, error) {
	symbols := append([]string{inst.Symbol}, inst.Fallbacks...)
	var errs error
	for _, sym := range symbols {
		batch, err := s.fetch.Fetch(ctx, sym, kind, window)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", sym, err))
			continue
		}
		if len(batch) > 0 {
			return batch, nil
		}
		errs = errors.Join(errs, fmt.Errorf("%s: empty payload", sym))
	}
	return nil, errs
}

// conversionBatch builds rows for an fx series by resolving the instrument's
// currency toward every configured reference over the window. Any reference
// that cannot be resolved fails the whole key: a row missing one conversion
// field would read as valid data.
func (s *Service) conversionBatch(ctx context.Context, inst Instrument, window date.Range) ([]Row, error) {
	byDay := make(map[date.Date]Row)
	var errs error
	for _, ref := range s.cfg.References {
		name, err := FieldForReference(ref)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		rates, err := s.Resolver(ref).Resolve(ctx, inst.Currency, window)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s to %s: %w", inst.Currency, ref, err))
			continue
		}
		for on, rate := range rates.Values() {
			row, ok := byDay[on]
			if !ok {
				row = Row{On: on}
			}
			byDay[on] = row.Set(name, F(rate))
		}
	}
	if errs != nil {
		return nil, errs
	}
	batch := make([]Row, 0, len(byDay))
	for _, row := range byDay {
		batch = append(batch, row)
	}
	slices.SortFunc(batch, func(a, b Row) int { return a.On.Compare(b.On) })
	return batch, nil
}

// UpdateResult reports the outcome of one key within a batch run.
type UpdateResult struct {
	Key       string
	RowsAdded int
	Err       error
}

// UpdateAll updates every given key (all configured keys when keys is nil)
// with a bounded worker pool. Each key's store file is independent, so keys
// run in parallel; per-key failures are isolated, collected and returned
// joined. Only an empty key set is fatal.
func (s *Service) UpdateAll(ctx context.Context, keys []string, mode UpdateMode) ([]UpdateResult, error) {
	if keys == nil {
		keys = s.cfg.Keys()
	}
	if len(keys) == 0 {
		return nil, errors.New("no keys configured")
	}

	run := time.Now()
	jobs := make(chan string)
	results := make([]UpdateResult, 0, len(keys))
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := s.workers
	if workers < 1 {
		workers = 1
	}
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				start := time.Now()
				added, err := s.Update(ctx, key, mode)

				evt := recorder.UpdateEvent{
					Run: run, Key: key, Mode: mode.Name,
					RowsAdded: added, Changed: added != 0,
					Elapsed: time.Since(start),
				}
				if err != nil {
					evt.Err = err.Error()
				}
				if rerr := s.rec.RecordUpdate(evt); rerr != nil {
					s.log.Warn("cannot record update event", "key", key, "err", rerr)
				}

				mu.Lock()
				results = append(results, UpdateResult{Key: key, RowsAdded: added, Err: err})
				mu.Unlock()
			}
		}()
	}

	// No cancellation mid-key: on expiry we stop handing out keys and let
	// the in-flight ones finish. The expiry check comes before each send:
	// an idle worker must not win the select against a done context.
	stopped := len(keys)
dispatch:
	for i, key := range keys {
		if ctx.Err() != nil {
			stopped = i
			break
		}
		select {
		case jobs <- key:
		case <-ctx.Done():
			stopped = i
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	// Keys never handed out are reported as cancelled.
	for _, key := range keys[stopped:] {
		results = append(results, UpdateResult{Key: key, Err: ctx.Err()})
	}

	var errs error
	for _, r := range results {
		if r.Err != nil {
			errs = errors.Join(errs, fmt.Errorf("%s: %w", r.Key, r.Err))
		}
	}
	return results, errs
}

// quoteSource adapts the fetcher into the resolver's quote source.
func (s *Service) quoteSource() QuoteSource {
	return QuoteFunc(func(ctx context.Context, symbol string, window date.Range) (*date.History, error) {
		batch, err := s.fetch.Fetch(ctx, symbol, KindPrice, window)
		if err != nil {
			return nil, err
		}
		h := &date.History{}
		for _, r := range batch {
			if r.Close.Valid {
				h.Append(r.On, r.Close.Value)
			}
		}
		return h, nil
	})
}

// Resolver returns a currency resolver toward the given reference currency,
// sharing the service's per-run rate cache.
func (s *Service) Resolver(ref string) *Resolver {
	return NewResolver(ref, s.quoteSource(), s.cache, s.log)
}

// Convert returns the stored close prices of a key expressed in the target
// currency, joined to the conversion series by calendar date over the window.
func (s *Service) Convert(ctx context.Context, key, target string, window date.Range) (*date.History, error) {
	inst, schema, err := s.instrument(key)
	if err != nil {
		return nil, err
	}
	series, err := s.store.Read(key, schema)
	if err != nil {
		return nil, err
	}
	closes := series.CloseHistory().Within(window)

	rates, err := s.Resolver(target).Resolve(ctx, inst.Currency, window)
	if err != nil {
		return nil, err
	}

	out := &date.History{}
	for on, price := range closes.Values() {
		if rate, ok := rates.Get(on); ok {
			out.Append(on, price*rate)
		}
	}
	return out, nil
}

// ComputeReturn computes the point-to-point return of a key's close prices
// over the window. It returns ErrUnavailable, never a guess, when the data
// cannot answer.
func (s *Service) ComputeReturn(key string, window date.Range) (float64, error) {
	series, err := s.GetSeries(key)
	if err != nil {
		return 0, err
	}
	return Return(series.CloseHistory(), window)
}

// ComputeRiskRatio computes the annualized Sharpe or Sortino ratio of a
// key's close prices over the window, using the configured risk-free rate.
func (s *Service) ComputeRiskRatio(key string, window date.Range, kind RiskKind) (float64, error) {
	series, err := s.GetSeries(key)
	if err != nil {
		return 0, err
	}
	return RiskRatio(series.CloseHistory(), window, kind, s.cfg.RiskFreeAnnual)
}

// Cleanup applies the weekend-duplicate rule to a stored series, and the
// strict-date rule against a reference key when strict mode is enabled and a
// reference is given. It returns the number of rows dropped.
func (s *Service) Cleanup(key, refKey string) (int, error) {
	series, err := s.GetSeries(key)
	if err != nil {
		return 0, err
	}

	cleaned, dropped := DropWeekendDuplicates(series)

	if s.cfg.Strict && refKey != "" {
		ref, err := s.GetSeries(refKey)
		if err != nil {
			return 0, err
		}
		var strictDropped int
		cleaned, strictDropped = RestrictToDates(cleaned, ref)
		dropped += strictDropped
	}

	if dropped == 0 {
		return 0, nil
	}
	if err := s.store.Write(key, cleaned); err != nil {
		return 0, err
	}
	s.log.Info("series cleaned", "key", key, "dropped", dropped)
	return dropped, nil
}
