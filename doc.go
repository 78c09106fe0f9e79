// Package seriesdb implements an update and query engine for date-indexed
// market series. It is designed to be local-first and auditable: every
// series lives in a plain file that survives interrupted runs and failing
// data sources.
//
// The core functionalities include:
//   - Series Store: one crash-safe file per key, written atomically and
//     re-bootstrapped from the source when found corrupt.
//   - Merge Protocol: idempotent, last-write-wins merging of freshly
//     fetched observation batches into stored history, with incremental,
//     backfill and full rewrite modes. Valid history is never lost to an
//     empty or partial fetch.
//   - Validity Rules: placeholder rows carrying no positive primary field
//     are filtered before merging, and cleanup passes drop weekend rows
//     that merely repeat the preceding observation.
//   - Currency Resolution: per-reference-currency conversion series built
//     from quoted pairs, their reciprocals or legacy single-code symbols,
//     scaled for sub-unit quotations and forward-filled over the calendar.
//   - Point-in-Time Queries: nearest-observation lookups, point-to-point
//     returns and annualized Sharpe and Sortino ratios whose annualization
//     follows the observation frequency inferred from the data. Questions
//     the data cannot answer return ErrUnavailable, never a guess.
package seriesdb
