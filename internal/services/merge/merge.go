// Package merge reconciles raw records from several providers into one
// canonical record per identity key.
package merge

import (
	"sort"
	"strings"

	"TokenPull/internal/domain/models"
)

// DefaultCap bounds the merged snapshot size.
const DefaultCap = 200

// Completeness weights per populated field.
const (
	weightVolume      = 3
	weightLiquidity   = 2
	weightMarketValue = 2
	weightTxCount     = 1
	weightShortChange = 1
	weightLongChange  = 1
)

// Option configures Engine.
type Option func(*Engine)

// WithCap sets the maximum number of records kept after merging.
func WithCap(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cap = n
		}
	}
}

// Engine merges raw record batches.
type Engine struct {
	cap int
}

func New(opts ...Option) *Engine {
	e := &Engine{cap: DefaultCap}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Merge deduplicates raws by case-insensitive address in a single pass. When
// two records share a key the more complete one becomes primary; on a tie the
// first seen stays primary. Output keeps first-seen order unless the cap is
// exceeded, in which case the highest-volume records are kept.
func (e *Engine) Merge(raws []models.RawRecord) []models.Record {
	index := make(map[string]int, len(raws))
	out := make([]models.Record, 0, len(raws))

	for _, raw := range raws {
		rec := raw.Canonical()
		if rec.Address == "" {
			continue
		}
		rec.Source = joinSources(rec.Source, "")

		i, seen := index[rec.Address]
		if !seen {
			index[rec.Address] = len(out)
			out = append(out, rec)
			continue
		}
		out[i] = combine(out[i], rec)
	}

	if len(out) > e.cap {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Volume != out[j].Volume {
				return out[i].Volume > out[j].Volume
			}
			return out[i].Address < out[j].Address
		})
		out = out[:e.cap]
	}
	return out
}

// Score is the completeness score of r.
func Score(r models.Record) int {
	s := 0
	if r.Volume > 0 {
		s += weightVolume
	}
	if r.Liquidity > 0 {
		s += weightLiquidity
	}
	if r.MarketValue > 0 {
		s += weightMarketValue
	}
	if r.TxCount > 0 {
		s += weightTxCount
	}
	if _, ok := r.Change(models.Period1h); ok {
		s += weightShortChange
	}
	if _, ok := r.Change(models.Period24h); ok {
		s += weightLongChange
	}
	return s
}

func combine(existing, incoming models.Record) models.Record {
	primary, secondary := existing, incoming
	if Score(incoming) > Score(existing) {
		primary, secondary = incoming, existing
	}

	merged := primary
	merged.Source = joinSources(primary.Source, secondary.Source)
	merged.Volume = max(primary.Volume, secondary.Volume)
	merged.Liquidity = max(primary.Liquidity, secondary.Liquidity)
	merged.TxCount = max(primary.TxCount, secondary.TxCount)
	if merged.MarketValue <= 0 {
		merged.MarketValue = secondary.MarketValue
	}
	if merged.Ticker == "" {
		merged.Ticker = secondary.Ticker
	}

	merged.Price = primary.Price
	if newer(secondary, primary) && secondary.Price > 0 {
		merged.Price = secondary.Price
	}
	if merged.Price <= 0 {
		merged.Price = secondary.Price
	}
	if secondary.UpdatedAt.After(merged.UpdatedAt) {
		merged.UpdatedAt = secondary.UpdatedAt
	}

	merged.PriceChange = mergeChanges(primary.PriceChange, secondary.PriceChange)
	return merged
}

// newer reports whether a was observed strictly after b. Absent timestamps
// never win.
func newer(a, b models.Record) bool {
	if a.UpdatedAt.IsZero() || b.UpdatedAt.IsZero() {
		return false
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}

func mergeChanges(primary, secondary map[models.Period]float64) map[models.Period]float64 {
	if len(secondary) == 0 {
		return primary
	}
	out := make(map[models.Period]float64, len(primary)+len(secondary))
	for p, v := range secondary {
		out[p] = v
	}
	for p, v := range primary {
		out[p] = v
	}
	return out
}

// joinSources returns the sorted, de-duplicated union of two comma-joined
// source lists.
func joinSources(a, b string) string {
	set := make(map[string]struct{})
	for _, list := range []string{a, b} {
		for _, s := range strings.Split(list, ",") {
			if s = strings.TrimSpace(s); s != "" {
				set[s] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
