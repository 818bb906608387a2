// Package view holds the pure filter/sort/paginate transforms applied to a
// snapshot for each request or subscriber. None of them mutate their input.
package view

import (
	"sort"
	"strconv"
	"strings"

	"TokenPull/internal/domain/models"
	xutil "TokenPull/pkg/util"
)

// Filter keeps records matching every set criterion of f.
func Filter(records []models.Record, f models.FilterSpec) []models.Record {
	protocol := strings.ToLower(strings.TrimSpace(f.Protocol))
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if f.TimePeriod != "" {
			if _, ok := r.Change(f.TimePeriod); !ok {
				continue
			}
		}
		if f.MinVolume != nil && r.Volume < *f.MinVolume {
			continue
		}
		if f.MinLiquidity != nil && r.Liquidity < *f.MinLiquidity {
			continue
		}
		if protocol != "" && !strings.Contains(strings.ToLower(r.Protocol), protocol) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Sort returns a stably sorted copy. Unknown fields return the copy unsorted.
func Sort(records []models.Record, by models.SortSpec) []models.Record {
	out := make([]models.Record, len(records))
	copy(out, records)

	key := sortKey(by.Field)
	if key == nil {
		return out
	}
	asc := by.Direction == models.SortAsc
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return key(out[i]) < key(out[j])
		}
		return key(out[i]) > key(out[j])
	})
	return out
}

func sortKey(f models.SortField) func(models.Record) float64 {
	switch f {
	case models.SortVolume:
		return func(r models.Record) float64 { return r.Volume }
	case models.SortPriceChange:
		return models.Record.BestChange
	case models.SortMarketCap:
		return func(r models.Record) float64 { return r.MarketValue }
	case models.SortLiquidity:
		return func(r models.Record) float64 { return r.Liquidity }
	case models.SortTxCount:
		return func(r models.Record) float64 { return float64(r.TxCount) }
	default:
		return nil
	}
}

// Paginate returns the window selected by page and the cursor of the next
// window, empty when nothing remains. Bad cursors mean offset 0.
func Paginate(records []models.Record, page models.PageSpec) ([]models.Record, string) {
	limit := page.Limit
	if limit <= 0 {
		limit = models.DefaultPageLimit
	}
	if limit > models.MaxPageLimit {
		limit = models.MaxPageLimit
	}

	offset := xutil.ParseIntDefault(page.Cursor, 0)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []models.Record{}, ""
	}

	end := min(offset+limit, len(records))
	out := make([]models.Record, end-offset)
	copy(out, records[offset:end])

	next := ""
	if end < len(records) {
		next = strconv.Itoa(end)
	}
	return out, next
}

// Apply runs filter, sort and paginate. Total counts records after filtering.
func Apply(records []models.Record, v models.View) models.Page {
	filtered := Filter(records, v.Filter)
	sorted := Sort(filtered, v.Sort)
	page, next := Paginate(sorted, v.Page)
	return models.Page{Records: page, Total: len(filtered), NextCursor: next}
}
