package models

import (
	"math"
	"strings"
	"time"
)

// Period identifies a price-change horizon.
type Period string

const (
	Period1h  Period = "1h"
	Period24h Period = "24h"
	Period7d  Period = "7d"
)

// RawRecord is a token record as reported by one provider, before merging.
type RawRecord struct {
	Address     string             `json:"token_address"`
	Name        string             `json:"token_name"`
	Ticker      string             `json:"token_ticker"`
	Price       float64            `json:"price"`
	MarketValue float64            `json:"market_cap"`
	Volume      float64            `json:"volume"`
	Liquidity   float64            `json:"liquidity"`
	TxCount     int64              `json:"transaction_count"`
	PriceChange map[Period]float64 `json:"price_change,omitempty"`
	Protocol    string             `json:"protocol"`
	Source      string             `json:"source"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Record is the canonical, merged token record. Address is lower-case and
// unique within a snapshot; Source lists every contributing provider.
type Record struct {
	Address     string             `json:"token_address"`
	Name        string             `json:"token_name"`
	Ticker      string             `json:"token_ticker"`
	Price       float64            `json:"price"`
	MarketValue float64            `json:"market_cap"`
	Volume      float64            `json:"volume"`
	Liquidity   float64            `json:"liquidity"`
	TxCount     int64              `json:"transaction_count"`
	PriceChange map[Period]float64 `json:"price_change,omitempty"`
	Protocol    string             `json:"protocol"`
	Source      string             `json:"source"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NormalizeAddress returns the identity key for an address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Canonical converts a raw record to the canonical shape: identity key
// normalized, negative or non-finite metrics clamped to zero, change map
// copied without non-finite entries.
func (r RawRecord) Canonical() Record {
	var changes map[Period]float64
	for p, v := range r.PriceChange {
		if !finite(v) {
			continue
		}
		if changes == nil {
			changes = make(map[Period]float64, len(r.PriceChange))
		}
		changes[p] = v
	}
	return Record{
		Address:     NormalizeAddress(r.Address),
		Name:        strings.TrimSpace(r.Name),
		Ticker:      strings.TrimSpace(r.Ticker),
		Price:       nonNegative(r.Price),
		MarketValue: nonNegative(r.MarketValue),
		Volume:      nonNegative(r.Volume),
		Liquidity:   nonNegative(r.Liquidity),
		TxCount:     max(r.TxCount, 0),
		PriceChange: changes,
		Protocol:    r.Protocol,
		Source:      r.Source,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Change returns the price change for p and whether the record carries one.
func (r Record) Change(p Period) (float64, bool) {
	v, ok := r.PriceChange[p]
	return v, ok
}

// BestChange is the long-horizon change if present, else the short one, else 0.
func (r Record) BestChange() float64 {
	if v, ok := r.Change(Period24h); ok {
		return v
	}
	if v, ok := r.Change(Period1h); ok {
		return v
	}
	return 0
}

func nonNegative(v float64) float64 {
	if v < 0 || !finite(v) {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// marketValueVolumeMultiple converts 24h volume into a rough market value
// when a provider reports neither market cap nor FDV.
const marketValueVolumeMultiple = 10

// EstimateMarketValue is a placeholder estimate derived from volume. It is
// only guaranteed to be non-negative.
func EstimateMarketValue(volume float64) float64 {
	return nonNegative(volume) * marketValueVolumeMultiple
}
