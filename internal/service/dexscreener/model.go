package dexscreener

type searchResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []pair `json:"pairs"`
}

type token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type txCount struct {
	Buys  int64 `json:"buys"`
	Sells int64 `json:"sells"`
}

type pair struct {
	ChainID     string             `json:"chainId"`
	DexID       string             `json:"dexId"`
	PairAddress string             `json:"pairAddress"`
	BaseToken   token              `json:"baseToken"`
	QuoteToken  token              `json:"quoteToken"`
	PriceUSD    string             `json:"priceUsd"`
	Txns        map[string]txCount `json:"txns"`
	Volume      map[string]float64 `json:"volume"`
	PriceChange map[string]float64 `json:"priceChange"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV           float64 `json:"fdv"`
	MarketCap     float64 `json:"marketCap"`
	PairCreatedAt int64   `json:"pairCreatedAt"`
}
