package geckoterminal

type poolsResponse struct {
	Data []pool `json:"data"`
}

type relation struct {
	Data struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"data"`
}

type txWindow struct {
	Buys  int64 `json:"buys"`
	Sells int64 `json:"sells"`
}

// Numeric attributes arrive as strings and may be null.
type poolAttributes struct {
	Name                  string              `json:"name"`
	Address               string              `json:"address"`
	BaseTokenPriceUSD     string              `json:"base_token_price_usd"`
	FDVUSD                *string             `json:"fdv_usd"`
	MarketCapUSD          *string             `json:"market_cap_usd"`
	ReserveInUSD          string              `json:"reserve_in_usd"`
	PriceChangePercentage map[string]string   `json:"price_change_percentage"`
	Transactions          map[string]txWindow `json:"transactions"`
	VolumeUSD             map[string]string   `json:"volume_usd"`
	PoolCreatedAt         string              `json:"pool_created_at"`
}

type pool struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Attributes    poolAttributes `json:"attributes"`
	Relationships struct {
		BaseToken relation `json:"base_token"`
		Dex       relation `json:"dex"`
	} `json:"relationships"`
}
