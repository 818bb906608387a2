package models

// SortField names a sortable record metric.
type SortField string

const (
	SortVolume      SortField = "volume"
	SortPriceChange SortField = "price_change"
	SortMarketCap   SortField = "market_cap"
	SortLiquidity   SortField = "liquidity"
	SortTxCount     SortField = "transaction_count"
)

// SortDirection is "asc" or "desc". Anything else is treated as desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

const (
	// DefaultPageLimit applies when a page request carries no usable limit.
	DefaultPageLimit = 20
	// MaxPageLimit bounds one page so a single pull or push payload stays
	// small even when the snapshot holds the full record cap.
	MaxPageLimit = 100
)

// FilterSpec selects records. Zero values disable a criterion.
type FilterSpec struct {
	TimePeriod   Period   `json:"time_period,omitempty"`
	MinVolume    *float64 `json:"min_volume,omitempty"`
	MinLiquidity *float64 `json:"min_liquidity,omitempty"`
	Protocol     string   `json:"protocol,omitempty"`
}

// SortSpec orders records. An empty Field keeps input order.
type SortSpec struct {
	Field     SortField     `json:"field,omitempty"`
	Direction SortDirection `json:"direction,omitempty"`
}

// PageSpec selects a window. Cursor is an integer offset encoded as a string.
type PageSpec struct {
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

// View is one consumer's filter/sort/page parameters.
type View struct {
	Filter FilterSpec `json:"filter"`
	Sort   SortSpec   `json:"sort"`
	Page   PageSpec   `json:"pagination"`
}

// Page is the result of applying a View to a snapshot.
type Page struct {
	Records    []Record
	Total      int
	NextCursor string
}
