package models

import xutil "TokenPull/pkg/util"

// Requests for token HTTP endpoints. Numeric query values are kept as strings
// so malformed input can be ignored instead of rejected. Binding trims every
// field and lower-cases those tagged normalize:"lower".

type TokenListRequest struct {
	TimePeriod   string `query:"time_period" json:"time_period" normalize:"lower"`
	MinVolume    string `query:"min_volume" json:"min_volume"`
	MinLiquidity string `query:"min_liquidity" json:"min_liquidity"`
	Protocol     string `query:"protocol" json:"protocol" validate:"max=64"`
	SortBy       string `query:"sort_by" json:"sort_by" default:"volume" normalize:"lower"`
	SortDir      string `query:"sort_dir" json:"sort_dir" default:"desc" normalize:"lower"`
	Limit        string `query:"limit" json:"limit"`
	Cursor       string `query:"cursor" json:"cursor"`
}

// View converts a bound request into a View, dropping values that do not
// parse.
func (r *TokenListRequest) View() View {
	return View{
		Filter: FilterSpec{
			TimePeriod:   Period(r.TimePeriod),
			MinVolume:    xutil.ParseFloatOptional(r.MinVolume),
			MinLiquidity: xutil.ParseFloatOptional(r.MinLiquidity),
			Protocol:     r.Protocol,
		},
		Sort: SortSpec{
			Field:     SortField(r.SortBy),
			Direction: SortDirection(r.SortDir),
		},
		Page: PageSpec{
			Limit:  xutil.ParseIntDefault(r.Limit, DefaultPageLimit),
			Cursor: r.Cursor,
		},
	}
}

type TokenSearchRequest struct {
	Q string `query:"q" json:"q" validate:"required,max=128"`
}

type TokenGetRequest struct {
	Address string `param:"address" json:"address" validate:"required,max=128,token_address"`
}

// TokenListResponse is the body of listing and search responses.
type TokenListResponse struct {
	Records  []Record          `json:"records"`
	Metadata TokenListMetadata `json:"metadata"`
}

type TokenListMetadata struct {
	Total          int    `json:"total"`
	Returned       int    `json:"returned"`
	NextCursor     string `json:"next_cursor,omitempty"`
	ResponseTimeMs int64  `json:"response_time_ms"`
}

// HealthResponse reports cache tier and subscriber state.
type HealthResponse struct {
	Status      string `json:"status"`
	RedisUp     bool   `json:"redis_available"`
	Subscribers int    `json:"subscribers"`
}
