package models

import "encoding/json"

// Push channel events.
const (
	EventSubscribe         = "subscribe"
	EventUpdatePreferences = "updatePreferences"
	EventSubscribed        = "subscribed"
	EventTokensUpdate      = "tokens:update"
	EventError             = "error"
)

// InboundMessage is a client to server envelope.
type InboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundMessage is a server to client envelope.
type OutboundMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Preferences is what a subscriber sends to shape its projection. Missing
// sections fall back to defaults: an update replaces the whole view.
type Preferences struct {
	Filter     *FilterSpec `json:"filter,omitempty"`
	Sort       *SortSpec   `json:"sort,omitempty"`
	Pagination *PageSpec   `json:"pagination,omitempty"`
}

// View builds the subscriber view, using defaultLimit when no limit is given.
func (p Preferences) View(defaultLimit int) View {
	v := View{Page: PageSpec{Limit: defaultLimit}}
	if p.Filter != nil {
		v.Filter = *p.Filter
	}
	if p.Sort != nil {
		v.Sort = *p.Sort
	}
	if p.Pagination != nil {
		v.Page = *p.Pagination
		if v.Page.Limit <= 0 {
			v.Page.Limit = defaultLimit
		}
	}
	return v
}

type SubscribedPayload struct {
	ClientID string `json:"client_id"`
	View     View   `json:"preferences"`
}

type UpdatePayload struct {
	Records   []Record       `json:"records"`
	Timestamp int64          `json:"timestamp"`
	Type      string         `json:"type"`
	Metadata  UpdateMetadata `json:"metadata"`
}

type UpdateMetadata struct {
	Total      int    `json:"total"`
	Returned   int    `json:"returned"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
