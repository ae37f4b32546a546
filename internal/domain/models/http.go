package models

// Requests for the read/query HTTP endpoints. Defined in domain for consistency and reuse.

type RangeRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	Venue  string `query:"venue" json:"venue"`
	Hours  int    `query:"hours" json:"hours" default:"24" validate:"gte=1,lte=168"`
	Limit  int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=10000"`
	// From/To take RFC3339 or unix seconds and override Hours when set.
	From string `query:"from" json:"from"`
	To   string `query:"to" json:"to"`
}

type LatestRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	Venue  string `query:"venue" json:"venue" validate:"required"`
}

type ComplianceRequest struct {
	Symbol    string  `param:"symbol" json:"symbol" validate:"required"`
	Venue     string  `query:"venue" json:"venue" validate:"required"`
	Hours     int     `query:"hours" json:"hours" default:"24" validate:"gte=1,lte=168"`
	SpreadBps float64 `query:"spread_bps" json:"spread_bps" default:"10" validate:"gt=0"`
}

type ForceCollectRequest struct {
	// Venue limits the scope; empty means all configured venues.
	Venue string `query:"venue" json:"venue"`
}
