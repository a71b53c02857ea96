package domain

import "time"

// IndexSpec names a tracked market index.
type IndexSpec struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

// Quote is the latest price and previous close of a symbol.
type Quote struct {
	Price         float64
	PreviousClose float64
}

// IndexQuote is a display-ready index row. Failed lookups carry zeros.
type IndexQuote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
}

// MarketSnapshot is the cached set of index quotes.
type MarketSnapshot struct {
	Indices   []IndexQuote `json:"indices"`
	UpdatedAt time.Time    `json:"updated_at"`
}
