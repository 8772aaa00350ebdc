package models

import "time"

// Tick is one raw market event from the stream feeding the stats book.
type Tick struct {
	Symbol    string
	Timestamp int64 // unix seconds
	Price     float64
	Volume    float64
	Bid       float64
	Ask       float64
}

// MarketStats is the live snapshot a ticker must have before it can be
// scored. Tickers without stats are dropped from consensus outright.
type MarketStats struct {
	Symbol    string
	Volume24h float64 // quote volume over the trailing 24h window
	Spread    float64 // bid/ask spread in percent
	LastPrice float64
	UpdatedAt time.Time
}
