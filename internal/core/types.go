package core

import (
	"strings"
	"time"
)

// Market represents a trading market
type Market string

const (
	MarketIN     Market = "IN"
	MarketUS     Market = "US"
	MarketForex  Market = "FOREX"
	MarketCrypto Market = "CRYPTO"
)

// AssetType represents the type of financial asset
type AssetType string

const (
	AssetStock  AssetType = "stock"
	AssetIndex  AssetType = "index"
	AssetETF    AssetType = "etf"
	AssetForex  AssetType = "forex"
	AssetCrypto AssetType = "crypto"
)

// NSE trading calendar: 252 sessions per year, 09:15-15:30 IST.
const (
	TradingDaysPerYear = 252
	TradingHoursPerDay = 6.25
	MarketOpen         = "09:15"
	MarketClose        = "15:30"
	MarketTimezone     = "Asia/Kolkata"
)

// Interval represents a bar interval
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
)

// Intervals lists all supported bar intervals.
func Intervals() []Interval {
	return []Interval{
		Interval1m, Interval5m, Interval15m, Interval30m,
		Interval1h, Interval1d, Interval1wk, Interval1mo,
	}
}

// IsValid reports whether the interval is one of the supported values.
func (i Interval) IsValid() bool {
	switch i {
	case Interval1m, Interval5m, Interval15m, Interval30m,
		Interval1h, Interval1d, Interval1wk, Interval1mo:
		return true
	}
	return false
}

// Minutes returns the bar length in minutes (0 for intervals of a day
// or longer, which follow the session calendar instead).
func (i Interval) Minutes() int {
	switch i {
	case Interval1m:
		return 1
	case Interval5m:
		return 5
	case Interval15m:
		return 15
	case Interval30m:
		return 30
	case Interval1h:
		return 60
	default:
		return 0
	}
}

// PeriodsPerYear returns the number of bars of this interval in one
// trading year. Intraday intervals assume the NSE session of 6.25
// trading hours across 252 sessions; the same factor is applied
// everywhere a metric is annualized so that reports for different
// intervals stay comparable.
func (i Interval) PeriodsPerYear() float64 {
	barsPerDay := TradingDaysPerYear * TradingHoursPerDay * 60
	switch i {
	case Interval1m:
		return barsPerDay / 1
	case Interval5m:
		return barsPerDay / 5
	case Interval15m:
		return barsPerDay / 15
	case Interval30m:
		return barsPerDay / 30
	case Interval1h:
		return barsPerDay / 60
	case Interval1wk:
		return 52
	case Interval1mo:
		return 12
	default:
		return TradingDaysPerYear
	}
}

// Quote represents a real-time price quote
type Quote struct {
	Symbol string
	Market Market
	Price  float64
	Volume int64
	Bid    float64
	Ask    float64
	Time   time.Time
	Source string
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol   string
	Interval Interval
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// Action represents a trading signal action
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal represents a trading signal from a strategy
type Signal struct {
	Symbol      string
	Action      Action
	Confidence  float64
	Price       float64 // Price at signal generation
	Reason      string
	Strategy    string
	Metadata    map[string]any
	GeneratedAt time.Time
}

// DetectMarket guesses the market from the symbol convention:
// ".NS"/".BO" suffixes and "^" index prefixes are Indian listings,
// "=X" pairs are forex, "-USD"/"-INR"/USDT pairs are crypto,
// anything else defaults to a US listing.
func DetectMarket(symbol string) Market {
	s := strings.ToUpper(symbol)
	switch {
	case strings.HasSuffix(s, ".NS"), strings.HasSuffix(s, ".BO"),
		s == "^NSEI", s == "^BSESN", s == "^NSMIDCP":
		return MarketIN
	case strings.HasSuffix(s, "=X"):
		return MarketForex
	case strings.Contains(s, "-USD"), strings.Contains(s, "-INR"),
		strings.HasSuffix(s, "USDT"), strings.HasPrefix(s, "BTC"),
		strings.HasPrefix(s, "ETH"):
		return MarketCrypto
	default:
		return MarketUS
	}
}

// DetectAssetType guesses the asset type from the symbol convention.
func DetectAssetType(symbol string) AssetType {
	s := strings.ToUpper(symbol)
	switch {
	case strings.HasPrefix(s, "^"):
		return AssetIndex
	case strings.HasSuffix(s, "=X"):
		return AssetForex
	case DetectMarket(s) == MarketCrypto:
		return AssetCrypto
	default:
		return AssetStock
	}
}
