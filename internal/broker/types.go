// Package broker simulates order execution for backtests: a paper
// account fills market orders at the signal bar's close with
// configurable slippage and commission, tracks the open position, and
// emits completed round trips for analysis.
package broker

import (
	"errors"
	"fmt"
	"time"
)

// Broker-specific errors.
var (
	// ErrAlreadyInPosition indicates a buy while a position is open.
	ErrAlreadyInPosition = errors.New("broker: already in position")
	// ErrNoPosition indicates a sell with no open position.
	ErrNoPosition = errors.New("broker: no open position")
	// ErrInsufficientFunds indicates the cash cannot cover one share.
	ErrInsufficientFunds = errors.New("broker: insufficient funds")
	// ErrInvalidPrice indicates a non-positive fill price.
	ErrInvalidPrice = errors.New("broker: invalid price")
)

// OrderSide represents the direction of an order.
type OrderSide string

const (
	// OrderSideBuy represents a buy order.
	OrderSideBuy OrderSide = "BUY"
	// OrderSideSell represents a sell order.
	OrderSideSell OrderSide = "SELL"
)

// Fill records one executed order.
type Fill struct {
	// Symbol is the ticker symbol.
	Symbol string `json:"symbol"`
	// Side indicates buy or sell.
	Side OrderSide `json:"side"`
	// Quantity is the number of shares filled.
	Quantity int64 `json:"quantity"`
	// Price is the execution price after slippage.
	Price float64 `json:"price"`
	// Commission is the commission charged on this side.
	Commission float64 `json:"commission"`
	// Time is the bar time the fill executed at.
	Time time.Time `json:"time"`
}

// Value returns the gross value of the fill before commission.
func (f Fill) Value() float64 {
	return float64(f.Quantity) * f.Price
}

// CostModel holds the per-order trading costs applied to fills.
type CostModel struct {
	// Commission is the commission rate charged per side.
	Commission float64
	// Slippage is the adverse price movement applied to every fill:
	// buys execute above the close, sells below it.
	Slippage float64
}

// Validate checks the cost rates are usable fractions.
func (c CostModel) Validate() error {
	if c.Commission < 0 || c.Commission >= 1 {
		return fmt.Errorf("broker: commission rate %f outside [0, 1)", c.Commission)
	}
	if c.Slippage < 0 || c.Slippage >= 1 {
		return fmt.Errorf("broker: slippage rate %f outside [0, 1)", c.Slippage)
	}
	return nil
}

// BuyPrice returns the effective buy price for a close.
func (c CostModel) BuyPrice(close float64) float64 {
	return close * (1 + c.Slippage)
}

// SellPrice returns the effective sell price for a close.
func (c CostModel) SellPrice(close float64) float64 {
	return close * (1 - c.Slippage)
}
