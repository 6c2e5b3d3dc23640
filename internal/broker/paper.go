package broker

import (
	"time"

	"github.com/velahq/vela/internal/core"
	"github.com/velahq/vela/internal/perf"
)

// openPosition is the single long position a paper account can hold.
type openPosition struct {
	symbol     string
	quantity   int64
	entryPrice float64
	entryTime  time.Time
	commission float64
}

// Paper is a long-only cash account for backtests. Orders fill
// immediately at the offered bar's close adjusted for slippage, with
// commission charged on both sides. Completed round trips accumulate
// for the analyzer. Paper is not safe for concurrent use; every
// backtest run owns its own account.
type Paper struct {
	cash   float64
	cost   CostModel
	sizer  Sizer
	pos    *openPosition
	trades []perf.Trade
}

// NewPaper creates a paper account with the given starting cash.
func NewPaper(cash float64, cost CostModel, sizer Sizer) (*Paper, error) {
	if cash <= 0 {
		return nil, ErrInsufficientFunds
	}
	if err := cost.Validate(); err != nil {
		return nil, err
	}
	return &Paper{
		cash:  cash,
		cost:  cost,
		sizer: sizer,
	}, nil
}

// Buy opens a position at the bar's close plus slippage, committing
// the shares the sizer allows. It fails with ErrAlreadyInPosition when
// a position is open and ErrInsufficientFunds when not even one share
// is affordable.
func (p *Paper) Buy(bar core.OHLCV) (*Fill, error) {
	if p.pos != nil {
		return nil, ErrAlreadyInPosition
	}
	if bar.Close <= 0 {
		return nil, ErrInvalidPrice
	}

	fillPrice := p.cost.BuyPrice(bar.Close)
	// Size against the all-in per-share cost so commission can never
	// push the order past the available cash.
	costPerShare := fillPrice * (1 + p.cost.Commission)
	quantity := p.sizer.Shares(p.cash, costPerShare)
	if quantity <= 0 {
		return nil, ErrInsufficientFunds
	}

	value := float64(quantity) * fillPrice
	commission := value * p.cost.Commission
	p.cash -= value + commission
	p.pos = &openPosition{
		symbol:     bar.Symbol,
		quantity:   quantity,
		entryPrice: fillPrice,
		entryTime:  bar.Time,
		commission: commission,
	}

	return &Fill{
		Symbol:     bar.Symbol,
		Side:       OrderSideBuy,
		Quantity:   quantity,
		Price:      fillPrice,
		Commission: commission,
		Time:       bar.Time,
	}, nil
}

// Sell closes the open position at the bar's close minus slippage and
// records the completed trade. It fails with ErrNoPosition when flat.
func (p *Paper) Sell(bar core.OHLCV) (*Fill, error) {
	if p.pos == nil {
		return nil, ErrNoPosition
	}
	if bar.Close <= 0 {
		return nil, ErrInvalidPrice
	}

	pos := p.pos
	fillPrice := p.cost.SellPrice(bar.Close)
	value := float64(pos.quantity) * fillPrice
	commission := value * p.cost.Commission
	p.cash += value - commission
	p.pos = nil

	gross := (fillPrice - pos.entryPrice) * float64(pos.quantity)
	totalCommission := pos.commission + commission
	p.trades = append(p.trades, perf.Trade{
		EntryTime:  pos.entryTime,
		ExitTime:   bar.Time,
		EntryPrice: pos.entryPrice,
		ExitPrice:  fillPrice,
		Size:       float64(pos.quantity),
		Side:       perf.SideLong,
		Commission: totalCommission,
		GrossPnL:   gross,
		NetPnL:     gross - totalCommission,
	})

	return &Fill{
		Symbol:     pos.symbol,
		Side:       OrderSideSell,
		Quantity:   pos.quantity,
		Price:      fillPrice,
		Commission: commission,
		Time:       bar.Time,
	}, nil
}

// CloseAt force-closes any open position at the bar, used at the end
// of a run. A flat account is a no-op returning nil.
func (p *Paper) CloseAt(bar core.OHLCV) (*Fill, error) {
	if p.pos == nil {
		return nil, nil
	}
	return p.Sell(bar)
}

// Equity returns the account value marked at the given price.
func (p *Paper) Equity(price float64) float64 {
	if p.pos == nil {
		return p.cash
	}
	return p.cash + float64(p.pos.quantity)*price
}

// Cash returns the uncommitted cash balance.
func (p *Paper) Cash() float64 {
	return p.cash
}

// InPosition reports whether a position is open.
func (p *Paper) InPosition() bool {
	return p.pos != nil
}

// PositionQuantity returns the open position size, zero when flat.
func (p *Paper) PositionQuantity() int64 {
	if p.pos == nil {
		return 0
	}
	return p.pos.quantity
}

// Trades returns the completed round trips in execution order.
func (p *Paper) Trades() []perf.Trade {
	return p.trades
}
