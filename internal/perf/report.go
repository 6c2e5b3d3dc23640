package perf

// Report is the complete performance summary for one backtest run.
// Metrics with degenerate cases use the Metric sentinel type; plain
// float64 fields are always well-defined. Reports marshal cleanly to
// JSON for the API and archive layers.
type Report struct {
	Bars          int     `json:"bars"`
	InitialEquity float64 `json:"initial_equity"`
	FinalEquity   float64 `json:"final_equity"`
	NetProfit     float64 `json:"net_profit"`

	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn Metric  `json:"annualized_return"`
	Volatility       Metric  `json:"volatility"`
	SharpeRatio      Metric  `json:"sharpe_ratio"`
	SortinoRatio     Metric  `json:"sortino_ratio"`
	CalmarRatio      Metric  `json:"calmar_ratio"`

	MaxDrawdown     float64 `json:"max_drawdown"`
	MaxDrawdownBars int     `json:"max_drawdown_bars"`
	UnderwaterStart int     `json:"underwater_start"`
	UnderwaterEnd   int     `json:"underwater_end"`
	RecoveryFactor  Metric  `json:"recovery_factor"`

	BestBar  Metric `json:"best_bar"`
	WorstBar Metric `json:"worst_bar"`

	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	WinRate         float64 `json:"win_rate"`
	ProfitFactor    Metric  `json:"profit_factor"`
	GrossProfit     float64 `json:"gross_profit"`
	GrossLoss       float64 `json:"gross_loss"`
	TotalCommission float64 `json:"total_commission"`

	RiskFreeRate   float64 `json:"risk_free_rate"`
	PeriodsPerYear float64 `json:"periods_per_year"`
}
