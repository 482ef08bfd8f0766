package model

import (
	"time"

	"github.com/uptrace/bun"
)

// WalletRecord is the one-row-per-address state of a discovered wallet.
// Enrichment owns winrate/sol_balance/pnl/checked_count, classification owns
// the trade statistics; profit_ratio and good_ratio are recomputed by the
// store on every write that touches their inputs.
type WalletRecord struct {
	bun.BaseModel `bun:"table:wallets,alias:w"`

	ID      int64  `bun:"id,pk,autoincrement"`
	Address string `bun:"address,unique,notnull"`

	Winrate    int64 `bun:"winrate"`
	SolBalance int64 `bun:"sol_balance"`
	Pnl        int64 `bun:"pnl"`

	Rockets      int64 `bun:"rockets"`
	TradeCounts  int64 `bun:"trade_counts"`
	ProfitTrades int64 `bun:"profit_trades"`
	GoodProfit   int64 `bun:"good_profit"`

	ProfitRatio float64 `bun:"profit_ratio"`
	GoodRatio   float64 `bun:"good_ratio"`

	FastTrades float64 `bun:"fast_trades"`
	// holds the 75th percentile of inter-trade gaps, column name is historical
	Median float64 `bun:"median"`
	Label  string  `bun:"label"`

	CheckedCount int64     `bun:"checked_count"`
	LastUpdated  time.Time `bun:"last_updated,nullzero"`
}

// TrendingPageRecord is the structured record the page extractor produces for
// the DEX aggregator trending page: token links as site-relative hrefs.
type TrendingPageRecord struct {
	Addresses []string `json:"addresses"`
}

// TraderPageRecord is the extractor output for one token's Top Traders page.
// Addresses and TransactionCounts are parallel arrays; a count may carry a
// "K" multiplier ("1.2K" = 1200).
type TraderPageRecord struct {
	Addresses         []string `json:"addresses"`
	TransactionCounts []string `json:"transactionCounts"`
}

// QuantResponse mirrors the quant-API wallet record. All numeric fields are
// nullable upstream, so everything is a pointer and defaults to zero.
type QuantResponse struct {
	Data *QuantData `json:"data"`
}

type QuantData struct {
	SolBalance          *float64 `json:"sol_balance"`
	Pnl7d               *float64 `json:"pnl_7d"`
	Pnl30d              *float64 `json:"pnl_30d"`
	Winrate             *float64 `json:"winrate"`
	RealizedProfit7d    *float64 `json:"realized_profit_7d"`
	RealizedProfit30d   *float64 `json:"realized_profit_30d"`
	LastActiveTimestamp *int64   `json:"last_active_timestamp"`
}

// TradeHistoryRecord is the extractor output for a wallet's trade-history
// page: one row per trade, with the raw text sub-values still unparsed.
type TradeHistoryRecord struct {
	Rows []TradeRow `json:"rows"`
}

type TradeRow struct {
	HoldingDuration string   `json:"holdingDuration"`
	Durations       []string `json:"durations"`
	Profits         []string `json:"profits"`
}

// EnrichResult is one JSONL row of processed/results.txt.
type EnrichResult struct {
	Address        string  `json:"wallet_address"`
	SolBalance     string  `json:"sol_balance"`
	PnlPercent     string  `json:"pnl_percent"`
	Winrate        float64 `json:"winrate"`
	RealizedProfit string  `json:"realized_profit"`
	LastActive     string  `json:"last_active"`
	Period         string  `json:"period"`
}

// ClassifyResult is one entry of the final clear_results.json array.
type ClassifyResult struct {
	Address      string  `json:"wallet_address"`
	Rockets      int64   `json:"rockets"`
	TradeCounts  int64   `json:"trade_counts"`
	ProfitTrades int64   `json:"profit_trades"`
	GoodProfit   int64   `json:"good_profit"`
	FastTrades   float64 `json:"fast_trades"`
	Median       float64 `json:"median"`
	Label        string  `json:"label"`
}
