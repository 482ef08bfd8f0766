package smartmoney

import (
	"context"
	"time"

	"github.com/StatusSSS/CopyParser/core/db"
	"github.com/StatusSSS/CopyParser/core/dexscan"
	"github.com/StatusSSS/CopyParser/core/model"
)

// WalletStore is the single point of upsert-by-address. Implementations must
// recompute the derived ratio columns in the same statement as any write that
// changes their inputs.
type WalletStore interface {
	UpsertEnrichment(ctx context.Context, address string, winrate, solBalance, pnlPercent float64) error
	UpsertClassification(ctx context.Context, address string, stats ClassifyStats) error
	ExportAddresses(ctx context.Context, minRockets int64) ([]string, error)
}

// BunWalletStore keeps the wallets table in Postgres through the shared bun
// handle.
type BunWalletStore struct{}

var _ WalletStore = (*BunWalletStore)(nil)

// UpsertEnrichment inserts a fresh row with checked_count = 1 or refreshes an
// existing one, bumping checked_count. Winrate is stored ×100; all three
// numbers are integer-truncated, matching the stored schema.
func (s *BunWalletStore) UpsertEnrichment(ctx context.Context, address string, winrate, solBalance, pnlPercent float64) error {
	rec := &model.WalletRecord{
		Address:      address,
		Winrate:      int64(winrate * 100),
		SolBalance:   int64(solBalance),
		Pnl:          int64(pnlPercent),
		CheckedCount: 1,
		LastUpdated:  time.Now(),
	}

	_, err := db.GetDB().NewInsert().Model(rec).
		On("CONFLICT (address) DO UPDATE").
		Set("winrate = EXCLUDED.winrate").
		Set("sol_balance = EXCLUDED.sol_balance").
		Set("pnl = EXCLUDED.pnl").
		Set("checked_count = w.checked_count + 1").
		Set("last_updated = EXCLUDED.last_updated").
		Exec(ctx)
	return err
}

// UpsertClassification writes the trade statistics and recomputes the two
// derived ratios in the same statement. A wallet missing from enrichment gets
// a fresh row with only classification fields populated.
func (s *BunWalletStore) UpsertClassification(ctx context.Context, address string, stats ClassifyStats) error {
	rec := &model.WalletRecord{
		Address:      address,
		Rockets:      stats.Rockets,
		TradeCounts:  stats.TradeCounts,
		ProfitTrades: stats.ProfitTrades,
		GoodProfit:   stats.GoodProfit,
		ProfitRatio:  ratio(stats.ProfitTrades, stats.TradeCounts),
		GoodRatio:    ratio(stats.GoodProfit, stats.TradeCounts),
		FastTrades:   stats.FastTrades,
		Median:       stats.Median,
		Label:        stats.Label,
		LastUpdated:  time.Now(),
	}

	_, err := db.GetDB().NewInsert().Model(rec).
		On("CONFLICT (address) DO UPDATE").
		Set("rockets = EXCLUDED.rockets").
		Set("trade_counts = EXCLUDED.trade_counts").
		Set("profit_trades = EXCLUDED.profit_trades").
		Set("good_profit = EXCLUDED.good_profit").
		Set("profit_ratio = EXCLUDED.profit_ratio").
		Set("good_ratio = EXCLUDED.good_ratio").
		Set("fast_trades = EXCLUDED.fast_trades").
		Set("median = EXCLUDED.median").
		Set("label = EXCLUDED.label").
		Set("last_updated = EXCLUDED.last_updated").
		Exec(ctx)
	return err
}

// ExportAddresses lists wallets with at least minRockets rockets, sorted.
func (s *BunWalletStore) ExportAddresses(ctx context.Context, minRockets int64) ([]string, error) {
	var addrs []string
	err := db.GetDB().NewRaw("SELECT address FROM wallets WHERE rockets >= ? ORDER BY address", minRockets).Scan(ctx, &addrs)
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

// ExportRockets writes the rockets listing to a flat file.
func ExportRockets(ctx context.Context, store WalletStore, minRockets int64, outfile string) (int, error) {
	addrs, err := store.ExportAddresses(ctx, minRockets)
	if err != nil {
		return 0, err
	}
	if err := dexscan.WriteAddressFile(outfile, addrs); err != nil {
		return 0, err
	}
	return len(addrs), nil
}

func ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
