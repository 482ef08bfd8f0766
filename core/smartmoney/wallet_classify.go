package smartmoney

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/core/dexscan"
	"github.com/StatusSSS/CopyParser/core/model"
	"github.com/StatusSSS/CopyParser/utils/logger"
)

// Classifier revisits admitted wallets' trade histories and derives the
// behavioral statistics. The classification flow reuses one browsing session,
// so the pipeline drives it through a single-worker pool.
type Classifier struct {
	Store      WalletStore
	AddressURL string
	MaxRows    int
}

// ClassifyWallets visits each wallet's trade-history page, computes the
// statistics and upserts them. The collected results are also written as a
// JSON array to outPath. Returns the number of classified wallets.
func (c *Classifier) ClassifyWallets(addresses []string, pool *dexscan.Pool, outPath string, q *dexscan.QuarantineSink) (int64, error) {
	var (
		mu    sync.Mutex
		final []model.ClassifyResult
	)

	pool.Run(addresses, func(sess dexscan.Session, address string) error {
		url := c.AddressURL + address
		logger.Logrus.WithFields(logrus.Fields{"URL": url}).Info("visit wallet trade history")

		raw, err := sess.FetchPage(url)
		if err != nil {
			return err
		}

		stats := ClassifyFromRaw(raw, c.MaxRows)

		if err := c.Store.UpsertClassification(context.Background(), address, stats); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Address": address, "ErrMsg": err}).Error("upsert classification failed")
		}

		mu.Lock()
		final = append(final, model.ClassifyResult{
			Address:      address,
			Rockets:      stats.Rockets,
			TradeCounts:  stats.TradeCounts,
			ProfitTrades: stats.ProfitTrades,
			GoodProfit:   stats.GoodProfit,
			FastTrades:   stats.FastTrades,
			Median:       stats.Median,
			Label:        stats.Label,
		})
		mu.Unlock()

		return nil
	}, q)

	data, err := json.MarshalIndent(final, "", "    ")
	if err != nil {
		return int64(len(final)), err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return int64(len(final)), err
	}

	return int64(len(final)), nil
}
