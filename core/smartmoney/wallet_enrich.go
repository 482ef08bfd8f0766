package smartmoney

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/core/dexscan"
	"github.com/StatusSSS/CopyParser/core/model"
	"github.com/StatusSSS/CopyParser/utils/logger"
)

// admission thresholds, all must hold at once
const (
	minWinrate    = 0.45
	minSolBalance = 5.0
	minPnlPercent = 50.0
)

// Admit decides whether a wallet's quant record clears the thresholds.
// Rejection is a normal negative outcome, not a failure.
func Admit(f QuantFields) bool {
	return f.Winrate > minWinrate && f.SolBalance > minSolBalance && f.Pnl*100 > minPnlPercent
}

// QuantFetcher is the quant-API capability used per wallet visit.
type QuantFetcher func(sess dexscan.Session, address, period string) (QuantFields, error)

// Enricher filters candidate wallets against the quant API and upserts the
// survivors.
type Enricher struct {
	Store   WalletStore
	Fetcher QuantFetcher
	Period  string

	// Publish sends an admitted-wallet event; nil disables publishing.
	Publish func(address string, payload []byte) error
}

// EnrichWallets runs the candidates through the fetch pool. Shape failures
// count as "no data" and are not retried; only fetch-layer errors reach the
// pool's retry/quarantine path. Returns the number of admitted wallets.
func (e *Enricher) EnrichWallets(addresses []string, pool *dexscan.Pool, resultsPath string, q *dexscan.QuarantineSink) (int64, error) {
	out, err := os.OpenFile(resultsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open results file: %w", err)
	}
	defer out.Close()

	var (
		mu       sync.Mutex
		admitted int64
	)

	pool.Run(addresses, func(sess dexscan.Session, address string) error {
		fields, err := e.Fetcher(sess, address, e.Period)
		if err != nil {
			if errors.Is(err, dexscan.ErrShape) {
				logger.Logrus.WithFields(logrus.Fields{"Address": address}).Warn("quant record has no data")
				return nil
			}
			return err
		}

		if !Admit(fields) {
			logger.Logrus.WithFields(logrus.Fields{"Address": address, "Winrate": fields.Winrate, "SolBalance": fields.SolBalance, "PnlPercent": fields.Pnl * 100}).Debug("wallet rejected")
			return nil
		}

		if err := e.Store.UpsertEnrichment(context.Background(), address, fields.Winrate, fields.SolBalance, fields.Pnl*100); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Address": address, "ErrMsg": err}).Error("upsert enrichment failed")
			return nil
		}

		row := model.EnrichResult{
			Address:        address,
			SolBalance:     fmt.Sprintf("%.2f", fields.SolBalance),
			PnlPercent:     fmt.Sprintf("%.2f%%", fields.Pnl*100),
			Winrate:        fields.Winrate,
			RealizedProfit: fmt.Sprintf("%.2f$", fields.RealizedProfit),
			LastActive:     fields.LastActive,
			Period:         e.Period,
		}

		payload, err := json.Marshal(&row)
		if err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Address": address, "ErrMsg": err}).Error("marshal enrich result failed")
			return nil
		}

		mu.Lock()
		if _, err := out.Write(append(payload, '\n')); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Address": address, "ErrMsg": err}).Error("write enrich result failed")
		}
		admitted++
		mu.Unlock()

		if e.Publish != nil {
			if err := e.Publish(address, payload); err != nil {
				logger.Logrus.WithFields(logrus.Fields{"Address": address, "ErrMsg": err}).Error("publish admitted wallet failed")
			}
		}

		logger.Logrus.WithFields(logrus.Fields{"Address": address, "Data": row}).Info("wallet admitted")
		return nil
	}, q)

	return admitted, nil
}

// NewQuantFetcher binds the cache-backed quant fetch to the configured API
// url and TTL.
func NewQuantFetcher(apiURL string, ttl time.Duration) QuantFetcher {
	return func(sess dexscan.Session, address, period string) (QuantFields, error) {
		return FetchQuantRecord(sess, apiURL, address, period, ttl)
	}
}
