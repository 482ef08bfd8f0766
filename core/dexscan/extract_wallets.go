package dexscan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/core/model"
	"github.com/StatusSSS/CopyParser/utils/logger"
)

// a trader with more activity than this is not a low-activity candidate
const maxCandidateTxns = 10

// parseTxnCount reads a transaction-count field. Counts may come as "5",
// "8 txns" or "1.2K" (K means ×1000).
func parseTxnCount(s string) (float64, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimSuffix(t, "txns")
	t = strings.TrimSpace(t)

	mult := 1.0
	if strings.Contains(t, "K") {
		mult = 1000
		t = strings.ReplaceAll(t, "K", "")
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
	if err != nil {
		return 0, err
	}
	return v * mult, nil
}

// WalletsFromRecord extracts low-activity wallet candidates from one
// trader-page record: valid pubkeys whose transaction count is <= 10.
func WalletsFromRecord(raw string) ([]string, error) {
	var rec model.TraderPageRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, ErrShape
	}
	if rec.Addresses == nil {
		return nil, ErrShape
	}

	var wallets []string
	for i, addr := range rec.Addresses {
		if i >= len(rec.TransactionCounts) {
			break
		}

		txns, err := parseTxnCount(rec.TransactionCounts[i])
		if err != nil {
			// malformed count field, skip the row
			continue
		}
		if txns > maxCandidateTxns {
			continue
		}

		if _, err := solana.PublicKeyFromBase58(addr); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Address": addr}).Debug("not a valid pubkey, skip")
			continue
		}
		wallets = append(wallets, addr)
	}
	return wallets, nil
}

// ExtractWallets walks the saved trader-page record dirs, extracts candidate
// wallets from every record and writes them into a sibling clear_wallets dir.
// Returns the created txt files in stage order.
func ExtractWallets(recordDirs []string) ([]string, error) {
	var producedTxts []string

	for _, rdir := range recordDirs {
		entries, err := os.ReadDir(rdir)
		if err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Dir": rdir, "ErrMsg": err}).Warn("record dir missing, skip")
			continue
		}

		clearDir := filepath.Join(filepath.Dir(rdir), "clear_wallets")
		if err := os.MkdirAll(clearDir, 0o755); err != nil {
			return nil, err
		}

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}

			raw, err := os.ReadFile(filepath.Join(rdir, e.Name()))
			if err != nil {
				logger.Logrus.WithFields(logrus.Fields{"File": e.Name(), "ErrMsg": err}).Error("read trader record failed")
				continue
			}

			wallets, err := WalletsFromRecord(string(raw))
			if err != nil {
				logger.Logrus.WithFields(logrus.Fields{"File": e.Name(), "ErrMsg": err}).Error("trader record unusable, skip")
				continue
			}
			if len(wallets) == 0 {
				continue
			}

			outFile := filepath.Join(clearDir, strings.TrimSuffix(e.Name(), ".json")+".txt")
			if err := WriteAddressFile(outFile, wallets); err != nil {
				return nil, err
			}
			producedTxts = append(producedTxts, outFile)
		}
	}

	logger.Logrus.WithFields(logrus.Fields{"Files": len(producedTxts)}).Info("wallet extraction finished")
	return producedTxts, nil
}
