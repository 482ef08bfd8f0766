package dexscan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/core/model"
	"github.com/StatusSSS/CopyParser/utils/logger"
)

const solanaPathPrefix = "/solana/"

// TokenAddressesFromRecord pulls token addresses out of one trending-page
// record. Only hrefs under the /solana/ path qualify.
func TokenAddressesFromRecord(raw string) ([]string, error) {
	var rec model.TrendingPageRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, ErrShape
	}
	if rec.Addresses == nil {
		return nil, ErrShape
	}

	var tokens []string
	for _, href := range rec.Addresses {
		if !strings.HasPrefix(href, solanaPathPrefix) {
			continue
		}
		addr := strings.TrimPrefix(href, solanaPathPrefix)
		if addr == "" {
			continue
		}
		tokens = append(tokens, addr)
	}
	return tokens, nil
}

// ParseTokenAddresses reads the raw page record files saved by the discovery
// fetch and writes per-page token lists into dstDir. Returns the created txt
// files.
func ParseTokenAddresses(pageFiles []string, dstDir string) ([]string, error) {
	var tokenTxts []string

	for idx, pageFile := range pageFiles {
		raw, err := os.ReadFile(pageFile)
		if err != nil {
			return nil, fmt.Errorf("read page record %s: %w", pageFile, err)
		}

		tokens, err := TokenAddressesFromRecord(string(raw))
		if err != nil {
			logger.Logrus.WithFields(logrus.Fields{"File": pageFile, "ErrMsg": err}).Error("trending page record unusable, skip")
			continue
		}

		outFile := filepath.Join(dstDir, fmt.Sprintf("page-%d_tokens.txt", idx+1))
		if err := WriteAddressFile(outFile, tokens); err != nil {
			return nil, err
		}

		tokenTxts = append(tokenTxts, outFile)
		logger.Logrus.WithFields(logrus.Fields{"Count": len(tokens), "File": outFile}).Info("token addresses parsed")
	}

	return tokenTxts, nil
}
