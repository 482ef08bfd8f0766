package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/config"
	"github.com/StatusSSS/CopyParser/core/alikafka"
	"github.com/StatusSSS/CopyParser/core/dexscan"
	"github.com/StatusSSS/CopyParser/core/model"
	"github.com/StatusSSS/CopyParser/core/smartmoney"
	"github.com/StatusSSS/CopyParser/utils/logger"
)

type RunOptions struct {
	Hours       int
	KeepInterim bool
}

type RunResult struct {
	RunID       string
	Tokens      int
	Merged      int
	Unique      int
	Admitted    int64
	Classified  int64
	Quarantined int64
}

// Run executes the full discovery pipeline for one run. Stages run in fixed
// order with a hard barrier between them: a stage starts only after every
// worker of the previous one has terminated. Per-item quarantines never fail
// the run; only workspace-level errors do.
func Run(opts RunOptions) (*RunResult, error) {
	start := time.Now()
	cfg := config.GetScanConfig()

	runID, runPath, err := dexscan.CreateRunDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	rawDir := filepath.Join(runPath, dexscan.RawDir)
	interimDir := filepath.Join(runPath, dexscan.InterimDir)
	processedDir := filepath.Join(runPath, dexscan.ProcessedDir)

	logger.Logrus.WithFields(logrus.Fields{"RunID": runID, "Path": runPath}).Info("run started")

	result := &RunResult{RunID: runID}

	// every session of this run shares one attempt counter, so the anti-bot
	// warmup is keyed off a global count
	counter := &dexscan.AttemptCounter{}
	newSession := func() (dexscan.Session, error) {
		return dexscan.NewHTTPSession(counter, time.Duration(cfg.FetchTimeout)*time.Second, cfg.WarmupAttempts, 3*time.Second), nil
	}

	// stage 1: trending page
	pageFiles := fetchTrendingPages(newSession, cfg, opts.Hours, rawDir)

	// stage 2: token addresses
	tokenTxts, err := dexscan.ParseTokenAddresses(pageFiles, interimDir)
	if err != nil {
		return nil, err
	}

	// stage 3: per-token trader pages
	recordDirs, quarantined, tokens := fetchTraderPages(tokenTxts, newSession, cfg, interimDir)
	result.Tokens = tokens
	result.Quarantined += quarantined

	// stage 4: low-activity wallet extraction
	clearTxts, err := dexscan.ExtractWallets(recordDirs)
	if err != nil {
		return nil, err
	}

	// stage 5: order-preserving merge
	merged, err := dexscan.MergeWalletFiles(clearTxts, filepath.Join(processedDir, "merged_wallets.txt"))
	if err != nil {
		return nil, err
	}
	result.Merged = len(merged)

	// stage 6: canonical sorted-unique list
	finalList, err := dexscan.DeduplicateWalletFile(
		filepath.Join(processedDir, "merged_wallets.txt"),
		filepath.Join(processedDir, "list.txt"),
	)
	if err != nil {
		return nil, err
	}
	result.Unique = len(finalList)

	// stage 7: enrichment
	resultsPath := filepath.Join(processedDir, "results.txt")
	admitted, quarantined, err := enrichWallets(merged, newSession, cfg, processedDir, resultsPath)
	if err != nil {
		return nil, err
	}
	result.Admitted = admitted
	result.Quarantined += quarantined

	// stage 8: classification
	classified, quarantined, err := classifyWallets(resultsPath, newSession, cfg, runPath, processedDir)
	if err != nil {
		return nil, err
	}
	result.Classified = classified
	result.Quarantined += quarantined

	// the only destructive step, always after classification
	if !opts.KeepInterim {
		os.RemoveAll(rawDir)
		os.RemoveAll(interimDir)
	}

	if err := dexscan.CleanupOldRuns(cfg.DataDir, cfg.KeepRuns); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err}).Error("cleanup old runs failed")
	}

	logger.Logrus.WithFields(logrus.Fields{"RunID": runID, "Result": result, "Elapsed": time.Since(start).String()}).Info("run finished")
	return result, nil
}

// fetchTrendingPages loads the aggregator's trending page once, with a single
// retry. A failed discovery fetch leaves the token list empty and the later
// stages skip cleanly.
func fetchTrendingPages(newSession dexscan.SessionFactory, cfg config.ScanServer, hours int, rawDir string) []string {
	url := fmt.Sprintf("%s?rankBy=trendingScoreH6&order=desc&minMarketCap=%d&maxAge=%d", cfg.TrendingURL, cfg.MinMarketCap, hours)

	sess, err := newSession()
	if err != nil {
		logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err}).Error("trending session init failed")
		return nil
	}
	defer sess.Close()

	raw, err := sess.FetchPage(url)
	if err != nil {
		logger.Logrus.WithFields(logrus.Fields{"URL": url, "ErrMsg": err}).Warn("trending fetch failed, retry once")
		raw, err = sess.FetchPage(url)
	}
	if err != nil {
		logger.Logrus.WithFields(logrus.Fields{"URL": url, "ErrMsg": err}).Error("trending fetch failed")
		return nil
	}

	pageFile := filepath.Join(rawDir, "page-1.json")
	if err := os.WriteFile(pageFile, []byte(raw), 0o644); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"File": pageFile, "ErrMsg": err}).Error("save trending page failed")
		return nil
	}

	logger.Logrus.WithFields(logrus.Fields{"File": pageFile}).Info("trending page saved")
	return []string{pageFile}
}

// fetchTraderPages pulls the Top Traders record for every token of every
// page list through the worker pool. Returns the record dirs in stage order.
func fetchTraderPages(tokenTxts []string, newSession dexscan.SessionFactory, cfg config.ScanServer, interimDir string) ([]string, int64, int) {
	var recordDirs []string
	var quarantined int64
	var total int

	for idx, txt := range tokenTxts {
		tokens, err := dexscan.ReadAddressFile(txt)
		if err != nil {
			logger.Logrus.WithFields(logrus.Fields{"File": txt, "ErrMsg": err}).Error("read token list failed, skip page")
			continue
		}
		total += len(tokens)

		pageDir := filepath.Join(interimDir, fmt.Sprintf("%d_page_tokens", idx+1))
		recordsDir := filepath.Join(pageDir, "wallet_records")
		if err := os.MkdirAll(recordsDir, 0o755); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Dir": recordsDir, "ErrMsg": err}).Error("create records dir failed, skip page")
			continue
		}
		recordDirs = append(recordDirs, recordsDir)

		if len(tokens) == 0 {
			logger.Logrus.WithFields(logrus.Fields{"File": txt, "Count": 0}).Info("empty token list, skip")
			continue
		}

		q, err := dexscan.NewQuarantineSink(filepath.Join(pageDir, "error_tokens.txt"))
		if err != nil {
			logger.Logrus.WithFields(logrus.Fields{"ErrMsg": err}).Error("open quarantine failed, skip page")
			continue
		}

		pool := &dexscan.Pool{
			Workers:    cfg.WorkerNum,
			Stagger:    time.Duration(cfg.StaggerSeconds) * time.Second,
			NewSession: newSession,
		}

		pool.Run(tokens, func(sess dexscan.Session, token string) error {
			raw, err := sess.FetchPage(cfg.TokenURL + token)
			if err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(recordsDir, token+".json"), []byte(raw), 0o644)
		}, q)

		quarantined += q.Count()
		q.Close()
	}

	return recordDirs, quarantined, total
}

func enrichWallets(addresses []string, newSession dexscan.SessionFactory, cfg config.ScanServer, processedDir, resultsPath string) (int64, int64, error) {
	if len(addresses) == 0 {
		logger.Logrus.WithFields(logrus.Fields{"Count": 0}).Info("no wallet candidates, skip enrichment")
		return 0, 0, nil
	}

	q, err := dexscan.NewQuarantineSink(filepath.Join(processedDir, "error_wallets.txt"))
	if err != nil {
		return 0, 0, err
	}
	defer q.Close()

	var publish func(string, []byte) error
	if config.GetKafkaConfig().Enabled {
		publish = alikafka.SendWalletEvent
	}

	enricher := &smartmoney.Enricher{
		Store:   &smartmoney.BunWalletStore{},
		Fetcher: smartmoney.NewQuantFetcher(cfg.WalletAPIURL, time.Duration(cfg.QuantCacheTTL)*time.Second),
		Period:  cfg.Period,
		Publish: publish,
	}

	pool := &dexscan.Pool{
		Workers:    cfg.WorkerNum,
		Stagger:    time.Duration(cfg.StaggerSeconds) * time.Second,
		NewSession: newSession,
	}

	admitted, err := enricher.EnrichWallets(addresses, pool, resultsPath, q)
	if err != nil {
		return 0, q.Count(), err
	}
	return admitted, q.Count(), nil
}

func classifyWallets(resultsPath string, newSession dexscan.SessionFactory, cfg config.ScanServer, runPath, processedDir string) (int64, int64, error) {
	addresses, err := readAdmittedAddresses(resultsPath)
	if err != nil {
		logger.Logrus.WithFields(logrus.Fields{"File": resultsPath, "ErrMsg": err}).Warn("no enrichment results to classify")
		return 0, 0, nil
	}
	if len(addresses) == 0 {
		logger.Logrus.WithFields(logrus.Fields{"Count": 0}).Info("no admitted wallets, skip classification")
		return 0, 0, nil
	}

	q, err := dexscan.NewQuarantineSink(filepath.Join(processedDir, "error_classify.txt"))
	if err != nil {
		return 0, 0, err
	}
	defer q.Close()

	classifier := &smartmoney.Classifier{
		Store:      &smartmoney.BunWalletStore{},
		AddressURL: cfg.AddressURL,
		MaxRows:    cfg.MaxTradeRows,
	}

	// the classification flow reuses one browsing session
	pool := &dexscan.Pool{Workers: 1, NewSession: newSession}

	classified, err := classifier.ClassifyWallets(addresses, pool, filepath.Join(runPath, "clear_results.json"), q)
	if err != nil {
		return classified, q.Count(), err
	}
	return classified, q.Count(), nil
}

// readAdmittedAddresses loads the enrichment JSONL rows back as a wallet
// list for the classification stage.
func readAdmittedAddresses(resultsPath string) ([]string, error) {
	f, err := os.Open(resultsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var addrs []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var row model.EnrichResult
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Line": line, "ErrMsg": err}).Error("bad enrich result row, skip")
			continue
		}
		if row.Address != "" {
			addrs = append(addrs, row.Address)
		}
	}
	return addrs, scanner.Err()
}
