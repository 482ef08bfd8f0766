package smartmoney

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StatusSSS/CopyParser/core/dexscan"
	"github.com/StatusSSS/CopyParser/core/model"
)

type fakeSession struct {
	pages map[string]string
}

func (s *fakeSession) FetchPage(url string) (string, error) {
	if raw, ok := s.pages[url]; ok {
		return raw, nil
	}
	return "", &dexscan.TransientFetchError{URL: url, Err: os.ErrNotExist}
}

func (s *fakeSession) Close() {}

type fakeStore struct {
	mu              sync.Mutex
	enriched        []string
	classifications map[string]ClassifyStats
}

func newFakeStore() *fakeStore {
	return &fakeStore{classifications: make(map[string]ClassifyStats)}
}

func (s *fakeStore) UpsertEnrichment(ctx context.Context, address string, winrate, solBalance, pnlPercent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enriched = append(s.enriched, address)
	return nil
}

func (s *fakeStore) UpsertClassification(ctx context.Context, address string, stats ClassifyStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications[address] = stats
	return nil
}

func (s *fakeStore) ExportAddresses(ctx context.Context, minRockets int64) ([]string, error) {
	return []string{"RocketWallet"}, nil
}

func TestAdmit(t *testing.T) {
	good := QuantFields{Winrate: 0.5, SolBalance: 6, Pnl: 0.6}
	assert.True(t, Admit(good))

	// every threshold is strict
	for _, f := range []QuantFields{
		{Winrate: 0.45, SolBalance: 6, Pnl: 0.6},
		{Winrate: 0.5, SolBalance: 5, Pnl: 0.6},
		{Winrate: 0.5, SolBalance: 6, Pnl: 0.5},
		{},
	} {
		assert.False(t, Admit(f), "%+v", f)
	}
}

func TestEnrichWallets(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()

	fetcher := func(sess dexscan.Session, address, period string) (QuantFields, error) {
		switch address {
		case "Whale":
			return QuantFields{Winrate: 0.6, SolBalance: 20, Pnl: 1.2, RealizedProfit: 5000, LastActive: "2025-06-01 12:00:00"}, nil
		case "Shrimp":
			return QuantFields{Winrate: 0.3, SolBalance: 1, Pnl: 0.1}, nil
		case "NoData":
			return QuantFields{}, dexscan.ErrShape
		}
		return QuantFields{}, &dexscan.TransientFetchError{URL: address, Err: os.ErrDeadlineExceeded}
	}

	var published []string
	enricher := &Enricher{
		Store:   store,
		Fetcher: fetcher,
		Period:  "7d",
		Publish: func(address string, payload []byte) error {
			published = append(published, address)
			return nil
		},
	}

	q, err := dexscan.NewQuarantineSink(filepath.Join(dir, "error_wallets.txt"))
	require.NoError(t, err)
	defer q.Close()

	pool := &dexscan.Pool{
		Workers:    1,
		NewSession: func() (dexscan.Session, error) { return &fakeSession{}, nil },
	}

	resultsPath := filepath.Join(dir, "results.txt")
	admitted, err := enricher.EnrichWallets([]string{"Whale", "Shrimp", "NoData", "Gone"}, pool, resultsPath, q)
	require.NoError(t, err)

	assert.Equal(t, int64(1), admitted)
	assert.Equal(t, []string{"Whale"}, store.enriched)
	assert.Equal(t, []string{"Whale"}, published)

	// only the fetch-layer failure lands in quarantine
	assert.Equal(t, int64(1), q.Count())
	quarantined, err := dexscan.ReadAddressFile(filepath.Join(dir, "error_wallets.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Gone"}, quarantined)

	rows := readResultRows(t, resultsPath)
	require.Len(t, rows, 1)
	assert.Equal(t, "Whale", rows[0].Address)
	assert.Equal(t, "20.00", rows[0].SolBalance)
	assert.Equal(t, "120.00%", rows[0].PnlPercent)
	assert.Equal(t, 0.6, rows[0].Winrate)
	assert.Equal(t, "5000.00$", rows[0].RealizedProfit)
	assert.Equal(t, "7d", rows[0].Period)
}

func readResultRows(t *testing.T, path string) []model.EnrichResult {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var rows []model.EnrichResult
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		var row model.EnrichResult
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}
	require.NoError(t, scanner.Err())
	return rows
}
