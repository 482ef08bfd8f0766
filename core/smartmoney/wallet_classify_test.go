package smartmoney

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StatusSSS/CopyParser/core/dexscan"
	"github.com/StatusSSS/CopyParser/core/model"
)

func TestClassifyWallets(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore()

	history := `{"rows":[
		{"holdingDuration":"1h","durations":["30s"],"profits":["+60%"]},
		{"holdingDuration":"2h","durations":["5m"],"profits":["1.5K%"]},
		{"holdingDuration":"3h","durations":[],"profits":[]}
	]}`

	sess := &fakeSession{pages: map[string]string{
		"https://scan.example/address/Whale": history,
	}}

	classifier := &Classifier{
		Store:      store,
		AddressURL: "https://scan.example/address/",
		MaxRows:    100,
	}

	q, err := dexscan.NewQuarantineSink(filepath.Join(dir, "error_classify.txt"))
	require.NoError(t, err)
	defer q.Close()

	pool := &dexscan.Pool{
		Workers:    1,
		NewSession: func() (dexscan.Session, error) { return sess, nil },
	}

	outPath := filepath.Join(dir, "clear_results.json")
	classified, err := classifier.ClassifyWallets([]string{"Whale", "Ghost"}, pool, outPath, q)
	require.NoError(t, err)

	assert.Equal(t, int64(1), classified)
	assert.Equal(t, int64(1), q.Count(), "a wallet whose page never loads is quarantined")

	stats, ok := store.classifications["Whale"]
	require.True(t, ok)
	assert.Equal(t, int64(3), stats.TradeCounts)
	assert.Equal(t, int64(1), stats.Rockets)
	assert.Equal(t, int64(1), stats.GoodProfit)
	assert.Equal(t, LabelDaily, stats.Label)

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var final []model.ClassifyResult
	require.NoError(t, json.Unmarshal(raw, &final))
	require.Len(t, final, 1)
	assert.Equal(t, "Whale", final[0].Address)
	assert.Equal(t, int64(1), final[0].Rockets)
	assert.Equal(t, LabelDaily, final[0].Label)
}
