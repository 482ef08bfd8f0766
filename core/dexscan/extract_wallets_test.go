package dexscan

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	systemProgram = "11111111111111111111111111111111"
	tokenProgram  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	wrappedSol    = "So11111111111111111111111111111111111111112"
)

func TestParseTxnCount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"5", 5},
		{"8 txns", 8},
		{"7txns", 7},
		{"1.2K", 1200},
		{" 10 ", 10},
	}
	for _, c := range cases {
		got, err := parseTxnCount(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	_, err := parseTxnCount("n/a")
	assert.Error(t, err)
}

func TestWalletsFromRecord(t *testing.T) {
	raw := fmt.Sprintf(`{
		"addresses":["%s","%s","%s","not-a-pubkey"],
		"transactionCounts":["5 txns","12","0.002K","3"]
	}`, systemProgram, tokenProgram, wrappedSol)

	wallets, err := WalletsFromRecord(raw)
	require.NoError(t, err)
	// 12 txns is over the low-activity cap, the last row is not a pubkey
	assert.Equal(t, []string{systemProgram, wrappedSol}, wallets)
}

func TestWalletsFromRecordParallelArrays(t *testing.T) {
	// rows without a matching count are dropped
	raw := fmt.Sprintf(`{"addresses":["%s","%s"],"transactionCounts":["5"]}`, systemProgram, wrappedSol)
	wallets, err := WalletsFromRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{systemProgram}, wallets)

	_, err = WalletsFromRecord("broken")
	assert.ErrorIs(t, err, ErrShape)

	_, err = WalletsFromRecord(`{"transactionCounts":["5"]}`)
	assert.ErrorIs(t, err, ErrShape)
}

func TestExtractWallets(t *testing.T) {
	pageDir := filepath.Join(t.TempDir(), "1_page_tokens")
	recordsDir := filepath.Join(pageDir, "wallet_records")
	require.NoError(t, os.MkdirAll(recordsDir, 0o755))

	good := fmt.Sprintf(`{"addresses":["%s"],"transactionCounts":["4"]}`, systemProgram)
	require.NoError(t, os.WriteFile(filepath.Join(recordsDir, "TokA.json"), []byte(good), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(recordsDir, "TokB.json"), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(recordsDir, "notes.txt"), []byte("ignored"), 0o644))

	txts, err := ExtractWallets([]string{recordsDir, filepath.Join(pageDir, "missing")})
	require.NoError(t, err, "a missing record dir is skipped, not fatal")
	require.Len(t, txts, 1)
	assert.Equal(t, filepath.Join(pageDir, "clear_wallets", "TokA.txt"), txts[0])

	wallets, err := ReadAddressFile(txts[0])
	require.NoError(t, err)
	assert.Equal(t, []string{systemProgram}, wallets)
}
