package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StatusSSS/CopyParser/utils/logger"
)

func TestMain(m *testing.M) {
	logger.Init(filepath.Join(os.TempDir(), "pipeline_test.log"))
	logger.SetLogLevel("error")
	os.Exit(m.Run())
}

func TestReadAdmittedAddresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.txt")
	content := `{"wallet_address":"W1","winrate":0.6}
not json
{"wallet_address":"W2","winrate":0.5}
{"winrate":0.4}

`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	addrs, err := readAdmittedAddresses(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"W1", "W2"}, addrs, "bad rows and rows without an address are skipped")
}

func TestReadAdmittedAddressesMissingFile(t *testing.T) {
	_, err := readAdmittedAddresses(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
