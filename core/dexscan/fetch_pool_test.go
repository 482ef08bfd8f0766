package dexscan

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StatusSSS/CopyParser/utils/logger"
)

func TestMain(m *testing.M) {
	logger.Init(filepath.Join(os.TempDir(), "dexscan_test.log"))
	logger.SetLogLevel("error")
	os.Exit(m.Run())
}

type stubSession struct{}

func (s *stubSession) FetchPage(url string) (string, error) { return "", nil }
func (s *stubSession) Close()                               {}

func stubFactory() (Session, error) { return &stubSession{}, nil }

func TestPartitionChunks(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}

	chunks := PartitionChunks(items, 4)
	require.Len(t, chunks, 4)
	assert.Equal(t, []string{"a", "b", "c"}, chunks[0])
	assert.Equal(t, []string{"j"}, chunks[3])

	var flat []string
	for _, c := range chunks {
		flat = append(flat, c...)
	}
	assert.Equal(t, items, flat, "partitioning must preserve every item in order")

	assert.Nil(t, PartitionChunks(nil, 4))
	assert.Nil(t, PartitionChunks(items, 0))

	chunks = PartitionChunks([]string{"a", "b"}, 8)
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"a"}, chunks[0])
}

func TestPoolRetryAndQuarantine(t *testing.T) {
	dir := t.TempDir()
	q, err := NewQuarantineSink(filepath.Join(dir, "error_items.txt"))
	require.NoError(t, err)
	defer q.Close()

	var mu sync.Mutex
	attempts := make(map[string]int)

	fn := func(sess Session, item string) error {
		mu.Lock()
		attempts[item]++
		n := attempts[item]
		mu.Unlock()

		switch item {
		case "flaky":
			if n == 1 {
				return errors.New("first visit fails")
			}
			return nil
		case "broken":
			return errors.New("always fails")
		}
		return nil
	}

	pool := &Pool{Workers: 2, NewSession: stubFactory}
	stats := pool.Run([]string{"ok1", "flaky", "broken", "ok2"}, fn, q)

	assert.Equal(t, int64(3), stats.Succeeded)
	assert.Equal(t, int64(1), stats.Quarantined)
	assert.Equal(t, int64(1), q.Count())

	assert.Equal(t, 2, attempts["flaky"], "a failed item gets exactly one retry")
	assert.Equal(t, 2, attempts["broken"])

	quarantined, err := ReadAddressFile(filepath.Join(dir, "error_items.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"broken"}, quarantined)
}

func TestPoolSessionInitFailure(t *testing.T) {
	dir := t.TempDir()
	q, err := NewQuarantineSink(filepath.Join(dir, "error_items.txt"))
	require.NoError(t, err)
	defer q.Close()

	pool := &Pool{
		Workers:    1,
		NewSession: func() (Session, error) { return nil, errors.New("no browser") },
	}

	stats := pool.Run([]string{"a", "b", "c"}, func(sess Session, item string) error {
		t.Fatal("fetch func must not run without a session")
		return nil
	}, q)

	assert.Equal(t, int64(0), stats.Succeeded)
	assert.Equal(t, int64(3), stats.Quarantined)
}

func TestPoolZeroWorkersStillProcessesEveryItem(t *testing.T) {
	dir := t.TempDir()
	q, err := NewQuarantineSink(filepath.Join(dir, "error_items.txt"))
	require.NoError(t, err)
	defer q.Close()

	var mu sync.Mutex
	var fetched []string

	pool := &Pool{Workers: 0, NewSession: stubFactory}
	stats := pool.Run([]string{"a", "b"}, func(sess Session, item string) error {
		mu.Lock()
		fetched = append(fetched, item)
		mu.Unlock()
		if item == "b" {
			return errors.New("always fails")
		}
		return nil
	}, q)

	assert.Equal(t, int64(1), stats.Succeeded)
	assert.Equal(t, int64(1), stats.Quarantined)
	assert.ElementsMatch(t, []string{"a", "b", "b"}, fetched, "no item may vanish, b gets its retry")
}

func TestPoolEmptyInput(t *testing.T) {
	pool := &Pool{Workers: 4, NewSession: stubFactory}
	stats := pool.Run(nil, func(sess Session, item string) error { return nil }, nil)
	assert.Equal(t, PoolStats{}, stats)
}

func TestQuarantineSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "error_items.txt")
	q, err := NewQuarantineSink(path)
	require.NoError(t, err)

	q.Put("itemA", "timeout")
	q.Put("itemB", "missing element")
	assert.Equal(t, int64(2), q.Count())
	require.NoError(t, q.Close())

	lines, err := ReadAddressFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"itemA", "itemB"}, lines, "sink keeps raw identifiers only")
}

func TestAttemptCounter(t *testing.T) {
	c := &AttemptCounter{}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1000), c.Value())
}
