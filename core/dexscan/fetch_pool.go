package dexscan

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/utils/logger"
)

// FetchFunc processes one item with the worker's session. A returned error
// means a fetch-layer failure: the pool retries once, then quarantines the
// item. Shape failures and rejections are handled inside the func and
// reported as nil.
type FetchFunc func(sess Session, item string) error

type PoolStats struct {
	Succeeded   int64
	Quarantined int64
}

// Pool drives N independent sessions over disjoint partitions of the input.
// Run returns only after every worker has joined; every input item ends in
// exactly one of success or quarantine.
type Pool struct {
	Workers    int
	Stagger    time.Duration
	NewSession SessionFactory
}

// PartitionChunks splits items into at most n contiguous chunks of
// ceil(len/n) items. Deterministic for a given input and n.
func PartitionChunks(items []string, n int) [][]string {
	if len(items) == 0 || n <= 0 {
		return nil
	}

	size := (len(items) + n - 1) / n
	var chunks [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

func (p *Pool) Run(items []string, fn FetchFunc, q *QuarantineSink) PoolStats {
	// a misconfigured worker count must not drop items
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	chunks := PartitionChunks(items, workers)
	if len(chunks) == 0 {
		return PoolStats{}
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		stats PoolStats
	)

	for i, chunk := range chunks {
		// workers start one stagger apart so the sessions do not hit the
		// anti-bot defenses in one synchronized burst
		if i > 0 && p.Stagger > 0 {
			time.Sleep(p.Stagger)
		}

		wg.Add(1)
		go func(workerID int, part []string) {
			defer wg.Done()

			ok, bad := p.runWorker(workerID, part, fn, q)

			mu.Lock()
			stats.Succeeded += ok
			stats.Quarantined += bad
			mu.Unlock()
		}(i+1, chunk)
	}

	wg.Wait()
	return stats
}

func (p *Pool) runWorker(workerID int, items []string, fn FetchFunc, q *QuarantineSink) (succeeded, quarantined int64) {
	sess, err := p.NewSession()
	if err != nil {
		logger.Logrus.WithFields(logrus.Fields{"Worker": workerID, "ErrMsg": err}).Error("worker session init failed")
		for _, item := range items {
			q.Put(item, "session init failed")
			quarantined++
		}
		return succeeded, quarantined
	}
	defer sess.Close()

	for _, item := range items {
		err := fn(sess, item)
		if err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Worker": workerID, "Item": item, "ErrMsg": err}).Warn("fetch failed, retry once")
			err = fn(sess, item)
		}

		if err != nil {
			q.Put(item, err.Error())
			quarantined++
			continue
		}
		succeeded++
	}

	logger.Logrus.WithFields(logrus.Fields{"Worker": workerID, "Items": len(items), "Quarantined": quarantined}).Info("worker finished")
	return succeeded, quarantined
}
