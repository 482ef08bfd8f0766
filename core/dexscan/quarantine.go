package dexscan

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/utils/logger"
)

// QuarantineSink records permanently-failed items, one raw identifier per
// line, so a later run can retry them. Shared by every worker of a pool.
type QuarantineSink struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	count int64
}

func NewQuarantineSink(path string) (*QuarantineSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &QuarantineSink{f: f, path: path}, nil
}

// Put writes the identifier only; the reason goes to the log.
func (q *QuarantineSink) Put(item, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, err := q.f.WriteString(item + "\n"); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"Item": item, "ErrMsg": err}).Error("write quarantine entry failed")
	}
	q.count++

	logger.Logrus.WithFields(logrus.Fields{"Item": item, "Reason": reason, "File": q.path}).Warn("item quarantined")
}

func (q *QuarantineSink) Count() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *QuarantineSink) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.f.Close()
}
