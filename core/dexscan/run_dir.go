package dexscan

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/utils/logger"
)

const (
	RawDir       = "raw"
	InterimDir   = "interim"
	ProcessedDir = "processed"

	runsDir = "runs"
)

// CreateRunDir makes data/runs/<run_id>/{raw,interim,processed} and returns
// the run id and its path.
func CreateRunDir(dataDir string) (string, string, error) {
	runID := time.Now().Format("2006-01-02_15-04")
	runPath := filepath.Join(dataDir, runsDir, runID)

	for _, sub := range []string{RawDir, InterimDir, ProcessedDir} {
		if err := os.MkdirAll(filepath.Join(runPath, sub), 0o755); err != nil {
			return "", "", err
		}
	}
	return runID, runPath, nil
}

// CleanupOldRuns keeps the `keep` most recent run directories and removes the
// rest.
func CleanupOldRuns(dataDir string, keep int) error {
	runsRoot := filepath.Join(dataDir, runsDir)
	entries, err := os.ReadDir(runsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type runEntry struct {
		path  string
		mtime time.Time
	}

	var runs []runEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		runs = append(runs, runEntry{path: filepath.Join(runsRoot, e.Name()), mtime: info.ModTime()})
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].mtime.After(runs[j].mtime) })

	if keep < 0 {
		keep = 0
	}
	if keep > len(runs) {
		keep = len(runs)
	}
	for _, old := range runs[keep:] {
		if err := os.RemoveAll(old.path); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Path": old.path, "ErrMsg": err}).Error("remove old run failed")
		}
	}
	return nil
}
