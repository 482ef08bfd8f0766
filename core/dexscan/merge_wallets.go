package dexscan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/StatusSSS/CopyParser/utils/logger"
)

// MergeWallets merges the per-stage lists in stage order. The first
// occurrence of an address wins positionally; later duplicates are dropped.
func MergeWallets(lists [][]string) []string {
	seen := make(map[string]struct{})
	var merged []string

	for _, list := range lists {
		for _, address := range list {
			if address == "" {
				continue
			}
			if _, ok := seen[address]; ok {
				continue
			}
			seen[address] = struct{}{}
			merged = append(merged, address)
		}
	}
	return merged
}

// DeduplicateSorted is the canonical audit form of a list: unique addresses
// in strict lexicographic order. Kept separate from MergeWallets on purpose;
// the two dedup policies serve different consumers.
func DeduplicateSorted(items []string) []string {
	uniq := make(map[string]struct{})
	for _, it := range items {
		if it != "" {
			uniq[it] = struct{}{}
		}
	}

	out := make([]string, 0, len(uniq))
	for it := range uniq {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// ReadAddressFile loads a newline-delimited address list, dropping blanks.
func ReadAddressFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var addrs []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			addrs = append(addrs, line)
		}
	}
	return addrs, nil
}

func WriteAddressFile(path string, addrs []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	content := strings.Join(addrs, "\n")
	if content != "" {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// MergeWalletFiles reads every clear_wallets txt in stage order and writes
// the order-preserving merged list.
func MergeWalletFiles(txts []string, outPath string) ([]string, error) {
	var lists [][]string
	for _, txt := range txts {
		addrs, err := ReadAddressFile(txt)
		if err != nil {
			logger.Logrus.WithFields(logrus.Fields{"File": txt, "ErrMsg": err}).Error("read wallet list failed, skip")
			continue
		}
		lists = append(lists, addrs)
	}

	merged := MergeWallets(lists)
	if err := WriteAddressFile(outPath, merged); err != nil {
		return nil, err
	}

	logger.Logrus.WithFields(logrus.Fields{"Count": len(merged), "File": outPath}).Info("wallet lists merged")
	return merged, nil
}

// DeduplicateWalletFile writes the sorted-unique form of src into dst.
func DeduplicateWalletFile(src, dst string) ([]string, error) {
	addrs, err := ReadAddressFile(src)
	if err != nil {
		return nil, err
	}

	sorted := DeduplicateSorted(addrs)
	if err := WriteAddressFile(dst, sorted); err != nil {
		return nil, err
	}

	logger.Logrus.WithFields(logrus.Fields{"Count": len(sorted), "File": dst}).Info("final wallet list written")
	return sorted, nil
}
