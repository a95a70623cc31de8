package pysnaptest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxSnapshotSize is the maximum allowed snapshot size (100MB).
const MaxSnapshotSize = 100 * 1024 * 1024

// pendingSuffix marks a freshly computed snapshot awaiting review; the
// canonical file next to it is left untouched. snaptool accepts or rejects
// these.
const pendingSuffix = ".new"

// snapshotExists reports whether a snapshot file is present.
func snapshotExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// readSnapshot returns a snapshot's content. A missing file yields
// ErrSnapshotNotFound, never empty content.
func readSnapshot(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return nil, fmt.Errorf("pysnaptest: read snapshot %s: %w", path, err)
	}
	return data, nil
}

// writeSnapshot persists content with all-or-nothing semantics: the data is
// written to a temp file in the target directory and renamed into place, so a
// concurrent read sees either the previous content or the full new content.
func writeSnapshot(path string, content []byte) error {
	if len(content) > MaxSnapshotSize {
		return ErrSnapshotTooLarge
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("pysnaptest: create snapshot dir %s: %w", dir, err)
		}
	}

	tempPath, err := tempFileName(path)
	if err != nil {
		return err
	}

	var tempCreated bool
	defer func() {
		if tempCreated {
			_ = os.Remove(tempPath)
		}
	}()

	if err := os.WriteFile(tempPath, content, 0600); err != nil {
		return fmt.Errorf("pysnaptest: write snapshot %s: %w", path, err)
	}
	tempCreated = true

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("pysnaptest: write snapshot %s: %w", path, err)
	}

	// Rename succeeded; the temp file is now the target.
	tempCreated = false
	return nil
}

// writePending stores content beside the canonical snapshot for later review.
func writePending(path string, content []byte) error {
	return writeSnapshot(path+pendingSuffix, content)
}

// clearPending removes a stale pending file left by an earlier mismatch, so a
// later blanket accept cannot promote superseded content. Missing is fine.
func clearPending(path string) error {
	if err := os.Remove(path + pendingSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pysnaptest: clear pending snapshot %s: %w", path+pendingSuffix, err)
	}
	return nil
}

// tempFileName generates a unique temp name in the target's directory so the
// final rename stays on one filesystem.
func tempFileName(targetPath string) (string, error) {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return targetPath + ".tmp." + hex.EncodeToString(randomBytes), nil
}

// ListPending returns the pending snapshot files (*.new) under dir, sorted.
func ListPending(dir string) ([]string, error) {
	var pending []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, pendingSuffix) {
			pending = append(pending, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pysnaptest: list pending snapshots in %s: %w", dir, err)
	}
	sort.Strings(pending)
	return pending, nil
}

// AcceptPending promotes a pending snapshot to its canonical path.
func AcceptPending(pendingPath string) error {
	if !strings.HasSuffix(pendingPath, pendingSuffix) {
		return usageErrorf("%s is not a pending snapshot", pendingPath)
	}
	target := strings.TrimSuffix(pendingPath, pendingSuffix)
	if err := os.Rename(pendingPath, target); err != nil {
		return fmt.Errorf("pysnaptest: accept %s: %w", pendingPath, err)
	}
	return nil
}

// RejectPending discards a pending snapshot, keeping the canonical file.
func RejectPending(pendingPath string) error {
	if !strings.HasSuffix(pendingPath, pendingSuffix) {
		return usageErrorf("%s is not a pending snapshot", pendingPath)
	}
	if err := os.Remove(pendingPath); err != nil {
		return fmt.Errorf("pysnaptest: reject %s: %w", pendingPath, err)
	}
	return nil
}
