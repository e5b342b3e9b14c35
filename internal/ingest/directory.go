package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/medscan/constants"
)

// ScanDirectory walks root, filters by exts (or the defaults), skips hidden
// entries if requested, and hashes each match. Later copies of an already
// seen file come back marked Deduplicated. Results follow walk order.
func ScanDirectory(ctx context.Context, root string, exts []string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	set := ExtSet(exts)
	seen := map[string]string{}

	var results []FileResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !allowed(path, set) {
			return nil
		}
		stats.Matched++

		ext := constants.NormalizeExt(filepath.Ext(path))
		r := FileResult{Path: path, Ext: ext, Format: constants.MapExtToFormat(ext)}
		hexHash, size, err := HashFile(path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		r.HashHex, r.Size = hexHash, size
		if first, dup := seen[hexHash]; dup {
			r.Deduplicated = true
			r.DuplicateOf = first
			stats.Deduplicated++
		} else {
			seen[hexHash] = path
		}
		results = append(results, r)
		stats.Succeeded++
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
