package utils

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StagedFilePrefix marks temp files written by the intake handler.
const StagedFilePrefix = "intake-upload-"

// StartTempSweeper launches a background goroutine that periodically deletes
// staged upload files older than maxAge. Requests remove their own files; this
// only catches leftovers from a crashed process. It is best-effort and logs failures.
func StartTempSweeper(ctx context.Context, dir string, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = interval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := SweepStagedFiles(dir, maxAge, time.Now()); n > 0 {
					Sugar.Infof("temp sweeper removed %d stale staged uploads from %s", n, dir)
				}
			}
		}
	}()
}

// SweepStagedFiles removes staged files in dir last modified before now-maxAge
// and returns how many were removed.
func SweepStagedFiles(dir string, maxAge time.Duration, now time.Time) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		Sugar.Warnf("temp sweeper read dir failed dir=%s err=%v", dir, err)
		return 0
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), StagedFilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			Sugar.Warnf("temp sweeper remove failed file=%s err=%v", e.Name(), err)
			continue
		}
		removed++
	}
	return removed
}
