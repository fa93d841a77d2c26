package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LatestFile returns the most recently modified file in dir with the given
// extension (case-insensitive). Equal modification times resolve to the
// lexically greatest name so reruns pick the same snapshot.
func LatestFile(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s does not exist", ErrNoSnapshot, dir)
	}
	if err != nil {
		return "", fmt.Errorf("read dir %s: %w", dir, err)
	}

	var (
		best     string
		bestTime int64
	)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		// Office lock files sit next to open workbooks.
		if strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		mt := info.ModTime().UnixNano()
		if best == "" || mt > bestTime || (mt == bestTime && e.Name() > best) {
			best = e.Name()
			bestTime = mt
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: no %s file in %s", ErrNoSnapshot, ext, dir)
	}
	return filepath.Join(dir, best), nil
}
