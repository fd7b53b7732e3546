package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LosslessExtensions are the containers a scan picks up by default.
var LosslessExtensions = []string{".flac", ".wav", ".aiff", ".aif", ".alac", ".ape", ".wv"}

// IsAudioFile reports whether path has one of exts (case-insensitive).
func IsAudioFile(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// FindAudioFiles walks root and returns every regular file with one of exts,
// sorted. A root that is itself a matching file is returned alone. Hidden
// directories are skipped.
func FindAudioFiles(root string, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		if IsAudioFile(root, exts) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsAudioFile(path, exts) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(out)
	return out, nil
}
