package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// walkDir is replaced in tests to simulate unreadable directories
var walkDir = filepath.WalkDir

// Scanner scans directories for .eml files
type Scanner struct {
	rootPath string
}

// NewScanner creates a new scanner for the given root path
func NewScanner(rootPath string) *Scanner {
	return &Scanner{
		rootPath: rootPath,
	}
}

// Scan recursively scans for .eml files and returns their paths, joined to
// the root path, in lexical order
func (s *Scanner) Scan() ([]string, error) {
	var emlFiles []string

	err := walkDir(s.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing path %s: %w", path, err)
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		// Check if file has .eml extension
		if strings.ToLower(filepath.Ext(path)) == ".eml" {
			emlFiles = append(emlFiles, path)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	return emlFiles, nil
}

// Expand replaces every directory in args with the .eml files found below it.
// Other arguments are kept as given, so missing files are reported by
// whoever opens them. A directory that cannot be scanned is passed to
// onError and contributes no files; the remaining arguments are still
// expanded.
func Expand(args []string, onError func(path string, err error)) []string {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			files = append(files, arg)
			continue
		}

		found, err := NewScanner(arg).Scan()
		if err != nil {
			onError(arg, err)
			continue
		}
		files = append(files, found...)
	}
	return files
}
