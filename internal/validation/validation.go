// Package validation provides input validation for caller-supplied paths
// and files before the engine performs boundary I/O (taxonomy and instance
// reads, report writes).
package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Limits to prevent resource exhaustion (CWE-400).
const (
	// MaxDocumentSize is the maximum allowed document size (64 MB).
	MaxDocumentSize = 64 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrPathTraversal   = errors.New("path traversal detected")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrPathTooLong     = errors.New("path too long")
	ErrFilenameTooLong = errors.New("filename too long")
	ErrEmptyPath       = errors.New("path cannot be empty")
	ErrDocumentTooBig  = errors.New("document exceeds size limit")
)

// SanitizePath validates a user-supplied path against a base directory to
// prevent path traversal. It returns the cleaned path relative to the base
// directory, or an error if the path escapes it.
func SanitizePath(baseDir, userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}
	if len(userPath) > MaxPathLength {
		return "", ErrPathTooLong
	}

	cleanPath := filepath.Clean(userPath)
	if strings.Contains(cleanPath, "..") {
		return "", ErrPathTraversal
	}
	if filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("%w: absolute path not allowed", ErrPathTraversal)
	}

	fullPath := filepath.Join(baseDir, cleanPath)
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	relPath, err := filepath.Rel(absBase, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return "", ErrPathTraversal
	}

	return cleanPath, nil
}

// ValidateFilename checks that a filename is safe: no path separators, no
// control characters, no reserved names.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator in filename", ErrInvalidFilename)
	}
	for _, r := range filename {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: control character in filename", ErrInvalidFilename)
		}
	}
	return nil
}

// CheckDocumentSize stats the file and rejects documents larger than
// MaxDocumentSize before they are read into memory.
func CheckDocumentSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxDocumentSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrDocumentTooBig, path, info.Size())
	}
	return nil
}
