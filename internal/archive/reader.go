package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/ulikunitz/xz"

	apperrors "github.com/regsuite/filings/core/errors"
	"github.com/regsuite/filings/internal/validation"
)

// Reader wraps a tar.Reader with automatic decompression handling.
type Reader struct {
	*tar.Reader
	file         *os.File
	decompressor io.Closer
}

// NewReader creates a new bundle reader for the given path.
// It automatically detects and handles .tar.gz and .tar.xz compression.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}

	var reader io.Reader = f
	var decompressor io.Closer

	switch {
	case strings.HasSuffix(path, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		reader = xzr
		decompressor = nil // xz reader doesn't need closing
	case strings.HasSuffix(path, ".tar.gz"):
		gzr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		reader = gzr
		decompressor = gzr
	default:
		f.Close()
		return nil, apperrors.NewUnsupported("bundle format",
			fmt.Sprintf("%s must end in .tar.xz or .tar.gz", path))
	}

	return &Reader{
		Reader:       tar.NewReader(reader),
		file:         f,
		decompressor: decompressor,
	}, nil
}

// Close closes the bundle reader and any underlying decompressors.
func (r *Reader) Close() error {
	var errs []error
	if r.decompressor != nil {
		if err := r.decompressor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ReadBundle opens a bundle and returns its manifest and document bytes.
// The document's hashes are verified against the manifest; a mismatch is
// an error.
func ReadBundle(path string) (*Manifest, []byte, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var manifest *Manifest
	var document []byte

	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read bundle entry: %w", err)
		}
		// Bundles are untrusted input; an entry name that escapes the
		// bundle root is rejected before its content is touched.
		if _, err := validation.SanitizePath(".", header.Name); err != nil {
			return nil, nil, fmt.Errorf("bundle entry %q: %w", header.Name, err)
		}

		data, err := io.ReadAll(r)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", header.Name, err)
		}

		if header.Name == ManifestName {
			var m Manifest
			if err := json.Unmarshal(data, &m); err != nil {
				return nil, nil, fmt.Errorf("parse manifest: %w", err)
			}
			manifest = &m
		} else {
			document = data
		}
	}

	if manifest == nil {
		return nil, nil, fmt.Errorf("bundle %s has no manifest", path)
	}
	if document == nil {
		return nil, nil, fmt.Errorf("bundle %s has no document", path)
	}

	sha, b3 := HashDocument(document)
	if sha != manifest.SHA256 || b3 != manifest.BLAKE3 {
		return nil, nil, fmt.Errorf("bundle %s: document hash mismatch", path)
	}

	return manifest, document, nil
}
