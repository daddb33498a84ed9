// Package archive writes and reads report bundles: a generated XBRL
// document plus its manifest, packed into a tar.xz or tar.gz archive.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	apperrors "github.com/regsuite/filings/core/errors"
	"github.com/regsuite/filings/internal/validation"
)

// ManifestName is the manifest entry's name inside a bundle.
const ManifestName = "manifest.json"

// Manifest describes the document carried by a report bundle. Both hashes
// are recorded: SHA-256 as the primary, BLAKE3 for fast verification.
type Manifest struct {
	// BundleID uniquely identifies the bundle.
	BundleID string `json:"bundle_id"`

	// SubmissionID identifies the submission the report was generated for.
	SubmissionID string `json:"submission_id,omitempty"`

	// Document is the report file name inside the bundle.
	Document string `json:"document"`

	// SizeBytes is the document length.
	SizeBytes int64 `json:"size_bytes"`

	// SHA256 and BLAKE3 are hex digests of the document bytes.
	SHA256 string `json:"sha256"`
	BLAKE3 string `json:"blake3"`

	// GeneratedAt is the bundle creation time, RFC 3339 UTC.
	GeneratedAt string `json:"generated_at"`
}

// HashDocument computes both manifest digests for the document bytes.
func HashDocument(data []byte) (sha string, b3 string) {
	s := sha256.Sum256(data)
	b := blake3.Sum256(data)
	return hex.EncodeToString(s[:]), hex.EncodeToString(b[:])
}

// WriteBundle packs a generated document into an archive at dstPath. The
// compression is chosen from the destination suffix (.tar.xz or .tar.gz).
// The archive is written to a temp file and renamed into place so the
// caller never observes a partial bundle.
func WriteBundle(dstPath, submissionID, documentName string, document []byte) (*Manifest, error) {
	if err := validation.ValidateFilename(documentName); err != nil {
		return nil, fmt.Errorf("document name %q: %w", documentName, err)
	}

	sha, b3 := HashDocument(document)
	manifest := &Manifest{
		BundleID:     uuid.New().String(),
		SubmissionID: submissionID,
		Document:     documentName,
		SizeBytes:    int64(len(document)),
		SHA256:       sha,
		BLAKE3:       b3,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".bundle-*")
	if err != nil {
		return nil, fmt.Errorf("create temp bundle: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeArchive(tmp, dstPath, documentName, document, manifestData); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("close bundle: %w", err)
	}
	if err := os.Rename(tmpName, dstPath); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("finalize bundle: %w", err)
	}
	return manifest, nil
}

// writeArchive writes the tar stream with the compression implied by the
// destination path's suffix.
func writeArchive(out io.Writer, dstPath, documentName string, document, manifestData []byte) error {
	var (
		tw        *tar.Writer
		finishers []io.Closer
	)

	switch {
	case strings.HasSuffix(dstPath, ".tar.xz"):
		xzw, err := xz.NewWriter(out)
		if err != nil {
			return fmt.Errorf("xz writer: %w", err)
		}
		tw = tar.NewWriter(xzw)
		finishers = []io.Closer{tw, xzw}
	case strings.HasSuffix(dstPath, ".tar.gz"):
		gzw := gzip.NewWriter(out)
		tw = tar.NewWriter(gzw)
		finishers = []io.Closer{tw, gzw}
	default:
		return apperrors.NewUnsupported("bundle format",
			fmt.Sprintf("%s must end in .tar.xz or .tar.gz", dstPath))
	}

	now := time.Now()
	entries := []struct {
		name string
		data []byte
	}{
		{ManifestName, manifestData},
		{documentName, document},
	}
	for _, entry := range entries {
		header := &tar.Header{
			Name:    entry.name,
			Mode:    0644,
			Size:    int64(len(entry.data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("write header %s: %w", entry.name, err)
		}
		if _, err := tw.Write(entry.data); err != nil {
			return fmt.Errorf("write entry %s: %w", entry.name, err)
		}
	}

	for _, c := range finishers {
		if err := c.Close(); err != nil {
			return fmt.Errorf("finish archive: %w", err)
		}
	}
	return nil
}
