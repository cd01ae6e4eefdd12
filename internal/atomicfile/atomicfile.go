// Package atomicfile provides write-temp-then-rename persistence so a crash
// or concurrent reader never observes a partially written file.
package atomicfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// WriteBytes writes data to dst via a sibling temp file, fsync, and rename.
func WriteBytes(dst string, data []byte) error {
	return WriteReader(dst, bytes.NewReader(data))
}

// WriteReader streams r into dst via a sibling temp file, fsync, and rename.
func WriteReader(dst string, r io.Reader) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}
