// Package pack writes named byte buffers into a zip container.
package pack

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Entry is one named file inside an archive. Only the base name of Name is stored.
type Entry struct {
	Name string
	Data []byte
}

// Write packs entries into w in the given order, using Deflate.
func Write(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		if err := writeEntry(zw, e); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// Bytes packs entries and returns the archive bytes.
func Bytes(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Files reads each path and packs it under its base name.
func Files(paths []string) ([]byte, error) {
	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		entries = append(entries, Entry{Name: p, Data: data})
	}
	return Bytes(entries)
}

func writeEntry(zw *zip.Writer, e Entry) error {
	name := filepath.Base(filepath.ToSlash(e.Name))
	if name == "." || name == "/" || name == "" {
		return fmt.Errorf("invalid entry name %q", e.Name)
	}
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := fw.Write(e.Data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}
