package memory

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	jsonExt = ".json"
	gzipExt = ".json.gz"
)

// Path returns the file a slot is exported to, or "" when exports are off.
func (b *Backend) Path(slot string) string {
	if b.cfg.OutputDir == "" {
		return ""
	}
	return filepath.Join(b.cfg.OutputDir, fileName(slot, b.cfg.CompressOutput))
}

func fileName(slot string, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_", `\`, "_").Replace(slot)
	if compress {
		return name + gzipExt
	}
	return name + jsonExt
}

// export writes one slot through a temp file and rename so readers never see
// a partial document.
func (b *Backend) export(slot string, data []byte) error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := b.Path(slot)

	tmp, err := os.CreateTemp(b.cfg.OutputDir, ".slot-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if b.cfg.CompressOutput {
		err = writeGzip(tmp, data)
	} else {
		_, err = tmp.Write(data)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

func writeGzip(w io.Writer, data []byte) error {
	gzWriter := gzip.NewWriter(w)
	if _, err := gzWriter.Write(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}

// importDir reads every exported slot in the output directory. A missing
// directory is not an error.
func (b *Backend) importDir() (map[string][]byte, error) {
	entries, err := os.ReadDir(b.cfg.OutputDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	slots := make(map[string][]byte)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var slot string
		switch {
		case strings.HasSuffix(name, gzipExt):
			slot = strings.TrimSuffix(name, gzipExt)
		case strings.HasSuffix(name, jsonExt):
			slot = strings.TrimSuffix(name, jsonExt)
		default:
			continue
		}
		data, err := ReadFile(filepath.Join(b.cfg.OutputDir, name))
		if err != nil {
			return nil, err
		}
		slots[slot] = data
	}
	return slots, nil
}

// ReadFile reads an exported slot file, decompressing .gz files.
func ReadFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return raw, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("open gzip %s: %w", path, err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
