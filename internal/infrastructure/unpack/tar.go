package unpack

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrUnsafePath = errors.New("archive entry escapes destination")
	ErrTooLarge   = errors.New("archive exceeds size limit")
)

// TarUnpacker extracts tar archives, transparently handling gzip compression.
type TarUnpacker struct {
	MaxBytes int64 // total uncompressed size limit, 0 = unlimited
}

func NewTarUnpacker(maxBytes int64) *TarUnpacker {
	return &TarUnpacker{MaxBytes: maxBytes}
}

// Unpack writes the archive into dir, which must already exist.
func (u *TarUnpacker) Unpack(ctx context.Context, data []byte, dir string) error {
	var r io.Reader = bytes.NewReader(data)
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var written int64
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target, err := safeJoin(dir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if u.MaxBytes > 0 && written+hdr.Size > u.MaxBytes {
				return ErrTooLarge
			}
			if err := writeFile(target, tr, hdr.Size); err != nil {
				return fmt.Errorf("extract %s: %w", hdr.Name, err)
			}
			written += hdr.Size
		default:
			// links, devices and pax globals are ignored
		}
	}
}

func safeJoin(dir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(dir, clean), nil
}

func writeFile(path string, r io.Reader, size int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(f, r, size); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
