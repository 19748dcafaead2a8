package unpack

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTar(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestTarUnpacker_Plain(t *testing.T) {
	dir := t.TempDir()
	data := buildTar(t, map[string]string{"foo-1.0/foo-pkg.el": "(define-package)", "foo-1.0/README": "hi"})

	require.NoError(t, NewTarUnpacker(0).Unpack(context.Background(), data, dir))

	got, err := os.ReadFile(filepath.Join(dir, "foo-1.0", "README"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(got))
}

func TestTarUnpacker_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(buildTar(t, map[string]string{"bar-2/bar.el": ";;; bar.el"}))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	dir := t.TempDir()
	require.NoError(t, NewTarUnpacker(0).Unpack(context.Background(), buf.Bytes(), dir))
	assert.FileExists(t, filepath.Join(dir, "bar-2", "bar.el"))
}

func TestTarUnpacker_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	err := NewTarUnpacker(0).Unpack(context.Background(), buildTar(t, map[string]string{"../evil": "x"}), dir)
	assert.ErrorIs(t, err, ErrUnsafePath)
}

func TestTarUnpacker_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	err := NewTarUnpacker(4).Unpack(context.Background(), buildTar(t, map[string]string{"a/b": "too long"}), dir)
	assert.ErrorIs(t, err, ErrTooLarge)
}
