package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/shared/apperror"
)

const fooEl = `;;; foo.el --- A test package

;; Version: 1.2.3
;; Package-Requires: ((bar "0.1"))

;;; Commentary:

;; Hello world.

(provide 'foo)
;;; foo.el ends here
`

func TestExtractSingleFile(t *testing.T) {
	pv, err := ExtractSingleFile(fooEl)
	require.NoError(t, err)

	assert.Equal(t, "foo", pv.Name)
	assert.Equal(t, "foo", pv.Key)
	assert.Equal(t, "A test package", pv.Description)
	assert.Equal(t, archive.Version{1, 2, 3}, pv.Version)
	assert.Equal(t, []archive.Dependency{{Name: "bar", Version: archive.Version{0, 1}}}, pv.Requires)
	require.NotNil(t, pv.Commentary)
	assert.Equal(t, "Hello world.", *pv.Commentary)
	assert.Equal(t, archive.KindSingle, pv.Kind)
	assert.Equal(t, "1.2.3", pv.Headers["version"])
}

func TestExtractSingleFile_CRLF(t *testing.T) {
	pv, err := ExtractSingleFile(strings.ReplaceAll(fooEl, "\n", "\r\n"))
	require.NoError(t, err)

	assert.Equal(t, "A test package", pv.Description)
	assert.Equal(t, archive.Version{1, 2, 3}, pv.Version)
	assert.Equal(t, "1.2.3", pv.Headers["version"])
	require.NotNil(t, pv.Commentary)
	assert.Equal(t, "Hello world.", *pv.Commentary)
}

func TestExtractSingleFile_MissingVersion(t *testing.T) {
	text := ";;; foo.el --- A test package\n\n;; Author: Someone\n\n;;; foo.el ends here\n"
	_, err := ExtractSingleFile(text)
	require.Error(t, err)
	assert.True(t, apperror.IsSyntaxError(err))
	assert.Contains(t, err.Error(), "Package-Version")
	assert.Contains(t, err.Error(), "Version header")
}

func TestExtractSingleFile_Markers(t *testing.T) {
	_, err := ExtractSingleFile(";; Version: 1.0\n;;; foo.el ends here\n")
	assert.EqualError(t, err, "No starting comment for package")

	_, err = ExtractSingleFile(";;; foo.el --- x\n;; Version: 1.0\n;;; bar.el ends here\n")
	assert.EqualError(t, err, "No closing comment for package")

	_, err = ExtractSingleFile(";;; foo.el --- x\n;; Version: 1.0\n;;; Foo.el ends here\n")
	assert.EqualError(t, err, "No closing comment for package", "name match is case-sensitive")

	pv, err := ExtractSingleFile(";;; foo.el --- x\n;; Version: 1.0\n(provide 'foo) ;;; foo.el ends here\n")
	require.NoError(t, err)
	assert.Nil(t, pv.Commentary)
	assert.Empty(t, pv.Requires)
}

func TestExtractSingleFile_OnlyScansBetweenMarkers(t *testing.T) {
	text := ";; Version: 9.9\n;;; foo.el --- x  -*- lexical-binding: t -*-\n;; Version: 1.0\n;;; foo.el ends here\n;; Package-Version: 2.0\n"
	pv, err := ExtractSingleFile(text)
	require.NoError(t, err)
	assert.Equal(t, archive.Version{1, 0}, pv.Version)
	assert.Equal(t, "x", pv.Description)
}

func TestExtractSingleFile_VersionHeaders(t *testing.T) {
	wrap := func(headers string) string {
		return ";;; foo.el --- x\n" + headers + ";;; foo.el ends here\n"
	}

	pv, err := ExtractSingleFile(wrap(";; Version: 1.0\n;; Package-Version: 2.1\n"))
	require.NoError(t, err)
	assert.Equal(t, archive.Version{2, 1}, pv.Version, "Package-Version takes precedence")

	pv, err = ExtractSingleFile(wrap(";; Version: $Revision: 1.42 $\n"))
	require.NoError(t, err)
	assert.Equal(t, archive.Version{1, 42}, pv.Version)

	_, err = ExtractSingleFile(wrap(";; Version: 1.0beta\n"))
	require.Error(t, err)
	assert.True(t, apperror.IsSyntaxError(err))
	assert.Contains(t, err.Error(), `"1.0beta"`)

	_, err = ExtractSingleFile(wrap(";; Version: 1.0\n;; Package-Requires: ((bar \"x.y\"))\n"))
	assert.Contains(t, err.Error(), `"x.y"`)

	_, err = ExtractSingleFile(wrap(";; Version: 1.0\n;; Package-Requires: ((bar \"1\")\n"))
	assert.True(t, apperror.IsSyntaxError(err))
}

func TestScanHeaders(t *testing.T) {
	headers := ScanHeaders(`;; Author: First <a@example.com>
;; Author: Second
;; URL:
;;; $Keywords: lisp, tools
;; @(#) Maintainer: Someone
;; Not a header
`)
	assert.Equal(t, map[string]string{
		"author":     "First <a@example.com>",
		"keywords":   "lisp, tools",
		"maintainer": "Someone",
	}, headers)
}

func TestExtractCommentary(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *string
	}{
		{
			name: "ends at marker no deeper than opening",
			text: ";;; Commentary:\n;; One\n;;;; Sub: heading\n;; Two\n;;; Code:\n(x)",
			want: ptr("One\nSub: heading\nTwo"),
		},
		{
			name: "documentation alias, case-insensitive",
			text: ";;;; DOCUMENTATION;;:\n;; Doc text\n;;; Change Log:\n",
			want: ptr("Doc text"),
		},
		{
			name: "absent",
			text: ";; nothing here\n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractCommentary(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := extractCommentary(";;;; Commentary:\n;; never closed\n")
	assert.EqualError(t, err, "Unterminated section: Commentary")
}

// dirUnpacker writes a fixed file tree instead of decoding data
type dirUnpacker map[string]string

func (d dirUnpacker) Unpack(_ context.Context, _ []byte, dir string) error {
	for name, body := range d {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func TestExtractArchive(t *testing.T) {
	files := dirUnpacker{
		"foo-1.0/foo-pkg.el": `(define-package "foo" "1.0" "Archive package" '((bar "0.1") (baz "2")) :url "https://example.com" :keywords ("a"))`,
		"foo-1.0/foo.el":     ";;; foo.el --- x\n;; Author: Jane\n;; URL: https://foo.example\n",
		"foo-1.0/README":     "Long documentation.\n",
	}
	pv, err := ExtractArchive(context.Background(), files, t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, "foo", pv.Name)
	assert.Equal(t, archive.KindTar, pv.Kind)
	assert.Equal(t, archive.Version{1, 0}, pv.Version)
	assert.Equal(t, "Archive package", pv.Description)
	assert.Equal(t, []archive.Dependency{
		{Name: "bar", Version: archive.Version{0, 1}},
		{Name: "baz", Version: archive.Version{2}},
	}, pv.Requires)
	assert.Equal(t, "Jane", pv.Headers["author"])
	assert.Equal(t, "https://foo.example", pv.Headers["url"], "main file headers win over declaration keywords")
	require.NotNil(t, pv.Commentary)
	assert.Equal(t, "Long documentation.\n", *pv.Commentary)
}

func TestExtractArchive_CleansUp(t *testing.T) {
	root := t.TempDir()
	_, err := ExtractArchive(context.Background(), dirUnpacker{"x/y": ""}, root, nil)
	require.Error(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractArchive_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files dirUnpacker
		want  []string
	}{
		{
			name:  "version mismatch",
			files: dirUnpacker{"foo-1.0/foo-pkg.el": `(define-package "foo" "1.1" "d")`},
			want:  []string{`"1.1"`, `"1.0"`, "foo-pkg.el", "foo-1.0"},
		},
		{
			name:  "name mismatch",
			files: dirUnpacker{"foo-1.0/foo-pkg.el": `(define-package "bar" "1.0" "d")`},
			want:  []string{`"bar"`, `"foo"`},
		},
		{
			name:  "two top-level entries",
			files: dirUnpacker{"foo-1.0/foo-pkg.el": "", "other/file": ""},
			want:  []string{"exactly one directory"},
		},
		{
			name:  "bad directory name",
			files: dirUnpacker{"foo/foo-pkg.el": ""},
			want:  []string{"exactly one directory"},
		},
		{
			name:  "missing declaration",
			files: dirUnpacker{"foo-1.0/foo.el": ""},
			want:  []string{"foo-pkg.el"},
		},
		{
			name:  "not define-package",
			files: dirUnpacker{"foo-1.0/foo-pkg.el": `(provide "foo" "1.0")`},
			want:  []string{"Expected a call to define-package"},
		},
		{
			name:  "unquoted requires",
			files: dirUnpacker{"foo-1.0/foo-pkg.el": `(define-package "foo" "1.0" "d" ((bar "1")))`},
			want:  []string{"Requires must be quoted"},
		},
		{
			name:  "trailing content",
			files: dirUnpacker{"foo-1.0/foo-pkg.el": `(define-package "foo" "1.0") (junk)`},
			want:  []string{"Invalid package declaration"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractArchive(context.Background(), tt.files, t.TempDir(), nil)
			require.Error(t, err)
			assert.True(t, apperror.IsSyntaxError(err), "got %v", err)
			for _, s := range tt.want {
				assert.Contains(t, err.Error(), s)
			}
		})
	}
}

func TestExtractor_Dispatch(t *testing.T) {
	ex := NewExtractor(dirUnpacker{"foo-2.0/foo-pkg.el": `(define-package "foo" "2.0" nil nil)`}, t.TempDir())

	pv, err := ex.Extract(context.Background(), []byte(fooEl), archive.KindSingle)
	require.NoError(t, err)
	assert.Equal(t, archive.KindSingle, pv.Kind)

	pv, err = ex.Extract(context.Background(), nil, archive.KindTar)
	require.NoError(t, err)
	assert.Equal(t, archive.Version{2, 0}, pv.Version)
	assert.Empty(t, pv.Description)
	assert.Nil(t, pv.Commentary)

	_, err = ex.Extract(context.Background(), []byte{0xff, 0xfe}, archive.KindSingle)
	assert.True(t, apperror.IsSyntaxError(err))
}

func ptr(s string) *string { return &s }
