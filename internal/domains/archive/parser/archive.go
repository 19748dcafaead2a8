package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/shared/apperror"
	"elpa-backend/pkg/sexp"
)

// Unpacker populates dir with the contents of an archive
type Unpacker interface {
	Unpack(ctx context.Context, data []byte, dir string) error
}

var archiveDirPattern = regexp.MustCompile(`^(.+)-([0-9]+(?:\.[0-9]+)*)$`)

const errArchiveLayout = "archives must contain exactly one directory, named <package>-<version>"

// ExtractArchive unpacks data into a fresh directory under tempRoot and reads
// the package declaration from <name>-pkg.el. The directory is always removed.
func ExtractArchive(ctx context.Context, unpacker Unpacker, tempRoot string, data []byte) (*archive.PackageVersion, error) {
	dir, err := os.MkdirTemp(tempRoot, "elpa-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to remove upload temp dir")
		}
	}()

	if err := unpacker.Unpack(ctx, data, dir); err != nil {
		return nil, err
	}
	return readArchiveDir(dir)
}

// readArchiveDir validates an unpacked archive rooted at dir
func readArchiveDir(dir string) (*archive.PackageVersion, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read unpacked archive: %w", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil, apperror.NewSyntaxError(errArchiveLayout)
	}
	dirName := entries[0].Name()
	m := archiveDirPattern.FindStringSubmatch(dirName)
	if m == nil {
		return nil, apperror.NewSyntaxError(errArchiveLayout)
	}
	dirPkgName := m[1]
	dirVersion, err := archive.ParseVersion(m[2])
	if err != nil {
		return nil, err
	}
	root := filepath.Join(dir, dirName)

	pkgFile := dirPkgName + "-pkg.el"
	declText, err := readOptional(filepath.Join(root, pkgFile))
	if err != nil {
		return nil, err
	}
	if declText == nil {
		return nil, apperror.NewSyntaxError("%s is missing from the archive", pkgFile)
	}
	pv, keywords, err := parseDefinePackage(*declText)
	if err != nil {
		return nil, err
	}

	if pv.Name != dirPkgName {
		return nil, apperror.NewSyntaxError("Package name %q in %s doesn't match name %q in directory %s",
			pv.Name, pkgFile, dirPkgName, dirName)
	}
	if !pv.Version.Equal(dirVersion) {
		return nil, apperror.NewSyntaxError("Package version %q in %s doesn't match version %q in directory %s",
			pv.Version.String(), pkgFile, dirVersion.String(), dirName)
	}

	// auxiliary headers (author, URL, ...) from the main file
	mainText, err := readOptional(filepath.Join(root, dirPkgName+".el"))
	if err != nil {
		return nil, err
	}
	if mainText != nil {
		pv.Headers = ScanHeaders(*mainText)
	}
	for k, v := range keywords {
		if _, ok := pv.Headers[k]; !ok {
			pv.Headers[k] = v
		}
	}

	readme, err := readOptional(filepath.Join(root, "README"))
	if err != nil {
		return nil, err
	}
	pv.Commentary = readme

	return pv, nil
}

// parseDefinePackage reads
// (define-package "name" "version" "description" '((dep "1.0")) :keyword "value" ...)
func parseDefinePackage(text string) (*archive.PackageVersion, map[string]string, error) {
	decl, err := sexp.ParseOne(text)
	if err != nil {
		return nil, nil, apperror.WrapSyntaxError(err, "Invalid package declaration")
	}
	if !decl.IsList() || decl.Len() == 0 || !decl.Items()[0].IsSymbol("define-package") {
		return nil, nil, apperror.NewSyntaxError("Expected a call to define-package")
	}
	args := decl.Items()[1:]
	if len(args) < 2 || args[0].Kind() != sexp.KindString || args[1].Kind() != sexp.KindString {
		return nil, nil, apperror.NewSyntaxError("define-package requires a name and version string")
	}

	version, err := archive.ParseVersion(args[1].Text())
	if err != nil {
		return nil, nil, err
	}
	pv := archive.NewPackageVersion(args[0].Text(), version, archive.KindTar)

	if len(args) > 2 {
		switch desc := args[2]; {
		case desc.Kind() == sexp.KindString:
			pv.Description = desc.Text()
		case !desc.IsNil():
			return nil, nil, apperror.NewSyntaxError("Package description must be a string, was %s", desc)
		}
	}

	if len(args) > 3 {
		pv.Requires, err = quotedRequires(args[3])
		if err != nil {
			return nil, nil, err
		}
	}

	keywords := map[string]string{}
	rest := args[min(len(args), 4):]
	for i := 0; i+1 < len(rest); i += 2 {
		key, val := rest[i], rest[i+1]
		if key.Kind() != sexp.KindKeyword || val.Kind() != sexp.KindString {
			continue
		}
		keywords[strings.ToLower(key.Text())] = val.Text()
	}
	return pv, keywords, nil
}

func quotedRequires(v sexp.Value) ([]archive.Dependency, error) {
	if v.IsNil() {
		return []archive.Dependency{}, nil
	}
	if !v.IsList() || v.Len() != 2 || !v.Items()[0].IsSymbol("quote") {
		return nil, apperror.NewSyntaxError("Requires must be quoted")
	}
	return parseRequires(v.Items()[1])
}

// readOptional returns nil when path does not exist
func readOptional(path string) (*string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	text := string(data)
	return &text, nil
}
