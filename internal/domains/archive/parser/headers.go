// Package parser recovers package metadata from uploaded single-file and
// archive packages.
package parser

import (
	"regexp"
	"strings"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/shared/apperror"
	"elpa-backend/pkg/sexp"
)

var (
	// ";; Header-Name: value", tolerating an SCCS "@(#)" or RCS "$" prefix
	headerPattern = regexp.MustCompile(`^;+[ \t]*(?:@\(#\)[ \t]*)?\$?([A-Za-z][A-Za-z0-9_-]*)[ \t]*:(.*)$`)

	rcsRevision = regexp.MustCompile(`\$Revision:[ \t]*([0-9][0-9.]*)[ \t]*\$`)
)

// ScanHeaders collects "key: value" comment headers. Keys are lowercased,
// the first occurrence of a key wins and empty values are skipped.
func ScanHeaders(text string) map[string]string {
	headers := map[string]string{}
	for _, line := range splitLines(text) {
		m := headerPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.ToLower(m[1])
		value := strings.TrimSpace(m[2])
		if value == "" {
			continue
		}
		if _, seen := headers[name]; !seen {
			headers[name] = value
		}
	}
	return headers
}

// versionFromHeaders reads Package-Version, falling back to Version
func versionFromHeaders(headers map[string]string) (archive.Version, error) {
	raw, ok := headers["package-version"]
	if !ok {
		raw, ok = headers["version"]
	}
	if !ok {
		return nil, apperror.NewSyntaxError("Package-Version or Version header is required")
	}
	if m := rcsRevision.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}
	return archive.ParseVersion(raw)
}

// requiresFromHeaders parses the Package-Requires header, if any
func requiresFromHeaders(headers map[string]string) ([]archive.Dependency, error) {
	raw, ok := headers["package-requires"]
	if !ok {
		return []archive.Dependency{}, nil
	}
	v, err := sexp.Parse(raw)
	if err != nil {
		return nil, apperror.WrapSyntaxError(err, "Invalid Package-Requires header")
	}
	return parseRequires(v)
}

// parseRequires converts ((name "1.0") ...) into dependencies
func parseRequires(v sexp.Value) ([]archive.Dependency, error) {
	if v.IsNil() {
		return []archive.Dependency{}, nil
	}
	if !v.IsList() {
		return nil, apperror.NewSyntaxError("Package requirements must be a list, was %s", v)
	}

	deps := make([]archive.Dependency, 0, v.Len())
	for _, item := range v.Items() {
		if !item.IsList() || item.Len() != 2 {
			return nil, apperror.NewSyntaxError("Invalid package requirement %s", item)
		}
		name, version := item.Items()[0], item.Items()[1]
		if name.Kind() != sexp.KindSymbol {
			return nil, apperror.NewSyntaxError("Invalid package requirement name %s", name)
		}
		if version.Kind() != sexp.KindString {
			return nil, apperror.NewSyntaxError("Invalid version for requirement %s: %s", name.Text(), version)
		}
		parsed, err := archive.ParseVersion(version.Text())
		if err != nil {
			return nil, err
		}
		deps = append(deps, archive.Dependency{Name: name.Text(), Version: parsed})
	}
	return deps, nil
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
