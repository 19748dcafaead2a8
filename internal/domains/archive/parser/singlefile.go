package parser

import (
	"regexp"
	"strings"

	"elpa-backend/internal/domains/archive"
	"elpa-backend/internal/shared/apperror"
)

var (
	startMarker   = regexp.MustCompile(`(?m)^;;;[ \t]+(\S+?)\.[A-Za-z]+[ \t]+---[ \t]*(.*?)[ \t]*$`)
	modeCookie    = regexp.MustCompile(`[ \t]*-\*-.*-\*-[ \t]*$`)
	sectionOpen   = regexp.MustCompile(`(?i)^(;{3,}) (commentary|documentation);*:`)
	sectionMarker = regexp.MustCompile(`^(;{3,})[ \t]+\S`)
	commentPrefix = regexp.MustCompile(`^;+ ?`)
)

// ExtractSingleFile parses a single .el package framed by
// ";;; name.el --- description" and ";;; name.el ends here".
func ExtractSingleFile(text string) (*archive.PackageVersion, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	start := startMarker.FindStringSubmatchIndex(text)
	if start == nil {
		return nil, apperror.NewSyntaxError("No starting comment for package")
	}
	name := text[start[2]:start[3]]
	description := modeCookie.ReplaceAllString(text[start[4]:start[5]], "")

	endMarker := regexp.MustCompile(`(?m)^(?:\(provide[ \t]+'\S+\)[ \t]*)?;;;[ \t]+` +
		regexp.QuoteMeta(name) + `\.[A-Za-z]+[ \t]+ends here`)
	end := endMarker.FindStringIndex(text[start[1]:])
	if end == nil {
		return nil, apperror.NewSyntaxError("No closing comment for package")
	}
	body := text[start[0] : start[1]+end[1]]

	headers := ScanHeaders(body)
	version, err := versionFromHeaders(headers)
	if err != nil {
		return nil, err
	}
	requires, err := requiresFromHeaders(headers)
	if err != nil {
		return nil, err
	}
	commentary, err := extractCommentary(body)
	if err != nil {
		return nil, err
	}

	pv := archive.NewPackageVersion(name, version, archive.KindSingle)
	pv.Description = description
	pv.Headers = headers
	pv.Requires = requires
	pv.Commentary = commentary
	return pv, nil
}

// extractCommentary returns the Commentary (or Documentation) section, or nil
// when there is none. The section runs until a marker line no deeper than the
// opening one, or until the first line of code.
func extractCommentary(text string) (*string, error) {
	lines := splitLines(text)

	open, depth := -1, 0
	var section string
	for i, line := range lines {
		if m := sectionOpen.FindStringSubmatch(line); m != nil {
			open, depth, section = i, len(m[1]), m[2]
			break
		}
	}
	if open < 0 {
		return nil, nil
	}

	for i := open + 1; i < len(lines); i++ {
		line := lines[i]
		if isSectionEnd(line, depth) {
			var b strings.Builder
			for _, l := range lines[open+1 : i] {
				b.WriteString(commentPrefix.ReplaceAllString(l, ""))
				b.WriteByte('\n')
			}
			commentary := strings.TrimSpace(b.String())
			return &commentary, nil
		}
	}
	return nil, apperror.NewSyntaxError("Unterminated section: %s", section)
}

func isSectionEnd(line string, depth int) bool {
	if m := sectionMarker.FindStringSubmatch(line); m != nil && len(m[1]) <= depth {
		return true
	}
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && !strings.HasPrefix(trimmed, ";")
}
