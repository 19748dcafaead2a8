package utils

import (
	"regexp"
	"strings"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-z0-9-]+`)

// GenerateKey chuẩn hoá display name thành key dùng cho lookup và blob path
// "Foo.Bar" → "foo_bar", "magit-popup" → "magit-popup"
func GenerateKey(name string) string {
	// Step 1: Lowercase
	lower := strings.ToLower(strings.TrimSpace(name))

	// Step 2: Thay mọi chuỗi ký tự không an toàn cho path bằng "_"
	return unsafeKeyChars.ReplaceAllString(lower, "_")
}
