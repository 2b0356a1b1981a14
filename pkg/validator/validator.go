package validator

import (
	"net/url"
	"path"
	"strings"
)

// IsHTTPURL reports whether s parses as an absolute http(s) URL
func IsHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SanitizeFilename removes dangerous characters from filename
func SanitizeFilename(filename string) string {
	dangerousChars := []string{"<", ">", ":", "\"", "/", "\\", "|", "?", "*", "\x00"}
	result := filename
	for _, char := range dangerousChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" || result == "." || result == ".." {
		return "_"
	}
	return result
}

// SafeRelativePath turns a client supplied directory such as
// "C:/VideoSongsOutput" or "../../etc" into a relative path that cannot
// escape the directory it is joined to. Empty input yields "".
func SafeRelativePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	var parts []string
	for _, seg := range strings.Split(path.Clean("/"+p), "/") {
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		parts = append(parts, SanitizeFilename(seg))
	}
	return strings.Join(parts, "/")
}

// TruncateFilename truncates filename to max length while preserving extension
// Uses rune-level truncation to properly handle UTF-8 multi-byte characters
func TruncateFilename(filename string, maxLen int) string {
	runes := []rune(filename)
	if len(runes) <= maxLen {
		return filename
	}

	lastDot := strings.LastIndex(filename, ".")
	if lastDot == -1 {
		return string(runes[:maxLen])
	}

	ext := filename[lastDot:]
	extRunes := []rune(ext)

	availableLen := maxLen - len(extRunes)
	if availableLen <= 0 {
		return string(runes[:maxLen])
	}

	return string(runes[:availableLen]) + ext
}
