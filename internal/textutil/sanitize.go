package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxFileNameRunes bounds the sanitized title segment of transcript names.
const MaxFileNameRunes = 180

// fileNameReplacer replaces filesystem-unsafe characters with underscores.
var fileNameReplacer = strings.NewReplacer(
	"\\", "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFileName turns a video title into a filename segment: NFKC
// normalization, unsafe characters replaced with "_", whitespace runs
// collapsed to "_", leading and trailing "_" trimmed, and the result cut to
// MaxFileNameRunes runes.
func SanitizeFileName(name string) string {
	return SanitizeFileNameMax(name, MaxFileNameRunes)
}

// SanitizeFileNameMax is SanitizeFileName with an explicit rune limit.
func SanitizeFileNameMax(name string, maxRunes int) string {
	name = norm.NFKC.String(name)
	name = fileNameReplacer.Replace(name)
	name = strings.Trim(strings.Join(strings.Fields(name), "_"), "_")
	if maxRunes > 0 {
		runes := []rune(name)
		if len(runes) > maxRunes {
			name = string(runes[:maxRunes])
		}
	}
	return name
}

// TruncateBytes cuts s to at most maxBytes bytes without splitting a UTF-8
// sequence. Trailing "_" left by the cut is trimmed.
func TruncateBytes(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], "_")
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
