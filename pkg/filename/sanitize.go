// Package filename turns user supplied file names into safe storage names.
package filename

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	invalidRe    = regexp.MustCompile(`[^a-zA-Z0-9-]`)
	dashesRe     = regexp.MustCompile(`-+`)
)

// Sanitize keeps ASCII letters, digits and single dashes in the base name and
// lower-cases the extension: "Règlement Général.PDF" becomes
// "Reglement-General.pdf". An empty base becomes "file".
func Sanitize(name string) string {
	name = RepairEncoding(name)
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	base = stripMarks(base)
	base = whitespaceRe.ReplaceAllString(base, "-")
	base = invalidRe.ReplaceAllString(base, "")
	base = dashesRe.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")
	if base == "" {
		base = "file"
	}
	return base + invalidExtChars(ext)
}

// RepairEncoding fixes names whose UTF-8 bytes were read as Latin-1, either
// as raw Latin-1 bytes or as UTF-8 mojibake such as "RÃ¨glement".
func RepairEncoding(name string) string {
	if !utf8.ValidString(name) {
		if decoded, err := charmap.ISO8859_1.NewDecoder().String(name); err == nil {
			name = decoded
		}
		return name
	}
	if isASCII(name) {
		return name
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(name)
	if err != nil || !utf8.ValidString(raw) || raw == name {
		return name
	}
	return raw
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func invalidExtChars(ext string) string {
	if ext == "" {
		return ""
	}
	return "." + invalidRe.ReplaceAllString(strings.TrimPrefix(ext, "."), "")
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
