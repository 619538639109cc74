package scene

import (
	"path"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/harrison/assetkeeper/internal/models"
)

// minPathRunes is the shortest accepted reference.
const minPathRunes = 5

// deniedSubstrings reject OS and application install paths.
var deniedSubstrings = []string{
	"windows",
	"system32",
	"program files/autodesk",
	"program files/chaos",
	".dll",
	".exe",
	"autodesk/3ds max",
}

// deniedSegments reject locale folders by whole path segment.
var deniedSegments = map[string]bool{
	"en-us": true,
	"mui":   true,
}

// decodeCandidate tries utf-8, then Windows-1251, then Latin-1.
func decodeCandidate(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	if s, err := charmap.Windows1251.NewDecoder().Bytes(b); err == nil && !strings.ContainsRune(string(s), utf8.RuneError) {
		return string(s)
	}
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(s)
}

func trimCandidate(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == 0 || unicode.IsSpace(r)
	})
}

// normalizeSeparators converts backslashes to forward slashes and collapses
// repeated separators, keeping a leading "//" for UNC paths.
func normalizeSeparators(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	unc := strings.HasPrefix(p, "//")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if unc {
		p = "/" + p
	}
	return p
}

// isRelative reports whether p starts with a relative marker.
func isRelative(p string) bool {
	return strings.HasPrefix(p, "..") || strings.HasPrefix(p, "./")
}

func isDenied(p string) bool {
	lower := strings.ToLower(p)
	for _, d := range deniedSubstrings {
		if strings.Contains(lower, d) {
			return true
		}
	}
	for _, seg := range strings.Split(lower, "/") {
		if deniedSegments[seg] {
			return true
		}
	}
	return false
}

// acceptCandidate turns a raw span into a normalized reference. It returns
// false when the span is too short, has no supported extension, or names a
// system path.
func acceptCandidate(raw []byte) (string, models.Category, bool) {
	s := trimCandidate(decodeCandidate(raw))
	if utf8.RuneCountInString(s) < minPathRunes {
		return "", "", false
	}
	s = normalizeSeparators(s)
	cat, ok := models.CategoryOf(path.Base(s))
	if !ok || strings.HasPrefix(path.Base(s), ".") {
		return "", "", false
	}
	if isDenied(s) {
		return "", "", false
	}
	return s, cat, true
}

// resolveReference makes relative references absolute against docDir.
func resolveReference(ref, docDir string) string {
	if !isRelative(ref) {
		return ref
	}
	return filepath.ToSlash(filepath.Join(docDir, ref))
}
