package scene

import (
	"bytes"
	"encoding/binary"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/harrison/assetkeeper/internal/models"
)

const (
	// wideWindow bounds the forward decode after a wide drive prefix, in bytes.
	wideWindow = 1000
	// anchorNarrowWindow bounds the backward scan from a narrow extension, in bytes.
	anchorNarrowWindow = 500
	// anchorWideWindow bounds the backward scan from a wide extension, in bytes.
	anchorWideWindow = 1000
	// minWideRunes is the shortest forward-decoded wide string kept, exclusive.
	minWideRunes = 5
)

// Extractor finds candidate path spans in the concatenated stream bytes.
// Returned spans may alias data.
type Extractor interface {
	Name() string
	Extract(data []byte) [][]byte
}

// DefaultExtractors returns the narrow, wide and extension-anchored passes.
func DefaultExtractors() []Extractor {
	return []Extractor{NarrowExtractor{}, WideExtractor{}, AnchoredExtractor{}}
}

// extensionAlternation builds "jpeg|vrmesh|..." with longer extensions first.
func extensionAlternation() string {
	exts := models.SupportedExtensions()
	sort.SliceStable(exts, func(i, j int) bool { return len(exts[i]) > len(exts[j]) })
	parts := make([]string, len(exts))
	for i, ext := range exts {
		parts[i] = regexp.QuoteMeta(strings.TrimPrefix(ext, "."))
	}
	return strings.Join(parts, "|")
}

var narrowPatterns = func() []*regexp.Regexp {
	seg := `[^\x00-\x1f\\/:*?"<>|]`
	ext := `\.(?:` + extensionAlternation() + `)\b`
	return []*regexp.Regexp{
		// C:\dir\file.ext
		regexp.MustCompile(`(?i)[A-Za-z]:[\\/](?:` + seg + `+[\\/])*` + seg + `+` + ext),
		// \\server\share\file.ext
		regexp.MustCompile(`(?i)\\\\` + seg + `+(?:\\` + seg + `+)+` + ext),
	}
}()

// NarrowExtractor matches single-byte drive-letter and UNC paths.
type NarrowExtractor struct{}

func (NarrowExtractor) Name() string { return "narrow" }

func (NarrowExtractor) Extract(data []byte) [][]byte {
	var out [][]byte
	for _, re := range narrowPatterns {
		for _, loc := range re.FindAllIndex(data, -1) {
			out = append(out, data[loc[0]:loc[1]])
		}
	}
	return out
}

var wideDrive = regexp.MustCompile(`[A-Za-z]\x00:\x00[\\/]\x00`)

// WideExtractor decodes UTF-16LE strings that start with a drive prefix.
type WideExtractor struct{}

func (WideExtractor) Name() string { return "wide" }

func (WideExtractor) Extract(data []byte) [][]byte {
	var out [][]byte
	for _, loc := range wideDrive.FindAllIndex(data, -1) {
		s := decodeWideForward(data, loc[0], wideWindow)
		if len([]rune(s)) > minWideRunes {
			out = append(out, []byte(s))
		}
	}
	return out
}

// decodeWideForward reads UTF-16LE code units from start until a code unit
// outside printable ASCII and Cyrillic, or until limit bytes.
func decodeWideForward(data []byte, start, limit int) string {
	end := min(start+limit, len(data))
	var sb strings.Builder
	for i := start; i+1 < end; i += 2 {
		c := binary.LittleEndian.Uint16(data[i:])
		switch {
		case isPrintableASCII(c):
			sb.WriteByte(byte(c))
		case isCyrillic(c):
			sb.WriteRune(rune(c))
		default:
			return sb.String()
		}
	}
	return sb.String()
}

// AnchoredExtractor locates every supported extension, narrow and wide, and
// walks backward to the start of the path.
type AnchoredExtractor struct{}

func (AnchoredExtractor) Name() string { return "anchored" }

func (AnchoredExtractor) Extract(data []byte) [][]byte {
	lower := asciiLower(data)
	var out [][]byte
	for _, ext := range models.SupportedExtensions() {
		out = append(out, anchorNarrow(data, lower, []byte(ext))...)
		out = append(out, anchorWide(data, lower, encodeWide(ext))...)
	}
	return out
}

func anchorNarrow(data, lower, ext []byte) [][]byte {
	var out [][]byte
	for pos := 0; ; {
		idx := bytes.Index(lower[pos:], ext)
		if idx < 0 {
			return out
		}
		at := pos + idx
		end := at + len(ext)
		pos = end

		if end < len(data) && isAlnum(data[end]) {
			continue
		}
		if start, ok := scanBackNarrow(data, at); ok && start < at {
			out = append(out, data[start:end])
		}
	}
}

// scanBackNarrow walks back from pos to the first byte of the path. Running
// into the start of the buffer ends the path there.
func scanBackNarrow(data []byte, pos int) (int, bool) {
	floor := max(pos-anchorNarrowWindow, 0)
	for i := pos - 1; i >= floor; i-- {
		b := data[i]
		if b < 32 || b > 126 {
			return i + 1, true
		}
		if b == ':' && i > 0 && isASCIILetter(rune(data[i-1])) {
			return i - 1, true
		}
	}
	if floor == 0 {
		return 0, true
	}
	return 0, false
}

func anchorWide(data, lower, ext []byte) [][]byte {
	var out [][]byte
	for pos := 0; ; {
		idx := bytes.Index(lower[pos:], ext)
		if idx < 0 {
			return out
		}
		at := pos + idx
		end := at + len(ext)
		pos = end

		if end+2 <= len(data) {
			next := binary.LittleEndian.Uint16(data[end:])
			if next < 0x80 && isAlnum(byte(next)) {
				continue
			}
		}
		start, ok := scanBackWide(data, at)
		if !ok || start >= at {
			continue
		}
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data[start:end])
		if err != nil || len(decoded) == 0 {
			continue
		}
		out = append(out, decoded)
	}
}

func scanBackWide(data []byte, pos int) (int, bool) {
	floor := max(pos-anchorWideWindow, 0)
	i := pos - 2
	for ; i >= floor; i -= 2 {
		c := binary.LittleEndian.Uint16(data[i:])
		if i >= 2 && c == ':' && isASCIILetter(rune(binary.LittleEndian.Uint16(data[i-2:]))) {
			return i - 2, true
		}
		if !isPrintableASCII(c) && !isCyrillic(c) {
			return i + 2, true
		}
	}
	// An odd-aligned path leaves a single byte before its first code unit.
	if floor == 0 {
		return i + 2, true
	}
	return 0, false
}

func encodeWide(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		out = append(out, s[i], 0)
	}
	return out
}

// asciiLower lowercases A-Z without changing byte offsets.
func asciiLower(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		out[i] = b
	}
	return out
}

func isPrintableASCII(c uint16) bool {
	return c >= 0x20 && c <= 0x7E
}

// isCyrillic reports whether c is in the Cyrillic block.
func isCyrillic(c uint16) bool {
	return c >= 0x0400 && c <= 0x04FF
}

func isASCIILetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

func isAlnum(b byte) bool {
	return isASCIILetter(rune(b)) || (b >= '0' && b <= '9')
}
