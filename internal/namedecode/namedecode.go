// Package namedecode recovers readable file names from archives written by
// tools that stored names in a legacy code page without flagging it.
package namedecode

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	xunicode "golang.org/x/text/encoding/unicode"
)

// candidate is a named fallback encoding.
type candidate struct {
	name string
	enc  encoding.Encoding
}

// Order matters: Windows-1252 maps almost every byte, so it would shadow the
// CJK code pages if tried first.
var candidates = []candidate{
	{"gbk", simplifiedchinese.GBK},
	{"big5", traditionalchinese.Big5},
	{"windows-1252", charmap.Windows1252},
	{"utf-8", xunicode.UTF8},
}

// Decode returns the best-effort text for raw. It never fails.
func Decode(raw []byte) string {
	s, _ := DecodeWithName(raw)
	return s
}

// DecodeWithName is Decode that also reports which encoding won.
func DecodeWithName(raw []byte) (string, string) {
	if utf8.Valid(raw) && plausible(string(raw)) {
		return string(raw), "utf-8"
	}

	for _, c := range candidates {
		out, err := c.enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		s := string(out)
		if strings.ContainsRune(s, utf8.RuneError) || !plausible(s) {
			continue
		}
		return s, c.name
	}

	return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), "lossy"
}

// plausible rejects strings that are valid UTF-8 by accident: every rune
// must be printable ASCII or a letter.
func plausible(s string) bool {
	for _, r := range s {
		if r == 0 {
			return false
		}
		if r < utf8.RuneSelf {
			continue
		}
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
