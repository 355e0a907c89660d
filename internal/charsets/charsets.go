package charsets

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message"
	gmcharset "github.com/emersion/go-message/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

func init() {
	// Register additional charsets and aliases that are commonly used in emails
	gmcharset.RegisterEncoding("windows-1252", charmap.Windows1252)
	gmcharset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	gmcharset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
	for _, name := range []string{"shift_jis", "ms_kanji", "csshiftjis"} {
		gmcharset.RegisterEncoding(name, shiftJIS)
	}
	for alias, enc := range aliases {
		gmcharset.RegisterEncoding(alias, enc)
	}

	// Bodies of text/* entities are transcoded while go-message reads them.
	// Route that through the ignore policy instead of U+FFFD substitution.
	message.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return Reader(charset, input), nil
	}
}

// aliases maps charset labels seen in the wild that the go-message registry
// and the IANA index do not resolve.
var aliases = map[string]encoding.Encoding{
	"x-sjis":         shiftJIS,
	"sjis":           shiftJIS,
	"shift-jis":      shiftJIS,
	"cp932":          japanese.ShiftJIS,
	"windows-31j":    japanese.ShiftJIS,
	"x-euc-jp":       japanese.EUCJP,
	"eucjp":          japanese.EUCJP,
	"iso-2022-jp-1":  japanese.ISO2022JP,
	"iso-2022-jp-3":  japanese.ISO2022JP,
	"ks_c_5601-1987": korean.EUCKR,
	"gb2312":         simplifiedchinese.GBK,
	"cp1252":         charmap.Windows1252,
	"latin1":         charmap.ISO8859_1,
	"latin-1":        charmap.ISO8859_1,
	"cp850":          charmap.CodePage850,
	"koi8r":          charmap.KOI8R,
}

// Normalize lower-cases a charset label and strips quotes and whitespace.
func Normalize(name string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
}

// IsUTF8 reports whether name denotes UTF-8 or one of its ASCII subsets.
func IsUTF8(name string) bool {
	switch Normalize(name) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return true
	}
	return false
}

// Reader returns a reader that decodes input from the named charset into
// UTF-8. Bytes that are invalid in the charset are dropped. Charsets that
// cannot be resolved are read as UTF-8 under the same policy.
func Reader(name string, input io.Reader) io.Reader {
	if !IsUTF8(name) {
		if cr, err := gmcharset.Reader(Normalize(name), input); err == nil {
			// legacy charsets cannot encode U+FFFD, so every one in the
			// output stands for an invalid input sequence
			return transform.NewReader(cr, dropReplacement())
		}
	}
	return transform.NewReader(input, dropIllFormed{})
}

// Decode converts b from the named charset to UTF-8 with the ignore policy.
func Decode(name string, b []byte) string {
	out, err := io.ReadAll(Reader(name, bytes.NewReader(b)))
	if err != nil {
		// decoders only fail on truncated multi-byte input; keep what we got
		return Clean(string(out))
	}
	return string(out)
}

// Clean drops invalid UTF-8 sequences from s. Well-formed U+FFFD is kept.
func Clean(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	out, _, err := transform.String(dropIllFormed{}, s)
	if err != nil {
		return strings.ToValidUTF8(s, "")
	}
	return out
}

// dropReplacement removes U+FFFD, which decoders emit for input bytes they
// cannot map.
func dropReplacement() transform.Transformer {
	return runes.Remove(runes.Predicate(func(r rune) bool {
		return r == utf8.RuneError
	}))
}

// dropIllFormed copies well-formed UTF-8 and drops every byte that does not
// start a valid sequence. runes.Remove cannot tell such bytes from an encoded
// U+FFFD, so it is not used here.
type dropIllFormed struct {
	transform.NopResetter
}

func (dropIllFormed) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if c := src[nSrc]; c < utf8.RuneSelf {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}

		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && !utf8.FullRune(src[nSrc:]) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			nSrc++
			continue
		}
		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		copy(dst[nDst:], src[nSrc:nSrc+size])
		nDst += size
		nSrc += size
	}
	return nDst, nSrc, nil
}

// Lookup resolves a charset label to an encoding, trying the local alias
// table, the IANA MIME index and finally the WHATWG index.
func Lookup(name string) (encoding.Encoding, error) {
	label := Normalize(name)
	if label == "" {
		return nil, fmt.Errorf("empty charset name")
	}
	if enc, ok := aliases[label]; ok {
		return enc, nil
	}
	if enc, err := ianaindex.MIME.Encoding(label); err == nil && enc != nil {
		return enc, nil
	}
	if enc, err := htmlindex.Get(label); err == nil {
		return enc, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", name)
}
