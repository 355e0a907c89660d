package charsets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Policy decides what happens to runes the output encoding cannot represent.
type Policy string

const (
	PolicyIgnore  Policy = "ignore"
	PolicyReplace Policy = "replace"
	PolicyStrict  Policy = "strict"
)

// ParsePolicy validates an error policy name. The empty string selects
// PolicyReplace.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyIgnore, PolicyReplace, PolicyStrict:
		return p, nil
	case "":
		return PolicyReplace, nil
	}
	return "", fmt.Errorf("unknown error policy %q (want ignore, replace or strict)", s)
}

var errNotASCII = errors.New("charsets: rune not representable in us-ascii")

// NewWriter wraps w so that UTF-8 text written to it is encoded into the named
// charset. The returned writer must be closed to flush buffered output; closing
// it does not close w.
func NewWriter(w io.Writer, name string, policy Policy) (io.WriteCloser, error) {
	label := Normalize(name)
	if label == "" || label == "utf-8" || label == "utf8" {
		return nopCloser{w}, nil
	}

	var (
		unsupported func(rune) bool
		encoder     transform.Transformer
	)
	if label == "us-ascii" || label == "ascii" {
		unsupported = func(r rune) bool { return r >= utf8.RuneSelf }
		encoder = asciiOnly{}
	} else {
		enc, err := Lookup(name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output encoding: %w", err)
		}
		unsupported = unencodable(enc)
		encoder = enc.NewEncoder()
	}

	var t transform.Transformer
	switch policy {
	case PolicyStrict:
		t = encoder
	case PolicyIgnore:
		t = transform.Chain(runes.Remove(runes.Predicate(unsupported)), encoder)
	default:
		t = transform.Chain(runes.Map(func(r rune) rune {
			if unsupported(r) {
				return '?'
			}
			return r
		}), encoder)
	}
	return transform.NewWriter(w, t), nil
}

// unencodable returns a predicate reporting the runes enc cannot represent.
func unencodable(enc encoding.Encoding) func(rune) bool {
	seen := make(map[rune]bool)
	return func(r rune) bool {
		if r < utf8.RuneSelf {
			return false
		}
		bad, ok := seen[r]
		if !ok {
			_, err := enc.NewEncoder().String(string(r))
			bad = err != nil
			seen[r] = bad
		}
		return bad
	}
}

// asciiOnly copies 7-bit input and fails on anything else.
type asciiOnly struct {
	transform.NopResetter
}

func (asciiOnly) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if src[nSrc] >= utf8.RuneSelf {
			return nDst, nSrc, errNotASCII
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = src[nSrc]
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// LocaleEncoding returns the charset named by the process locale
// (LC_ALL, LC_CTYPE, LANG), defaulting to utf-8.
func LocaleEncoding() string {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return localeCodeset(v)
		}
	}
	return "utf-8"
}

func localeCodeset(locale string) string {
	if i := strings.IndexByte(locale, '@'); i >= 0 {
		locale = locale[:i]
	}
	i := strings.IndexByte(locale, '.')
	if i < 0 {
		// C, POSIX and bare language tags
		return "utf-8"
	}
	codeset := strings.ToLower(locale[i+1:])
	switch codeset {
	case "utf8", "utf-8":
		return "utf-8"
	case "eucjp", "euc-jp":
		return "euc-jp"
	case "sjis", "shiftjis", "shift_jis":
		return "shift_jis"
	case "euckr", "euc-kr":
		return "euc-kr"
	}
	if strings.HasPrefix(codeset, "iso8859") {
		return "iso-8859-" + strings.TrimLeft(strings.TrimPrefix(codeset, "iso8859"), "-_")
	}
	return codeset
}
