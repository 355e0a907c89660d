// Package mimeword decodes RFC 2047 encoded-words in header values.
package mimeword

import (
	"io"
	"mime"
	"regexp"
	"strings"

	"github.com/felo/eml2text/internal/charsets"
)

// UnknownCharset is the charset label mail software writes when it could not
// tell what the original bytes were. Such words are kept verbatim.
const UnknownCharset = "unknown"

// encodedWord matches =?charset[*language]?encoding?text?=
var encodedWord = regexp.MustCompile(`=\?([^?*\s]+)(\*[^?\s]*)?\?([bBqQ])\?([^?\s]*)\?=`)

// Decoder decodes header values. The zero value is not usable; use NewDecoder.
type Decoder struct {
	words *mime.WordDecoder
}

// NewDecoder returns a Decoder that resolves charsets through the charsets
// package and drops bytes that are invalid in the declared charset.
func NewDecoder() *Decoder {
	return &Decoder{
		words: &mime.WordDecoder{
			CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
				return charsets.Reader(charset, input), nil
			},
		},
	}
}

// Decode decodes every encoded-word in value and returns the readable text.
// Literal text between words is kept, with invalid UTF-8 replaced by U+FFFD.
// Whitespace separating two adjacent encoded-words is dropped. Words that
// cannot be decoded are kept verbatim.
func (d *Decoder) Decode(value string) string {
	// raw 8-bit header text is shown the way raw header lines are
	value = strings.ToValidUTF8(value, "\uFFFD")

	matches := encodedWord.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value
	}

	var sb strings.Builder
	prev := 0
	prevWord := false
	for _, m := range matches {
		gap := value[prev:m[0]]
		if !prevWord || strings.TrimLeft(gap, " \t\r\n") != "" {
			sb.WriteString(gap)
		}

		token := value[m[0]:m[1]]
		charset := value[m[2]:m[3]]
		enc := value[m[6]:m[7]]
		text := value[m[8]:m[9]]

		decoded, ok := d.decodeWord(token, charset, enc, text)
		sb.WriteString(decoded)
		prevWord = ok
		prev = m[1]
	}
	sb.WriteString(value[prev:])
	return sb.String()
}

// decodeWord decodes a single encoded-word. The boolean reports whether the
// token was treated as an encoded-word, which governs whitespace handling
// around it.
func (d *Decoder) decodeWord(token, charset, enc, text string) (string, bool) {
	if strings.EqualFold(charset, UnknownCharset) {
		return token, true
	}

	// mime.WordDecoder turns 8-bit bytes of us-ascii words into U+FFFD;
	// decode them as UTF-8 like bodies instead
	if charsets.IsUTF8(charset) {
		charset = "utf-8"
	}

	// the language suffix (RFC 2231) is not understood by mime.WordDecoder
	word := "=?" + charset + "?" + enc + "?" + text + "?="
	decoded, err := d.words.Decode(word)
	if err != nil {
		return token, false
	}
	return charsets.Clean(decoded), true
}
