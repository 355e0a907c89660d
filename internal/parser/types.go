package parser

import "strings"

// HeaderLine is one logical header as it appears in the raw message: the
// primary "Name: value" line followed by its continuation lines. Every line
// keeps its original line ending.
type HeaderLine struct {
	Name  string
	Lines []string
}

// Raw returns the header exactly as it appeared in the message.
func (h HeaderLine) Raw() string {
	return strings.Join(h.Lines, "")
}

// Field is a single header field reported by the MIME parser, with folding
// removed from the value.
type Field struct {
	Name  string
	Value string
}

// Header is the ordered header mapping of a message. Lookups are
// case-insensitive and duplicate names keep their order.
type Header []Field

// Get returns the first value for name.
func (h Header) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns every value for name in message order.
func (h Header) Values(name string) []string {
	var values []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

// Message is a parsed email
type Message struct {
	Header    Header
	Lines     []HeaderLine // raw header block, segmented
	MediaType string
	Boundary  string // non-empty iff the message is multipart
	Leaves    []Leaf // depth-first, document order
}

// IsMultipart reports whether the top-level entity is multipart.
func (m *Message) IsMultipart() bool {
	return m.Boundary != ""
}

// Leaf is a body part with no nested parts, as read from the message.
type Leaf struct {
	MediaType   string
	Charset     string // declared charset, lower-cased
	Disposition string // raw Content-Disposition value
	Filename    string // raw filename, possibly RFC 2047 encoded
	Body        []byte // transfer-decoded payload
	// Transcoded is set when Body was already converted from Charset to
	// UTF-8 while the message was read.
	Transcoded bool
	// ReadErr holds a recoverable error hit while reading Body; Body then
	// holds the bytes read before it.
	ReadErr error
}

// Part is a leaf part with its payload decoded to text.
type Part struct {
	ContentType string
	Filename    string // set only for attachments
	Attachment  bool
	Charset     string
	Text        string
	// Fallback is set when the part declared no charset, was not valid UTF-8
	// and was decoded with invalid bytes dropped.
	Fallback bool
}

// FallbackError describes the decode fallback applied to the part, or
// returns nil when none was needed.
func (p Part) FallbackError() error {
	if !p.Fallback {
		return nil
	}
	return &DecodeFallbackError{ContentType: p.ContentType, Filename: p.Filename}
}
