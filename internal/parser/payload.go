package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/felo/eml2text/internal/charsets"
	"github.com/felo/eml2text/internal/mimeword"
)

// Extract decodes the payload of every leaf of msg to text, in leaf order.
// A non-multipart message yields exactly one part and never an attachment.
func Extract(msg *Message, dec *mimeword.Decoder) []Part {
	parts := make([]Part, 0, len(msg.Leaves))
	for _, leaf := range msg.Leaves {
		part := Part{
			ContentType: leaf.MediaType,
			Charset:     leaf.Charset,
		}
		part.Text, part.Fallback = decodeBody(leaf)

		if msg.IsMultipart() && isAttachment(leaf.Disposition) {
			part.Attachment = true
			part.Filename = dec.Decode(leaf.Filename)
		}
		parts = append(parts, part)
	}
	return parts
}

// decodeBody decodes a leaf body. Declared charsets drop invalid bytes;
// without one the body must be UTF-8, and when it is not, invalid bytes are
// dropped and the fallback is reported.
func decodeBody(leaf Leaf) (string, bool) {
	switch {
	case leaf.Transcoded:
		return charsets.Decode("utf-8", leaf.Body), false
	case leaf.Charset != "":
		return charsets.Decode(leaf.Charset, leaf.Body), false
	case utf8.Valid(leaf.Body):
		return string(leaf.Body), false
	default:
		return charsets.Decode("utf-8", leaf.Body), true
	}
}

func isAttachment(disposition string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(disposition)), "attachment")
}
