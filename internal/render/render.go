// Package render writes a parsed message as readable text.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/felo/eml2text/internal/charsets"
	"github.com/felo/eml2text/internal/mimeword"
	"github.com/felo/eml2text/internal/parser"
)

// decodedHeaders are rendered from their decoded value; every other header
// is copied verbatim.
var decodedHeaders = map[string]bool{
	"from":    true,
	"to":      true,
	"cc":      true,
	"bcc":     true,
	"subject": true,
}

const filenameAnnotation = "  filename="

// Options controls how rendered text is encoded on the way out.
type Options struct {
	Encoding    string          // output charset, utf-8 when empty
	ErrorPolicy charsets.Policy // what to do with unencodable runes
}

// Renderer writes messages as text.
type Renderer struct {
	opts Options
	dec  *mimeword.Decoder
}

// New creates a Renderer
func New(opts Options, dec *mimeword.Decoder) *Renderer {
	if opts.ErrorPolicy == "" {
		opts.ErrorPolicy = charsets.PolicyReplace
	}
	return &Renderer{opts: opts, dec: dec}
}

// Render writes the headers of msg, a blank line and then every part. In a
// multipart message each part is preceded by the boundary token (annotated
// with the filename for attachments) and the output ends with the closing
// "<boundary>--" line. Output is flushed before Render returns, also on error.
func (r *Renderer) Render(w io.Writer, msg *parser.Message, parts []parser.Part) (err error) {
	enc, err := charsets.NewWriter(w, r.opts.Encoding, r.opts.ErrorPolicy)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	defer func() {
		if ferr := bw.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("failed to write output: %w", ferr)
		}
		if cerr := enc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to write output: %w", cerr)
		}
	}()

	r.writeHeaders(bw, msg)
	bw.WriteString("\n")

	for _, part := range parts {
		if msg.IsMultipart() {
			bw.WriteString(msg.Boundary)
			if part.Attachment && part.Filename != "" {
				bw.WriteString(" " + filenameAnnotation + part.Filename)
			}
			bw.WriteString("\n")
		}
		bw.WriteString(part.Text)
		bw.WriteString("\n")
	}

	if msg.IsMultipart() {
		bw.WriteString(msg.Boundary + "--\n")
	}
	return nil
}

func (r *Renderer) writeHeaders(bw *bufio.Writer, msg *parser.Message) {
	seen := make(map[string]int)
	for _, line := range msg.Lines {
		key := strings.ToLower(strings.TrimSpace(line.Name))
		if !decodedHeaders[key] {
			raw := line.Raw()
			bw.WriteString(raw)
			if !strings.HasSuffix(raw, "\n") {
				bw.WriteString("\n")
			}
			continue
		}

		// the k-th occurrence of a name renders the k-th parsed value
		values := msg.Header.Values(key)
		value := ""
		if n := seen[key]; n < len(values) {
			value = values[n]
		} else if len(values) > 0 {
			value = values[0]
		}
		seen[key]++

		bw.WriteString(line.Name + ": " + r.dec.Decode(value) + "\n")
	}
}
