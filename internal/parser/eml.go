package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"

	"github.com/emersion/go-message"
)

// ParseFile parses an .eml file
func ParseFile(filePath string) (*Message, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return Parse(raw)
}

// Parse parses a raw RFC 822/2045 message. Structural problems are reported
// as *MalformedMessageError.
func Parse(raw []byte) (*Message, error) {
	entity, err := message.Read(bytes.NewReader(stripEnvelope(raw)))
	if err != nil && !recoverable(err) {
		return nil, malformed("failed to read header: %w", err)
	}

	msg := &Message{
		Header: collectHeader(entity.Header),
		Lines:  SegmentHeaders(raw),
	}

	mediaType, params := contentType(entity.Header)
	msg.MediaType = mediaType
	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, malformed("%s without boundary parameter", mediaType)
		}
		msg.Boundary = boundary
	}

	leaves, err := flatten(entity)
	if err != nil {
		return nil, &MalformedMessageError{Err: err}
	}
	msg.Leaves = leaves

	return msg, nil
}

// stripEnvelope removes a leading mbox "From " envelope line. It stays in
// the segmented raw header.
func stripEnvelope(raw []byte) []byte {
	if !bytes.HasPrefix(raw, []byte("From ")) {
		return raw
	}
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		return raw[i+1:]
	}
	return nil
}

// recoverable reports errors after which go-message still returns a usable
// entity holding the undecoded body.
func recoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

// collectHeader copies the header fields in message order, unfolding values.
func collectHeader(h message.Header) Header {
	var header Header
	fields := h.Fields()
	for fields.Next() {
		header = append(header, Field{
			Name:  fields.Key(),
			Value: unfold(fields.Value()),
		})
	}
	return header
}

// unfold removes the line breaks of folded header values (RFC 5322 2.2.3).
func unfold(v string) string {
	if !strings.ContainsAny(v, "\r\n") {
		return v
	}
	v = strings.ReplaceAll(v, "\r\n", "")
	v = strings.ReplaceAll(v, "\n", "")
	return strings.TrimSpace(v)
}

// contentType returns the lower-cased media type and its parameters.
// A missing or unparsable Content-Type means text/plain.
func contentType(h message.Header) (string, map[string]string) {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if mediaType == "" {
		return "text/plain", map[string]string{}
	}
	if err != nil || params == nil {
		params = map[string]string{}
	}
	return mediaType, params
}

// flatten walks the entity tree depth-first and returns its leaves in
// document order.
func flatten(e *message.Entity) ([]Leaf, error) {
	mr := e.MultipartReader()
	if mr == nil {
		return []Leaf{readLeaf(e)}, nil
	}

	var leaves []Leaf
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && truncated(leaves) {
			// the input ended inside the last part
			if last := &leaves[len(leaves)-1]; !errors.Is(last.ReadErr, ErrNoClosingDelimiter) {
				last.ReadErr = fmt.Errorf("%w: %w", ErrNoClosingDelimiter, last.ReadErr)
			}
			break
		}
		if err != nil && !recoverable(err) {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		mediaType, params := contentType(part.Header)
		if strings.HasPrefix(mediaType, "multipart/") && params["boundary"] == "" {
			return nil, fmt.Errorf("nested %s without boundary parameter", mediaType)
		}

		children, err := flatten(part)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, children...)
	}
	return leaves, nil
}

// truncated reports whether reading the last leaf ran into the end of input
func truncated(leaves []Leaf) bool {
	return len(leaves) > 0 && errors.Is(leaves[len(leaves)-1].ReadErr, io.ErrUnexpectedEOF)
}

func readLeaf(e *message.Entity) Leaf {
	mediaType, params := contentType(e.Header)
	leaf := Leaf{
		MediaType:   mediaType,
		Charset:     strings.ToLower(strings.TrimSpace(params["charset"])),
		Disposition: e.Header.Get("Content-Disposition"),
	}

	if _, dispParams, err := mime.ParseMediaType(leaf.Disposition); err == nil {
		leaf.Filename = dispParams["filename"]
	}
	if leaf.Filename == "" {
		leaf.Filename = params["name"]
	}

	// go-message transcodes text/* bodies with a declared charset while reading
	leaf.Transcoded = strings.HasPrefix(mediaType, "text/") && leaf.Charset != ""

	body, err := io.ReadAll(e.Body)
	leaf.Body = body
	if err != nil {
		leaf.ReadErr = fmt.Errorf("failed to read body: %w", err)
	}
	return leaf
}
