package parser

import (
	"bytes"
	"strings"
)

// SegmentHeaders splits the header block of raw (everything before the first
// line that is exactly CRLF or LF) into logical headers. Lines starting with
// a space or tab are continuations of the header before them; continuations
// with nothing to attach to are dropped.
func SegmentHeaders(raw []byte) []HeaderLine {
	var (
		headers []HeaderLine
		current *HeaderLine
	)

	for len(raw) > 0 {
		var line string
		if i := bytes.IndexByte(raw, '\n'); i >= 0 {
			line, raw = string(raw[:i+1]), raw[i+1:]
		} else {
			line, raw = string(raw), nil
		}
		line = strings.ToValidUTF8(line, "�")

		if line == "\r\n" || line == "\n" {
			break
		}

		if line[0] == ' ' || line[0] == '\t' {
			if current != nil {
				current.Lines = append(current.Lines, line)
			}
			continue
		}

		if current != nil {
			headers = append(headers, *current)
		}
		current = &HeaderLine{Name: headerName(line), Lines: []string{line}}
	}

	if current != nil {
		headers = append(headers, *current)
	}
	return headers
}

func headerName(line string) string {
	if i := strings.IndexByte(line, ':'); i >= 0 {
		return line[:i]
	}
	return strings.TrimRight(line, "\r\n")
}
