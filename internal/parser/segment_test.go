package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentHeaders(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []HeaderLine
	}{
		{
			name: "Continuation lines are grouped",
			raw:  "Received: from a\n\tby b\n  with c\nSubject: hi\n\nbody\n",
			expected: []HeaderLine{
				{Name: "Received", Lines: []string{"Received: from a\n", "\tby b\n", "  with c\n"}},
				{Name: "Subject", Lines: []string{"Subject: hi\n"}},
			},
		},
		{
			name: "CRLF endings are kept",
			raw:  "From: a@example.com\r\nTo: b@example.com\r\n continued\r\n\r\nbody\r\n",
			expected: []HeaderLine{
				{Name: "From", Lines: []string{"From: a@example.com\r\n"}},
				{Name: "To", Lines: []string{"To: b@example.com\r\n", " continued\r\n"}},
			},
		},
		{
			name: "Stops at the first blank line",
			raw:  "A: 1\n\nB: 2\n",
			expected: []HeaderLine{
				{Name: "A", Lines: []string{"A: 1\n"}},
			},
		},
		{
			name: "Header block without body",
			raw:  "A: 1\nB: 2",
			expected: []HeaderLine{
				{Name: "A", Lines: []string{"A: 1\n"}},
				{Name: "B", Lines: []string{"B: 2"}},
			},
		},
		{
			name: "Leading continuation is dropped",
			raw:  " orphan\nA: 1\n\n",
			expected: []HeaderLine{
				{Name: "A", Lines: []string{"A: 1\n"}},
			},
		},
		{
			name: "Name keeps its spelling",
			raw:  "SUBJECT: x\n\n",
			expected: []HeaderLine{
				{Name: "SUBJECT", Lines: []string{"SUBJECT: x\n"}},
			},
		},
		{
			name:     "Empty header block",
			raw:      "\nbody\n",
			expected: nil,
		},
		{
			name:     "Empty input",
			raw:      "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SegmentHeaders([]byte(tt.raw)))
		})
	}
}

func TestSegmentHeaders_InvalidUTF8(t *testing.T) {
	headers := SegmentHeaders([]byte("X-Bad: caf\xe9\n\tmore\xff\nSubject: ok\n\n"))

	require.Len(t, headers, 2)
	assert.Equal(t, "X-Bad", headers[0].Name)
	assert.Equal(t, "X-Bad: caf�\n\tmore�\n", headers[0].Raw())
	assert.Equal(t, "Subject", headers[1].Name)
}

// The line count of a header is one plus its continuation lines.
func TestSegmentHeaders_LineCount(t *testing.T) {
	raw := "A: 1\n 2\n 3\nB: 1\nC: 1\n\t2\n\n"
	counts := map[string]int{}
	for _, h := range SegmentHeaders([]byte(raw)) {
		counts[h.Name] = len(h.Lines)
	}
	assert.Equal(t, map[string]int{"A": 3, "B": 1, "C": 2}, counts)
}
