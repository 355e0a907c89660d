package mimeword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "UTF-8 Base64",
			input:    "=?utf-8?B?SGVsbG8=?=",
			expected: "Hello",
		},
		{
			name:     "UTF-8 Quoted-Printable",
			input:    "=?UTF-8?Q?Invitaci=C3=B3n?=",
			expected: "Invitación",
		},
		{
			name:     "UTF-8 Base64 non-ASCII",
			input:    "=?UTF-8?B?SW52aXRhY2nDs24=?=",
			expected: "Invitación",
		},
		{
			name:     "ISO-2022-JP Base64",
			input:    "=?ISO-2022-JP?B?GyRCJUYlOSVIGyhC?=",
			expected: "テスト",
		},
		{
			name:     "ISO-8859-1 Base64",
			input:    "=?iso-8859-1?B?R3L832U=?=",
			expected: "Grüße",
		},
		{
			name:     "Q encoding underscores are spaces",
			input:    "=?utf-8?q?Hello_World?=",
			expected: "Hello World",
		},
		{
			name:     "Whitespace between encoded words is dropped",
			input:    "=?UTF-8?Q?Invitaci=C3=B3n:?= =?UTF-8?Q?_Reuni=C3=B3n?=",
			expected: "Invitación: Reunión",
		},
		{
			name:     "Folding whitespace between encoded words is dropped",
			input:    "=?utf-8?B?5pel?=\r\n =?utf-8?B?5pys6Kqe?=",
			expected: "日本語",
		},
		{
			name:     "Literal text around encoded words is preserved",
			input:    "Re: =?utf-8?B?Q2Fmw6k=?= meeting",
			expected: "Re: Café meeting",
		},
		{
			name:     "Display name with address",
			input:    "=?utf-8?Q?Jos=C3=A9?= <jose@example.com>",
			expected: "José <jose@example.com>",
		},
		{
			name:     "Plain text is unchanged",
			input:    "Simple Subject",
			expected: "Simple Subject",
		},
		{
			name:     "Unknown charset is kept verbatim",
			input:    "=?UNKNOWN?Q?=E3=81=82?=",
			expected: "=?UNKNOWN?Q?=E3=81=82?=",
		},
		{
			name:     "Unknown charset among decodable words",
			input:    "=?utf-8?B?SGVsbG8=?= =?unknown?Q?x=FF?=",
			expected: "Hello=?unknown?Q?x=FF?=",
		},
		{
			name:     "Broken base64 is kept verbatim",
			input:    "=?utf-8?B?!!!?= tail",
			expected: "=?utf-8?B?!!!?= tail",
		},
		{
			name:     "Invalid bytes in declared charset are dropped",
			input:    "=?utf-8?Q?ok=FF?=",
			expected: "ok",
		},
		{
			name:     "Unsupported charset decodes as UTF-8",
			input:    "=?x-made-up?Q?abc?=",
			expected: "abc",
		},
		{
			name:     "Language suffix is ignored",
			input:    "=?utf-8*en?Q?Hello?=",
			expected: "Hello",
		},
		{
			name:     "Raw 8-bit literal text is replaced",
			input:    "caf\xe9 =?utf-8?Q?ok?=",
			expected: "caf\uFFFD ok",
		},
		{
			name:     "Raw UTF-8 literal text is kept",
			input:    "Café",
			expected: "Café",
		},
		{
			name:     "Encoded U+FFFD is kept",
			input:    "=?utf-8?B?77+9?=",
			expected: "\uFFFD",
		},
		{
			name:     "US-ASCII word with 8-bit bytes drops them",
			input:    "=?us-ascii?Q?a=FFb?=",
			expected: "ab",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	dec := NewDecoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, dec.Decode(tt.input))
		})
	}
}

// Q and B forms of the same text in different charsets all decode to the
// same readable string.
func TestDecode_EncodingIndependent(t *testing.T) {
	dec := NewDecoder()
	forms := []string{
		"=?utf-8?B?Q2Fmw6k=?=",
		"=?utf-8?Q?Caf=C3=A9?=",
		"=?iso-8859-1?Q?Caf=E9?=",
		"=?windows-1252?Q?Caf=E9?=",
	}
	for _, form := range forms {
		assert.Equal(t, "Café", dec.Decode(form), form)
	}
}
