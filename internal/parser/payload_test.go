package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felo/eml2text/internal/mimeword"
)

func TestExtract_WithAttachment(t *testing.T) {
	msg, err := ParseFile("testdata/with-attachment.eml")
	require.NoError(t, err)

	parts := Extract(msg, mimeword.NewDecoder())

	require.Len(t, parts, 2)
	assert.Equal(t, "text/plain", parts[0].ContentType)
	assert.False(t, parts[0].Attachment)
	assert.Empty(t, parts[0].Filename)
	assert.Equal(t, "This email has an attachment.", parts[0].Text)

	assert.True(t, parts[1].Attachment)
	assert.Equal(t, "report.txt", parts[1].Filename)
	assert.Equal(t, "quarterly numbers", parts[1].Text)
	assert.NoError(t, parts[1].FallbackError())
}

func TestExtract_EncodedFilename(t *testing.T) {
	msg, err := ParseFile("testdata/nested.eml")
	require.NoError(t, err)

	parts := Extract(msg, mimeword.NewDecoder())

	require.Len(t, parts, 3)
	assert.Equal(t, "plain version", parts[0].Text)
	assert.Equal(t, "<p>html version</p>", parts[1].Text)
	assert.True(t, parts[2].Attachment)
	assert.Equal(t, "日本語.txt", parts[2].Filename)
	assert.Equal(t, "日本語", parts[2].Text)
}

func TestExtract_SinglePart(t *testing.T) {
	msg, err := ParseFile("testdata/mime-encoded.eml")
	require.NoError(t, err)

	parts := Extract(msg, mimeword.NewDecoder())

	require.Len(t, parts, 1)
	assert.Equal(t, "テスト", parts[0].Text)
	assert.Equal(t, "iso-2022-jp", parts[0].Charset)
}

func TestExtract_NonMultipartAttachmentIsNotAnnotated(t *testing.T) {
	raw := "Subject: x\nContent-Type: text/plain\nContent-Disposition: attachment; filename=a.txt\n\nbody"
	msg, err := Parse([]byte(raw))
	require.NoError(t, err)

	parts := Extract(msg, mimeword.NewDecoder())

	require.Len(t, parts, 1)
	assert.False(t, parts[0].Attachment)
	assert.Empty(t, parts[0].Filename)
	assert.Equal(t, "body", parts[0].Text)
}

// Invalid bytes in a part declaring a charset never fail the conversion.
func TestExtract_InvalidBytesWithDeclaredCharset(t *testing.T) {
	raw := "Subject: x\nContent-Type: multipart/mixed; boundary=b\n\n" +
		"--b\nContent-Type: text/plain; charset=iso-8859-1\n\nna\xefve \xff\n" +
		"--b\nContent-Type: text/plain; charset=utf-8\n\nbro\xc3ken\n" +
		"--b\nContent-Type: application/octet-stream; charset=shift_jis\nContent-Disposition: attachment; filename=x.bin\n\na\x80b\n" +
		"--b--\n"
	msg, err := Parse([]byte(raw))
	require.NoError(t, err)

	parts := Extract(msg, mimeword.NewDecoder())

	require.Len(t, parts, 3)
	assert.Equal(t, "naïve ÿ", parts[0].Text)
	assert.Equal(t, "broken", parts[1].Text)
	assert.Equal(t, "ab", parts[2].Text)
	for _, p := range parts {
		assert.False(t, p.Fallback)
	}
}

// Parts without a charset that are not UTF-8 use the documented fallback.
func TestExtract_DecodeFallback(t *testing.T) {
	raw := "Subject: x\nContent-Type: multipart/mixed; boundary=b\n\n" +
		"--b\nContent-Type: text/plain\n\nfine\n" +
		"--b\nContent-Type: application/octet-stream\nContent-Disposition: attachment; filename=blob.bin\n\nab\xff\xfecd\n" +
		"--b--\n"
	msg, err := Parse([]byte(raw))
	require.NoError(t, err)

	parts := Extract(msg, mimeword.NewDecoder())

	require.Len(t, parts, 2)
	assert.False(t, parts[0].Fallback)
	assert.NoError(t, parts[0].FallbackError())

	assert.True(t, parts[1].Fallback)
	assert.Equal(t, "abcd", parts[1].Text)

	var fallbackErr *DecodeFallbackError
	require.True(t, errors.As(parts[1].FallbackError(), &fallbackErr))
	assert.Equal(t, "blob.bin", fallbackErr.Filename)
	assert.Contains(t, fallbackErr.Error(), "blob.bin")
}

func TestIsAttachment(t *testing.T) {
	assert.True(t, isAttachment("attachment"))
	assert.True(t, isAttachment(" Attachment; filename=a"))
	assert.False(t, isAttachment("inline; filename=a"))
	assert.False(t, isAttachment(""))
}
