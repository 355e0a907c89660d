package charsets

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// shiftJIS is Shift_JIS with the bytes that cannot start a character
// (0x80, 0xA0 and 0xFD-0xFF) treated as invalid. japanese.ShiftJIS maps them
// to U+0080, U+F8F0 and friends the way windows-31j does; the cp932 labels
// keep that mapping.
var shiftJIS encoding.Encoding = strictShiftJIS{}

type strictShiftJIS struct{}

func (strictShiftJIS) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{
		Transformer: transform.Chain(sjisLeadFilter{}, japanese.ShiftJIS.NewDecoder()),
	}
}

func (strictShiftJIS) NewEncoder() *encoding.Encoder {
	return japanese.ShiftJIS.NewEncoder()
}

// sjisLeadFilter drops invalid lead bytes and passes everything else,
// keeping double-byte sequences together.
type sjisLeadFilter struct {
	transform.NopResetter
}

func (sjisLeadFilter) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		switch {
		case c == 0x80 || c == 0xa0 || c >= 0xfd:
			nSrc++
			continue
		case (0x81 <= c && c < 0xa0) || (0xe0 <= c && c < 0xfd):
			size := 2
			if nSrc+1 >= len(src) {
				if !atEOF {
					return nDst, nSrc, transform.ErrShortSrc
				}
				size = 1
			}
			if nDst+size > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			copy(dst[nDst:], src[nSrc:nSrc+size])
			nDst += size
			nSrc += size
		default:
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
		}
	}
	return nDst, nSrc, nil
}
