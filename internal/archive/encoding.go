package archive

import (
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"github.com/yeka/zip"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// utf8Flag is bit 11 of the general purpose flags: the entry name is UTF-8.
const utf8Flag = 0x800

// DecodeName returns the entry's name as UTF-8. Archives written by legacy
// tools carry names in a local code page without the UTF-8 flag; those are
// run through charset detection and decoded. Names that fail detection or
// decoding are returned unchanged.
func DecodeName(f *zip.File) string {
	name := f.Name
	if f.Flags&utf8Flag != 0 || utf8.ValidString(name) {
		return name
	}
	return decodeLegacyName(name)
}

func decodeLegacyName(name string) string {
	raw := []byte(name)

	detector := chardet.NewTextDetector()
	if result, err := detector.DetectBest(raw); err == nil {
		if dec := decoderFor(result.Charset); dec != nil {
			if decoded, err := dec.Bytes(raw); err == nil && utf8.Valid(decoded) {
				return string(decoded)
			}
		}
	}

	// CP437 is the ZIP specification's default for non-UTF-8 names; its
	// decoder maps every byte, so this never fails.
	decoded, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return name
	}
	return string(decoded)
}

// decoderFor maps a chardet charset name to a decoder, nil when the
// charset is unknown.
func decoderFor(charset string) *encoding.Decoder {
	switch charset {
	case "GB2312", "GBK", "GB18030", "GB-18030":
		return simplifiedchinese.GB18030.NewDecoder()
	case "Big5", "BIG5":
		return traditionalchinese.Big5.NewDecoder()
	case "Shift_JIS", "SHIFT_JIS", "SJIS":
		return japanese.ShiftJIS.NewDecoder()
	case "EUC-JP":
		return japanese.EUCJP.NewDecoder()
	case "EUC-KR":
		return korean.EUCKR.NewDecoder()
	case "windows-1251":
		return charmap.Windows1251.NewDecoder()
	case "windows-1252", "ISO-8859-1":
		return charmap.Windows1252.NewDecoder()
	case "KOI8-R":
		return charmap.KOI8R.NewDecoder()
	case "IBM866":
		return charmap.CodePage866.NewDecoder()
	}
	return nil
}
