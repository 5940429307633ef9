package ast

import "golang.org/x/text/unicode/norm"

// bom is U+FEFF, which some parser hosts prepend to their output; in
// UTF-8 it occupies the first three bytes.
const bom = "\uFEFF"

// Normalize prepares parser output for decoding: a leading byte order
// mark is dropped and the text is brought into NFC. The parser runs in
// a separate process, so identifiers may arrive composed or decomposed;
// without a single normal form, two spellings of the same name would
// resolve to different definitions.
func Normalize(src []byte) []byte {
	if len(src) >= len(bom) && string(src[:len(bom)]) == bom {
		src = src[len(bom):]
	}
	return nfc(src)
}

// NormalizeName applies the same normal form to a single identifier.
func NormalizeName(name string) string {
	if norm.NFC.IsNormalString(name) {
		return name
	}
	return norm.NFC.String(name)
}

// nfc leaves already-normal input untouched so the common case does
// not copy.
func nfc(src []byte) []byte {
	if norm.NFC.IsNormal(src) {
		return src
	}
	return norm.NFC.Bytes(src)
}
