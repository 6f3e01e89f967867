// Package textcodec converts between Go strings and the byte encodings that
// WebSocket clients exchange with the bridge.
//
// Three encodings are supported:
//   - UTF8: the default wire encoding for text frames
//   - WideBE16: UTF-16 code units, two bytes each, high byte first
//   - SystemLegacy: a single-byte code page (Windows-1252 unless configured)
//
// Usage:
//
//	data := textcodec.ToUTF8Bytes("hello")
//	s, err := textcodec.FromWideBytes(payload)
//
//	codec, err := textcodec.New("koi8-r")
//	b, err := codec.Encode(textcodec.SystemLegacy, "привет")
//
// Legacy conversions are lossy: runes outside the code page are replaced with
// the code page's substitution byte rather than reported as errors.
package textcodec
