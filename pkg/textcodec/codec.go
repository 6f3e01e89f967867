package textcodec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies a text encoding.
type Encoding int

// Supported encodings.
const (
	UTF8 Encoding = iota
	WideBE16
	SystemLegacy
)

// String returns the canonical name of the encoding.
func (e Encoding) String() string {
	switch e {
	case UTF8:
		return "utf8"
	case WideBE16:
		return "wide"
	case SystemLegacy:
		return "legacy"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding parses an encoding name. Matching is case-insensitive.
// Accepted values: "utf8", "utf-8", "wide", "utf-16be", "legacy", "ansi".
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "utf8", "utf-8", "":
		return UTF8, nil
	case "wide", "utf16be", "utf-16be", "tchar":
		return WideBE16, nil
	case "legacy", "ansi", "system":
		return SystemLegacy, nil
	default:
		return UTF8, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// DefaultCodePage is the legacy code page used when none is configured.
const DefaultCodePage = "windows-1252"

var wide = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Codec performs conversions with a fixed legacy code page.
// The zero value is not usable; use New or Default.
type Codec struct {
	codePage string
	legacy   encoding.Encoding
}

var defaultCodec = &Codec{codePage: DefaultCodePage, legacy: charmap.Windows1252}

// Default returns the codec that uses DefaultCodePage.
func Default() *Codec {
	return defaultCodec
}

// New returns a codec whose legacy encoding is the named single-byte code page.
// Names are resolved through the IANA registry, e.g. "windows-1251", "iso-8859-1".
// An empty name selects DefaultCodePage.
func New(codePage string) (*Codec, error) {
	if codePage == "" {
		return defaultCodec, nil
	}
	enc, err := ianaindex.IANA.Encoding(codePage)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: code page %q", ErrUnknownEncoding, codePage)
	}
	if _, ok := enc.(*charmap.Charmap); !ok {
		return nil, fmt.Errorf("%w: %q is not a single-byte code page", ErrUnknownEncoding, codePage)
	}
	return &Codec{codePage: strings.ToLower(codePage), legacy: enc}, nil
}

// CodePage returns the configured legacy code page name.
func (c *Codec) CodePage() string {
	return c.codePage
}

// Encode converts s to bytes in the given encoding.
func (c *Codec) Encode(enc Encoding, s string) ([]byte, error) {
	switch enc {
	case UTF8:
		return ToUTF8Bytes(s), nil
	case WideBE16:
		return ToWideBytes(s), nil
	case SystemLegacy:
		return c.ToLegacyBytes(s), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, enc)
	}
}

// Decode converts b from the given encoding to a string.
func (c *Codec) Decode(enc Encoding, b []byte) (string, error) {
	switch enc {
	case UTF8:
		return FromUTF8Bytes(b), nil
	case WideBE16:
		return FromWideBytes(b)
	case SystemLegacy:
		return c.FromLegacyBytes(b), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownEncoding, enc)
	}
}

// ToLegacyBytes encodes s in the codec's code page.
// Runes the code page cannot represent become its substitution byte.
func (c *Codec) ToLegacyBytes(s string) []byte {
	out, err := encoding.ReplaceUnsupported(c.legacy.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		// Only reachable for invalid UTF-8 input that the replacer rejects.
		return []byte(strings.ToValidUTF8(s, "?"))
	}
	return out
}

// FromLegacyBytes decodes b from the codec's code page.
func (c *Codec) FromLegacyBytes(b []byte) string {
	out, err := c.legacy.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// ToUTF8Bytes returns the UTF-8 encoding of s.
// No terminator is appended.
func ToUTF8Bytes(s string) []byte {
	return []byte(s)
}

// FromUTF8Bytes decodes UTF-8 bytes. Invalid sequences become U+FFFD.
func FromUTF8Bytes(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// ToLegacyBytes encodes s using the default code page.
func ToLegacyBytes(s string) []byte {
	return defaultCodec.ToLegacyBytes(s)
}

// FromLegacyBytes decodes b using the default code page.
func FromLegacyBytes(b []byte) string {
	return defaultCodec.FromLegacyBytes(b)
}

// ToWideBytes emits each UTF-16 code unit of s as two bytes, high byte first.
// Runes outside the BMP occupy a surrogate pair (four bytes).
func ToWideBytes(s string) []byte {
	out, err := wide.NewEncoder().Bytes([]byte(FromUTF8Bytes([]byte(s))))
	if err != nil {
		return nil
	}
	return out
}

// FromWideBytes decodes bytes produced by ToWideBytes.
// Returns ErrMalformedInput if len(b) is odd.
func FromWideBytes(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: wide input has odd length %d", ErrMalformedInput, len(b))
	}
	out, err := wide.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return string(out), nil
}
