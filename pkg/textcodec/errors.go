package textcodec

import "errors"

var (
	// ErrMalformedInput indicates input that cannot be decoded, such as an
	// odd number of bytes for a wide encoding.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnknownEncoding indicates an encoding or code page name that is not recognized.
	ErrUnknownEncoding = errors.New("unknown encoding")
)
