package cursor

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/arloliu/mapicodec/errs"
)

// ANSI strings in MAPI blobs are written in the store's code page. Windows-1252
// is the code page of every sample this package was built against; ASCII text
// decodes identically.
var (
	ansiEncoding  encoding.Encoding = charmap.Windows1252
	utf16Encoding encoding.Encoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
)

// ASCII reads n bytes as a string without transcoding.
func (r *Reader) ASCII(n int) (string, error) {
	b, err := r.take(n)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// ANSI reads n bytes of 8-bit text and transcodes it to UTF-8.
func (r *Reader) ANSI(n int) (string, error) {
	b, err := r.take(n)
	if err != nil {
		return "", err
	}

	return decodeANSI(b)
}

// UTF16 reads chars UTF-16LE code units and transcodes them to UTF-8.
func (r *Reader) UTF16(chars int) (string, error) {
	if chars < 0 || chars > r.Remaining()/2 {
		return "", fmt.Errorf("%w: need %d UTF-16 units at offset %d, have %d bytes",
			errs.ErrTruncated, chars, r.off, r.Remaining())
	}
	b, err := r.take(chars * 2)
	if err != nil {
		return "", err
	}

	return decodeUTF16(b)
}

// CString reads a null-terminated 8-bit string without transcoding.
// The terminator is consumed but not returned.
func (r *Reader) CString() (string, error) {
	b, err := r.cstring()
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// ANSICString reads a null-terminated 8-bit string and transcodes it to UTF-8.
func (r *Reader) ANSICString() (string, error) {
	b, err := r.cstring()
	if err != nil {
		return "", err
	}

	return decodeANSI(b)
}

// UTF16CString reads a null-terminated UTF-16LE string. The terminator is
// a 16-bit zero on an even offset relative to the string start.
func (r *Reader) UTF16CString() (string, error) {
	rest := r.data[r.off:]
	for i := 0; i+1 < len(rest); i += 2 {
		if rest[i] == 0 && rest[i+1] == 0 {
			s, err := decodeUTF16(rest[:i])
			if err != nil {
				return "", err
			}
			r.off += i + 2

			return s, nil
		}
	}

	return "", fmt.Errorf("%w: unterminated UTF-16 string at offset %d", errs.ErrTruncated, r.off)
}

func (r *Reader) cstring() ([]byte, error) {
	rest := r.data[r.off:]
	i := bytes.IndexByte(rest, 0)
	if i < 0 {
		return nil, fmt.Errorf("%w: unterminated string at offset %d", errs.ErrTruncated, r.off)
	}
	r.off += i + 1

	return rest[:i], nil
}

func decodeANSI(b []byte) (string, error) {
	out, err := ansiEncoding.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: ansi text: %v", errs.ErrCorrupted, err)
	}

	return string(out), nil
}

func decodeUTF16(b []byte) (string, error) {
	out, err := utf16Encoding.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: utf-16 text: %v", errs.ErrCorrupted, err)
	}

	return string(out), nil
}
