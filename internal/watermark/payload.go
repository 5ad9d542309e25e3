package watermark

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"unicode"
)

// StripSpace removes every whitespace rune, which is how base64 payload
// files arrive (wrapped lines, trailing newline).
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// IsBase64String reports whether s looks like padded standard base64.
func IsBase64String(s string) bool {
	if s == "" || len(s)%4 != 0 {
		return false
	}
	pad := 0
	for i, c := range s {
		switch {
		case c == '=':
			pad++
			if i < len(s)-2 {
				return false
			}
		case pad > 0:
			return false
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '+', c == '/':
		default:
			return false
		}
	}
	return pad <= 2
}

// DecodeBase64 decodes a standard base64 payload after stripping whitespace.
func DecodeBase64(text string) ([]byte, error) {
	text = StripSpace(text)
	if text == "" {
		return nil, &DecodeError{Err: errors.New("empty payload")}
	}
	if !IsBase64String(text) {
		return nil, &DecodeError{Err: errors.New("payload is not base64")}
	}
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return data, nil
}

var signatures = [][]byte{
	[]byte("\x89PNG\r\n\x1a\n"),
	{0xFF, 0xD8, 0xFF},
	[]byte("GIF87a"),
	[]byte("GIF89a"),
	[]byte("BM"),
	[]byte("II*\x00"),
	[]byte("MM\x00*"),
}

// IsRecognizedImage sniffs the leading bytes for a supported image format.
func IsRecognizedImage(data []byte) bool {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return true
	}
	return IsSVG(data)
}

// IsSVG reports whether data is an SVG document.
func IsSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	head = bytes.TrimPrefix(head, []byte("\xEF\xBB\xBF"))
	head = bytes.TrimLeftFunc(head, unicode.IsSpace)
	if bytes.HasPrefix(head, []byte("<svg")) {
		return true
	}
	return bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg"))
}
