package watermark

import (
	"errors"
	"fmt"
)

// ErrUnrecognizedImage is returned when image bytes carry no known signature.
var ErrUnrecognizedImage = errors.New("unrecognized image data")

// ConfigError is a fatal startup configuration problem.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// DecodeError wraps a malformed base64 payload.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode base64 payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
