// Package wire provides a generic JSON codec (Encode/Decode) with
// structured CodecError values. No other package imports it: the in-process bus passes values directly, and the
// NATS-backed transport encodes its own envelope with encoding/json.
package wire

import (
	"encoding/json"
	"fmt"
)

// CodecError is returned by Encode/Decode on malformed input.
type CodecError struct {
	Code    string
	Message string
}

func (e *CodecError) Error() string {
	return e.Message
}

// Encode marshals v to JSON (fail-fast on nil input).
//
// A generic Signal type ruled out committing to a single protobuf schema
// (see DESIGN.md); encoding/json keeps the codec agnostic to whatever
// payload an algorithm declares.
func Encode(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, &CodecError{Code: "INVALID_INPUT", Message: "cannot encode nil value"}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode failed: %w", err)
	}
	return data, nil
}

// Decode unmarshals JSON bytes into v (fail-fast on empty input).
func Decode(data []byte, v interface{}) error {
	if len(data) == 0 {
		return &CodecError{Code: "INVALID_INPUT", Message: "cannot decode empty data"}
	}
	if v == nil {
		return &CodecError{Code: "INVALID_INPUT", Message: "cannot decode into nil value"}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json decode failed: %w", err)
	}
	return nil
}
