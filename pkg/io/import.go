package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/geomspec"
)

// ReadJSON decodes a spec from r and validates it.
//
// Decoding is strict: unknown fields and trailing data are INVALID_FORMAT.
// A well-formed spec that fails [geomspec.Spec.Validate] returns its
// INVALID_SPEC error unchanged.
func ReadJSON(r io.Reader) (*geomspec.Spec, error) {
	var s geomspec.Spec
	if err := decodeStrict(r, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ImportJSON reads and validates a spec from a JSON file at path.
func ImportJSON(path string) (*geomspec.Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// UnmarshalSpec decodes and validates a spec from its JSON bytes.
func UnmarshalSpec(data []byte) (*geomspec.Spec, error) {
	return ReadJSON(bytes.NewReader(data))
}

// ReadPoses decodes a pose dump from r.
func ReadPoses(r io.Reader) (geomspec.PoseDump, error) {
	var d geomspec.PoseDump
	if err := decodeStrict(r, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// ImportPoses reads a pose dump from a JSON file at path.
func ImportPoses(path string) (geomspec.PoseDump, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadPoses(f)
}

func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return legerr.Wrap(legerr.ErrCodeInvalidFormat, err, "decode")
	}
	if dec.More() {
		return legerr.New(legerr.ErrCodeInvalidFormat, "trailing data after JSON value")
	}
	return nil
}
