package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/legsim/pkg/geomspec"
)

// WriteJSON encodes a spec as indented JSON and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(s *geomspec.Spec, w io.Writer) error {
	return encode(s, w)
}

// ExportJSON writes a spec to a JSON file at path.
func ExportJSON(s *geomspec.Spec, path string) error {
	return export(path, func(w io.Writer) error { return WriteJSON(s, w) })
}

// WritePoses encodes a pose dump as indented JSON.
func WritePoses(d geomspec.PoseDump, w io.Writer) error {
	return encode(d, w)
}

// ExportPoses writes a pose dump to a JSON file at path.
func ExportPoses(d geomspec.PoseDump, path string) error {
	return export(path, func(w io.Writer) error { return WritePoses(d, w) })
}

// MarshalSpec returns the compact JSON encoding of a spec, used as the
// stored and cached form.
func MarshalSpec(s *geomspec.Spec) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

func encode(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func export(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
