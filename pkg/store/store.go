// Package store keeps committed geometry specs under generated IDs.
//
// The CLI commits into a [FileStore] next to its cache; "legsim serve" can
// use a [MongoStore] so several replicas share one catalogue. Both accept
// only specs that pass validation and return them validated on load.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/geomspec"
	legio "github.com/matzehuels/legsim/pkg/io"
)

// ErrNotFound is returned for unknown IDs.
var ErrNotFound = errors.New("spec not found")

// Record is one committed spec.
type Record struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Spec      *geomspec.Spec
	Poses     geomspec.PoseDump // optional
}

// Summary lists a record without its payload.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Links     int       `json:"links"`
	Joints    int       `json:"joints"`
}

// Store persists records.
type Store interface {
	// Save validates the spec, assigns an ID when empty and stamps
	// CreatedAt. The record's ID and CreatedAt fields are updated.
	Save(ctx context.Context, rec *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	// List returns summaries, newest first.
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// prepare validates rec and fills ID and CreatedAt. It returns the compact
// spec encoding written by every backend.
func prepare(rec *Record, now time.Time) ([]byte, error) {
	if rec == nil || rec.Spec == nil {
		return nil, legerr.New(legerr.ErrCodeInvalidInput, "record has no spec")
	}
	if err := rec.Spec.Validate(); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if err := checkID(rec.ID); err != nil {
		return nil, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now.UTC()
	}
	rec.Spec.ID = rec.ID
	return legio.MarshalSpec(rec.Spec)
}

// checkID accepts only UUIDs, which also keeps IDs safe as file names.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return legerr.Wrap(legerr.ErrCodeInvalidInput, err, "invalid spec id %q", id)
	}
	return nil
}

func summarize(id, name string, created time.Time, spec json.RawMessage) (Summary, error) {
	var counts struct {
		Links  map[string]json.RawMessage `json:"links"`
		Joints []json.RawMessage          `json:"joints"`
	}
	if err := json.Unmarshal(spec, &counts); err != nil {
		return Summary{}, err
	}
	return Summary{ID: id, Name: name, CreatedAt: created, Links: len(counts.Links), Joints: len(counts.Joints)}, nil
}
