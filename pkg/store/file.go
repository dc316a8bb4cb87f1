package store

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	legerr "github.com/matzehuels/legsim/pkg/errors"
	"github.com/matzehuels/legsim/pkg/geomspec"
	legio "github.com/matzehuels/legsim/pkg/io"
)

// FileStore keeps one JSON document per record in a directory.
type FileStore struct {
	dir string
	now func() time.Time
}

type fileRecord struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Spec      json.RawMessage   `json:"spec"`
	Poses     geomspec.PoseDump `json:"poses,omitempty"`
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) Save(_ context.Context, rec *Record) error {
	spec, err := prepare(rec, s.now())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(fileRecord{
		ID:        rec.ID,
		Name:      rec.Name,
		CreatedAt: rec.CreatedAt,
		Spec:      spec,
		Poses:     rec.Poses,
	}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(rec.ID))
}

func (s *FileStore) Load(_ context.Context, id string) (*Record, error) {
	fr, err := s.read(id)
	if err != nil {
		return nil, err
	}
	spec, err := legio.UnmarshalSpec(fr.Spec)
	if err != nil {
		return nil, legerr.Wrap(legerr.ErrCodeInternal, err, "stored spec %s", id)
	}
	return &Record{ID: fr.ID, Name: fr.Name, CreatedAt: fr.CreatedAt, Spec: spec, Poses: fr.Poses}, nil
}

func (s *FileStore) List(context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []Summary
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || e.IsDir() || checkID(id) != nil {
			continue
		}
		fr, err := s.read(id)
		if err != nil {
			continue
		}
		sum, err := summarize(fr.ID, fr.Name, fr.CreatedAt, fr.Spec)
		if err != nil {
			continue
		}
		out = append(out, sum)
	}
	slices.SortFunc(out, func(a, b Summary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *FileStore) Delete(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) Close(context.Context) error { return nil }

func (s *FileStore) read(id string) (*fileRecord, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var fr fileRecord
	if err := json.Unmarshal(data, &fr); err != nil {
		return nil, legerr.Wrap(legerr.ErrCodeInternal, err, "stored record %s", id)
	}
	return &fr, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

var _ Store = (*FileStore)(nil)
