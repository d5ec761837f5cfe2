package enhancements

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

var _ enhancer.Store = (*File)(nil)

// File keeps every enhancement record in one YAML document keyed by
// identity. It suits a single process such as the CLI; use Redis or
// Postgres when several writers share the records.
type File struct {
	path string
	now  func() time.Time

	mu      sync.RWMutex
	records map[string]*vehicles.Enhancement
}

// OpenFile loads path, which need not exist yet.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, now: time.Now, records: make(map[string]*vehicles.Enhancement)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return f, nil
	case err != nil:
		return nil, errors.WrapIO("read", path, err)
	}

	var loaded map[string]*vehicles.Enhancement
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	for key, e := range loaded {
		if e == nil {
			continue
		}
		if e.Identity.IsZero() {
			e.Identity = vehicles.ParseIdentity(key)
		}
		e.Identity = e.Identity.Normalize()
		f.records[e.Identity.Key] = e
	}
	return f, nil
}

// FetchOne returns the record for id, or nil when none exists.
func (f *File) FetchOne(ctx context.Context, id vehicles.Identity) (*vehicles.Enhancement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.records[id.Key].Clone(), nil
}

// FetchAll returns a copy of every record.
func (f *File) FetchAll(ctx context.Context) (map[string]*vehicles.Enhancement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]*vehicles.Enhancement, len(f.records))
	for key, e := range f.records {
		out[key] = e.Clone()
	}
	return out, nil
}

// Put stores e and rewrites the file. The in-memory record is rolled back
// when the write fails.
func (f *File) Put(ctx context.Context, e *vehicles.Enhancement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := enhancer.Validate(e); err != nil {
		return err
	}
	rec := e.Clone()
	rec.Identity = rec.Identity.Normalize()
	rec.UpdatedAt = f.now().UTC()

	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.records[rec.Identity.Key]
	f.records[rec.Identity.Key] = rec
	if err := f.flushLocked(); err != nil {
		if had {
			f.records[rec.Identity.Key] = prev
		} else {
			delete(f.records, rec.Identity.Key)
		}
		return err
	}
	return nil
}

// Delete removes the record for key.
func (f *File) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.records[key]
	if !had {
		return nil
	}
	delete(f.records, key)
	if err := f.flushLocked(); err != nil {
		f.records[key] = prev
		return err
	}
	return nil
}

// Len returns the number of records.
func (f *File) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records)
}

// Close is a no-op; every Put is already on disk.
func (f *File) Close() error { return nil }

func (f *File) flushLocked() error {
	data, err := yaml.MarshalWithOptions(f.records, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return errors.WrapParse("yaml", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".enhancements-*")
	if err != nil {
		return errors.WrapIO("create", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.WrapIO("rename", f.path, err)
	}
	return nil
}
