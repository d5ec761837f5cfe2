package snapshot

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

const yamlExt = ".yaml"

// YAML stores one file per identity under a directory.
type YAML struct {
	dir string
}

// OpenYAML creates dir if needed.
func OpenYAML(dir string) (*YAML, error) {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("mkdir", dir, err)
	}
	return &YAML{dir: dir}, nil
}

func (y *YAML) path(id string) string {
	return filepath.Join(y.dir, url.PathEscape(id)+yamlExt)
}

// Load returns the snapshot for id, or nil, nil when there is none.
func (y *YAML) Load(ctx context.Context, id string) (*vehicles.View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := y.path(id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var view vehicles.View
	if err := yaml.Unmarshal(data, &view); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	return &view, nil
}

// Save writes one view, replacing the file atomically.
func (y *YAML) Save(ctx context.Context, view vehicles.View) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if view.Identity.Key == "" {
		return errors.NewValidationError("identity", "", "is empty")
	}

	data, err := yaml.MarshalWithOptions(view, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return errors.WrapParse("yaml", view.Identity.Key, err)
	}

	path := y.path(view.Identity.Key)
	tmp, err := os.CreateTemp(y.dir, ".snapshot-*")
	if err != nil {
		return errors.WrapIO("create", y.dir, err)
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
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.WrapIO("rename", path, err)
	}
	return nil
}

// SaveAll writes every view. It stops at the first failure.
func (y *YAML) SaveAll(ctx context.Context, views []vehicles.View) error {
	for _, v := range views {
		if err := y.Save(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// Identities lists the stored identity keys.
func (y *YAML) Identities() ([]string, error) {
	entries, err := os.ReadDir(y.dir)
	if err != nil {
		return nil, errors.WrapIO("readdir", y.dir, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, yamlExt) {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, yamlExt))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close is a no-op.
func (y *YAML) Close() error { return nil }
