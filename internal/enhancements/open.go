package enhancements

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

// Config selects and configures an enhancement store.
type Config struct {
	Driver string

	// Path is the YAML file for the file driver.
	Path string

	// Fallback lists YAML files consulted, in order, when the primary store
	// has no record. They are never written.
	Fallback []string

	Redis RedisOptions

	PostgresDSN      string
	PostgresMaxConns int
}

// Open returns the adapter named by cfg.Driver and a closer for it.
// DriverNone returns enhancer.Nop. With fallback files configured the
// result is an enhancer.Chain whose writes reach the primary store.
func Open(ctx context.Context, cfg Config) (enhancer.Adapter, io.Closer, error) {
	primary, closer, err := openPrimary(ctx, cfg)
	if err != nil || len(cfg.Fallback) == 0 {
		return primary, closer, err
	}

	driver := strings.ToLower(cfg.Driver)
	if driver == "" {
		driver = DriverFile
	}
	layers := []enhancer.Layer{{Name: driver, Adapter: primary}}
	closers := multiCloser{closer}
	for _, path := range cfg.Fallback {
		f, err := OpenFile(path)
		if err != nil {
			_ = closers.Close()
			return nil, nil, errors.WrapResource("open", "fallback enhancements", path, err)
		}
		layers = append(layers, enhancer.Layer{Name: "fallback:" + filepath.Base(path), Adapter: f})
		closers = append(closers, f)
	}
	return enhancer.NewChain(layers...), closers, nil
}

func openPrimary(ctx context.Context, cfg Config) (enhancer.Adapter, io.Closer, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverFile, "":
		if cfg.Path == "" {
			return nil, nil, errors.NewConfigError("enhancements.path", "required for the file driver", nil)
		}
		f, err := OpenFile(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	case DriverMemory:
		return enhancer.NewMemory(), nopCloser{}, nil
	case DriverRedis:
		r, err := NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case DriverPostgres:
		p, err := NewPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case DriverNone:
		return enhancer.Nop(), nopCloser{}, nil
	default:
		return nil, nil, errors.NewConfigError("enhancements.driver", "unknown driver "+cfg.Driver, nil)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
