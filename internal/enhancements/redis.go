package enhancements

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

// DefaultRedisKey is the hash holding all enhancement records.
const DefaultRedisKey = "inventory:enhancements"

// Redis keeps every enhancement record as a JSON field of one hash.
type Redis struct {
	rdb *goredis.Client
	key string
	now func() time.Time
}

// RedisOptions configures a Redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	if opts.Addr == "" {
		return nil, errors.NewConfigError("redis", "missing address", nil)
	}
	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.WrapStore("redis", "ping", opts.Addr, err)
	}

	return &Redis{rdb: rdb, key: opts.Key, now: time.Now}, nil
}

// FetchOne returns the record for id, or nil when none exists.
func (r *Redis) FetchOne(ctx context.Context, id vehicles.Identity) (*vehicles.Enhancement, error) {
	data, err := r.rdb.HGet(ctx, r.key, id.Key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WrapStore("redis", "hget", id.Key, err)
	}
	return decode(id.Key, data)
}

// FetchAll returns every record keyed by identity.
func (r *Redis) FetchAll(ctx context.Context) (map[string]*vehicles.Enhancement, error) {
	raw, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, errors.WrapStore("redis", "hgetall", r.key, err)
	}
	out := make(map[string]*vehicles.Enhancement, len(raw))
	for key, data := range raw {
		e, err := decode(key, []byte(data))
		if err != nil {
			return nil, err
		}
		out[key] = e
	}
	return out, nil
}

// Put stores e, replacing any previous record for its identity.
func (r *Redis) Put(ctx context.Context, e *vehicles.Enhancement) error {
	id, data, err := prepare(e, r.now())
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.key, id.Key, data).Err(); err != nil {
		return errors.WrapStore("redis", "hset", id.Key, err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
