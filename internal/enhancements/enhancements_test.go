package enhancements

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt653/high-life-auto-sub000/pkg/enhancer"
	"github.com/matt653/high-life-auto-sub000/pkg/errors"
	"github.com/matt653/high-life-auto-sub000/pkg/vehicles"
)

func TestPrepare(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	e := &vehicles.Enhancement{
		Identity:    vehicles.VINIdentity("1G1JC12345"),
		Description: "Clean.",
		Overrides:   vehicles.Overrides{Mileage: vehicles.Ptr(42000)},
	}

	id, data, err := prepare(e, at)
	require.NoError(t, err)
	assert.Equal(t, e.Identity, id)
	assert.True(t, e.UpdatedAt.IsZero(), "input must not be modified")

	got, err := decode("1G1JC12345", data)
	require.NoError(t, err)
	assert.Equal(t, "Clean.", got.Description)
	assert.Equal(t, 42000, *got.Overrides.Mileage)
	assert.Equal(t, time.UTC, got.UpdatedAt.Location())
	assert.True(t, at.Equal(got.UpdatedAt))
}

func TestPrepareNormalizesVINKey(t *testing.T) {
	e := &vehicles.Enhancement{Identity: vehicles.Identity{Key: " 1g1jc12345", Kind: vehicles.IdentityVIN}}

	id, data, err := prepare(e, time.Now())
	require.NoError(t, err)
	assert.Equal(t, vehicles.VINIdentity("1G1JC12345"), id)
	assert.Equal(t, " 1g1jc12345", e.Identity.Key, "input must not be modified")

	got, err := decode(id.Key, data)
	require.NoError(t, err)
	assert.Equal(t, id, got.Identity)
}

func TestPrepareRejectsUnstableIdentity(t *testing.T) {
	_, _, err := prepare(&vehicles.Enhancement{Identity: vehicles.SyntheticIdentity(1, 2)}, time.Now())
	assert.ErrorIs(t, err, errors.ErrUnstableIdentity)

	_, _, err = prepare(nil, time.Now())
	assert.True(t, errors.IsValidationError(err))
}

func TestDecodeFillsMissingIdentity(t *testing.T) {
	got, err := decode("A100", []byte(`{"description":"legacy record"}`))
	require.NoError(t, err)
	assert.Equal(t, vehicles.StockIdentity("A100"), got.Identity)

	_, err = decode("A100", []byte(`{`))
	assert.Error(t, err)
}

// exerciseStore runs the Store contract against a live backend.
func exerciseStore(t *testing.T, store enhancer.Store) {
	t.Helper()
	ctx := context.Background()
	id := vehicles.StockIdentity("TEST-" + time.Now().Format("150405.000000"))

	got, err := store.FetchOne(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Put(ctx, &vehicles.Enhancement{Identity: id, Description: "first"}))
	require.NoError(t, store.Put(ctx, &vehicles.Enhancement{Identity: id, Description: "second"}))

	got, err = store.FetchOne(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Description)
	assert.False(t, got.UpdatedAt.IsZero())

	all, err := store.FetchAll(ctx)
	require.NoError(t, err)
	assert.Contains(t, all, id.Key)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("INVENTORY_REDIS_ADDR")
	if addr == "" {
		t.Skip("INVENTORY_REDIS_ADDR not set")
	}
	store, err := NewRedis(context.Background(), RedisOptions{Addr: addr, Key: "inventory:test:enhancements"})
	require.NoError(t, err)
	defer store.Close()
	defer store.rdb.Del(context.Background(), store.key)

	exerciseStore(t, store)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("INVENTORY_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INVENTORY_POSTGRES_DSN not set")
	}
	store, err := NewPostgres(context.Background(), dsn, 2)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestNewRedisRequiresAddress(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{})
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewPostgresRejectsBadDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), "postgres://%zz", 1)
	var cfgErr *errors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
