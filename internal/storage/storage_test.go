package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/zbxport/internal/config"
	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/storage/memstore"
	"github.com/AaronLay10/zbxport/internal/storage/sqlstore"
	"github.com/AaronLay10/zbxport/internal/store"
)

var fixturePath = filepath.Join("..", "store", "testdata", "store.yaml")

func TestOpenFixture(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendFixture
	cfg.Store.Fixture = fixturePath

	b, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &memstore.Store{}, b)

	hosts, err := store.NewReader(b).Hosts(context.Background(), []string{"10100", "10200"})
	require.NoError(t, err)
	assert.Contains(t, hosts, "10100")
	assert.NotContains(t, hosts, "10200", "hidden host must stay invisible")
}

func TestOpenFixtureMissingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendFixture
	cfg.Store.Fixture = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenSQLiteSeedAndRead(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "zbxport.db")

	b, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer b.Close()
	_, ok := b.(Auditor)
	assert.True(t, ok, "sqlite backend keeps the audit table")
	assert.IsType(t, &sqlstore.Store{}, b)

	f, err := store.LoadFixture(fixturePath)
	require.NoError(t, err)
	n, err := Seed(ctx, b, f)
	require.NoError(t, err)
	assert.Positive(t, n)

	r := store.NewReader(b)
	groups, err := r.Groups(ctx, []string{"90020"})
	require.NoError(t, err)
	require.Contains(t, groups, "90020")
	assert.Equal(t, "Templates/Network", groups["90020"].Name)

	// SQL backends have no visibility model: seeded hidden rows are readable.
	hosts, err := r.Hosts(ctx, []string{"10200"})
	require.NoError(t, err)
	assert.Contains(t, hosts, "10200")

	items, err := r.ItemsByOwner(ctx, []string{"10100"})
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestSeedIsRepeatable(t *testing.T) {
	ctx := context.Background()
	b := memstore.New()
	f, err := store.LoadFixture(fixturePath)
	require.NoError(t, err)

	first, err := Seed(ctx, b, f)
	require.NoError(t, err)
	second, err := Seed(ctx, b, f)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	rows, err := b.ByID(ctx, model.KindGroup, []string{"2", "90020"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "redis"

	_, err := Open(context.Background(), cfg)
	assert.ErrorContains(t, err, `unknown store backend "redis"`)
}

func TestHealthyFollowsClose(t *testing.T) {
	ctx := context.Background()
	b := memstore.New()
	assert.True(t, Healthy(ctx, b, time.Second))
	require.NoError(t, b.Close())
	assert.False(t, Healthy(ctx, b, time.Second))
}
