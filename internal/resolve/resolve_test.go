package resolve

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronLay10/zbxport/internal/model"
	"github.com/AaronLay10/zbxport/internal/storage/memstore"
	"github.com/AaronLay10/zbxport/internal/store"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	f, err := store.LoadFixture(filepath.Join("..", "store", "testdata", "store.yaml"))
	require.NoError(t, err)
	ms, err := memstore.FromFixture(f)
	require.NoError(t, err)
	return New(store.NewReader(ms))
}

func refError(t *testing.T, err error) *ReferenceError {
	t.Helper()
	require.ErrorIs(t, err, ErrReference)
	var re *ReferenceError
	require.True(t, errors.As(err, &re))
	return re
}

func TestForwardNames(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	groups, err := r.GroupNames(ctx, []string{"2", "90020", "2", ""})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"2": "Linux servers", "90020": "Templates/Network"}, groups)

	hosts, err := r.HostNames(ctx, []string{"10001", "10100"})
	require.NoError(t, err)
	assert.Equal(t, "Template OS Linux", hosts["10001"])
	assert.Equal(t, "web01", hosts["10100"])
}

func TestForwardFailsOnHiddenOrMissing(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	_, err := r.HostNames(ctx, []string{"10100", "10200"})
	re := refError(t, err)
	assert.Equal(t, model.KindHost, re.Kind)
	assert.Equal(t, "10200", re.Key)
	assert.False(t, re.Ambiguous)

	_, err = r.ValueMapNames(ctx, []string{"701"})
	assert.Equal(t, "701", refError(t, err).Key)

	_, err = r.Forward(ctx, model.KindImage, "0")
	refError(t, err)
}

func TestForwardItemAndTrigger(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	key, err := r.Forward(ctx, model.KindItem, "20001")
	require.NoError(t, err)
	assert.Equal(t, "host=web01, key=system.cpu.load", key.String())

	key, err = r.Forward(ctx, model.KindTrigger, "30001")
	require.NoError(t, err)
	assert.Equal(t, "High load on {HOST.NAME}", key.Get("description"))
	assert.Equal(t, "{web01:system.cpu.load.last()}>{$LOAD_WARN}", key.Get("expression"))
	assert.Empty(t, key.Get("recovery_expression"))

	// The host of the item is hidden, so the item does not resolve either.
	_, err = r.Forward(ctx, model.KindItem, "20200")
	refError(t, err)
}

func TestBackwardIDs(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	ids, err := r.HostIDs(ctx, []string{"web01", "Template OS Linux", "web01"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"web01": "10100", "Template OS Linux": "10001"}, ids)

	_, err = r.HostIDs(ctx, []string{"secret01"})
	assert.Equal(t, "secret01", refError(t, err).Key)

	id, err := r.Backward(ctx, model.KindProxy, model.NaturalKey{{Name: "name", Value: "proxy-east"}})
	require.NoError(t, err)
	assert.Equal(t, "10", id)

	empty, err := r.GroupIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBackwardItems(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	refs := []model.ItemRef{
		{Host: "web01", Key: "cpu.idle"},
		{Host: "Template OS Linux", Key: "agent.ping"},
	}
	ids, err := r.ItemIDs(ctx, refs)
	require.NoError(t, err)
	assert.Equal(t, "20004", ids[refs[0]])
	assert.Equal(t, "20010", ids[refs[1]])

	// Keys are scoped by host.
	_, err = r.ItemIDs(ctx, []model.ItemRef{{Host: "web01", Key: "agent.ping"}})
	assert.Equal(t, "host=web01, key=agent.ping", refError(t, err).Key)
}

func TestBackwardAmbiguous(t *testing.T) {
	ctx := context.Background()
	ms := memstore.New()
	rows, err := store.NewRows().
		Group(&model.Group{ID: "1", Name: "Dup"}).
		Group(&model.Group{ID: "2", Name: "Dup"}).
		Build()
	require.NoError(t, err)
	require.NoError(t, ms.Put(ctx, rows...))

	_, err = New(store.NewReader(ms)).GroupIDs(ctx, []string{"Dup"})
	re := refError(t, err)
	assert.True(t, re.Ambiguous)
	assert.Contains(t, re.Error(), "more than one object")
}

func TestExpandExpression(t *testing.T) {
	fns := []model.Function{
		{ID: "1", ItemID: "10", Name: "avg", Parameter: "5m"},
		{ID: "2", ItemID: "11", Name: "last"},
	}
	items := map[string]model.ItemRef{
		"10": {Host: "h", Key: "cpu[all]"},
		"11": {Host: "h", Key: "mem"},
	}

	got, err := ExpandExpression("{1}>{$MAX} or {2}=0", fns, items)
	require.NoError(t, err)
	assert.Equal(t, "{h:cpu[all].avg(5m)}>{$MAX} or {h:mem.last()}=0", got)

	got, err = ExpandExpression("", fns, items)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ExpandExpression("{3}>0", fns, items)
	assert.Equal(t, "3", refError(t, err).Key)
}
