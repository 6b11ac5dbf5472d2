package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/ralph-hdl/pkg/pass"
)

func key(s string) pass.Digest {
	return pass.NewHasher("test").String(s).Sum()
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(path)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, key("add"))
	require.NoError(t, err)
	assert.False(t, ok)

	want := Entry{Kernel: "add", NTL: "ntl add {\n}\n", Report: "critical path, cost 8:\n"}
	require.NoError(t, c.Put(ctx, key("add"), want))

	got, ok, err := c.Get(ctx, key("add"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	want.Report = "critical path, cost 9:\n"
	require.NoError(t, c.Put(ctx, key("add"), want))
	require.NoError(t, c.Put(ctx, key("inc"), Entry{Kernel: "inc"}))

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, c.Close())

	c, err = Open(path)
	require.NoError(t, err)
	defer c.Close()

	got, ok, err = c.Get(ctx, key("add"))
	require.NoError(t, err)
	require.True(t, ok, "entries survive reopening")
	assert.Equal(t, want, got)
}

func TestOpenFails(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "cache.db"))
	require.Error(t, err)
}
