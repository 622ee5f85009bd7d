package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLookup_Empty(t *testing.T) {
	l := openTest(t)

	_, ok, err := l.Lookup(context.Background(), "venues", "data/venues.csv", "import")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordAndLookup(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := l.Record(ctx, Entry{Entity: "venues", File: "venues.csv", Checksum: "old", FinishedAt: base})
	require.NoError(t, err)
	rec, err := l.Record(ctx, Entry{Entity: "venues", File: "venues.csv", Checksum: "new", Rows: 3, Written: 2, Filtered: 1, FinishedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "import", rec.Mode)

	_, err = l.Record(ctx, Entry{Entity: "venues", File: "venues.csv", Checksum: "synced", Mode: "sync", FinishedAt: base.Add(2 * time.Hour)})
	require.NoError(t, err)

	got, ok, err := l.Lookup(ctx, "venues", "venues.csv", "import")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Checksum)
	assert.Equal(t, 3, got.Rows)
	assert.Equal(t, 2, got.Written)
	assert.Equal(t, 1, got.Filtered)
	assert.True(t, got.FinishedAt.Equal(base.Add(time.Hour)))
}

func TestList(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, entity := range []string{"venues", "reviews", "drinks"} {
		_, err := l.Record(ctx, Entry{Entity: entity, File: entity + ".csv", Checksum: "x", FinishedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	all, err := l.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "drinks", all[0].Entity)

	two, err := l.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestOpen_Memory(t *testing.T) {
	l, err := Open(":memory:")
	require.NoError(t, err)
	defer l.Close()

	_, err = l.Record(context.Background(), Entry{Entity: "venues", File: "v.csv", Checksum: "c"})
	require.NoError(t, err)

	entries, err := l.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
