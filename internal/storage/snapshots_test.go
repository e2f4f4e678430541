package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyush06/BSE-closing-prices---quarterly/internal/bse"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/common"
	"github.com/keyush06/BSE-closing-prices---quarterly/internal/interfaces"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	store, err := NewSnapshotStore(common.StorageConfig{InMemory: true}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)

	snapshot := &interfaces.Snapshot{
		ScripCode:   "500400",
		StartMonth:  1,
		StartYear:   2020,
		CollectedAt: time.Now().UTC().Truncate(time.Second),
		Rows: []bse.QuarterRow{
			{QuarterEnd: "mar 2024", Close: decimal.RequireFromString("1234.50")},
			{QuarterEnd: "dec 2023", Close: decimal.RequireFromString("1100.00")},
		},
	}

	require.NoError(t, store.Put(snapshot))

	got, found, err := store.Get("500400")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, snapshot.ScripCode, got.ScripCode)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "mar 2024", got.Rows[0].QuarterEnd)
	assert.True(t, got.Rows[0].Close.Equal(decimal.RequireFromString("1234.50")))
}

func TestSnapshotMissing(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.Get("999999")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSnapshotReplace(t *testing.T) {
	store := newTestStore(t)

	first := &interfaces.Snapshot{ScripCode: "500325", CollectedAt: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, store.Put(first))

	second := &interfaces.Snapshot{
		ScripCode:   "500325",
		CollectedAt: time.Now(),
		Rows:        []bse.QuarterRow{{QuarterEnd: "jun 2024", Close: decimal.NewFromInt(10)}},
	}
	require.NoError(t, store.Put(second))

	got, found, err := store.Get("500325")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got.Rows, 1)
}
