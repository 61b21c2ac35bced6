package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"donation-tracker/internal/config"
	"donation-tracker/internal/donation"
)

func sampleEntry(writtenAt time.Time) Entry {
	return Entry{
		WrittenAt: writtenAt,
		Snapshot: donation.Snapshot{
			Donations: []donation.Record{
				{Hash: "0x2", TimestampMillis: 1700000100000, AmountWei: "2500000000000000000", Amount: 2.5, Sender: "0xb", Recipient: "0xw"},
				{Hash: "0x1", TimestampMillis: 1700000000000, AmountWei: "10000000000000000000", Amount: 10, Sender: "0xa", Recipient: "0xw"},
			},
			Total: 12.5,
		},
	}
}

func newMemoryStore() (*Store, datastore.Datastore) {
	ds := dssync.MutexWrap(datastore.NewMapDatastore())
	return NewStore(ds, zerolog.Nop()), ds
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore()

	_, ok := store.Read(ctx)
	require.False(t, ok)

	want := sampleEntry(time.UnixMilli(1700000200000))
	store.Write(ctx, want)

	got, ok := store.Read(ctx)
	require.True(t, ok)
	require.True(t, want.WrittenAt.Equal(got.WrittenAt))
	require.Equal(t, want.Donations, got.Donations)
	require.Equal(t, want.Total, got.Total)
}

func TestStoreOverwritesPreviousEntry(t *testing.T) {
	ctx := context.Background()
	store, _ := newMemoryStore()

	store.Write(ctx, sampleEntry(time.UnixMilli(1000)))
	store.Write(ctx, Entry{WrittenAt: time.UnixMilli(2000)})

	got, ok := store.Read(ctx)
	require.True(t, ok)
	require.Equal(t, int64(2000), got.WrittenAt.UnixMilli())
	require.Empty(t, got.Donations)
	require.Zero(t, got.Total)
}

func TestStoreReadRejectsBadPayloads(t *testing.T) {
	ctx := context.Background()

	payloads := map[string]string{
		"malformed json": `{"ts": 12`,
		"missing ts":     `{"data":{"donations":[],"totalBNB":1}}`,
		"string ts":      `{"ts":"yesterday","data":{"donations":[],"totalBNB":1}}`,
		"zero ts":        `{"ts":0,"data":{"donations":[],"totalBNB":1}}`,
		"not an object":  `[]`,
	}

	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			store, ds := newMemoryStore()
			require.NoError(t, ds.Put(ctx, entryKey, []byte(payload)))

			_, ok := store.Read(ctx)
			require.False(t, ok)
		})
	}
}

func TestStoreWireFormat(t *testing.T) {
	ctx := context.Background()
	store, ds := newMemoryStore()

	store.Write(ctx, Entry{WrittenAt: time.UnixMilli(42)})

	raw, err := ds.Get(ctx, entryKey)
	require.NoError(t, err)
	require.JSONEq(t, `{"ts":42,"data":{"donations":[],"totalBNB":0}}`, string(raw))
}

type failingDatastore struct {
	datastore.Datastore
}

func (failingDatastore) Put(context.Context, datastore.Key, []byte) error {
	return errors.New("quota exceeded")
}

func (failingDatastore) Get(context.Context, datastore.Key) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestStoreSwallowsBackendErrors(t *testing.T) {
	ctx := context.Background()
	store := NewStore(failingDatastore{Datastore: datastore.NewMapDatastore()}, zerolog.Nop())

	require.NotPanics(t, func() { store.Write(ctx, sampleEntry(time.Now())) })
	_, ok := store.Read(ctx)
	require.False(t, ok)
}

func TestOpenLevelDB(t *testing.T) {
	ctx := context.Background()
	ds, closeFn, err := Open(config.CacheConfig{Backend: "leveldb", Path: t.TempDir()})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, closeFn())
	}()

	store := NewStore(ds, zerolog.Nop())
	want := sampleEntry(time.UnixMilli(1700000200000))
	store.Write(ctx, want)

	got, ok := store.Read(ctx)
	require.True(t, ok)
	require.Equal(t, want.Donations, got.Donations)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	_, _, err := Open(config.CacheConfig{Backend: "redis"})
	require.Error(t, err)

	_, _, err = Open(config.CacheConfig{Backend: "leveldb"})
	require.Error(t, err)
}
