package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/storage"
)

const wallet = "0x1234567890abcdef1234567890abcdef12345678"

func openManager(t *testing.T) storage.Manager {
	t.Helper()
	m, err := storage.Open(context.Background(), storage.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func assertRoundTrip(t *testing.T, s auth.TokenStorage) {
	t.Helper()
	ctx := context.Background()

	token, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Save(ctx, wallet))
	token, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, wallet, token)

	other := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	require.NoError(t, s.Save(ctx, other))
	token, _ = s.Load(ctx)
	assert.Equal(t, other, token)

	require.NoError(t, s.Delete(ctx))
	token, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Delete(ctx), "deleting an empty slot is not an error")
}

func TestFileTokenStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	assertRoundTrip(t, storage.NewFileTokenStorage(path))
}

func TestFileTokenStoragePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := storage.NewFileTokenStorage(path)
	require.NoError(t, s.Save(context.Background(), wallet))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileTokenStorageCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := storage.NewFileTokenStorage(path).Load(context.Background())
	assert.Error(t, err)
}

func TestDefaultTokenPathHonoursXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Equal(t, filepath.Join(dir, "estate", "session.json"), storage.DefaultTokenPath())
	assert.Equal(t, storage.DefaultTokenPath(), storage.NewFileTokenStorage("").Path())
}

func TestBunTokenStorageRoundTrip(t *testing.T) {
	m := openManager(t)
	assertRoundTrip(t, m.Sessions())
}

func TestBunTokenStorageSlotsAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := openManager(t)

	a := storage.NewBunTokenStorage(m.DB(), storage.WithSlotKey("a"))
	b := storage.NewBunTokenStorage(m.DB(), storage.WithSlotKey("b"))
	require.NoError(t, a.Save(ctx, wallet))

	token, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestActivityLogRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	m := openManager(t)
	log := m.Activity()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, log.Record(ctx, auth.ActivityEvent{
		EventType:  auth.ActivityEventLoginSuccess,
		Actor:      auth.ActorRef{ID: wallet, Type: "wallet"},
		UserID:     "1",
		Wallet:     wallet,
		Metadata:   map[string]any{"role": "admin"},
		OccurredAt: base,
	}))
	require.NoError(t, log.Record(ctx, auth.ActivityEvent{
		EventType:  auth.ActivityEventLogout,
		Wallet:     wallet,
		OccurredAt: base.Add(time.Minute),
	}))

	events, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, auth.ActivityEventLogout, events[0].EventType)
	assert.Equal(t, auth.ActivityEventLoginSuccess, events[1].EventType)
	assert.Equal(t, "admin", events[1].Metadata["role"])
	assert.Equal(t, "wallet", events[1].Actor.Type)

	events, err = log.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSessionStoreOverBunSlot(t *testing.T) {
	ctx := context.Background()
	m := openManager(t)

	store := auth.NewSessionStore(m.Sessions())
	require.NoError(t, store.Set(ctx, wallet))

	reloaded := auth.NewSessionStore(m.Sessions())
	token, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, wallet, token)
}

func TestNewTokenStorage(t *testing.T) {
	m := openManager(t)

	s, err := storage.NewTokenStorage(storage.DriverMemory, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &auth.MemoryStorage{}, s)

	s, err = storage.NewTokenStorage(storage.DriverFile, filepath.Join(t.TempDir(), "s.json"), nil)
	require.NoError(t, err)
	assert.IsType(t, &storage.FileTokenStorage{}, s)

	s, err = storage.NewTokenStorage(storage.DriverSQLite, "", m)
	require.NoError(t, err)
	assert.Same(t, m.Sessions(), s)

	_, err = storage.NewTokenStorage(storage.DriverSQLite, "", nil)
	assert.True(t, auth.IsValidation(err))

	_, err = storage.NewTokenStorage("redis", "", nil)
	assert.True(t, auth.IsValidation(err))
}

func TestManagerValidate(t *testing.T) {
	m := openManager(t)
	assert.NoError(t, m.Validate())
	assert.NotPanics(t, m.MustValidate)
}
