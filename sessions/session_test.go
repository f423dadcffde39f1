package sessions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/smartcane-client/identity"
	smerrors "github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/sessions"
	"github.com/jrsteele09/smartcane-client/sessions/storage"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	ctx     context.Context
	storage *storage.Memory
	store   *sessions.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	ctx := context.Background()
	mem := storage.NewMemory()
	store, err := sessions.New(ctx, mem)
	require.NoError(t, err)
	return &testFixture{ctx: ctx, storage: mem, store: store}
}

// failingStorage rejects every write.
type failingStorage struct {
	*storage.Memory
}

func (failingStorage) Set(context.Context, string, string) error { return errors.New("disk full") }
func (failingStorage) Remove(context.Context, string) error      { return errors.New("disk full") }

func TestNewRestoresTokens(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, mem.Set(ctx, storage.AccessTokenKey, "a1"))
	require.NoError(t, mem.Set(ctx, storage.RefreshTokenKey, "r1"))

	store, err := sessions.New(ctx, mem)
	require.NoError(t, err)
	snap := store.Snapshot()
	require.Equal(t, "a1", snap.AccessToken)
	require.Equal(t, "r1", snap.RefreshToken)
	require.Nil(t, snap.Identity)
	require.Equal(t, sessions.FetchingIdentity, snap.State)
	require.True(t, snap.IdentityLoading())
}

func TestSaveTokens(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.store.SaveTokens(f.ctx, "a1", "r1"))
	v, err := f.storage.Get(f.ctx, storage.AccessTokenKey)
	require.NoError(t, err)
	require.Equal(t, "a1", v)
	require.Equal(t, uint64(1), f.store.Generation())

	t.Run("empty refresh removes the persisted key", func(t *testing.T) {
		require.NoError(t, f.store.SaveTokens(f.ctx, "a2", ""))
		_, err := f.storage.Get(f.ctx, storage.RefreshTokenKey)
		require.ErrorIs(t, err, storage.ErrNotFound)
		require.Equal(t, "a2", f.store.Snapshot().AccessToken)
	})
}

func TestClear(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.SaveTokens(f.ctx, "a1", "r1"))
	require.True(t, f.store.SetIdentityIf(f.store.Generation(), &identity.Identity{Email: "a@b.c"}))
	require.Equal(t, sessions.Authenticated, f.store.Snapshot().State)

	require.NoError(t, f.store.Clear(f.ctx))

	snap := f.store.Snapshot()
	require.Empty(t, snap.AccessToken)
	require.Empty(t, snap.RefreshToken)
	require.Nil(t, snap.Identity)
	require.Equal(t, sessions.Unauthenticated, snap.State)
	_, err := f.storage.Get(f.ctx, storage.AccessTokenKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.storage.Get(f.ctx, storage.RefreshTokenKey)
	require.ErrorIs(t, err, storage.ErrNotFound)

	t.Run("memory is cleared when storage fails", func(t *testing.T) {
		ctx := context.Background()
		mem := storage.NewMemory()
		require.NoError(t, mem.Set(ctx, storage.AccessTokenKey, "a1"))
		store, err := sessions.New(ctx, failingStorage{mem})
		require.NoError(t, err)

		require.Error(t, store.Clear(ctx))
		snap := store.Snapshot()
		require.Empty(t, snap.AccessToken)
		require.Nil(t, snap.Identity)
	})
}

func TestSetIdentityIf(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("rejected without a token", func(t *testing.T) {
		require.False(t, f.store.SetIdentityIf(f.store.Generation(), &identity.Identity{Email: "x"}))
	})

	require.NoError(t, f.store.SaveTokens(f.ctx, "a1", "r1"))
	gen := f.store.Generation()

	t.Run("dropped after a token mutation", func(t *testing.T) {
		require.NoError(t, f.store.SaveTokens(f.ctx, "a2", "r2"))
		require.False(t, f.store.SetIdentityIf(gen, &identity.Identity{Email: "stale"}))
		require.Nil(t, f.store.Snapshot().Identity)
	})

	t.Run("dropped after clear", func(t *testing.T) {
		gen := f.store.Generation()
		require.NoError(t, f.store.Clear(f.ctx))
		require.False(t, f.store.SetIdentityIf(gen, &identity.Identity{Email: "stale"}))
		require.Nil(t, f.store.Snapshot().Identity)
	})
}

func TestSetState(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.SaveTokens(f.ctx, "a1", "r1"))
	gen := f.store.Generation()

	require.True(t, f.store.SetState(gen, sessions.Refreshing))
	require.Equal(t, sessions.Refreshing, f.store.Snapshot().State)
	require.False(t, f.store.SetState(gen-1, sessions.Authenticated))
	require.Equal(t, "refreshing", sessions.Refreshing.String())
}

func TestSubscribe(t *testing.T) {
	f := setupTestFixture(t)

	var seen []sessions.State
	unsubscribe := f.store.Subscribe(func(s sessions.Snapshot) {
		seen = append(seen, s.State)
	})

	require.NoError(t, f.store.SaveTokens(f.ctx, "a1", "r1"))
	require.True(t, f.store.SetIdentityIf(f.store.Generation(), &identity.Identity{Email: "a@b.c"}))
	require.NoError(t, f.store.Clear(f.ctx))
	require.Equal(t, []sessions.State{sessions.FetchingIdentity, sessions.Authenticated, sessions.Unauthenticated}, seen)

	unsubscribe()
	require.NoError(t, f.store.SaveTokens(f.ctx, "a2", ""))
	require.Len(t, seen, 3)
}

func TestTokenSource(t *testing.T) {
	f := setupTestFixture(t)
	ts := f.store.TokenSource()

	_, err := ts.Token()
	require.ErrorIs(t, err, smerrors.ErrNotAuthenticated)

	require.NoError(t, f.store.SaveTokens(f.ctx, "a1", "r1"))
	tok, err := ts.Token()
	require.NoError(t, err)
	require.Equal(t, "a1", tok.AccessToken)
	require.Equal(t, "r1", tok.RefreshToken)

	require.NoError(t, f.store.SaveTokens(f.ctx, "a2", "r2"))
	tok, err = ts.Token()
	require.NoError(t, err)
	require.Equal(t, "a2", tok.AccessToken)
}

func TestConditionalMutations(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.SaveTokens(f.ctx, "a1", "r1"))
	gen := f.store.Generation()

	newGen, ok, err := f.store.SaveTokensIf(f.ctx, gen, "a2", "r2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, gen+1, newGen)

	t.Run("stale save is ignored", func(t *testing.T) {
		_, ok, err := f.store.SaveTokensIf(f.ctx, gen, "a3", "r3")
		require.NoError(t, err)
		require.False(t, ok)
		require.Equal(t, "a2", f.store.Snapshot().AccessToken)
	})

	t.Run("stale clear is ignored", func(t *testing.T) {
		ok, err := f.store.ClearIf(f.ctx, gen)
		require.NoError(t, err)
		require.False(t, ok)
		require.True(t, f.store.Snapshot().HasToken())
	})

	t.Run("current clear applies", func(t *testing.T) {
		ok, err := f.store.ClearIf(f.ctx, newGen)
		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, f.store.Snapshot().HasToken())
	})
}
