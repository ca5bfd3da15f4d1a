package cache

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/token"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestManager(store Store) *Manager {
	return NewManager(Config{
		Store:     store,
		SessionID: "session-1",
		Logger:    testLogger(),
	})
}

func rec(id, name, page string) *extract.ComponentRecord {
	return &extract.ComponentRecord{
		ID:   id,
		Name: name,
		Kind: extract.KindDefinition,
		Page: page,
	}
}

// --- key derivation ---

func TestKeyIgnoresPageOrder(t *testing.T) {
	a := Key(token.CategoryAll, []string{"Home", "Settings"})
	b := Key(token.CategoryAll, []string{"Settings", "Home"})
	assert.Equal(t, a, b)
}

func TestKeyDistinguishesScopes(t *testing.T) {
	base := Key(token.CategoryAll, []string{"Home"})

	assert.NotEqual(t, base, Key(token.CategoryColor, []string{"Home"}))
	assert.NotEqual(t, base, Key(token.CategoryAll, []string{"Settings"}))
	assert.NotEqual(t, base, Key(token.CategoryAll, []string{"Home", "Settings"}))
}

// --- persistent tier ---

func TestTryGetMissOnEmptyCache(t *testing.T) {
	m := newTestManager(NewMemoryStore())

	records, ok := m.TryGet(context.Background(), token.CategoryAll, []string{"Home"}, "fp-1")
	assert.False(t, ok)
	assert.Nil(t, records)

	stats := m.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestSaveThenTryGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	saved := []*extract.ComponentRecord{
		rec("1:1", "Button", "Home"),
		rec("1:2", "Card", "Home"),
	}
	m.Save(ctx, token.CategoryAll, []string{"Home"}, "fp-1", saved)

	records, ok := m.TryGet(ctx, token.CategoryAll, []string{"Home"}, "fp-1")
	require.True(t, ok)
	require.Len(t, records, 2)
	assert.Equal(t, "Button", records[0].Name)
	assert.Equal(t, "Card", records[1].Name)
	assert.Equal(t, int64(1), m.Stats().Hits)
}

func TestTryGetFingerprintMismatchDeletesEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(store)

	m.Save(ctx, token.CategoryAll, []string{"Home"}, "fp-1", []*extract.ComponentRecord{rec("1:1", "Button", "Home")})

	_, ok := m.TryGet(ctx, token.CategoryAll, []string{"Home"}, "fp-2")
	assert.False(t, ok)

	// The stale entry must be gone, not just skipped.
	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestTryGetSessionMismatchDeletesEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := NewManager(Config{Store: store, SessionID: "session-1", Logger: testLogger()})
	first.Save(ctx, token.CategoryAll, []string{"Home"}, "fp-1", []*extract.ComponentRecord{rec("1:1", "Button", "Home")})

	second := NewManager(Config{Store: store, SessionID: "session-2", Logger: testLogger()})
	_, ok := second.TryGet(ctx, token.CategoryAll, []string{"Home"}, "fp-1")
	assert.False(t, ok)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestTryGetExpiredEntryMissesButStays(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(store)

	base := time.Now()
	m.now = func() time.Time { return base }
	m.Save(ctx, token.CategoryAll, []string{"Home"}, "fp-1", []*extract.ComponentRecord{rec("1:1", "Button", "Home")})

	m.now = func() time.Time { return base.Add(DefaultTTL + time.Second) }
	_, ok := m.TryGet(ctx, token.CategoryAll, []string{"Home"}, "fp-1")
	assert.False(t, ok)

	// Expired entries are overwritten by the next save, not reaped here.
	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestTryGetCorruptEntryDeletedAndMisses(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(store)

	key := Key(token.CategoryAll, []string{"Home"})
	require.NoError(t, store.Set(ctx, key, []byte("not json")))

	_, ok := m.TryGet(ctx, token.CategoryAll, []string{"Home"}, "fp-1")
	assert.False(t, ok)

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

// --- per-page assembly ---

func TestTryGetAssemblesSubsetScopeFromPageMemos(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	m.Save(ctx, token.CategoryAll, []string{"Home", "Settings"}, "fp-1", []*extract.ComponentRecord{
		rec("1:1", "Button", "Home"),
		rec("2:1", "Toggle", "Settings"),
	})

	records, ok := m.TryGet(ctx, token.CategoryAll, []string{"Settings"}, "fp-1")
	require.True(t, ok)
	require.Len(t, records, 1)
	assert.Equal(t, "Toggle", records[0].Name)
}

func TestTryGetAssemblyPreservesRequestedPageOrder(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	m.Save(ctx, token.CategoryAll, []string{"Home"}, "fp-1", []*extract.ComponentRecord{rec("1:1", "Button", "Home")})
	m.Save(ctx, token.CategoryAll, []string{"Settings"}, "fp-1", []*extract.ComponentRecord{rec("2:1", "Toggle", "Settings")})

	records, ok := m.TryGet(ctx, token.CategoryAll, []string{"Settings", "Home"}, "fp-1")
	require.True(t, ok)
	require.Len(t, records, 2)
	assert.Equal(t, "Toggle", records[0].Name)
	assert.Equal(t, "Button", records[1].Name)
}

func TestTryGetAssemblyCoversEmptyPages(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	// Settings produced no records but was part of the scanned scope.
	m.Save(ctx, token.CategoryAll, []string{"Home", "Settings"}, "fp-1", []*extract.ComponentRecord{
		rec("1:1", "Button", "Home"),
	})

	records, ok := m.TryGet(ctx, token.CategoryAll, []string{"Settings"}, "fp-1")
	require.True(t, ok)
	assert.Empty(t, records)
}

func TestTryGetAssemblyRejectsChangedFingerprint(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	m.Save(ctx, token.CategoryAll, []string{"Home", "Settings"}, "fp-1", []*extract.ComponentRecord{
		rec("1:1", "Button", "Home"),
	})

	_, ok := m.TryGet(ctx, token.CategoryAll, []string{"Home"}, "fp-2")
	assert.False(t, ok)
}

func TestTryGetAssemblyRequiresEveryPage(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	m.Save(ctx, token.CategoryAll, []string{"Home"}, "fp-1", []*extract.ComponentRecord{rec("1:1", "Button", "Home")})

	_, ok := m.TryGet(ctx, token.CategoryAll, []string{"Home", "Settings"}, "fp-1")
	assert.False(t, ok)
}

func TestTryGetAssemblyIsCategoryScoped(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	m.Save(ctx, token.CategoryColor, []string{"Home"}, "fp-1", []*extract.ComponentRecord{rec("1:1", "Button", "Home")})

	_, ok := m.TryGet(ctx, token.CategorySpacing, []string{"Home"}, "fp-1")
	assert.False(t, ok)
}

// --- invalidation ---

func TestInvalidateRemovesIntersectingScopes(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	m.Save(ctx, token.CategoryAll, []string{"Home", "Settings"}, "fp-1", []*extract.ComponentRecord{rec("1:1", "Button", "Home")})
	m.Save(ctx, token.CategoryAll, []string{"Archive"}, "fp-1", []*extract.ComponentRecord{rec("3:1", "Old", "Archive")})

	removed := m.Invalidate(ctx, []string{"Settings"})
	assert.Equal(t, 1, removed)

	_, ok := m.TryGet(ctx, token.CategoryAll, []string{"Home", "Settings"}, "fp-1")
	assert.False(t, ok, "scope touching an invalidated page must miss")

	records, ok := m.TryGet(ctx, token.CategoryAll, []string{"Archive"}, "fp-1")
	require.True(t, ok, "unrelated scope must survive")
	assert.Len(t, records, 1)
}

func TestInvalidatePurgesPageMemos(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(NewMemoryStore())

	m.Save(ctx, token.CategoryAll, []string{"Home", "Settings"}, "fp-1", []*extract.ComponentRecord{
		rec("1:1", "Button", "Home"),
		rec("2:1", "Toggle", "Settings"),
	})
	m.Invalidate(ctx, []string{"Settings"})

	// Settings memo is gone, Home survives.
	_, ok := m.TryGet(ctx, token.CategoryAll, []string{"Settings"}, "fp-1")
	assert.False(t, ok)
	records, ok := m.TryGet(ctx, token.CategoryAll, []string{"Home"}, "fp-1")
	require.True(t, ok)
	assert.Len(t, records, 1)
}

func TestClearDropsEverything(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := newTestManager(store)

	m.Save(ctx, token.CategoryAll, []string{"Home"}, "fp-1", []*extract.ComponentRecord{rec("1:1", "Button", "Home")})
	m.Save(ctx, token.CategoryColor, []string{"Settings"}, "fp-1", []*extract.ComponentRecord{rec("2:1", "Toggle", "Settings")})

	removed := m.Clear(ctx)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, store.Len())

	_, ok := m.TryGet(ctx, token.CategoryAll, []string{"Home"}, "fp-1")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Stats().MemoryLen)
}

// --- defaults ---

func TestNewManagerFillsDefaults(t *testing.T) {
	m := NewManager(Config{})

	assert.NotEmpty(t, m.SessionID())
	assert.Equal(t, DefaultTTL, m.ttl)
	assert.NotNil(t, m.store)

	other := NewManager(Config{})
	assert.NotEqual(t, m.SessionID(), other.SessionID(), "each manager gets its own session")
}
