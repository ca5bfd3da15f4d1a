// Package cache keeps extraction results across scans so repeated
// queries against an unchanged document skip the expensive scene walk.
//
// Two tiers cooperate: a persistent Store holds full scan-scope entries
// that survive process restarts, and a small in-process LRU memoizes
// per-page results for the current session so overlapping scopes can be
// assembled without touching the store. An entry is served only while
// its document fingerprint and session still match and it is younger
// than the TTL. Cache failures are never fatal; every read error
// degrades to a miss and every write error to a no-op.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tokenlens/tokenlens/pkg/extract"
	"github.com/tokenlens/tokenlens/pkg/token"
)

const (
	// DefaultTTL bounds how long a cached scan is served. Documents are
	// edited live; five minutes keeps results fresh without rescanning
	// on every query.
	DefaultTTL = 5 * time.Minute

	// DefaultMemorySize caps the per-page memo LRU.
	DefaultMemorySize = 64
)

// Entry is one cached extraction result together with everything needed
// to decide whether it may still be served.
type Entry struct {
	Records             []*extract.ComponentRecord `json:"records"`
	CapturedAt          time.Time                  `json:"captured_at"`
	DocumentFingerprint string                     `json:"document_fingerprint"`
	SessionID           string                     `json:"session_id"`
	TokenCategory       token.Category             `json:"token_category"`
	PageScope           []string                   `json:"page_scope"`
}

// Config configures a Manager. Zero values select an in-memory store, a
// fresh session ID and the default TTL.
type Config struct {
	Store      Store
	SessionID  string
	TTL        time.Duration
	MemorySize int
	Logger     *slog.Logger
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	MemoryLen int    `json:"memory_len"`
	SessionID string `json:"session_id"`
}

// Manager coordinates the persistent store and the in-process page memo.
type Manager struct {
	store   Store
	session string
	ttl     time.Duration
	logger  *slog.Logger
	mem     *expirable.LRU[string, *Entry]

	now func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewManager builds a Manager from cfg, filling in defaults.
func NewManager(cfg Config) *Manager {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MemorySize <= 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		store:   cfg.Store,
		session: cfg.SessionID,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
		mem:     expirable.NewLRU[string, *Entry](cfg.MemorySize, nil, cfg.TTL),
		now:     time.Now,
	}
}

// SessionID returns the session this manager writes entries under.
func (m *Manager) SessionID() string { return m.session }

// Key derives the persistent cache key for a scan scope. Page order is
// immaterial: names are sorted before hashing, so the same scope always
// maps to the same key.
func Key(category token.Category, pages []string) string {
	sorted := slices.Clone(pages)
	slices.Sort(sorted)
	h := fnv.New64a()
	for _, name := range sorted {
		h.Write([]byte(name))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("scan:%s:%016x", category, h.Sum64())
}

func pageKey(category token.Category, page string) string {
	return fmt.Sprintf("page:%s:%s", category, page)
}

// TryGet returns cached records for the scope, or ok=false on a miss.
// The persistent store is consulted first; when it cannot serve the
// exact scope, records are assembled from per-page memos if every page
// in the scope is present and valid. Pages are concatenated in the
// order given.
//
// A persistent entry whose fingerprint or session no longer matches is
// deleted on sight. An entry that merely exceeded the TTL is left in
// place; the next Save overwrites it.
func (m *Manager) TryGet(ctx context.Context, category token.Category, pages []string, fingerprint string) ([]*extract.ComponentRecord, bool) {
	key := Key(category, pages)

	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if ok {
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			m.logger.Warn("cache entry corrupt, dropping", "key", key, "error", err)
			m.deleteKey(ctx, key)
		} else {
			switch {
			case entry.DocumentFingerprint != fingerprint:
				m.logger.Debug("cache entry stale: document changed", "key", key)
				m.deleteKey(ctx, key)
			case entry.SessionID != m.session:
				m.logger.Debug("cache entry stale: session changed", "key", key)
				m.deleteKey(ctx, key)
			case m.now().Sub(entry.CapturedAt) >= m.ttl:
				m.logger.Debug("cache entry expired", "key", key)
			default:
				m.hits.Add(1)
				return entry.Records, true
			}
		}
	}

	if records, ok := m.assemble(category, pages, fingerprint); ok {
		m.hits.Add(1)
		return records, true
	}

	m.misses.Add(1)
	return nil, false
}

// assemble serves a scope from per-page memos when every page is
// present and valid.
func (m *Manager) assemble(category token.Category, pages []string, fingerprint string) ([]*extract.ComponentRecord, bool) {
	if len(pages) == 0 {
		return nil, false
	}
	var records []*extract.ComponentRecord
	for _, page := range pages {
		entry, ok := m.mem.Get(pageKey(category, page))
		if !ok || entry.DocumentFingerprint != fingerprint || m.now().Sub(entry.CapturedAt) >= m.ttl {
			return nil, false
		}
		records = append(records, entry.Records...)
	}
	m.logger.Debug("cache scope assembled from page memos", "category", string(category), "pages", len(pages))
	if records == nil {
		records = []*extract.ComponentRecord{}
	}
	return records, true
}

// Save stores records for the scope in both tiers. Pages that produced
// no records still get a memo entry so a later scope containing them
// can be assembled.
func (m *Manager) Save(ctx context.Context, category token.Category, pages []string, fingerprint string, records []*extract.ComponentRecord) {
	scope := slices.Clone(pages)
	slices.Sort(scope)

	captured := m.now()
	entry := Entry{
		Records:             records,
		CapturedAt:          captured,
		DocumentFingerprint: fingerprint,
		SessionID:           m.session,
		TokenCategory:       category,
		PageScope:           scope,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		m.logger.Warn("cache entry encode failed", "error", err)
		return
	}
	key := Key(category, pages)
	if err := m.store.Set(ctx, key, raw); err != nil {
		m.logger.Warn("cache write failed", "key", key, "error", err)
	}

	byPage := make(map[string][]*extract.ComponentRecord, len(pages))
	for _, rec := range records {
		byPage[rec.Page] = append(byPage[rec.Page], rec)
	}
	for _, page := range pages {
		m.mem.Add(pageKey(category, page), &Entry{
			Records:             byPage[page],
			CapturedAt:          captured,
			DocumentFingerprint: fingerprint,
			SessionID:           m.session,
			TokenCategory:       category,
			PageScope:           []string{page},
		})
	}
}

// Invalidate deletes every entry whose page scope intersects pages and
// returns how many persistent entries were removed. Corrupt entries are
// removed as well.
func (m *Manager) Invalidate(ctx context.Context, pages []string) int {
	removed := 0
	keys, err := m.store.ListKeys(ctx)
	if err != nil {
		m.logger.Warn("cache key listing failed", "error", err)
	}
	for _, key := range keys {
		raw, ok, err := m.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			m.deleteKey(ctx, key)
			removed++
			continue
		}
		if intersects(entry.PageScope, pages) {
			m.deleteKey(ctx, key)
			removed++
		}
	}
	for _, key := range m.mem.Keys() {
		if entry, ok := m.mem.Get(key); ok && intersects(entry.PageScope, pages) {
			m.mem.Remove(key)
		}
	}
	if removed > 0 {
		m.logger.Info("cache invalidated", "pages", len(pages), "entries", removed)
	}
	return removed
}

// Clear drops every entry from both tiers and returns how many
// persistent entries were removed.
func (m *Manager) Clear(ctx context.Context) int {
	removed := 0
	keys, err := m.store.ListKeys(ctx)
	if err != nil {
		m.logger.Warn("cache key listing failed", "error", err)
	}
	for _, key := range keys {
		m.deleteKey(ctx, key)
		removed++
	}
	m.mem.Purge()
	m.logger.Info("cache cleared", "entries", removed)
	return removed
}

// Stats returns hit/miss counters and memo occupancy.
func (m *Manager) Stats() Stats {
	return Stats{
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		MemoryLen: m.mem.Len(),
		SessionID: m.session,
	}
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) deleteKey(ctx context.Context, key string) {
	if err := m.store.Delete(ctx, key); err != nil {
		m.logger.Warn("cache delete failed", "key", key, "error", err)
	}
}

func intersects(scope, pages []string) bool {
	for _, p := range pages {
		if slices.Contains(scope, p) {
			return true
		}
	}
	return false
}
