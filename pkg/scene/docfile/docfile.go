// Package docfile serves a design-document JSON export as a scene.Adapter
// without decoding the whole file upfront. The file is memory-mapped (with
// a ReadFile fallback), page locations are discovered with one cheap path
// scan, and each page subtree is unmarshaled lazily on first load and
// memoized for the life of the handle.
//
// Large documents are the point: a 100+ page export only pays full decode
// cost for the pages a scan actually visits.
package docfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/tidwall/gjson"

	"github.com/tokenlens/tokenlens/pkg/scene"
)

// Config controls how a document file is opened.
type Config struct {
	// MaxSizeMB refuses files larger than this many megabytes. 0 means
	// unlimited.
	MaxSizeMB int

	// Logger for mmap fallback warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig allows documents up to 512 MB, which covers every export
// seen in practice with room to spare.
func DefaultConfig() Config {
	return Config{MaxSizeMB: 512}
}

// Stats reports how the handle has been used so far.
type Stats struct {
	SizeBytes    int64
	Mapped       bool
	PageCount    int
	PagesLoaded  int
	PageLoads    int64
	NodesIndexed int
}

// File is an open document handle. It implements scene.Adapter,
// scene.AnnotationStore and scene.VariableResolver.
//
// Thread-safe: page loads use double-checked locking so concurrent
// readers share one decode.
type File struct {
	path      string
	logger    *slog.Logger
	maxSizeMB int

	data   mmap.MMap
	file   *os.File
	mapped bool

	name      string
	pageInfos []scene.PageInfo
	pageRaw   []string
	variables map[string]scene.Variable

	mu        sync.RWMutex
	pages     map[string]*scene.Node
	nodesByID map[string]*scene.Node
	pageLoads int64
	closed    bool
}

// Open maps the document file and scans its page table. The returned
// handle must be closed; node trees it hands out are owned by it and
// become invalid after Close.
func Open(path string, config Config) (*File, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	data, f, mapped, err := openAndMap(path, config.MaxSizeMB, logger)
	if err != nil {
		return nil, err
	}

	df := &File{
		path:      path,
		logger:    logger,
		maxSizeMB: config.MaxSizeMB,
		data:      data,
		file:      f,
		mapped:    mapped,
		pages:     make(map[string]*scene.Node),
		nodesByID: make(map[string]*scene.Node),
	}

	st, err := scanStructure(path, df.data)
	if err != nil {
		df.Close()
		return nil, err
	}
	df.setStructure(st)
	return df, nil
}

// openAndMap opens and memory-maps one document file, falling back to a
// plain read when the platform refuses the mapping. The returned file
// handle is nil in fallback mode.
func openAndMap(path string, maxSizeMB int, logger *slog.Logger) (mmap.MMap, *os.File, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to open document %q: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, false, fmt.Errorf("failed to stat document %q: %w", path, err)
	}
	if maxSizeMB > 0 {
		maxBytes := int64(maxSizeMB) * 1024 * 1024
		if stat.Size() > maxBytes {
			f.Close()
			return nil, nil, false, fmt.Errorf("document %q is %d bytes, over the %d MB limit", path, stat.Size(), maxSizeMB)
		}
	}
	if stat.Size() == 0 {
		f.Close()
		return nil, nil, false, fmt.Errorf("document %q is empty", path)
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		logger.Warn("mmap failed, reading document into memory",
			"path", path,
			"size", stat.Size(),
			"error", err)
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			f.Close()
			return nil, nil, false, fmt.Errorf("mmap and fallback read both failed for %q: mmap: %v, read: %w", path, err, readErr)
		}
		f.Close()
		return mmap.MMap(raw), nil, false, nil
	}
	return data, f, true, nil
}

// structure is everything one cheap pass over the raw bytes yields: the
// document name, the page table and the variable table. Page contents
// stay untouched.
type structure struct {
	name      string
	pageInfos []scene.PageInfo
	pageRaw   []string
	variables map[string]scene.Variable
}

func scanStructure(path string, data []byte) (*structure, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("document %q is not valid JSON", path)
	}

	st := &structure{variables: make(map[string]scene.Variable)}
	st.name = gjson.GetBytes(data, "name").String()

	children := gjson.GetBytes(data, "document.children")
	if !children.Exists() {
		return nil, fmt.Errorf("document %q has no document.children page list", path)
	}
	children.ForEach(func(_, page gjson.Result) bool {
		st.pageInfos = append(st.pageInfos, scene.PageInfo{
			ID:   page.Get("id").String(),
			Name: page.Get("name").String(),
		})
		// Raw re-slices the mapped bytes; no copy until unmarshal.
		st.pageRaw = append(st.pageRaw, page.Raw)
		return true
	})

	gjson.GetBytes(data, "variables").ForEach(func(key, v gjson.Result) bool {
		st.variables[key.String()] = scene.Variable{
			ID:   v.Get("id").String(),
			Name: v.Get("name").String(),
		}
		return true
	})
	return st, nil
}

func (df *File) setStructure(st *structure) {
	df.name = st.name
	df.pageInfos = st.pageInfos
	df.pageRaw = st.pageRaw
	df.variables = st.variables
}

// DocumentName returns the document's display name.
func (df *File) DocumentName() string {
	df.mu.RLock()
	defer df.mu.RUnlock()
	return df.name
}

// Pages returns the page table in document order.
func (df *File) Pages(_ context.Context) ([]scene.PageInfo, error) {
	df.mu.RLock()
	defer df.mu.RUnlock()
	if df.closed {
		return nil, fmt.Errorf("document %q is closed", df.path)
	}
	out := make([]scene.PageInfo, len(df.pageInfos))
	copy(out, df.pageInfos)
	return out, nil
}

// LoadPage unmarshals one page subtree on first access and memoizes it.
func (df *File) LoadPage(_ context.Context, pageID string) (*scene.Node, error) {
	df.mu.RLock()
	if df.closed {
		df.mu.RUnlock()
		return nil, fmt.Errorf("document %q is closed", df.path)
	}
	if page, ok := df.pages[pageID]; ok {
		df.mu.RUnlock()
		return page, nil
	}
	df.mu.RUnlock()

	df.mu.Lock()
	defer df.mu.Unlock()
	if df.closed {
		return nil, fmt.Errorf("document %q is closed", df.path)
	}
	if page, ok := df.pages[pageID]; ok {
		return page, nil
	}

	idx := -1
	for i, info := range df.pageInfos {
		if info.ID == pageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("page %q not found in %q", pageID, df.path)
	}

	var page scene.Node
	if err := json.Unmarshal([]byte(df.pageRaw[idx]), &page); err != nil {
		return nil, fmt.Errorf("failed to decode page %q: %w", pageID, err)
	}

	df.pages[pageID] = &page
	df.indexNodeLocked(&page)
	df.pageLoads++
	df.logger.Debug("page loaded",
		"page", df.pageInfos[idx].Name,
		"bytes", len(df.pageRaw[idx]))
	return &page, nil
}

func (df *File) indexNodeLocked(n *scene.Node) {
	if n == nil {
		return
	}
	df.nodesByID[n.ID] = n
	for _, c := range n.Children {
		df.indexNodeLocked(c)
	}
}

// Annotations returns the provenance entries recorded on a node. The
// node's page must have been loaded through this handle.
func (df *File) Annotations(_ context.Context, nodeID string) (map[string]string, error) {
	df.mu.RLock()
	defer df.mu.RUnlock()
	n, ok := df.nodesByID[nodeID]
	if !ok {
		return nil, fmt.Errorf("node %q not loaded", nodeID)
	}
	anns := n.Annotations()
	if anns == nil {
		return map[string]string{}, nil
	}
	return anns, nil
}

// ResolveVariable resolves a bound variable to its name through the
// document variable table.
func (df *File) ResolveVariable(nodeID, property string) (string, bool) {
	df.mu.RLock()
	defer df.mu.RUnlock()
	n, ok := df.nodesByID[nodeID]
	if !ok || n.BoundVariables == nil {
		return "", false
	}
	ref, ok := n.BoundVariables[property]
	if !ok {
		return "", false
	}
	if ref.Name != "" {
		return ref.Name, true
	}
	if v, ok := df.variables[ref.ID]; ok && v.Name != "" {
		return v.Name, true
	}
	return "", false
}

// Reload reopens the file and swaps the handle to its current contents.
// Watch mode calls this after a change on disk: editor saves usually
// replace the file, so the old mapping would keep serving the old bytes
// forever. On failure the handle keeps serving the previous view and
// the error is returned.
//
// Trees handed out before the reload stay usable (pages are decoded
// onto the heap) but describe the old contents.
func (df *File) Reload() error {
	data, f, mapped, err := openAndMap(df.path, df.maxSizeMB, df.logger)
	if err != nil {
		return err
	}
	st, err := scanStructure(df.path, data)
	if err != nil {
		discardMapping(data, f, mapped)
		return err
	}

	df.mu.Lock()
	defer df.mu.Unlock()
	if df.closed {
		discardMapping(data, f, mapped)
		return fmt.Errorf("document %q is closed", df.path)
	}

	if df.mapped && df.data != nil {
		if err := df.data.Unmap(); err != nil {
			df.logger.Warn("failed to unmap document", "path", df.path, "error", err)
		}
	}
	if df.file != nil {
		df.file.Close()
	}

	df.data = data
	df.file = f
	df.mapped = mapped
	df.setStructure(st)
	df.pages = make(map[string]*scene.Node)
	df.nodesByID = make(map[string]*scene.Node)

	df.logger.Info("document reloaded", "path", df.path, "pages", len(df.pageInfos))
	return nil
}

func discardMapping(data mmap.MMap, f *os.File, mapped bool) {
	if mapped && data != nil {
		data.Unmap()
	}
	if f != nil {
		f.Close()
	}
}

// Stats returns usage counters for the handle.
func (df *File) Stats() Stats {
	df.mu.RLock()
	defer df.mu.RUnlock()
	return Stats{
		SizeBytes:    int64(len(df.data)),
		Mapped:       df.mapped,
		PageCount:    len(df.pageInfos),
		PagesLoaded:  len(df.pages),
		PageLoads:    df.pageLoads,
		NodesIndexed: len(df.nodesByID),
	}
}

// Path returns the file path the handle was opened from.
func (df *File) Path() string {
	return df.path
}

// Close unmaps the file and invalidates every tree handed out. Safe to
// call twice.
func (df *File) Close() error {
	df.mu.Lock()
	defer df.mu.Unlock()
	if df.closed {
		return nil
	}
	df.closed = true
	df.pages = make(map[string]*scene.Node)
	df.nodesByID = make(map[string]*scene.Node)
	df.pageRaw = nil

	var errs []error
	if df.mapped && df.data != nil {
		if err := df.data.Unmap(); err != nil {
			df.logger.Warn("failed to unmap document", "path", df.path, "error", err)
			errs = append(errs, fmt.Errorf("unmap %q: %w", df.path, err))
		}
	}
	df.data = nil
	if df.file != nil {
		if err := df.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", df.path, err))
		}
		df.file = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
