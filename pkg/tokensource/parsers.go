package tokensource

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammar identifies one tree-sitter grammar the loader parses with.
type grammar int

const (
	grammarCSS grammar = iota
	grammarJavaScript
	grammarTypeScript
	grammarTSX
)

func (g grammar) String() string {
	switch g {
	case grammarCSS:
		return "css"
	case grammarJavaScript:
		return "javascript"
	case grammarTypeScript:
		return "typescript"
	case grammarTSX:
		return "tsx"
	default:
		return "unknown"
	}
}

func (g grammar) languagePtr() unsafe.Pointer {
	switch g {
	case grammarCSS:
		return ts_css.Language()
	case grammarJavaScript:
		return ts_javascript.Language()
	case grammarTypeScript:
		return ts_typescript.LanguageTypescript()
	case grammarTSX:
		return ts_typescript.LanguageTSX()
	default:
		return nil
	}
}

// grammarFor maps a theme-module or stylesheet path to its grammar.
// JSX lives in the javascript grammar; TSX needs its own.
func grammarFor(path string) grammar {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css":
		return grammarCSS
	case ".ts":
		return grammarTypeScript
	case ".tsx":
		return grammarTSX
	default:
		return grammarJavaScript
	}
}

// parserManager owns one lazily created parser pool per grammar and a
// compiled query cache. Parsers are CGO objects, so pooling them bounds
// both allocation churn and memory.
type parserManager struct {
	mu      sync.RWMutex
	pools   map[grammar]*parserPool
	queries map[grammar]*ts.Query
	size    int
	logger  *slog.Logger
}

func newParserManager(size int, logger *slog.Logger) *parserManager {
	return &parserManager{
		pools:   make(map[grammar]*parserPool),
		queries: make(map[grammar]*ts.Query),
		size:    size,
		logger:  logger,
	}
}

// parse produces a syntax tree for src. The caller owns the tree and
// must Close it.
func (m *parserManager) parse(src []byte, g grammar) (*ts.Tree, error) {
	pool, err := m.pool(g)
	if err != nil {
		return nil, err
	}
	parser, err := pool.acquire()
	if err != nil {
		return nil, err
	}
	defer pool.release(parser)

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s parse produced no tree", g)
	}
	return tree, nil
}

func (m *parserManager) pool(g grammar) (*parserPool, error) {
	m.mu.RLock()
	p, ok := m.pools[g]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok = m.pools[g]; ok {
		return p, nil
	}
	ptr := g.languagePtr()
	if ptr == nil {
		return nil, fmt.Errorf("no grammar registered for %s", g)
	}
	p = newParserPool(g, ptr, m.size, m.logger)
	m.pools[g] = p
	return p, nil
}

// query returns the compiled extraction query for a grammar, compiling
// it on first use.
func (m *parserManager) query(g grammar) (*ts.Query, error) {
	m.mu.RLock()
	q, ok := m.queries[g]
	m.mu.RUnlock()
	if ok {
		return q, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok = m.queries[g]; ok {
		return q, nil
	}
	lang := ts.NewLanguage(g.languagePtr())
	q, qerr := ts.NewQuery(lang, queryText(g))
	if qerr != nil {
		return nil, fmt.Errorf("compile %s token query: %s", g, qerr.Message)
	}
	m.queries[g] = q
	m.logger.Debug("compiled token query", "grammar", g.String())
	return q, nil
}

func queryText(g grammar) string {
	switch g {
	case grammarCSS:
		return cssDeclarationQuery
	case grammarJavaScript:
		return themeQueryJS
	default:
		return themeQueryTS
	}
}

func (m *parserManager) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for g, q := range m.queries {
		q.Close()
		delete(m.queries, g)
	}
	for g, p := range m.pools {
		p.close()
		delete(m.pools, g)
	}
}

// parserPool is a channel-based pool of parsers sharing one grammar.
// Parsers are created lazily up to maxSize; past that, acquire blocks
// until a release.
type parserPool struct {
	idle    chan *ts.Parser
	langPtr unsafe.Pointer
	g       grammar
	maxSize int

	mu      sync.Mutex
	created int

	logger *slog.Logger
}

func newParserPool(g grammar, langPtr unsafe.Pointer, maxSize int, logger *slog.Logger) *parserPool {
	return &parserPool{
		idle:    make(chan *ts.Parser, maxSize),
		langPtr: langPtr,
		g:       g,
		maxSize: maxSize,
		logger:  logger,
	}
}

func (p *parserPool) acquire() (*ts.Parser, error) {
	select {
	case parser := <-p.idle:
		return parser, nil
	default:
	}

	p.mu.Lock()
	if p.created < p.maxSize {
		parser := ts.NewParser()
		if err := parser.SetLanguage(ts.NewLanguage(p.langPtr)); err != nil {
			parser.Close()
			p.mu.Unlock()
			return nil, fmt.Errorf("set %s language: %w", p.g, err)
		}
		p.created++
		p.logger.Debug("created pooled parser", "grammar", p.g.String(), "created", p.created)
		p.mu.Unlock()
		return parser, nil
	}
	p.mu.Unlock()

	return <-p.idle, nil
}

func (p *parserPool) release(parser *ts.Parser) {
	if parser == nil {
		return
	}
	select {
	case p.idle <- parser:
	default:
		parser.Close()
	}
}

func (p *parserPool) close() {
	close(p.idle)
	for parser := range p.idle {
		parser.Close()
	}
}

// captureSet holds one query match's captures keyed by capture name.
type captureSet map[string]*ts.Node

// runQuery executes a compiled query against root and collects each
// match's captures by name.
func runQuery(q *ts.Query, root *ts.Node, src []byte) []captureSet {
	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	names := q.CaptureNames()
	iter := cursor.Matches(q, root, src)

	var out []captureSet
	for {
		match := iter.Next()
		if match == nil {
			break
		}
		set := make(captureSet, len(match.Captures))
		for _, c := range match.Captures {
			if int(c.Index) < len(names) {
				node := c.Node
				set[names[c.Index]] = &node
			}
		}
		out = append(out, set)
	}
	return out
}
