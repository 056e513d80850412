package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tmc/langchaingo/textsplitter"
	"golang.org/x/text/unicode/norm"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var _ output.Retriever = (*Store)(nil)

type Config struct {
	ChunkSize    int
	ChunkOverlap int
	DefaultLimit int
}

func DefaultConfig() Config {
	return Config{ChunkSize: 500, ChunkOverlap: 50, DefaultLimit: 5}
}

type chunk struct {
	text   string
	source map[string]string
	terms  map[string]float64
	norm   float64
}

// Store is an in-memory retriever with one collection per scope. Chunks are
// ranked by cosine similarity of term-frequency vectors, so scores fall in
// [0, 1].
type Store struct {
	mu          sync.RWMutex
	collections map[entity.RetrievalScope][]chunk
	splitter    textsplitter.TextSplitter
	cfg         Config
	logger      output.LoggerPort
}

func NewStore(cfg Config, logger output.LoggerPort) *Store {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 0
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig().DefaultLimit
	}
	return &Store{
		collections: map[entity.RetrievalScope][]chunk{
			entity.ScopeStyle:     nil,
			entity.ScopeKnowledge: nil,
		},
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		cfg:    cfg,
		logger: logger,
	}
}

// AddDocument splits text into chunks and indexes them under scope. It
// returns the number of chunks added.
func (s *Store) AddDocument(scope entity.RetrievalScope, text string, source map[string]string) (int, error) {
	if scope != entity.ScopeStyle && scope != entity.ScopeKnowledge {
		return 0, fmt.Errorf("cannot add documents to scope %q", scope)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}

	parts, err := s.splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("split document: %w", err)
	}

	chunks := make([]chunk, 0, len(parts))
	for i, p := range parts {
		terms := termFrequencies(p)
		if len(terms) == 0 {
			continue
		}
		src := make(map[string]string, len(source)+1)
		for k, v := range source {
			src[k] = v
		}
		src["chunk"] = fmt.Sprint(i)
		chunks = append(chunks, chunk{text: p, source: src, terms: terms, norm: vectorNorm(terms)})
	}

	s.mu.Lock()
	s.collections[scope] = append(s.collections[scope], chunks...)
	s.mu.Unlock()

	return len(chunks), nil
}

// Len reports the number of indexed chunks in scope.
func (s *Store) Len(scope entity.RetrievalScope) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if scope == entity.ScopeBoth {
		return len(s.collections[entity.ScopeStyle]) + len(s.collections[entity.ScopeKnowledge])
	}
	return len(s.collections[scope])
}

func (s *Store) Retrieve(ctx context.Context, query string, scope entity.RetrievalScope, limit int) ([]entity.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	var scopes []entity.RetrievalScope
	switch scope {
	case entity.ScopeStyle, entity.ScopeKnowledge:
		scopes = []entity.RetrievalScope{scope}
	case entity.ScopeBoth, "":
		scopes = []entity.RetrievalScope{entity.ScopeKnowledge, entity.ScopeStyle}
	default:
		return nil, fmt.Errorf("unknown retrieval scope %q", scope)
	}

	q := termFrequencies(query)
	if len(q) == 0 {
		return nil, nil
	}
	qNorm := vectorNorm(q)

	s.mu.RLock()
	var hits []entity.Snippet
	for _, sc := range scopes {
		for _, c := range s.collections[sc] {
			score := cosine(q, qNorm, c.terms, c.norm)
			if score <= 0 {
				continue
			}
			src := make(map[string]string, len(c.source)+1)
			for k, v := range c.source {
				src[k] = v
			}
			src["collection"] = string(sc)
			hits = append(hits, entity.Snippet{Text: c.text, Score: score, Source: src})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	if s.logger != nil {
		top := 0.0
		if len(hits) > 0 {
			top = hits[0].Score
		}
		s.logger.Debug("Retrieved snippets", "scope", scope, "count", len(hits), "topScore", top)
	}
	return hits, nil
}

func cosine(a map[string]float64, aNorm float64, b map[string]float64, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	var dot float64
	for term, w := range small {
		dot += w * large[term]
	}
	return dot / (aNorm * bNorm)
}

func vectorNorm(v map[string]float64) float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

const minTermLen = 3

func termFrequencies(text string) map[string]float64 {
	terms := make(map[string]float64)
	for _, tok := range tokenize(text) {
		terms[tok]++
	}
	return terms
}

// tokenize lowercases text, strips accents and splits on anything that is not
// a letter or digit. Tokens shorter than minTermLen are dropped.
func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(text)) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minTermLen {
			out = append(out, f)
		}
	}
	return out
}
