package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/logger"
)

func newStore() *Store {
	return NewStore(Config{ChunkSize: 200, ChunkOverlap: 20, DefaultLimit: 3}, logger.NewNop())
}

func TestRetrieve_RanksByRelevance(t *testing.T) {
	s := newStore()
	_, err := s.AddDocument(entity.ScopeKnowledge, "Intuição nos negócios ajuda líderes a decidir rápido.", map[string]string{"file": "a.md"})
	require.NoError(t, err)
	_, err = s.AddDocument(entity.ScopeKnowledge, "Recipes for sourdough bread and slow fermentation.", map[string]string{"file": "b.md"})
	require.NoError(t, err)

	hits, err := s.Retrieve(context.Background(), "intuicao negocios", entity.ScopeKnowledge, 5)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "a.md", hits[0].Source["file"])
	assert.Equal(t, "knowledge", hits[0].Source["collection"])
	assert.Greater(t, hits[0].Score, 0.0)
	assert.LessOrEqual(t, hits[0].Score, 1.0)
}

func TestRetrieve_ScopeSeparation(t *testing.T) {
	s := newStore()
	_, _ = s.AddDocument(entity.ScopeStyle, "short punchy sentences about leadership", nil)
	_, _ = s.AddDocument(entity.ScopeKnowledge, "leadership research from field studies", nil)

	style, err := s.Retrieve(context.Background(), "leadership", entity.ScopeStyle, 5)
	require.NoError(t, err)
	assert.Len(t, style, 1)

	both, err := s.Retrieve(context.Background(), "leadership", entity.ScopeBoth, 5)
	require.NoError(t, err)
	assert.Len(t, both, 2)

	_, err = s.Retrieve(context.Background(), "leadership", entity.RetrievalScope("archive"), 5)
	assert.Error(t, err)
}

func TestRetrieve_EmptyIsNotError(t *testing.T) {
	s := newStore()

	hits, err := s.Retrieve(context.Background(), "anything at all", entity.ScopeBoth, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetrieve_AppliesLimit(t *testing.T) {
	s := newStore()
	for i := 0; i < 6; i++ {
		_, err := s.AddDocument(entity.ScopeKnowledge, "meditation practice for founders", nil)
		require.NoError(t, err)
	}

	hits, err := s.Retrieve(context.Background(), "meditation", entity.ScopeKnowledge, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestAddDocument_ChunksLongText(t *testing.T) {
	s := newStore()
	text := strings.Repeat("Mindful leaders listen before they speak. ", 30)

	n, err := s.AddDocument(entity.ScopeStyle, text, nil)
	require.NoError(t, err)
	assert.Greater(t, n, 1)
	assert.Equal(t, n, s.Len(entity.ScopeStyle))

	_, err = s.AddDocument(entity.ScopeBoth, text, nil)
	assert.Error(t, err)
}

func TestLoadDir_MarkdownWithFrontmatter(t *testing.T) {
	dir := t.TempDir()
	md := "---\ntitle: Calm Leadership\ntags: [a, b]\n---\nCalm leaders make better decisions under pressure.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "post.md"), []byte(md), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("decisions need quiet time"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "saved.html"),
		[]byte("<html><body><script>x()</script><p>Silence before a decision</p></body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte{0x89}, 0o644))

	s := newStore()
	n, err := s.LoadDir(context.Background(), entity.ScopeKnowledge, dir)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := s.Retrieve(context.Background(), "silence", entity.ScopeKnowledge, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Silence before a decision", hits[0].Text)

	hits, err = s.Retrieve(context.Background(), "calm leaders", entity.ScopeKnowledge, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Calm Leadership", hits[0].Source["title"])
	assert.NotContains(t, hits[0].Text, "title:")
}

func TestLoadDir_MissingDir(t *testing.T) {
	n, err := newStore().LoadDir(context.Background(), entity.ScopeStyle, filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"intuicao", "nos", "negocios"}, tokenize("Intuição nos Negócios!"))
	assert.Empty(t, tokenize("a an of"))
}
