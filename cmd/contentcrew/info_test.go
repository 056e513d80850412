package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/publisher/markdown"
	"content-crew/internal/infrastructure/rag"
)

func TestParseScope(t *testing.T) {
	scope, err := parseScope("Knowledge")
	require.NoError(t, err)
	assert.Equal(t, entity.ScopeKnowledge, scope)

	scope, err = parseScope("")
	require.NoError(t, err)
	assert.Equal(t, entity.ScopeBoth, scope)

	_, err = parseScope("web")
	assert.Error(t, err)
}

func TestQueryAndStatus(t *testing.T) {
	store := rag.NewStore(rag.DefaultConfig(), nil)
	_, err := store.AddDocument(entity.ScopeKnowledge, "Intuition helps leaders decide under uncertainty.",
		map[string]string{"path": "data/knowledge/intuition.md"})
	require.NoError(t, err)
	_, err = store.AddDocument(entity.ScopeStyle, "Short sentences. Warm tone.", nil)
	require.NoError(t, err)

	var status bytes.Buffer
	printStatus(&status, store)
	assert.Contains(t, status.String(), "knowledge  1 chunks")
	assert.Contains(t, status.String(), "style      1 chunks")

	snippets, err := store.Retrieve(context.Background(), "intuition leaders", entity.ScopeKnowledge, 0)
	require.NoError(t, err)

	var out bytes.Buffer
	printSnippets(&out, "intuition leaders", snippets)
	assert.Contains(t, out.String(), `1 results for "intuition leaders"`)
	assert.Contains(t, out.String(), "data/knowledge/intuition.md")
	assert.Contains(t, out.String(), "decide under uncertainty")

	out.Reset()
	printSnippets(&out, "zebra", nil)
	assert.Equal(t, "No results for \"zebra\"\n", out.String())
}

func TestPrintContent(t *testing.T) {
	store := markdown.New(t.TempDir(), nil)

	var out bytes.Buffer
	require.NoError(t, printContent(&out, store))
	assert.Equal(t, "No published articles\n", out.String())

	res, err := store.Publish(context.Background(), entity.Article{
		Topic:     "Intuição nos Negócios",
		Title:     "Intuição nos Negócios",
		Slug:      "intuicao-nos-negocios",
		Content:   "body text",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	out.Reset()
	require.NoError(t, printContent(&out, store))
	assert.Contains(t, out.String(), "intuicao-nos-negocios")
}
