package main

import (
	"fmt"
	"io"
	"strings"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

type collectionCounter interface {
	Len(scope entity.RetrievalScope) int
}

func parseScope(s string) (entity.RetrievalScope, error) {
	switch scope := entity.RetrievalScope(strings.ToLower(strings.TrimSpace(s))); scope {
	case entity.ScopeKnowledge, entity.ScopeStyle, entity.ScopeBoth:
		return scope, nil
	case "":
		return entity.ScopeBoth, nil
	default:
		return "", fmt.Errorf("unknown scope %q, want knowledge, style or both", s)
	}
}

func printSnippets(w io.Writer, query string, snippets []entity.Snippet) {
	if len(snippets) == 0 {
		fmt.Fprintf(w, "No results for %q\n", query)
		return
	}
	fmt.Fprintf(w, "%d results for %q\n", len(snippets), query)
	for i, s := range snippets {
		fmt.Fprintf(w, "\n[%d] score %.3f", i+1, s.Score)
		if path := s.Source["path"]; path != "" {
			fmt.Fprintf(w, "  %s", path)
		}
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(s.Text))
	}
}

func printStatus(w io.Writer, store collectionCounter) {
	fmt.Fprintln(w, "Collections:")
	for _, scope := range []entity.RetrievalScope{entity.ScopeKnowledge, entity.ScopeStyle} {
		fmt.Fprintf(w, "  %-10s %d chunks\n", scope, store.Len(scope))
	}
}

func printContent(w io.Writer, archive output.ArticleArchive) error {
	list, err := archive.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No published articles")
		return nil
	}
	for _, a := range list {
		fmt.Fprintf(w, "%s  %-40s  %6d bytes  %s\n", a.Modified.Format("2006-01-02 15:04"), a.Slug, a.Size, a.Path)
	}
	return nil
}
