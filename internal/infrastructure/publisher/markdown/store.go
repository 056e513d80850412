package markdown

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var (
	_ output.Publisher      = (*Store)(nil)
	_ output.ArticleArchive = (*Store)(nil)
)

// Store publishes articles as Markdown files with YAML frontmatter, plus a
// JSON sidecar holding the full record.
type Store struct {
	dir    string
	logger output.LoggerPort
}

func New(dir string, logger output.LoggerPort) *Store {
	return &Store{dir: dir, logger: logger}
}

func (s *Store) Publish(ctx context.Context, article entity.Article) (entity.PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return entity.PublishResult{}, err
	}
	if strings.TrimSpace(article.Content) == "" {
		return entity.PublishResult{Success: false, Error: "article has no content"}, nil
	}
	if article.Slug == "" {
		article.Slug = entity.Slugify(article.Title)
	}
	if article.Slug == "" {
		return entity.PublishResult{Success: false, Error: "article has no slug"}, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return entity.PublishResult{}, fmt.Errorf("create output dir: %w", err)
	}

	doc, err := Render(article)
	if err != nil {
		return entity.PublishResult{}, err
	}

	mdPath := filepath.Join(s.dir, article.Slug+".md")
	if err := os.WriteFile(mdPath, doc, 0o644); err != nil {
		return entity.PublishResult{}, fmt.Errorf("write markdown: %w", err)
	}

	sidecar, err := json.MarshalIndent(article, "", "  ")
	if err != nil {
		return entity.PublishResult{}, fmt.Errorf("marshal article: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, article.Slug+".json"), sidecar, 0o644); err != nil {
		return entity.PublishResult{}, fmt.Errorf("write json: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Article published", "path", mdPath, "words", article.WordCount)
	}
	return entity.PublishResult{Success: true, RemoteID: mdPath}, nil
}

// Render produces the Markdown document: frontmatter, then the body, then
// image prompts and visual notes as trailing sections when present.
func Render(article entity.Article) ([]byte, error) {
	fm, err := yaml.Marshal(article)
	if err != nil {
		return nil, fmt.Errorf("marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimSpace(article.Content))
	buf.WriteString("\n")

	if len(article.ImagePrompts) > 0 {
		buf.WriteString("\n## Image prompts\n\n")
		for _, p := range article.ImagePrompts {
			fmt.Fprintf(&buf, "- %s\n", p)
		}
	}
	if article.VisualSuggestions != "" {
		buf.WriteString("\n## Visual suggestions\n\n")
		buf.WriteString(strings.TrimSpace(article.VisualSuggestions))
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// List returns the published articles, newest first.
func (s *Store) List() ([]entity.StoredArticle, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.md"))
	if err != nil {
		return nil, err
	}

	out := make([]entity.StoredArticle, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		out = append(out, entity.StoredArticle{
			Slug:     strings.TrimSuffix(filepath.Base(p), ".md"),
			Path:     p,
			Modified: info.ModTime(),
			Size:     info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	return out, nil
}

// Get reads a published article's JSON record back.
func (s *Store) Get(slug string) (*entity.Article, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.Base(slug)+".json"))
	if err != nil {
		return nil, err
	}
	var art entity.Article
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode article %s: %w", slug, err)
	}
	return &art, nil
}
