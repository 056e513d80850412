package rag

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"gopkg.in/yaml.v3"

	"content-crew/internal/domain/entity"
)

// LoadDir indexes every .md, .markdown, .txt, .html and .pdf file under dir into
// scope. A missing dir is not an error. It returns the number of chunks added.
func (s *Store) LoadDir(ctx context.Context, scope entity.RetrievalScope, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if s.logger != nil {
			s.logger.Info("Document dir not found, skipping", "dir", dir, "scope", scope)
		}
		return 0, nil
	}

	total := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		text, meta, err := readDocument(path)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("Skipping unreadable document", "path", path, "error", err)
			}
			return nil
		}
		if text == "" {
			return nil
		}

		meta["path"] = path
		n, err := s.AddDocument(scope, text, meta)
		if err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}
		total += n
		return nil
	})
	if err != nil {
		return total, err
	}

	if s.logger != nil {
		s.logger.Info("Documents loaded", "dir", dir, "scope", scope, "chunks", total)
	}
	return total, nil
}

func readDocument(path string) (string, map[string]string, error) {
	meta := map[string]string{"file": filepath.Base(path)}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, err
		}
		body, fm := splitFrontmatter(data)
		for k, v := range fm {
			meta[k] = v
		}
		return strings.TrimSpace(body), meta, nil
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, err
		}
		return strings.TrimSpace(string(data)), meta, nil
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, err
		}
		return htmlToText(string(data)), meta, nil
	case ".pdf":
		text, err := readPDF(path)
		return text, meta, err
	default:
		return "", meta, nil
	}
}

// splitFrontmatter separates a leading YAML block delimited by "---" lines.
// Only scalar values are kept as metadata.
func splitFrontmatter(data []byte) (string, map[string]string) {
	meta := map[string]string{}
	const delim = "---"

	trimmed := bytes.TrimPrefix(data, []byte("\ufeff"))
	if !bytes.HasPrefix(trimmed, []byte(delim+"\n")) && !bytes.HasPrefix(trimmed, []byte(delim+"\r\n")) {
		return string(data), meta
	}

	rest := trimmed[len(delim):]
	end := bytes.Index(rest, []byte("\n"+delim))
	if end < 0 {
		return string(data), meta
	}

	var raw map[string]any
	if err := yaml.Unmarshal(rest[:end], &raw); err != nil {
		return string(data), meta
	}
	for k, v := range raw {
		switch v.(type) {
		case string, int, float64, bool:
			meta[k] = fmt.Sprint(v)
		}
	}

	body := rest[end+len(delim)+1:]
	return string(body), meta
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if t := strings.TrimSpace(txt); t != "" {
			out.WriteString(t)
			out.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(out.String()), nil
}
