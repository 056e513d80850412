package seo

import (
	"strings"
	"unicode/utf8"

	"content-crew/internal/domain/entity"
)

const (
	maxTitleLen       = 60
	maxDescriptionLen = 160
)

// parseResponse reads the TITLE/DESCRIPTION/KEYWORDS/CONTENT answer. Any
// missing field falls back to something derived from the input article.
func parseResponse(response, original, topic string, extracted []string) entity.SEOResult {
	var res entity.SEOResult
	var body []string
	inContent := false

	for _, line := range strings.Split(response, "\n") {
		if inContent {
			body = append(body, line)
			continue
		}
		label, value, ok := field(line)
		if !ok {
			continue
		}
		switch label {
		case "TITLE":
			res.Title = value
		case "DESCRIPTION", "META DESCRIPTION":
			res.MetaDescription = value
		case "KEYWORDS":
			res.Keywords = splitKeywords(value)
		case "CONTENT":
			inContent = true
			if value != "" {
				body = append(body, value)
			}
		}
	}

	res.Content = strings.TrimSpace(strings.Join(body, "\n"))
	if res.Content == "" {
		res.Content = original
		if res.Title == "" && res.MetaDescription == "" && strings.TrimSpace(response) != "" {
			res.Content = strings.TrimSpace(response)
		}
	}
	if res.Title == "" {
		res.Title = heading(res.Content)
	}
	if res.Title == "" {
		res.Title = topic
	}
	if res.MetaDescription == "" {
		res.MetaDescription = firstParagraph(res.Content)
	}
	if len(res.Keywords) == 0 {
		res.Keywords = extracted
	}

	res.Title = truncate(res.Title, maxTitleLen)
	res.MetaDescription = truncate(res.MetaDescription, maxDescriptionLen)
	res.Slug = entity.Slugify(topic)
	return res
}

// field splits "LABEL: value", tolerating Markdown emphasis and headers
// around the label.
func field(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#*- ")
	label, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	label = strings.ToUpper(strings.Trim(label, "* "))
	value = strings.TrimSpace(strings.Trim(strings.TrimSpace(value), "*"))
	switch label {
	case "TITLE", "DESCRIPTION", "META DESCRIPTION", "KEYWORDS", "CONTENT":
		return label, value, true
	}
	return "", "", false
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func heading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

func firstParagraph(content string) string {
	for _, p := range strings.Split(content, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" && !strings.HasPrefix(p, "#") {
			return strings.Join(strings.Fields(p), " ")
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)[:n]
	if i := strings.LastIndex(string(r), " "); i > n/2 {
		return strings.TrimSpace(string(r)[:i])
	}
	return string(r)
}
