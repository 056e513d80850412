package entity

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

type RetrievalScope string

const (
	ScopeStyle     RetrievalScope = "style"
	ScopeKnowledge RetrievalScope = "knowledge"
	ScopeBoth      RetrievalScope = "both"
)

// Snippet is one ranked hit returned by a retriever.
type Snippet struct {
	Text   string            `json:"text"`
	Score  float64           `json:"score"`
	Source map[string]string `json:"source,omitempty"`
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type ResearchBrief struct {
	Topic    string         `json:"topic"`
	Analysis string         `json:"analysis"`
	Snippets []Snippet      `json:"snippets,omitempty"`
	Sources  []SearchResult `json:"sources,omitempty"`
	UsedWeb  bool           `json:"used_web"`
}

type Draft struct {
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
	Revision  int    `json:"revision,omitempty"`
}

func NewDraft(content string, revision int) Draft {
	content = strings.TrimSpace(content)
	return Draft{Content: content, WordCount: WordCount(content), Revision: revision}
}

func (d Draft) ArticleText() string { return d.Content }

type SEOResult struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
	Slug            string   `json:"slug"`
	Content         string   `json:"content"`
}

func (s SEOResult) ArticleText() string { return s.Content }

type QualityReview struct {
	Score     float64  `json:"score"`
	Approved  bool     `json:"approved"`
	Strengths []string `json:"strengths,omitempty"`
	Issues    []string `json:"issues,omitempty"`
	Feedback  string   `json:"feedback"`
	Review    string   `json:"review"`
}

func (q QualityReview) QualityScore() float64 { return q.Score }

func (q QualityReview) RevisionFeedback() string {
	var b strings.Builder
	if q.Feedback != "" {
		b.WriteString(q.Feedback)
	}
	for _, issue := range q.Issues {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(issue)
	}
	return b.String()
}

type ImagePrompts struct {
	Prompts []string `json:"prompts"`
	Raw     string   `json:"raw"`
}

type VisualSuggestions struct {
	Suggestions string `json:"suggestions"`
}

// QualityVerdict is implemented by quality stage outputs the gate can score.
type QualityVerdict interface {
	QualityScore() float64
	RevisionFeedback() string
}

// ArticleTexter is implemented by stage outputs that carry the article body.
type ArticleTexter interface {
	ArticleText() string
}

type Article struct {
	RunID             string    `json:"run_id" yaml:"run_id"`
	Topic             string    `json:"topic" yaml:"topic"`
	Title             string    `json:"title" yaml:"title"`
	Slug              string    `json:"slug" yaml:"slug"`
	MetaDescription   string    `json:"meta_description" yaml:"description"`
	Keywords          []string  `json:"keywords" yaml:"keywords"`
	Content           string    `json:"content" yaml:"-"`
	ImagePrompts      []string  `json:"image_prompts,omitempty" yaml:"-"`
	VisualSuggestions string    `json:"visual_suggestions,omitempty" yaml:"-"`
	QualityReview     string    `json:"quality_review,omitempty" yaml:"-"`
	QualityScore      float64   `json:"quality_score" yaml:"quality_score"`
	Approved          bool      `json:"approved" yaml:"approved"`
	WordCount         int       `json:"word_count" yaml:"word_count"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
}

// StoredArticle describes one article already saved by a publisher.
type StoredArticle struct {
	Slug     string    `json:"slug"`
	Path     string    `json:"path"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
}

type PublishResult struct {
	Success  bool   `json:"success"`
	RemoteID string `json:"remote_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ArticleFromResult assembles the publishable record from a finished run.
// The body comes from the latest stage that carries article text.
func ArticleFromResult(res *PipelineRunResult) Article {
	pc := res.Context
	art := Article{
		RunID:     res.RunID,
		Topic:     pc.Topic,
		Title:     pc.Topic,
		Approved:  res.Approved,
		CreatedAt: time.Now(),
	}

	for _, s := range []Stage{StageSEO, StageEditor, StageWriter} {
		v, ok := pc.Get(s)
		if !ok {
			continue
		}
		if t, ok := v.(ArticleTexter); ok && t.ArticleText() != "" {
			art.Content = t.ArticleText()
			break
		}
	}

	if v, ok := pc.Get(StageSEO); ok {
		if seo, ok := v.(SEOResult); ok {
			if seo.Title != "" {
				art.Title = seo.Title
			}
			art.MetaDescription = seo.MetaDescription
			art.Keywords = seo.Keywords
			art.Slug = seo.Slug
		}
	}
	if v, ok := pc.Get(StageQuality); ok {
		if q, ok := v.(QualityReview); ok {
			art.QualityReview = q.Review
			art.QualityScore = q.Score
		}
	}
	if v, ok := pc.Get(StageImage); ok {
		if ip, ok := v.(ImagePrompts); ok {
			art.ImagePrompts = ip.Prompts
		}
	}
	if v, ok := pc.Get(StageVisual); ok {
		if vs, ok := v.(VisualSuggestions); ok {
			art.VisualSuggestions = vs.Suggestions
		}
	}

	if art.Slug == "" {
		art.Slug = Slugify(art.Topic)
	}
	art.WordCount = WordCount(art.Content)
	return art
}

const maxSlugLen = 50

// Slugify lowercases s, strips accents and joins words with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(strings.ToLower(s)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case r == '-' || r == '_' || unicode.IsSpace(r):
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if runes := []rune(slug); len(runes) > maxSlugLen {
		slug = strings.TrimSuffix(string(runes[:maxSlugLen]), "-")
	}
	return slug
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}
