package prompts

import "content-crew/internal/domain/entity"

type ResearchData struct {
	Topic       string
	UserContext string
	Snippets    []entity.Snippet
	Sources     []entity.SearchResult
}

type OutlineData struct {
	Topic        string
	Research     string
	Style        string
	TargetLength int
}

type WriterData struct {
	Topic        string
	Outline      string
	TargetLength int
	WritingStyle string
	Style        string
}

type EditorData struct {
	Content      string
	Feedback     string
	WritingStyle string
	Style        string
}

type SEOData struct {
	Content  string
	Keywords []string
}

type QualityData struct {
	Content   string
	Knowledge string
	MinScore  float64
}

type ImageData struct {
	Content string
}

type VisualData struct {
	Content      string
	ImagePrompts []string
}
