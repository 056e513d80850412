package prompts

import (
	_ "embed"
)

//go:embed crew.txt
var CrewPrompt string

//go:embed research.txt
var ResearchPrompt string

//go:embed outline.txt
var OutlinePrompt string

//go:embed writer.txt
var WriterPrompt string

//go:embed editor.txt
var EditorPrompt string

//go:embed seo.txt
var SEOPrompt string

//go:embed quality.txt
var QualityPrompt string

//go:embed image.txt
var ImagePrompt string

//go:embed visual.txt
var VisualPrompt string

//go:embed system/research.txt
var ResearchSystemPrompt string

//go:embed system/writer.txt
var WriterSystemPrompt string

//go:embed system/editor.txt
var EditorSystemPrompt string

//go:embed system/seo.txt
var SEOSystemPrompt string

//go:embed system/quality.txt
var QualitySystemPrompt string

//go:embed system/image.txt
var ImageSystemPrompt string

//go:embed system/visual.txt
var VisualSystemPrompt string
