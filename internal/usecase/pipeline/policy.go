package pipeline

import "content-crew/internal/domain/entity"

// Policy classifies each stage as required (true) or optional (false). A
// failed required stage aborts the run; a failed optional stage is recorded
// as a diagnostic and the run continues.
type Policy map[entity.Stage]bool

var DefaultPolicy = Policy{
	entity.StageResearch: true,
	entity.StageWriter:   true,
	entity.StageEditor:   true,
	entity.StageSEO:      true,
	entity.StageQuality:  true,
	entity.StageImage:    false,
	entity.StageVisual:   false,
}

// Required reports whether stage must succeed. Stages missing from the table
// are treated as required.
func (p Policy) Required(stage entity.Stage) bool {
	required, ok := p[stage]
	return !ok || required
}

// DefaultRevisionStages are re-run, in order, on each quality gate retry.
var DefaultRevisionStages = []entity.Stage{
	entity.StageEditor,
	entity.StageSEO,
	entity.StageQuality,
}

// revisionScope keeps the stages between editor and quality, in pipeline
// order and without duplicates. Quality is always re-run last so the gate has
// a fresh score.
func revisionScope(stages []entity.Stage) []entity.Stage {
	if len(stages) == 0 {
		return DefaultRevisionStages
	}
	lo, hi := entity.StageEditor.Index(), entity.StageQuality.Index()
	seen := make(map[entity.Stage]bool, len(stages))
	for _, s := range stages {
		if i := s.Index(); i >= lo && i <= hi {
			seen[s] = true
		}
	}
	seen[entity.StageQuality] = true

	out := make([]entity.Stage, 0, len(seen))
	for _, s := range entity.StageOrder {
		if seen[s] {
			out = append(out, s)
		}
	}
	return out
}

var stageDescriptions = map[entity.Stage]string{
	entity.StageResearch: "Research the topic using the knowledge base and, if needed, the web",
	entity.StageWriter:   "Write the first draft of the article",
	entity.StageEditor:   "Edit the draft for clarity, flow and style",
	entity.StageSEO:      "Optimize the article for search engines",
	entity.StageQuality:  "Review the article and score its quality",
	entity.StageImage:    "Create image generation prompts for the article",
	entity.StageVisual:   "Suggest visual elements for the article",
}
