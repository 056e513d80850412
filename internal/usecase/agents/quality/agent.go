package quality

import (
	"context"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
	"content-crew/internal/usecase/agents"
	"content-crew/internal/usecase/evaluator"
)

const (
	knowledgeRefs   = 3
	defaultMinScore = 75
)

// Agent scores the SEO article against the knowledge base. It never decides
// on revisions itself; the pipeline reads the score from its output.
type Agent struct {
	evaluator *evaluator.Evaluator
	retriever output.Retriever
	logger    output.LoggerPort
}

var _ output.Agent = (*Agent)(nil)

func New(llm output.LLMPort, retriever output.Retriever, logger output.LoggerPort) *Agent {
	return &Agent{
		evaluator: evaluator.New(llm, logger),
		retriever: retriever,
		logger:    logger,
	}
}

func (a *Agent) Name() string { return "quality" }

func (a *Agent) Description() string {
	return "Scores the article from 0 to 100 on accuracy, clarity, engagement and practical value"
}

func (a *Agent) Process(ctx context.Context, task *entity.Task) (any, error) {
	topic, err := agents.Topic(task)
	if err != nil {
		return nil, err
	}
	content := agents.ArticleText(task, entity.StageSEO, entity.StageEditor, entity.StageWriter)
	if content == "" {
		return nil, entity.NewValidationError("quality review needs an article")
	}
	minScore := task.MetaFloat(entity.MetaMinQuality, defaultMinScore)

	a.logger.Info("Quality agent executing", "task_id", task.ID, "min_score", minScore)

	knowledge := agents.Retrieve(ctx, a.retriever, a.logger, topic, entity.ScopeKnowledge, knowledgeRefs)
	review, err := a.evaluator.Review(ctx, evaluator.Criteria{
		Topic:     topic,
		Content:   content,
		Knowledge: agents.JoinSnippets(knowledge),
		MinScore:  minScore,
	})
	if err != nil {
		return nil, err
	}

	return *review, nil
}
