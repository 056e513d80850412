package output

import (
	"context"

	"content-crew/internal/domain/entity"
)

// Retriever returns ranked snippets for query. An empty result is not an
// error; errors are reserved for backend failures.
type Retriever interface {
	Retrieve(ctx context.Context, query string, scope entity.RetrievalScope, limit int) ([]entity.Snippet, error)
}

type WebSearcher interface {
	Search(ctx context.Context, query string) ([]entity.SearchResult, error)
}

type Publisher interface {
	Publish(ctx context.Context, article entity.Article) (entity.PublishResult, error)
}

// ArticleArchive reads back what a Publisher saved. Get returns an error
// matching fs.ErrNotExist for unknown slugs.
type ArticleArchive interface {
	List() ([]entity.StoredArticle, error)
	Get(slug string) (*entity.Article, error)
}
