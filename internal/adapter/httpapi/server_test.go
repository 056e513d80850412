package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-crew/internal/domain/entity"
	"content-crew/internal/infrastructure/logger"
)

type fakeRunner struct {
	release  chan struct{}
	approved bool
	mu       sync.Mutex
	reqs     []entity.RunRequest
}

func (f *fakeRunner) Run(ctx context.Context, req entity.RunRequest, handlers ...entity.EventHandler) (*entity.PipelineRunResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	emit := func(typ entity.EventType) {
		for _, h := range handlers {
			h(entity.NewEvent(typ, req.RunID))
		}
	}
	emit(entity.EventPipelineStarted)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			emit(entity.EventPipelineFailed)
			return &entity.PipelineRunResult{RunID: req.RunID, Status: entity.RunStatusFailed, Error: entity.NewCancelledError(ctx.Err()),
				Context: entity.NewPipelineContext(req.RunID, req)}, nil
		}
	}
	emit(entity.EventPipelineCompleted)

	pc := entity.NewPipelineContext(req.RunID, req)
	_ = pc.Record(entity.StageWriter, entity.NewDraft("body text", 0))
	return &entity.PipelineRunResult{RunID: req.RunID, Status: entity.RunStatusCompleted, Approved: f.approved, Context: pc}, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	articles []entity.Article
}

func (p *fakePublisher) Publish(ctx context.Context, a entity.Article) (entity.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.articles = append(p.articles, a)
	return entity.PublishResult{Success: true, RemoteID: a.Slug}, nil
}

type fakeArchive struct {
	articles map[string]entity.Article
}

func (a fakeArchive) List() ([]entity.StoredArticle, error) {
	out := make([]entity.StoredArticle, 0, len(a.articles))
	for slug := range a.articles {
		out = append(out, entity.StoredArticle{Slug: slug, Path: slug + ".md"})
	}
	return out, nil
}

func (a fakeArchive) Get(slug string) (*entity.Article, error) {
	art, ok := a.articles[slug]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: slug + ".json", Err: fs.ErrNotExist}
	}
	return &art, nil
}

func newTestServer(runner *fakeRunner, opts ...Option) (*Server, *httptest.Server) {
	s := NewServer(runner, logger.NewNop(), append([]Option{WithoutAccessLog()}, opts...)...)
	return s, httptest.NewServer(s.Router())
}

func startRun(t *testing.T, url, body string) map[string]string {
	t.Helper()
	resp, err := http.Post(url+"/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(&fakeRunner{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartRun_Validation(t *testing.T) {
	_, ts := newTestServer(&fakeRunner{})
	defer ts.Close()

	for _, body := range []string{`{"topic": "  "}`, `not json`, `{"topic": "x", "target_length": -1}`} {
		resp, err := http.Post(ts.URL+"/runs", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestStartRun_CompletesAndPublishes(t *testing.T) {
	runner := &fakeRunner{approved: true}
	pub := &fakePublisher{}
	s, ts := newTestServer(runner, WithPublisher(pub), WithDefaults(entity.RunRequest{TargetLength: 900, WritingStyle: "calm"}))
	defer ts.Close()

	out := startRun(t, ts.URL, `{"topic": "Intuition"}`)
	require.NotEmpty(t, out["run_id"])
	s.Wait()

	resp, err := http.Get(ts.URL + "/runs/" + out["run_id"])
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view RunView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, RunStatusCompleted, view.Status)
	assert.True(t, view.Approved)
	require.NotNil(t, view.Article)
	assert.Equal(t, "body text", view.Article.Content)
	require.NotNil(t, view.Published)
	assert.True(t, view.Published.Success)

	require.Len(t, runner.reqs, 1)
	assert.Equal(t, 900, runner.reqs[0].TargetLength)
	assert.Equal(t, "calm", runner.reqs[0].WritingStyle)
	assert.Len(t, pub.articles, 1)
}

func TestStartRun_DuplicateID(t *testing.T) {
	s, ts := newTestServer(&fakeRunner{})
	defer ts.Close()

	startRun(t, ts.URL, `{"run_id": "fixed", "topic": "a"}`)
	resp, err := http.Post(ts.URL+"/runs", "application/json", strings.NewReader(`{"run_id": "fixed", "topic": "b"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	s.Wait()
}

func TestGetRun_NotFound(t *testing.T) {
	_, ts := newTestServer(&fakeRunner{})
	defer ts.Close()

	for _, path := range []string{"/runs/missing", "/runs/missing/events"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestRunEvents_StreamsUntilFinished(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	s, ts := newTestServer(runner)
	defer ts.Close()

	out := startRun(t, ts.URL, `{"topic": "Intuition"}`)

	resp, err := http.Get(ts.URL + "/runs/" + out["run_id"] + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	close(runner.release)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	s.Wait()

	text := string(body)
	assert.Contains(t, text, "event: PIPELINE_STARTED")
	assert.Contains(t, text, "event: PIPELINE_COMPLETED")
	assert.Less(t, strings.Index(text, "PIPELINE_STARTED"), strings.Index(text, "PIPELINE_COMPLETED"))
}

func TestListRuns(t *testing.T) {
	s, ts := newTestServer(&fakeRunner{})
	defer ts.Close()

	startRun(t, ts.URL, `{"topic": "a"}`)
	startRun(t, ts.URL, `{"topic": "b"}`)
	s.Wait()

	resp, err := http.Get(ts.URL + "/runs")
	require.NoError(t, err)
	defer resp.Body.Close()

	var views []RunView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	assert.Len(t, views, 2)
	for _, v := range views {
		assert.Nil(t, v.Result)
	}
}

func TestShutdown_CancelsRuns(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	s, ts := newTestServer(runner)
	defer ts.Close()

	out := startRun(t, ts.URL, `{"topic": "slow"}`)
	require.NoError(t, s.Shutdown(context.Background()))

	view, ok := s.store.Get(out["run_id"])
	require.True(t, ok)
	assert.Equal(t, RunStatusFailed, view.Status)
	assert.Contains(t, view.Error, "cancelled")
}

func TestWriteEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, writeEvent(rec, entity.NewEvent(entity.EventStageStarted, "r1")))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("event: STAGE_STARTED\ndata: {")))
	assert.True(t, strings.HasSuffix(rec.Body.String(), "\n\n"))
}

func TestArticles(t *testing.T) {
	archive := fakeArchive{articles: map[string]entity.Article{
		"intuicao": {Slug: "intuicao", Title: "Intuição"},
	}}
	_, ts := newTestServer(&fakeRunner{}, WithArchive(archive))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/articles")
	require.NoError(t, err)
	var list []entity.StoredArticle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	assert.Equal(t, "intuicao", list[0].Slug)

	resp, err = http.Get(ts.URL + "/articles/intuicao")
	require.NoError(t, err)
	var art entity.Article
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&art))
	resp.Body.Close()
	assert.Equal(t, "Intuição", art.Title)

	resp, err = http.Get(ts.URL + "/articles/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestArticles_NotMountedWithoutArchive(t *testing.T) {
	_, ts := newTestServer(&fakeRunner{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/articles")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
