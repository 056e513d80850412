// Package httpapi exposes pipeline runs over HTTP: start a run, poll its
// result and stream its events as server-sent events.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/google/uuid"

	"content-crew/internal/application/port/input"
	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

const keepAliveInterval = 15 * time.Second

type Server struct {
	runner    input.PipelineRunner
	publisher output.Publisher
	archive   output.ArticleArchive
	store     *RunStore
	logger    output.LoggerPort
	defaults  entity.RunRequest
	accessLog bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*Server)

// WithPublisher saves every approved article through p.
func WithPublisher(p output.Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithArchive serves saved articles under /articles.
func WithArchive(a output.ArticleArchive) Option {
	return func(s *Server) { s.archive = a }
}

// WithDefaults fills request fields the client left empty.
func WithDefaults(req entity.RunRequest) Option {
	return func(s *Server) { s.defaults = req }
}

func WithoutAccessLog() Option {
	return func(s *Server) { s.accessLog = false }
}

func NewServer(runner input.PipelineRunner, logger output.LoggerPort, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		runner:    runner,
		store:     NewRunStore(),
		logger:    logger,
		accessLog: true,
		baseCtx:   ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.accessLog {
		r.Use(httplog.RequestLogger(httplog.NewLogger("content-crew", httplog.Options{JSON: true, Concise: true})))
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleStartRun)
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
		r.Get("/{id}/events", s.handleRunEvents)
	})
	if s.archive != nil {
		r.Get("/articles", s.handleListArticles)
		r.Get("/articles/{slug}", s.handleGetArticle)
	}
	return r
}

// Shutdown cancels in-flight runs and waits for them to record their result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until every started run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req entity.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		respondError(w, http.StatusBadRequest, "topic is required")
		return
	}
	if req.TargetLength < 0 {
		respondError(w, http.StatusBadRequest, "target_length must not be negative")
		return
	}
	if req.TargetLength == 0 {
		req.TargetLength = s.defaults.TargetLength
	}
	if req.WritingStyle == "" {
		req.WritingStyle = s.defaults.WritingStyle
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if !s.store.Create(req.RunID, req.Topic) {
		respondError(w, http.StatusConflict, fmt.Sprintf("run %s already exists", req.RunID))
		return
	}

	s.wg.Add(1)
	go s.execute(req)

	s.logger.Info("Run accepted", "run_id", req.RunID, "topic", req.Topic)
	respondJSON(w, http.StatusAccepted, map[string]string{
		"run_id": req.RunID,
		"status": string(RunStatusRunning),
	})
}

func (s *Server) execute(req entity.RunRequest) {
	defer s.wg.Done()

	res, err := s.runner.Run(s.baseCtx, req, func(ev entity.Event) {
		s.store.Publish(req.RunID, ev)
	})
	if err != nil {
		s.logger.Error("Run rejected", "run_id", req.RunID, "error", err)
		s.store.Finish(req.RunID, func(v *RunView) {
			v.Status = RunStatusFailed
			v.Error = err.Error()
		})
		return
	}

	var (
		article   entity.Article
		published *entity.PublishResult
	)
	if !res.Failed() && res.Context != nil {
		article = entity.ArticleFromResult(res)
	}
	if s.publisher != nil && res.Approved && article.Content != "" {
		pr, err := s.publisher.Publish(s.baseCtx, article)
		if err != nil {
			s.logger.Error("Publish failed", "run_id", req.RunID, "error", err)
			pr = entity.PublishResult{Error: err.Error()}
		}
		published = &pr
	}

	s.store.Finish(req.RunID, func(v *RunView) {
		v.Result = res
		v.Approved = res.Approved
		v.Published = published
		if res.Failed() {
			v.Status = RunStatusFailed
			if res.Error != nil {
				v.Error = res.Error.Error()
			}
			return
		}
		v.Status = RunStatusCompleted
		v.Article = &article
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	view, ok := s.store.Get(chi.URLParam(r, "id"))
	if !ok {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	list, err := s.archive.List()
	if err != nil {
		s.logger.Error("List articles failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not list articles")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	art, err := s.archive.Get(chi.URLParam(r, "slug"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		respondError(w, http.StatusNotFound, "article not found")
	case err != nil:
		s.logger.Error("Read article failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not read article")
	default:
		respondJSON(w, http.StatusOK, art)
	}
}

// handleRunEvents replays the run's events and then streams new ones until
// the run finishes or the client goes away. A client dropped for falling
// behind resumes from the history.
func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	id := chi.URLParam(r, "id")
	history, ch, unsubscribe, ok := s.store.Subscribe(id, 0)
	if !ok {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	sent := 0
	for {
		for _, ev := range history {
			if err := writeEvent(w, ev); err != nil {
				unsubscribe()
				return
			}
			sent++
		}
		flusher.Flush()
		if ch == nil {
			return
		}

		if !s.stream(w, r, flusher, ticker, ch, &sent) {
			unsubscribe()
			return
		}
		unsubscribe()
		history, ch, unsubscribe, _ = s.store.Subscribe(id, sent)
	}
}

// stream forwards events from ch until it closes, which returns true, or
// the client fails, which returns false.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, flusher http.Flusher, ticker *time.Ticker, ch subscriber, sent *int) bool {
	for {
		select {
		case <-r.Context().Done():
			return false
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return false
			}
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return true
			}
			if err := writeEvent(w, ev); err != nil {
				return false
			}
			*sent++
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev entity.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe serves the API on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return s.Shutdown(shutdownCtx)
}
