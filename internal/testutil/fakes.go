// Package testutil provides scripted collaborators for agent tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

// ScriptLLM replies with Replies in order and records every request. It
// fails once the script runs out.
type ScriptLLM struct {
	mu       sync.Mutex
	Replies  []string
	Err      error
	Requests []output.ChatRequest
}

var _ output.LLMPort = (*ScriptLLM)(nil)

func NewScriptLLM(replies ...string) *ScriptLLM {
	return &ScriptLLM{Replies: replies}
}

func (s *ScriptLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Requests = append(s.Requests, req)
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Replies) == 0 {
		return nil, fmt.Errorf("script exhausted after %d calls", len(s.Requests)-1)
	}
	reply := s.Replies[0]
	s.Replies = s.Replies[1:]
	return &output.ChatResponse{
		Message: entity.Message{Role: entity.RoleAssistant, Content: reply},
		Model:   "script",
	}, nil
}

// Prompt returns the user message of the i-th request.
func (s *ScriptLLM) Prompt(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.Requests[i].Messages {
		if m.Role == entity.RoleUser {
			return m.Content
		}
	}
	return ""
}

func (s *ScriptLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}

type RetrieveCall struct {
	Query string
	Scope entity.RetrievalScope
	Limit int
}

// StaticRetriever returns the snippets configured for each scope.
type StaticRetriever struct {
	mu     sync.Mutex
	Scopes map[entity.RetrievalScope][]entity.Snippet
	Err    error
	Calls  []RetrieveCall
}

var _ output.Retriever = (*StaticRetriever)(nil)

func (r *StaticRetriever) Retrieve(ctx context.Context, query string, scope entity.RetrievalScope, limit int) ([]entity.Snippet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Calls = append(r.Calls, RetrieveCall{Query: query, Scope: scope, Limit: limit})
	if r.Err != nil {
		return nil, r.Err
	}
	hits := r.Scopes[scope]
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

type StaticSearcher struct {
	Results []entity.SearchResult
	Err     error
	Queries []string
}

var _ output.WebSearcher = (*StaticSearcher)(nil)

func (s *StaticSearcher) Search(ctx context.Context, query string) ([]entity.SearchResult, error) {
	s.Queries = append(s.Queries, query)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Results, nil
}

// StageTask builds a task for kind with the run inputs and prior entries.
func StageTask(kind entity.TaskKind, topic string, entries map[entity.Stage]any) *entity.Task {
	meta := map[string]any{
		entity.MetaTopic:        topic,
		entity.MetaTargetLength: 1500,
	}
	for s, v := range entries {
		meta[string(s)] = v
	}
	return entity.NewTask(kind, string(kind)+" "+topic, meta)
}
