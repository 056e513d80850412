package httpapi

import (
	"sort"
	"sync"
	"time"

	"content-crew/internal/domain/entity"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunView is the JSON shape of a tracked run.
type RunView struct {
	ID        string                    `json:"run_id"`
	Topic     string                    `json:"topic"`
	Status    RunStatus                 `json:"status"`
	Approved  bool                      `json:"approved"`
	CreatedAt time.Time                 `json:"created_at"`
	Error     string                    `json:"error,omitempty"`
	Result    *entity.PipelineRunResult `json:"result,omitempty"`
	Article   *entity.Article           `json:"article,omitempty"`
	Published *entity.PublishResult     `json:"published,omitempty"`
}

type subscriber chan entity.Event

type runRecord struct {
	view   RunView
	events []entity.Event
	subs   map[subscriber]struct{}
	done   bool
}

// RunStore keeps every run started through the API with its event history,
// and fans events out to live subscribers.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]*runRecord
}

func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[string]*runRecord)}
}

func (s *RunStore) Create(id, topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[id]; exists {
		return false
	}
	s.runs[id] = &runRecord{
		view: RunView{ID: id, Topic: topic, Status: RunStatusRunning, CreatedAt: time.Now()},
		subs: make(map[subscriber]struct{}),
	}
	return true
}

// Publish records ev and forwards it without blocking. A subscriber whose
// buffer is full is dropped and its channel closed; it catches up by
// subscribing again from the number of events it has seen.
func (s *RunStore) Publish(id string, ev entity.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok || rec.done {
		return
	}
	rec.events = append(rec.events, ev)
	for ch := range rec.subs {
		select {
		case ch <- ev:
		default:
			delete(rec.subs, ch)
			close(ch)
		}
	}
}

// Finish stores the final view and closes every subscriber.
func (s *RunStore) Finish(id string, update func(*RunView)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok || rec.done {
		return
	}
	update(&rec.view)
	rec.done = true
	for ch := range rec.subs {
		close(ch)
	}
	rec.subs = nil
}

// Subscribe returns the events from index from onwards plus a channel for
// what follows. The channel is nil when the run has already finished.
func (s *RunStore) Subscribe(id string, from int) ([]entity.Event, subscriber, func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	if !ok {
		return nil, nil, nil, false
	}
	if from < 0 || from > len(rec.events) {
		from = len(rec.events)
	}
	history := append([]entity.Event(nil), rec.events[from:]...)
	if rec.done {
		return history, nil, func() {}, true
	}

	ch := make(subscriber, 32)
	rec.subs[ch] = struct{}{}
	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, live := rec.subs[ch]; live {
			delete(rec.subs, ch)
			close(ch)
		}
	}
	return history, ch, unsubscribe, true
}

func (s *RunStore) Get(id string) (RunView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	if !ok {
		return RunView{}, false
	}
	return rec.view, true
}

// List returns runs newest first, without their full results.
func (s *RunStore) List() []RunView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunView, 0, len(s.runs))
	for _, rec := range s.runs {
		v := rec.view
		v.Result = nil
		v.Article = nil
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
