package service

import (
	"sort"
	"sync"

	"content-crew/internal/application/port/output"
	"content-crew/internal/domain/entity"
)

var _ output.AgentRegistry = (*AgentRegistryImpl)(nil)

// AgentRegistryImpl maps task kinds to agents. Resolve always returns the
// first agent registered for a kind.
type AgentRegistryImpl struct {
	mu            sync.RWMutex
	agents        map[entity.TaskKind][]output.Agent
	allowMultiple bool
}

type RegistryOption func(*AgentRegistryImpl)

// WithAllowMultiple lets several agents share one kind. Only the first is
// resolved; the rest are reachable through All.
func WithAllowMultiple() RegistryOption {
	return func(r *AgentRegistryImpl) {
		r.allowMultiple = true
	}
}

func NewAgentRegistry(opts ...RegistryOption) *AgentRegistryImpl {
	r := &AgentRegistryImpl{
		agents: make(map[entity.TaskKind][]output.Agent),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *AgentRegistryImpl) Register(kind entity.TaskKind, agent output.Agent) error {
	if kind == "" {
		return entity.NewValidationError("agent kind is required")
	}
	if agent == nil {
		return entity.NewValidationError("agent is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.agents[kind]; len(existing) > 0 && !r.allowMultiple {
		return entity.NewDuplicateRegistrationError(kind, agent.Name())
	}
	r.agents[kind] = append(r.agents[kind], agent)
	return nil
}

func (r *AgentRegistryImpl) Resolve(kind entity.TaskKind) (output.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := r.agents[kind]
	if len(agents) == 0 {
		return nil, entity.NewUnknownCapabilityError(kind)
	}
	return agents[0], nil
}

func (r *AgentRegistryImpl) All(kind entity.TaskKind) []output.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]output.Agent, len(r.agents[kind]))
	copy(result, r.agents[kind])
	return result
}

func (r *AgentRegistryImpl) Kinds() []entity.TaskKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]entity.TaskKind, 0, len(r.agents))
	for kind := range r.agents {
		result = append(result, kind)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
