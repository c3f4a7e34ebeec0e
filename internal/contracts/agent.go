package contracts

import (
	"context"
	"sync"
)

// AgentRole is the job an agent performs in the pipeline.
type AgentRole string

const (
	RoleContentGenerator AgentRole = "content_generator"
	RoleNewsProcessor    AgentRole = "news_processor"
	RoleEditor           AgentRole = "editor"
	RolePublisher        AgentRole = "publisher"
	RoleAnalyst          AgentRole = "analyst"
	RoleScheduler        AgentRole = "scheduler"
	RoleValidator        AgentRole = "validator"
)

// AgentStatus is the lifecycle state an agent reports.
type AgentStatus string

const (
	StatusIdle       AgentStatus = "idle"
	StatusProcessing AgentStatus = "processing"
	StatusCompleted  AgentStatus = "completed"
	StatusError      AgentStatus = "error"
	StatusPaused     AgentStatus = "paused"
)

// Task is the input to Agent.ExecuteTask.
type Task = Values

// Result is the output of Agent.ExecuteTask.
type Result = Values

// Agent automates one step of content handling.
type Agent interface {
	AgentName() string
	AgentRole() AgentRole

	Initialize(ctx context.Context, cfg Values) error
	ExecuteTask(ctx context.Context, task Task) (Result, error)
	ValidateInput(ctx context.Context, input Values) bool
}

// StatusReporter is implemented by agents that track their state.
type StatusReporter interface {
	Status() AgentStatus
}

// StatusTracker is a concurrency-safe AgentStatus holder for agents to
// embed. The zero value reports StatusIdle.
type StatusTracker struct {
	mu     sync.RWMutex
	status AgentStatus
}

// Status returns the current status.
func (t *StatusTracker) Status() AgentStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.status == "" {
		return StatusIdle
	}
	return t.status
}

// SetStatus records s.
func (t *StatusTracker) SetStatus(s AgentStatus) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}
