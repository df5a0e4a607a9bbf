package agentmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/livekit/protocol/logger"

	"github.com/rapidxai/outbound-caller/internal/agents"
)

// Runner executes one call job until it ends. shutdown terminates the job.
type Runner interface {
	Run(ctx context.Context, job agents.Job, shutdown func(reason string)) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, job agents.Job, shutdown func(reason string)) error

func (f RunnerFunc) Run(ctx context.Context, job agents.Job, shutdown func(reason string)) error {
	return f(ctx, job, shutdown)
}

// EndFunc is told when a job has finished.
type EndFunc func(job agents.Job, reason string)

var ErrJobExists = errors.New("agent already exists for room")

type jobHandle struct {
	job    agents.Job
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// AgentManager runs one isolated job per call, keyed by room. Jobs share no
// state besides the manager's own bookkeeping.
type AgentManager struct {
	mu     sync.Mutex
	jobs   map[string]*jobHandle
	runner Runner
	onEnd  EndFunc
	log    logger.Logger
	wg     sync.WaitGroup
}

func New(runner Runner, onEnd EndFunc, log logger.Logger) *AgentManager {
	if log == nil {
		log = logger.GetLogger()
	}
	return &AgentManager{
		jobs:   make(map[string]*jobHandle),
		runner: runner,
		onEnd:  onEnd,
		log:    log,
	}
}

// Spawn starts a job for job.Room and returns its id.
func (m *AgentManager) Spawn(parent context.Context, job agents.Job) (string, error) {
	if job.Room == "" {
		return "", errors.New("room required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.Room]; ok {
		return "", fmt.Errorf("%w %s", ErrJobExists, job.Room)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	ctx, cancel := context.WithCancelCause(context.WithoutCancel(parent))
	h := &jobHandle{job: job, cancel: cancel, done: make(chan struct{})}
	m.jobs[job.Room] = h

	shutdown := func(reason string) {
		cancel(errors.New(reason))
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(h.done)

		err := m.runner.Run(ctx, job, shutdown)
		shutdown("job finished")

		reason := context.Cause(ctx).Error()
		if err != nil {
			m.log.Errorw("agent job failed", err, "room", job.Room, "job", job.ID)
			reason = err.Error()
		} else {
			m.log.Infow("agent job ended", "room", job.Room, "job", job.ID, "reason", reason)
		}

		m.mu.Lock()
		if m.jobs[job.Room] == h {
			delete(m.jobs, job.Room)
		}
		m.mu.Unlock()

		if m.onEnd != nil {
			m.onEnd(job, reason)
		}
	}()
	return job.ID, nil
}

// Stop shuts down the job of room and waits for it to end.
func (m *AgentManager) Stop(room, reason string) error {
	m.mu.Lock()
	h, ok := m.jobs[room]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no agent for room %s", room)
	}
	h.cancel(errors.New(reason))
	<-h.done
	return nil
}

// StopAll shuts down every job and waits for them.
func (m *AgentManager) StopAll(reason string) {
	m.mu.Lock()
	for _, h := range m.jobs {
		h.cancel(errors.New(reason))
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Active lists the rooms with a running job.
func (m *AgentManager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]string, 0, len(m.jobs))
	for r := range m.jobs {
		rooms = append(rooms, r)
	}
	sort.Strings(rooms)
	return rooms
}
