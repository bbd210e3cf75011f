package usecase

import (
	"sync"

	"briefing-backend/internal/insights/domain"
)

// JobUpdate is one observed change to a job's lifecycle
type JobUpdate struct {
	JobID  string
	Status domain.JobStatus
}

// JobNotifier fans job updates out to subscribers, so the orchestrator can
// wait on a channel instead of only polling. Publishing never blocks; a slow
// subscriber just misses an update and catches up on its next poll tick.
type JobNotifier struct {
	mu   sync.Mutex
	subs map[string][]chan JobUpdate
}

// NewJobNotifier creates a new JobNotifier
func NewJobNotifier() *JobNotifier {
	return &JobNotifier{
		subs: make(map[string][]chan JobUpdate),
	}
}

// Subscribe returns a channel receiving updates for the job
func (n *JobNotifier) Subscribe(jobID string) chan JobUpdate {
	ch := make(chan JobUpdate, 8)
	n.mu.Lock()
	n.subs[jobID] = append(n.subs[jobID], ch)
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel registered for the job
func (n *JobNotifier) Unsubscribe(jobID string, ch chan JobUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()

	channels := n.subs[jobID]
	for i, c := range channels {
		if c == ch {
			n.subs[jobID] = append(channels[:i], channels[i+1:]...)
			break
		}
	}
	if len(n.subs[jobID]) == 0 {
		delete(n.subs, jobID)
	}
}

// Publish delivers an update to every subscriber without blocking
func (n *JobNotifier) Publish(update JobUpdate) {
	n.mu.Lock()
	channels := append([]chan JobUpdate(nil), n.subs[update.JobID]...)
	n.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- update:
		default:
		}
	}
}
