package usecase

import (
	"testing"

	"briefing-backend/internal/insights/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobNotifierPublishReachesSubscribers(t *testing.T) {
	n := NewJobNotifier()
	ch1 := n.Subscribe("job-1")
	ch2 := n.Subscribe("job-1")
	other := n.Subscribe("job-2")

	n.Publish(JobUpdate{JobID: "job-1", Status: domain.JobStatusCompleted})

	for _, ch := range []chan JobUpdate{ch1, ch2} {
		select {
		case update := <-ch:
			assert.Equal(t, "job-1", update.JobID)
			assert.Equal(t, domain.JobStatusCompleted, update.Status)
		default:
			t.Fatal("expected a buffered update")
		}
	}

	select {
	case <-other:
		t.Fatal("job-2 subscriber must not receive job-1 updates")
	default:
	}
}

func TestJobNotifierUnsubscribe(t *testing.T) {
	n := NewJobNotifier()
	ch := n.Subscribe("job-1")
	n.Unsubscribe("job-1", ch)

	n.Publish(JobUpdate{JobID: "job-1", Status: domain.JobStatusCompleted})

	select {
	case <-ch:
		t.Fatal("unsubscribed channel must not receive updates")
	default:
	}
}

func TestJobNotifierPublishNeverBlocks(t *testing.T) {
	n := NewJobNotifier()
	ch := n.Subscribe("job-1")

	// Overflow the buffer; publish must drop rather than block
	for i := 0; i < 20; i++ {
		n.Publish(JobUpdate{JobID: "job-1", Status: domain.JobStatusProcessing})
	}

	require.Equal(t, cap(ch), len(ch))
}

func TestJobNotifierPublishWithoutSubscribers(t *testing.T) {
	n := NewJobNotifier()
	// Must not panic or block
	n.Publish(JobUpdate{JobID: "nobody", Status: domain.JobStatusFailed})
}
