package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func TestRunQueue_CountsActiveAndQueued(t *testing.T) {
	q := newRunQueue(1, arbor.NewLogger())

	release := make(chan struct{})
	started := make(chan struct{})
	finished := make(chan struct{}, 2)

	q.Submit("u1", func() {
		close(started)
		<-release
		finished <- struct{}{}
	})
	<-started

	// Second submission for the same user waits behind the cap
	q.Submit("u1", func() { finished <- struct{}{} })

	assert.Equal(t, 1, q.ActiveCount("u1"))
	assert.Equal(t, 1, q.QueuedCount("u1"))
	assert.Equal(t, 0, q.ActiveCount("u2"))
	assert.Equal(t, 0, q.QueuedCount("u2"))

	close(release)
	for i := 0; i < 2; i++ {
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Fatal("queued run never dispatched")
		}
	}
}
