package manager

import (
	"context"
	"time"
)

// Acquire reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (m *Manager) Acquire(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	start := time.Now()

	// Try to reserve a queue slot with timeout
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		admissionRejected.WithLabelValues("queue_full").Inc()
		return func() {}, tooBusyError{modelID: m.modelID}
	}

	// Wait to acquire the single in-flight slot
	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(m.maxWait)
	defer timer2.Stop()
	select {
	case m.genCh <- struct{}{}:
		acquired = true
		admissionWait.Observe(time.Since(start).Seconds())
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		admissionRejected.WithLabelValues("wait_timeout").Inc()
		return func() {}, tooBusyError{modelID: m.modelID}
	}
}
