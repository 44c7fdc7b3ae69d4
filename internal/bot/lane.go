package bot

import (
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Lane is a named single-permit gate bound to one message context. At most
// one command execution runs per lane; additional arrivals are rejected
// immediately instead of queuing.
type Lane struct {
	name string
	sem  *semaphore.Weighted
	held atomic.Bool
}

// NewLane creates a lane with a single permit.
func NewLane(name string) *Lane {
	return &Lane{
		name: name,
		sem:  semaphore.NewWeighted(1),
	}
}

// Name returns the lane's name, used in logs.
func (l *Lane) Name() string {
	return l.name
}

// TryAcquire takes the permit without blocking. It returns false when the
// lane is already held.
func (l *Lane) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.held.Store(true)
	return true
}

// Release returns the permit.
func (l *Lane) Release() {
	l.held.Store(false)
	l.sem.Release(1)
}

// Available reports whether the permit looks free. It is a fast pre-check
// only; a race between Available and TryAcquire is resolved by TryAcquire.
func (l *Lane) Available() bool {
	return !l.held.Load()
}
