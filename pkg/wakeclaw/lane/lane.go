// Package lane implements keyed FIFO execution lanes. A lane is a named
// mutual-exclusion queue: for a given key, at most one unit of work runs at
// a time and queued work executes strictly in arrival order. Different keys
// run independently of each other.
//
// Nesting two lanes (session key outside, a shared global key inside) gives
// per-session ordering plus process-wide mutual exclusion — the pattern the
// heartbeat manager uses to serialize every agent run.
package lane

import (
	"fmt"
	"sync"
)

// Global is the lane key shared by every session. Work enqueued under it is
// serialized across the whole process.
const Global = "runs:global"

// SessionKey builds the lane key for a session identifier.
func SessionKey(session string) string {
	return "session:" + session
}

type task struct {
	fn   func() error
	done chan error
}

type laneState struct {
	fifo []task
	busy bool
}

// Queue multiplexes work over named lanes. The zero value is not usable;
// call New.
type Queue struct {
	mu    sync.Mutex
	lanes map[string]*laneState
}

// New creates an empty lane queue.
func New() *Queue {
	return &Queue{lanes: make(map[string]*laneState)}
}

// Enqueue appends fn to the lane identified by key and returns immediately.
// The returned channel receives exactly one value when fn has finished: nil
// on success, the returned error otherwise. A panic inside fn is recovered
// and delivered as an error; it never takes the lane down with it.
func (q *Queue) Enqueue(key string, fn func() error) <-chan error {
	done := make(chan error, 1)

	q.mu.Lock()
	ln, ok := q.lanes[key]
	if !ok {
		ln = &laneState{}
		q.lanes[key] = ln
	}
	ln.fifo = append(ln.fifo, task{fn: fn, done: done})
	if !ln.busy {
		ln.busy = true
		go q.drain(key, ln)
	}
	q.mu.Unlock()

	return done
}

// drain runs queued tasks for one lane until the FIFO empties, then releases
// the lane. Only one drain goroutine exists per busy lane.
func (q *Queue) drain(key string, ln *laneState) {
	for {
		q.mu.Lock()
		if len(ln.fifo) == 0 {
			ln.busy = false
			delete(q.lanes, key)
			q.mu.Unlock()
			return
		}
		t := ln.fifo[0]
		ln.fifo = ln.fifo[1:]
		q.mu.Unlock()

		t.done <- safeCall(t.fn)
	}
}

// safeCall invokes fn, converting a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lane task panicked: %v", r)
		}
	}()
	return fn()
}

// Run enqueues fn under key and blocks until it has executed, returning its
// result. It is the typed convenience wrapper around Enqueue; nesting Run
// calls with different keys is safe because each lane drains on its own
// goroutine.
func Run[T any](q *Queue, key string, fn func() (T, error)) (T, error) {
	var out T
	err := <-q.Enqueue(key, func() error {
		v, err := fn()
		out = v
		return err
	})
	return out, err
}

// Pending reports the number of queued (not yet started) tasks for a key.
// Intended for tests and status reporting.
func (q *Queue) Pending(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if ln, ok := q.lanes[key]; ok {
		return len(ln.fifo)
	}
	return 0
}
