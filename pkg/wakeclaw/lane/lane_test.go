package lane

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueueRunsInArrivalOrder(t *testing.T) {
	t.Parallel()

	q := New()
	var mu sync.Mutex
	var got []int

	var dones []<-chan error
	for i := 0; i < 50; i++ {
		i := i
		dones = append(dones, q.Enqueue("session:a", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}))
	}
	for _, d := range dones {
		if err := <-d; err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("order broken at position %d: got %d", i, v)
		}
	}
}

func TestDifferentKeysRunConcurrently(t *testing.T) {
	t.Parallel()

	q := New()
	aStarted := make(chan struct{})
	release := make(chan struct{})

	// Lane A blocks until released.
	doneA := q.Enqueue("session:a", func() error {
		close(aStarted)
		<-release
		return nil
	})

	<-aStarted

	// Lane B must be able to run while A is still blocked.
	doneB := q.Enqueue("session:b", func() error { return nil })
	select {
	case <-doneB:
	case <-time.After(2 * time.Second):
		t.Fatal("lane b was blocked by lane a")
	}

	close(release)
	<-doneA
}

func TestNestedGlobalLaneSerializesAcrossSessions(t *testing.T) {
	t.Parallel()

	q := New()
	var active, maxActive int32

	var wg sync.WaitGroup
	for s := 0; s < 4; s++ {
		session := SessionKey(fmt.Sprintf("chat-%d", s))
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := Run(q, session, func() (struct{}, error) {
					return Run(q, Global, func() (struct{}, error) {
						n := atomic.AddInt32(&active, 1)
						for {
							m := atomic.LoadInt32(&maxActive)
							if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
								break
							}
						}
						time.Sleep(time.Millisecond)
						atomic.AddInt32(&active, -1)
						return struct{}{}, nil
					})
				})
				if err != nil {
					t.Errorf("run failed: %v", err)
				}
			}()
		}
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("global lane allowed %d concurrent runs, want 1", maxActive)
	}
}

func TestErrorPropagatesWithoutBlockingLane(t *testing.T) {
	t.Parallel()

	q := New()
	wantErr := errors.New("boom")

	doneBad := q.Enqueue("session:a", func() error { return wantErr })
	doneOK := q.Enqueue("session:a", func() error { return nil })

	if err := <-doneBad; !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if err := <-doneOK; err != nil {
		t.Fatalf("subsequent task failed: %v", err)
	}
}

func TestPanicIsRecoveredAsError(t *testing.T) {
	t.Parallel()

	q := New()
	done := q.Enqueue("session:a", func() error { panic("kaput") })
	err := <-done
	if err == nil {
		t.Fatal("expected error from panicking task")
	}

	// The lane must still accept and run work afterwards.
	if err := <-q.Enqueue("session:a", func() error { return nil }); err != nil {
		t.Fatalf("lane unusable after panic: %v", err)
	}
}

func TestRunReturnsValue(t *testing.T) {
	t.Parallel()

	q := New()
	v, err := Run(q, "session:a", func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", v, err)
	}
}
