package queue

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()

	if _, ok := q.TryPop(); ok {
		t.Fatal("expected empty queue")
	}

	q.Push(1)
	q.Push(2, 3)
	if q.Len() != 3 {
		t.Errorf("expected length 3, got %d", q.Len())
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.TryPop()
		if !ok || got != want {
			t.Fatalf("expected %d, got %d (ok=%v)", want, got, ok)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d items", q.Len())
	}
}

func TestQueue_ReadyCollapses(t *testing.T) {
	q := New[string]()

	q.Push("a")
	q.Push("b")

	select {
	case <-q.Ready():
	default:
		t.Fatal("expected a ready signal after push")
	}
	select {
	case <-q.Ready():
		t.Fatal("expected pushes to collapse into one signal")
	default:
	}
	if q.Len() != 2 {
		t.Errorf("expected both items queued, got %d", q.Len())
	}
}

func TestQueue_Close(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)

	rest := q.Close()
	if len(rest) != 2 {
		t.Errorf("expected 2 leftover items, got %d", len(rest))
	}
	if q.Push(3) {
		t.Error("expected push after close to be rejected")
	}
	if q.Len() != 0 {
		t.Errorf("expected closed queue to be empty, got %d", q.Len())
	}
}

func TestQueue_ConsumerDrains(t *testing.T) {
	q := New[int]()
	const producers, perProducer = 8, 100

	var got int
	done := make(chan struct{})
	go func() {
		defer close(done)
		for got < producers*perProducer {
			select {
			case <-q.Ready():
			case <-time.After(2 * time.Second):
				return
			}
			for {
				if _, ok := q.TryPop(); !ok {
					break
				}
				got++
			}
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()
	<-done

	if got != producers*perProducer {
		t.Errorf("expected %d items consumed, got %d", producers*perProducer, got)
	}
}
