package viewer

import (
	"sync"

	"github.com/tour360/editor/internal/queue"
)

// loop runs posted tasks one at a time on a single goroutine. All viewer
// state is owned by that goroutine.
type loop struct {
	tasks *queue.Queue[func()]
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newLoop() *loop {
	l := &loop{
		tasks: queue.New[func()](),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case <-l.tasks.Ready():
		}
		for {
			fn, ok := l.tasks.TryPop()
			if !ok {
				break
			}
			select {
			case <-l.quit:
				return
			default:
			}
			if fn != nil {
				fn()
			}
		}
	}
}

// post enqueues fn without waiting. Safe to call from the loop itself.
func (l *loop) post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	return l.tasks.Push(fn)
}

// call runs fn on the loop and waits for it. Must not be called from the loop.
func (l *loop) call(fn func()) bool {
	finished := make(chan struct{})
	if !l.post(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

func (l *loop) stop() {
	l.once.Do(func() { close(l.quit) })
	<-l.done
	l.tasks.Close()
}
