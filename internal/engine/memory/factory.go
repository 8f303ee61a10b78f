package memory

import (
	"fmt"
	"sync"

	"github.com/tour360/editor/internal/engine"
	"github.com/tour360/editor/pkg/core"
)

// Factory creates memory engines and remembers them in creation order.
type Factory struct {
	mu      sync.Mutex
	opts    []Option
	created []*Engine
	err     error
}

// NewFactory returns a factory whose engines are built with opts.
func NewFactory(opts ...Option) *Factory {
	return &Factory{opts: opts}
}

// Fail makes subsequent New calls fail with core.ErrEngineUnavailable. A nil
// err restores normal creation.
func (f *Factory) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// New implements engine.Factory.
func (f *Factory) New(cfg engine.Config) (engine.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrEngineUnavailable, f.err)
	}
	e := New(cfg, f.opts...)
	f.created = append(f.created, e)
	return e, nil
}

// Created returns every engine created so far.
func (f *Factory) Created() []*Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Engine(nil), f.created...)
}

// Last returns the most recently created engine, or nil.
func (f *Factory) Last() *Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

// Live returns the engines that have not been destroyed.
func (f *Factory) Live() []*Engine {
	var out []*Engine
	for _, e := range f.Created() {
		if !e.Destroyed() {
			out = append(out, e)
		}
	}
	return out
}
