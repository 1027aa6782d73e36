package registry

import (
	"context"

	"github.com/mvp-joe/symgraph/internal/adapters"
)

// Reducer drains extractions from many producers into one registry on a
// single goroutine, so merge order follows arrival order on the channel.
type Reducer struct {
	reg  *Registry
	in   chan *adapters.Extraction
	done chan struct{}
}

// NewReducer starts a reducer writing into reg. buffer sizes the input channel.
func NewReducer(reg *Registry, buffer int) *Reducer {
	r := &Reducer{
		reg:  reg,
		in:   make(chan *adapters.Extraction, buffer),
		done: make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Reducer) run() {
	defer close(r.done)
	for ext := range r.in {
		r.reg.InsertExtraction(ext)
	}
}

// Send queues ext for merging. It blocks while the buffer is full and
// gives up when ctx is done.
func (r *Reducer) Send(ctx context.Context, ext *adapters.Extraction) error {
	select {
	case r.in <- ext:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting extractions and waits until every queued one is merged.
// No Send may be in flight or follow.
func (r *Reducer) Close() *Registry {
	close(r.in)
	<-r.done
	return r.reg
}
