// Package emitter records the outcome of provider queries.
package emitter

import (
	"context"

	"github.com/yairfalse/idler/pkg/resource"
)

// Emitter records the outcome of one provider query.
type Emitter interface {
	// Emit records a single query result. Failed queries are results too.
	Emit(ctx context.Context, result resource.SourceResult) error

	// Close cleans up resources.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple backends.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit sends to all emitters, returns first error.
func (m *MultiEmitter) Emit(ctx context.Context, result resource.SourceResult) error {
	for _, e := range m.emitters {
		if err := e.Emit(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all emitters.
func (m *MultiEmitter) Close() error {
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Nop discards every result.
type Nop struct{}

func (Nop) Emit(context.Context, resource.SourceResult) error { return nil }
func (Nop) Close() error                                      { return nil }
