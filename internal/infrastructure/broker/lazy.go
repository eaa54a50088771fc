package broker

import (
	"context"
	"errors"
	"sync"

	"fallout/internal/ports"
)

// LazyPublisher dials its broker on the first Publish, so commands that never
// relay do not need the broker to be reachable.
type LazyPublisher struct {
	name string
	open func() (ports.AuditPublisher, error)

	mu    sync.Mutex
	inner ports.AuditPublisher
}

var _ ports.AuditPublisher = (*LazyPublisher)(nil)

func NewLazyPublisher(name string, open func() (ports.AuditPublisher, error)) *LazyPublisher {
	return &LazyPublisher{name: name, open: open}
}

func (p *LazyPublisher) Name() string {
	return p.name
}

func (p *LazyPublisher) Publish(ctx context.Context, records []ports.AuditRecord) error {
	inner, err := p.get()
	if err != nil {
		return err
	}
	return inner.Publish(ctx, records)
}

func (p *LazyPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inner == nil {
		return nil
	}
	err := p.inner.Close()
	p.inner = nil
	return err
}

func (p *LazyPublisher) get() (ports.AuditPublisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inner != nil {
		return p.inner, nil
	}
	if p.open == nil {
		return nil, errors.New("publisher factory is required")
	}
	inner, err := p.open()
	if err != nil {
		return nil, err
	}
	p.inner = inner
	return inner, nil
}
