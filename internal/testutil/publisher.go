package testutil

import (
	"context"
	"sync"
)

type Published struct {
	Key     string
	Payload any
}

// RecordingPublisher keeps every published domain event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Published
}

func (p *RecordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{Key: key, Payload: payload})
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

// Keys returns the routing keys in publish order.
func (p *RecordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.events))
	for i, e := range p.events {
		keys[i] = e.Key
	}
	return keys
}

func (p *RecordingPublisher) Count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Key == key {
			n++
		}
	}
	return n
}
