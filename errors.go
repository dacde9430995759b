package vtbridge

import "sync"

// ErrorEvent is a subscribe-only fan-out channel for tile pipeline
// failures. Each failure is reported once; slow subscribers are skipped
// rather than blocking the pipeline.
type ErrorEvent struct {
	mu   sync.RWMutex
	subs map[chan error]struct{}
}

func newErrorEvent() *ErrorEvent {
	return &ErrorEvent{subs: make(map[chan error]struct{})}
}

// Subscribe returns a buffered channel receiving reported errors.
func (e *ErrorEvent) Subscribe() chan error {
	ch := make(chan error, 16)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (e *ErrorEvent) Unsubscribe(ch chan error) {
	e.mu.Lock()
	delete(e.subs, ch)
	e.mu.Unlock()
	close(ch)
}

func (e *ErrorEvent) notify(err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for ch := range e.subs {
		select {
		case ch <- err:
		default:
			// subscriber too slow, skip
		}
	}
}
