package serve

import "sync"

// Observer receives progress of an [Engine].
// Observers are called synchronously on the transferring goroutine.
type Observer interface {
	OnProgress(e *Engine)
}

type ObserverFunc func(e *Engine)

func (f ObserverFunc) OnProgress(e *Engine) { f(e) }

// Handle identifies an attached observer.
type Handle uint64

type attachment struct {
	handle   Handle
	observer Observer
}

// Subject keeps observers in attachment order.
// The zero value is ready to use.
type Subject struct {
	mu        sync.Mutex
	next      Handle
	observers []attachment
}

// Attach adds o and returns the handle to detach it with.
func (s *Subject) Attach(o Observer) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	s.observers = append(s.observers, attachment{handle: s.next, observer: o})
	return s.next
}

// Detach removes the observer of h.
// Unknown handle is ignored.
func (s *Subject) Detach(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.observers {
		if a.handle == h {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of attached observers.
func (s *Subject) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

// notify calls every observer attached at the time of the call.
// Observers may attach or detach while being notified.
func (s *Subject) notify(e *Engine) {
	s.mu.Lock()
	snapshot := make([]Observer, len(s.observers))
	for i, a := range s.observers {
		snapshot[i] = a.observer
	}
	s.mu.Unlock()

	for _, o := range snapshot {
		o.OnProgress(e)
	}
}
