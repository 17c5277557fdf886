package telemetry

import (
	"context"
	"sync"
)

// Subscription: отменяемая периодическая задача.
// После возврата из Cancel ни один колбэк подписки уже не вызывается.
// Колбэки выполняются под внутренней блокировкой, поэтому звать Cancel из колбэка нельзя.
type Subscription struct {
	mu      sync.Mutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

func newSubscription() *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	return &Subscription{ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// Cancel идемпотентна. In-flight запрос прерывается через контекст, его результат отбрасывается.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	})
}

// Done закрывается, когда горутина подписки завершилась.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// deliver вызывает fn, только если подписка ещё активна.
func (s *Subscription) deliver(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	fn()
	return true
}
