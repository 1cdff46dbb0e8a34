package utils

// Semaphore implements a counting semaphore over a channel
type Semaphore struct {
	c chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{
		c: make(chan struct{}, capacity),
	}
}

// Wait (P) decrements the semaphore, blocks at 0
func (s *Semaphore) Wait() {
	s.c <- struct{}{}
}

// Signal (V) increments the semaphore
func (s *Semaphore) Signal() {
	select {
	case <-s.c:
	default:
		// Already at full capacity, ignore the extra signal
	}
}

// TryWait attempts to decrement without blocking
func (s *Semaphore) TryWait() bool {
	select {
	case s.c <- struct{}{}:
		return true
	default:
		return false
	}
}
