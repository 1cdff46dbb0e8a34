package utils

import "testing"

func TestSemaphoreCapacity(t *testing.T) {
	s := NewSemaphore(2)
	if !s.TryWait() || !s.TryWait() {
		t.Fatal("two acquisitions within capacity failed")
	}
	if s.TryWait() {
		t.Fatal("third acquisition should fail at capacity 2")
	}
	s.Signal()
	if !s.TryWait() {
		t.Fatal("acquisition after release failed")
	}
}

func TestSemaphoreExtraSignalIsIgnored(t *testing.T) {
	s := NewSemaphore(1)
	s.Signal() // nothing held, must not grow capacity
	if !s.TryWait() {
		t.Fatal("first acquisition failed")
	}
	if s.TryWait() {
		t.Fatal("capacity grew past 1 after a spurious signal")
	}
}
