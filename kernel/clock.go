package kernel

import "time"

// TickInterval is the real-time length of one simulation tick
const TickInterval = 100 * time.Millisecond

// clockLoop is the simulation's sole time base: every ~100 ms it advances
// cpu_tick by one, returns fault-parked processes to the ready queue in the
// order they parked, and wakes the workers.
func (s *Scheduler) clockLoop() {
	defer s.wg.Done()
	for !s.shuttingDown.Load() {
		if s.running.Load() {
			s.cpuTick.Add(1)
			s.drainFaultQueue()
			s.readyCond.Broadcast()
		}
		time.Sleep(TickInterval)
	}
}

// drainFaultQueue moves every parked process to the ready-queue tail,
// FIFO-preserving
func (s *Scheduler) drainFaultQueue() {
	s.faultMu.Lock()
	parked := s.faultQueue
	s.faultQueue = nil
	s.faultMu.Unlock()

	if len(parked) == 0 {
		return
	}
	s.readyMu.Lock()
	s.readyQueue = append(s.readyQueue, parked...)
	s.readyMu.Unlock()
}

// CPUTick is the current clock tick
func (s *Scheduler) CPUTick() int64 {
	return s.cpuTick.Load()
}
