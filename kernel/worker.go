package kernel

import (
	"github.com/csopesy-group3/csopesy-emu/config"
	"github.com/csopesy-group3/csopesy-emu/process"
	"github.com/csopesy-group3/csopesy-emu/utils"
)

// workerLoop is one CPU core: it waits for dispatchable work, claims one
// process at a time and runs it for a slice. The single-dequeue discipline
// guarantees a process never runs on two cores at once.
func (s *Scheduler) workerLoop(coreID int) {
	defer s.wg.Done()
	for {
		s.readyMu.Lock()
		for !s.shuttingDown.Load() && !(s.running.Load() && len(s.readyQueue) > 0) {
			s.readyCond.Wait()
		}
		if s.shuttingDown.Load() {
			s.readyMu.Unlock()
			return
		}
		proc := s.readyQueue[0]
		s.readyQueue = s.readyQueue[1:]
		s.readyMu.Unlock()

		s.runSlice(proc, coreID)
	}
}

// runSlice executes one dispatch of proc on coreID: instructions run back to
// back, each attempt counted as one active tick, until the process finishes,
// sleeps, faults, or (under RR) retires a full quantum. Faulted attempts do not consume quantum; the quantum resets on the
// next dispatch.
func (s *Scheduler) runSlice(proc *process.Process, coreID int) {
	s.activeCount.Add(1)
	proc.SetCore(coreID)

	quantum := -1
	if s.cfg.Scheduler == config.SchedulerRR {
		quantum = s.cfg.QuantumCycles
	}
	retired := 0
	faultParked := false

	for !proc.IsFinished() && !s.shuttingDown.Load() {
		tick := s.cpuTick.Load()
		if proc.IsSleeping(tick) {
			break
		}
		s.activeTicks.Add(1)

		proc.ExecuteOne(s.mem, coreID, tick, s.cfg.DelayPerExec)

		if proc.Faulted() {
			page := int(proc.FaultAddress()) / s.cfg.MemPerFrame
			if err := s.mem.HandlePageFault(proc.PID, page); err != nil {
				utils.ErrorLog.Error("Page fault service failed", "pid", proc.PID, "page", page, "error", err)
			}
			s.faultMu.Lock()
			s.faultQueue = append(s.faultQueue, proc)
			s.faultMu.Unlock()
			faultParked = true
			break
		}

		retired++
		if quantum != -1 && retired >= quantum {
			break
		}
	}

	proc.SetCore(-1)
	s.activeCount.Add(-1)

	if proc.IsFinished() {
		s.mem.Release(proc.PID)
	} else if !faultParked && !s.shuttingDown.Load() {
		s.readyMu.Lock()
		s.readyQueue = append(s.readyQueue, proc)
		s.readyMu.Unlock()
	}
	s.readyCond.Signal()
}
