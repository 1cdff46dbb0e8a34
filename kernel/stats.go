package kernel

import (
	"fmt"

	"github.com/csopesy-group3/csopesy-emu/process"
)

// Process status labels shown by process-smi
const (
	StatusRunning  = "Running"
	StatusReady    = "Waiting/Ready"
	StatusFinished = "Finished"
	StatusMemFault = "MEM_FAULT"
)

// CoresUsed is the number of workers currently running a process
func (s *Scheduler) CoresUsed() int {
	return int(s.activeCount.Load())
}

// TotalTicks is cpu_tick times the number of cores
func (s *Scheduler) TotalTicks() uint64 {
	return uint64(s.cpuTick.Load()) * uint64(s.cfg.NumCPU)
}

// ActiveTicks is the cumulative count of instruction attempts across cores
func (s *Scheduler) ActiveTicks() uint64 {
	return s.activeTicks.Load()
}

// IdleTicks is max(0, total - active)
func (s *Scheduler) IdleTicks() uint64 {
	total, active := s.TotalTicks(), s.ActiveTicks()
	if active > total {
		return 0
	}
	return total - active
}

// CPUUtilization is cores-used over configured cores, in percent
func (s *Scheduler) CPUUtilization() float64 {
	if s.cfg.NumCPU == 0 {
		return 0
	}
	return float64(s.CoresUsed()) / float64(s.cfg.NumCPU) * 100
}

// StatusOf classifies a process for process-smi
func StatusOf(p *process.Process) string {
	if _, violated := p.ViolationRecord(); violated {
		return StatusMemFault
	}
	if p.IsFinished() {
		return StatusFinished
	}
	if p.Core() != -1 {
		return StatusRunning
	}
	return StatusReady
}

// ProcessInfo is one process-smi row
type ProcessInfo struct {
	PID        int    `json:"pid"`
	Name       string `json:"name"`
	MemorySize int    `json:"memory_size"`
	Status     string `json:"status"`
}

// ProcessTable builds the process-smi rows in creation order
func (s *Scheduler) ProcessTable() []ProcessInfo {
	procs := s.Processes()
	rows := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		rows = append(rows, ProcessInfo{
			PID:        p.PID,
			Name:       p.Name,
			MemorySize: p.MemorySize,
			Status:     StatusOf(p),
		})
	}
	return rows
}

// VMStat is the vmstat counter set
type VMStat struct {
	TotalMemoryKB uint64 `json:"total_memory_kb"`
	UsedMemoryKB  uint64 `json:"used_memory_kb"`
	FreeMemoryKB  uint64 `json:"free_memory_kb"`
	TotalTicks    uint64 `json:"total_ticks"`
	ActiveTicks   uint64 `json:"active_ticks"`
	IdleTicks     uint64 `json:"idle_ticks"`
	PageIns       uint64 `json:"page_ins"`
	PageOuts      uint64 `json:"page_outs"`
}

// VMStatSnapshot gathers the vmstat view from the MMU and the clock
func (s *Scheduler) VMStatSnapshot() VMStat {
	return VMStat{
		TotalMemoryKB: uint64(s.mem.TotalMemory()) / 1024,
		UsedMemoryKB:  uint64(s.mem.UsedMemory()) / 1024,
		FreeMemoryKB:  uint64(s.mem.FreeMemory()) / 1024,
		TotalTicks:    s.TotalTicks(),
		ActiveTicks:   s.ActiveTicks(),
		IdleTicks:     s.IdleTicks(),
		PageIns:       s.mem.PageIns(),
		PageOuts:      s.mem.PageOuts(),
	}
}

func (v VMStat) String() string {
	return fmt.Sprintf(
		"total memory: %d KB\nused memory: %d KB\nfree memory: %d KB\n"+
			"total cpu ticks: %d\nactive cpu ticks: %d\nidle cpu ticks: %d\n"+
			"page ins: %d\npage outs: %d",
		v.TotalMemoryKB, v.UsedMemoryKB, v.FreeMemoryKB,
		v.TotalTicks, v.ActiveTicks, v.IdleTicks,
		v.PageIns, v.PageOuts)
}
