package process

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/csopesy-group3/csopesy-emu/utils"
)

// SymbolTableSize is the byte length of the per-process variable region at
// the start of the virtual address space. Each variable takes a 2-byte slot.
const SymbolTableSize = 64

// Violation records a terminal out-of-range memory access
type Violation struct {
	Address   int32
	Timestamp time.Time
}

// Process is a shared handle: the scheduler queues, the workers and the shell
// all hold references to the same instance. Hot flags are atomics; everything
// structural (program, logs, symbol table) is guarded by mu.
type Process struct {
	PID          int
	Name         string
	CreationTime time.Time
	MemorySize   int

	mu                sync.Mutex
	program           []Instruction
	logs              []string
	symbols           map[string]int
	nextFreeOffset    int
	totalInstructions int
	violation         *Violation

	ip             atomic.Int64
	finished       atomic.Bool
	faulted        atomic.Bool
	faultAddress   atomic.Int32
	sleepUntilTick atomic.Int64
	core           atomic.Int32
}

// New creates a process with its program already fully generated or parsed.
// totalInstructions is the projected fully-unrolled count and never changes.
func New(pid int, name string, program []Instruction, totalInstructions int, memorySize int) *Process {
	p := &Process{
		PID:               pid,
		Name:              name,
		CreationTime:      time.Now(),
		MemorySize:        memorySize,
		program:           program,
		symbols:           make(map[string]int),
		totalInstructions: totalInstructions,
	}
	p.core.Store(-1)
	utils.InfoLog.Info("Process created", "pid", pid, "name", name, "instructions", totalInstructions, "memory_size", memorySize)
	return p
}

// ExecutedCount is the current instruction pointer, shown as "current line"
func (p *Process) ExecutedCount() int {
	return int(p.ip.Load())
}

// TotalInstructions is the unrolled total fixed at creation
func (p *Process) TotalInstructions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalInstructions
}

func (p *Process) IsFinished() bool {
	return p.finished.Load()
}

// IsSleeping reports whether the process is still in its sleep window
func (p *Process) IsSleeping(tick int64) bool {
	return p.sleepUntilTick.Load() > tick
}

func (p *Process) Faulted() bool {
	return p.faulted.Load()
}

// FaultAddress is the virtual address of the last page fault
func (p *Process) FaultAddress() int32 {
	return p.faultAddress.Load()
}

// Core returns the worker core the process is assigned to, or -1
func (p *Process) Core() int {
	return int(p.core.Load())
}

func (p *Process) SetCore(core int) {
	p.core.Store(int32(core))
}

// Logs returns a copy of the process log buffer
func (p *Process) Logs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.logs))
	copy(out, p.logs)
	return out
}

// AppendLog adds one line to the process log
func (p *Process) AppendLog(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, line)
}

// ViolationRecord returns the violation, if one terminated the process
func (p *Process) ViolationRecord() (Violation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.violation == nil {
		return Violation{}, false
	}
	return *p.violation, true
}

// setViolationLocked terminates the process on an out-of-range access.
// Callers hold mu.
func (p *Process) setViolationLocked(addr int32, coreID int) {
	if p.violation != nil {
		return
	}
	now := time.Now()
	p.violation = &Violation{Address: addr, Timestamp: now}
	p.logs = append(p.logs, fmt.Sprintf("(%s) Core %d: FATAL: memory access violation at 0x%X, process terminated",
		utils.FormatTimestamp(now), coreID, addr))
	p.finished.Store(true)
	utils.ErrorLog.Error("Memory access violation", "pid", p.PID, "name", p.Name, "address", fmt.Sprintf("0x%X", addr))
}
