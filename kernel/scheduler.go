package kernel

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/csopesy-group3/csopesy-emu/config"
	"github.com/csopesy-group3/csopesy-emu/memory"
	"github.com/csopesy-group3/csopesy-emu/process"
	"github.com/csopesy-group3/csopesy-emu/utils"
)

// BackingStorePath is where the MMU keeps its swap file
const BackingStorePath = "csopesy-backing-store.bin"

// Scheduler owns the MMU, the worker pool, the ready and fault-wait queues
// and the process registry. Process handles are lent by reference to workers
// and the shell; the queues hold each handle at most once.
type Scheduler struct {
	cfg *config.Config
	mem *memory.Manager

	readyMu    sync.Mutex
	readyCond  *sync.Cond
	readyQueue []*process.Process

	faultMu    sync.Mutex
	faultQueue []*process.Process

	listMu    sync.Mutex
	processes []*process.Process

	running      atomic.Bool
	shuttingDown atomic.Bool
	generating   atomic.Bool

	cpuTick     atomic.Int64
	activeTicks atomic.Uint64
	nextPID     atomic.Int64
	activeCount atomic.Int32

	wg    sync.WaitGroup
	genWG sync.WaitGroup
}

// New builds a scheduler and its MMU from a validated configuration
func New(cfg *config.Config) (*Scheduler, error) {
	mem, err := memory.NewManager(cfg.MaxOverallMem, cfg.MemPerFrame, BackingStorePath)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{cfg: cfg, mem: mem}
	s.readyCond = sync.NewCond(&s.readyMu)
	return s, nil
}

// Start spins up the clock task and one worker per configured CPU.
// Dispatch is live from here on; StartGeneration only toggles the generator.
func (s *Scheduler) Start() {
	s.running.Store(true)

	s.wg.Add(1)
	go s.clockLoop()

	for core := 0; core < s.cfg.NumCPU; core++ {
		s.wg.Add(1)
		go s.workerLoop(core)
	}

	utils.InfoLog.Info("Scheduler started",
		"num_cpu", s.cfg.NumCPU, "algorithm", s.cfg.Scheduler, "quantum_cycles", s.cfg.QuantumCycles)
}

// Shutdown stops the clock, generator and workers, joins them all, then
// releases the MMU. Safe to call more than once.
func (s *Scheduler) Shutdown() {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	s.generating.Store(false)
	s.running.Store(false)
	// Broadcast under the queue lock so no worker can check the predicate
	// and then miss this one-shot wakeup
	s.readyMu.Lock()
	s.readyCond.Broadcast()
	s.readyMu.Unlock()
	s.wg.Wait()
	s.genWG.Wait()
	if err := s.mem.Close(); err != nil {
		utils.ErrorLog.Error("Error closing backing store", "error", err)
	}
	utils.InfoLog.Info("Scheduler shut down")
}

// AddProcess registers a new process and queues it for dispatch. A nil
// program means "generate a random one". Returns the created handle.
func (s *Scheduler) AddProcess(name string, memorySize int, program []process.Instruction) (*process.Process, error) {
	if s.shuttingDown.Load() {
		return nil, fmt.Errorf("scheduler is shutting down")
	}
	if !config.IsValidMemorySize(memorySize) {
		return nil, fmt.Errorf("invalid memory size %d: must be a power of two in [64, 65536]", memorySize)
	}
	if existing := s.FindProcess(name); existing != nil {
		return nil, fmt.Errorf("process %q already exists", name)
	}

	var total int
	if program == nil {
		program, total = GenerateProgram(s.cfg)
	} else {
		total = len(program)
	}

	pid := int(s.nextPID.Add(1))
	proc := process.New(pid, name, program, total, memorySize)
	if err := s.mem.Register(pid, memorySize); err != nil {
		return nil, err
	}

	s.listMu.Lock()
	s.processes = append(s.processes, proc)
	s.listMu.Unlock()

	s.readyMu.Lock()
	s.readyQueue = append(s.readyQueue, proc)
	s.readyMu.Unlock()
	s.readyCond.Signal()

	return proc, nil
}

// FindProcess looks a process up by name
func (s *Scheduler) FindProcess(name string) *process.Process {
	s.listMu.Lock()
	defer s.listMu.Unlock()
	for _, p := range s.processes {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Processes returns a copy of the registry in creation order
func (s *Scheduler) Processes() []*process.Process {
	s.listMu.Lock()
	defer s.listMu.Unlock()
	out := make([]*process.Process, len(s.processes))
	copy(out, s.processes)
	return out
}

// RunningProcesses returns the not-yet-finished processes
func (s *Scheduler) RunningProcesses() []*process.Process {
	var out []*process.Process
	for _, p := range s.Processes() {
		if !p.IsFinished() {
			out = append(out, p)
		}
	}
	return out
}

// FinishedProcesses returns the finished (or violated) processes
func (s *Scheduler) FinishedProcesses() []*process.Process {
	var out []*process.Process
	for _, p := range s.Processes() {
		if p.IsFinished() {
			out = append(out, p)
		}
	}
	return out
}

// Memory exposes the MMU for reports and snapshots
func (s *Scheduler) Memory() *memory.Manager {
	return s.mem
}

// Config exposes the active configuration
func (s *Scheduler) Config() *config.Config {
	return s.cfg
}
