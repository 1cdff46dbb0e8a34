package memory

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/csopesy-group3/csopesy-emu/utils"
)

// Manager is the MMU: per-process page tables, the physical frame pool, the
// FIFO victim queue and the backing store. Every operation is serialized by a
// single lock; the paging counters are atomics so vmstat reads them lock-free.
type Manager struct {
	totalMemory int
	frameSize   int
	numFrames   int

	mu         sync.Mutex
	physical   []byte
	frames     []Frame
	freeFrames []int
	fifo       []int // occupied frames, oldest first
	spaces     map[int]*processSpace

	swap *backingStore

	pageIns  atomic.Uint64
	pageOuts atomic.Uint64
}

// NewManager builds the MMU and creates the backing-store file
func NewManager(totalMemory, frameSize int, swapPath string) (*Manager, error) {
	if frameSize <= 0 || totalMemory < frameSize || totalMemory%frameSize != 0 {
		return nil, fmt.Errorf("invalid memory geometry: total=%d frame=%d", totalMemory, frameSize)
	}
	swap, err := openBackingStore(swapPath)
	if err != nil {
		return nil, err
	}

	numFrames := totalMemory / frameSize
	m := &Manager{
		totalMemory: totalMemory,
		frameSize:   frameSize,
		numFrames:   numFrames,
		physical:    make([]byte, totalMemory),
		frames:      make([]Frame, numFrames),
		freeFrames:  make([]int, 0, numFrames),
		spaces:      make(map[int]*processSpace),
		swap:        swap,
	}
	for i := numFrames - 1; i >= 0; i-- {
		m.frames[i] = Frame{Free: true}
		m.freeFrames = append(m.freeFrames, i)
	}

	utils.InfoLog.Info("Memory manager initialized",
		"total_memory", totalMemory, "frame_size", frameSize, "frames", numFrames, "backing_store", swapPath)
	return m, nil
}

// Close releases the backing store. Call only after all workers have joined.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.swap.close()
}

// Register allocates an all-absent page table for a new process
func (m *Manager) Register(pid, size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.spaces[pid]; exists {
		return fmt.Errorf("process %d already registered", pid)
	}
	space := newProcessSpace(pid, size, m.frameSize)
	m.spaces[pid] = space
	utils.InfoLog.Info("Process registered with MMU", "pid", pid, "memory_size", size, "pages", len(space.entries))
	return nil
}

// ReadWord reads the 16-bit value at a virtual address.
// Returns ErrAddressOutOfRange past the process's space, or a *PageFaultError
// when the page is absent; neither changes any state.
func (m *Manager) ReadWord(pid, addr int) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	phys, _, err := m.translate(pid, addr)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.physical[phys:]), nil
}

// WriteWord writes the 16-bit value at a virtual address and dirties the page
func (m *Manager) WriteWord(pid, addr int, value uint16) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	phys, pte, err := m.translate(pid, addr)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.physical[phys:], value)
	pte.Dirty = true
	return nil
}

// translate bounds-checks a 2-byte access and resolves it to a physical
// offset. Callers hold m.mu.
func (m *Manager) translate(pid, addr int) (int, *PageTableEntry, error) {
	space, exists := m.spaces[pid]
	if !exists {
		return 0, nil, fmt.Errorf("process %d not registered", pid)
	}
	if addr < 0 || addr+2 > space.size {
		return 0, nil, fmt.Errorf("%w: address %d, size %d", ErrAddressOutOfRange, addr, space.size)
	}
	page := addr / m.frameSize
	offset := addr % m.frameSize
	pte := &space.entries[page]
	if !pte.Present {
		return 0, nil, &PageFaultError{PID: pid, Page: page, Address: addr}
	}
	phys := pte.Frame*m.frameSize + offset
	if phys+2 > len(m.physical) {
		return 0, nil, fmt.Errorf("%w: address %d crosses the end of physical memory", ErrAddressOutOfRange, addr)
	}
	return phys, pte, nil
}

// HandlePageFault brings the faulted page into a frame, evicting the FIFO
// victim when no frame is free. Dirty victims are written back to the backing
// store at their stable offset, append-allocated on first swap-out.
func (m *Manager) HandlePageFault(pid, page int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, exists := m.spaces[pid]
	if !exists {
		return fmt.Errorf("process %d not registered", pid)
	}
	if page < 0 || page >= len(space.entries) {
		return fmt.Errorf("process %d has no page %d", pid, page)
	}
	pte := &space.entries[page]
	if pte.Present {
		return nil
	}

	frame, ok := m.takeFrame()
	if !ok {
		frame = m.popVictim()
		m.evictLocked(frame)
	}

	start := frame * m.frameSize
	if pte.SwapOffset >= 0 {
		m.swap.readPage(m.physical[start:start+m.frameSize], pte.SwapOffset)
	} else {
		clear(m.physical[start : start+m.frameSize])
	}

	pte.Present = true
	pte.Frame = frame
	m.frames[frame] = Frame{Free: false, PID: pid, Page: page}
	m.fifo = append(m.fifo, frame)
	m.pageIns.Add(1)

	utils.InfoLog.Debug("Page fault serviced", "pid", pid, "page", page, "frame", frame)
	return nil
}

// evictLocked pushes the page held by frame out of memory. Callers hold m.mu
// and have already removed the frame from the FIFO queue.
func (m *Manager) evictLocked(frame int) {
	owner := m.frames[frame]
	space := m.spaces[owner.PID]
	pte := &space.entries[owner.Page]

	if pte.Dirty {
		if pte.SwapOffset < 0 {
			pte.SwapOffset = m.swap.allocate(m.frameSize)
		}
		start := frame * m.frameSize
		m.swap.writePage(m.physical[start:start+m.frameSize], pte.SwapOffset)
	}

	pte.Present = false
	pte.Dirty = false
	pte.Frame = -1
	m.pageOuts.Add(1)

	utils.InfoLog.Debug("Page evicted", "pid", owner.PID, "page", owner.Page, "frame", frame)
}

// Release frees every frame a finished process still holds and drops its
// page table. The FIFO queue keeps the order of the surviving frames.
func (m *Manager) Release(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, exists := m.spaces[pid]
	if !exists {
		return
	}
	released := 0
	for i := range space.entries {
		pte := &space.entries[i]
		if !pte.Present {
			continue
		}
		m.removeFromFIFO(pte.Frame)
		m.freeFrame(pte.Frame)
		pte.Present = false
		pte.Frame = -1
		released++
	}
	delete(m.spaces, pid)
	utils.InfoLog.Info("Process memory released", "pid", pid, "frames_released", released)
}

// TotalMemory is the physical memory size in bytes
func (m *Manager) TotalMemory() int {
	return m.totalMemory
}

// FrameSize is the frame size in bytes
func (m *Manager) FrameSize() int {
	return m.frameSize
}

// UsedMemory is the bytes of physical memory backing occupied frames
func (m *Manager) UsedMemory() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (m.numFrames - len(m.freeFrames)) * m.frameSize
}

// FreeMemory is the bytes of physical memory in free frames
func (m *Manager) FreeMemory() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.freeFrames) * m.frameSize
}

// PageIns is the cumulative count of pages loaded into frames
func (m *Manager) PageIns() uint64 {
	return m.pageIns.Load()
}

// PageOuts is the cumulative count of evictions
func (m *Manager) PageOuts() uint64 {
	return m.pageOuts.Load()
}
