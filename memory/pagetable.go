package memory

import (
	"errors"
	"fmt"
)

// ErrAddressOutOfRange is returned when an access lands outside the
// process's virtual address space. It is terminal for the process.
var ErrAddressOutOfRange = errors.New("address out of range")

// PageFaultError reports an access to a valid but absent page. The worker
// recovers by asking the manager to service the fault.
type PageFaultError struct {
	PID     int
	Page    int
	Address int
}

func (e *PageFaultError) Error() string {
	return fmt.Sprintf("page fault: pid %d page %d (address %d)", e.PID, e.Page, e.Address)
}

// PageTableEntry maps one virtual page of a process
type PageTableEntry struct {
	Present    bool
	Dirty      bool
	Frame      int   // -1 while absent
	SwapOffset int64 // -1 until the page is first swapped out; stable afterwards
}

// processSpace is the per-process registration: its size and page table
type processSpace struct {
	pid     int
	size    int
	entries []PageTableEntry
}

func newProcessSpace(pid, size, frameSize int) *processSpace {
	numPages := (size + frameSize - 1) / frameSize
	entries := make([]PageTableEntry, numPages)
	for i := range entries {
		entries[i].Frame = -1
		entries[i].SwapOffset = -1
	}
	return &processSpace{pid: pid, size: size, entries: entries}
}
