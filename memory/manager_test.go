package memory

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T, totalMemory, frameSize int) *Manager {
	t.Helper()
	m, err := NewManager(totalMemory, frameSize, filepath.Join(t.TempDir(), "backing-store.bin"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

// touch faults the page in (if needed) and writes value at addr
func touch(t *testing.T, m *Manager, pid, addr int, value uint16) {
	t.Helper()
	err := m.WriteWord(pid, addr, value)
	var fault *PageFaultError
	if errors.As(err, &fault) {
		if err := m.HandlePageFault(pid, fault.Page); err != nil {
			t.Fatalf("HandlePageFault(%d, %d): %v", pid, fault.Page, err)
		}
		err = m.WriteWord(pid, addr, value)
	}
	if err != nil {
		t.Fatalf("WriteWord(%d, %d): %v", pid, addr, err)
	}
}

// readBack faults the page in (if needed) and reads addr
func readBack(t *testing.T, m *Manager, pid, addr int) uint16 {
	t.Helper()
	v, err := m.ReadWord(pid, addr)
	var fault *PageFaultError
	if errors.As(err, &fault) {
		if err := m.HandlePageFault(pid, fault.Page); err != nil {
			t.Fatalf("HandlePageFault(%d, %d): %v", pid, fault.Page, err)
		}
		v, err = m.ReadWord(pid, addr)
	}
	if err != nil {
		t.Fatalf("ReadWord(%d, %d): %v", pid, addr, err)
	}
	return v
}

func TestFirstTouchFaultsThenLoadsZeroPage(t *testing.T) {
	m := newTestManager(t, 4096, 256)
	if err := m.Register(1, 4096); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := m.ReadWord(1, 0)
	var fault *PageFaultError
	if !errors.As(err, &fault) {
		t.Fatalf("first access returned %v, want a page fault", err)
	}
	if fault.Page != 0 {
		t.Errorf("faulting page = %d, want 0", fault.Page)
	}

	if err := m.HandlePageFault(1, 0); err != nil {
		t.Fatalf("HandlePageFault: %v", err)
	}
	if v, err := m.ReadWord(1, 0); err != nil || v != 0 {
		t.Errorf("fresh page read = (%d, %v), want (0, nil)", v, err)
	}

	if err := m.WriteWord(1, 0, 7); err != nil {
		t.Fatalf("WriteWord after page-in: %v", err)
	}
	if v := readBack(t, m, 1, 0); v != 7 {
		t.Errorf("mem[0] = %d, want 7", v)
	}

	if ins, outs := m.PageIns(), m.PageOuts(); ins != 1 || outs != 0 {
		t.Errorf("page_ins=%d page_outs=%d, want 1 and 0", ins, outs)
	}
}

func TestFIFOEvictionWritesBackDirtyPages(t *testing.T) {
	// Two physical frames, four virtual pages
	m := newTestManager(t, 512, 256)
	if err := m.Register(1, 1024); err != nil {
		t.Fatalf("Register: %v", err)
	}

	touch(t, m, 1, 0, 0x1111)   // page 0
	touch(t, m, 1, 2, 0x2222)   // page 0 again
	touch(t, m, 1, 256, 0x3333) // page 1
	if used := m.UsedMemory(); used != 512 {
		t.Fatalf("UsedMemory = %d, want 512", used)
	}

	// Page 2 has no free frame: page 0 (the FIFO head) is evicted dirty
	touch(t, m, 1, 512, 0x4444)
	if ins, outs := m.PageIns(), m.PageOuts(); ins != 3 || outs != 1 {
		t.Errorf("page_ins=%d page_outs=%d, want 3 and 1", ins, outs)
	}
	if _, err := m.ReadWord(1, 0); err == nil {
		t.Fatal("page 0 should be absent after eviction")
	}

	// Reloading page 0 restores the pre-eviction bytes from the backing store
	if v := readBack(t, m, 1, 0); v != 0x1111 {
		t.Errorf("restored mem[0] = 0x%X, want 0x1111", v)
	}
	if v := readBack(t, m, 1, 2); v != 0x2222 {
		t.Errorf("restored mem[2] = 0x%X, want 0x2222", v)
	}
	if v := readBack(t, m, 1, 512); v != 0x4444 {
		t.Errorf("mem[512] = 0x%X, want 0x4444", v)
	}
	if m.PageIns() < m.PageOuts() {
		t.Errorf("page_ins (%d) fell below page_outs (%d)", m.PageIns(), m.PageOuts())
	}
}

func TestCleanEvictionSkipsWriteback(t *testing.T) {
	m := newTestManager(t, 512, 256)
	if err := m.Register(1, 1024); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Page 0 is only read, never written: it stays clean
	if v := readBack(t, m, 1, 0); v != 0 {
		t.Fatalf("fresh page read = %d, want 0", v)
	}
	touch(t, m, 1, 256, 1)
	touch(t, m, 1, 512, 2) // evicts clean page 0

	// A clean page has no backing-store copy; reloading zeroes the frame
	if v := readBack(t, m, 1, 0); v != 0 {
		t.Errorf("reloaded clean page read = %d, want 0", v)
	}
}

func TestBoundsChecks(t *testing.T) {
	m := newTestManager(t, 512, 256)
	if err := m.Register(1, 1024); err != nil {
		t.Fatalf("Register: %v", err)
	}
	tests := []struct {
		name string
		addr int
	}{
		{"negative", -2},
		{"straddles the end", 1023},
		{"past the end", 1024},
		{"far past the end", 0xFFFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ReadWord(1, tt.addr); !errors.Is(err, ErrAddressOutOfRange) {
				t.Errorf("ReadWord(%d) = %v, want ErrAddressOutOfRange", tt.addr, err)
			}
			if err := m.WriteWord(1, tt.addr, 1); !errors.Is(err, ErrAddressOutOfRange) {
				t.Errorf("WriteWord(%d) = %v, want ErrAddressOutOfRange", tt.addr, err)
			}
		})
	}
}

func TestReleaseFreesFramesAndPreservesFIFOOrder(t *testing.T) {
	m := newTestManager(t, 1024, 256)
	if err := m.Register(1, 512); err != nil {
		t.Fatalf("Register(1): %v", err)
	}
	if err := m.Register(2, 512); err != nil {
		t.Fatalf("Register(2): %v", err)
	}

	touch(t, m, 1, 0, 1)   // oldest frame
	touch(t, m, 2, 0, 2)
	touch(t, m, 1, 256, 3)
	touch(t, m, 2, 256, 4) // all four frames occupied

	m.Release(1)
	if used := m.UsedMemory(); used != 512 {
		t.Errorf("UsedMemory after release = %d, want 512", used)
	}
	// Frames 0 and 2 (process 1) leave the queue; 1 and 3 keep their order
	if len(m.fifo) != 2 || m.fifo[0] != 1 || m.fifo[1] != 3 {
		t.Errorf("FIFO after release = %v, want [1 3]", m.fifo)
	}

	// Process 2's pages survive the release untouched
	if v := readBack(t, m, 2, 0); v != 2 {
		t.Errorf("mem[2:0] = %d, want 2", v)
	}
	if v := readBack(t, m, 2, 256); v != 4 {
		t.Errorf("mem[2:256] = %d, want 4", v)
	}

	// Released pid is gone entirely
	if _, err := m.ReadWord(1, 0); err == nil {
		t.Error("released process still readable")
	}
	// And its pid can be reused
	if err := m.Register(1, 512); err != nil {
		t.Errorf("re-Register after release: %v", err)
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	m := newTestManager(t, 512, 256)
	if err := m.Register(1, 512); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(1, 512); err == nil {
		t.Error("second Register for the same pid should fail")
	}
}

func TestHandlePageFaultOnPresentPageIsNoop(t *testing.T) {
	m := newTestManager(t, 512, 256)
	if err := m.Register(1, 512); err != nil {
		t.Fatalf("Register: %v", err)
	}
	touch(t, m, 1, 0, 5)
	before := m.PageIns()
	if err := m.HandlePageFault(1, 0); err != nil {
		t.Fatalf("HandlePageFault on present page: %v", err)
	}
	if m.PageIns() != before {
		t.Error("page_ins moved for an already-present page")
	}
}
