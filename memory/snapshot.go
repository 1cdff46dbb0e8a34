package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/csopesy-group3/csopesy-emu/utils"
)

const snapshotDir = "memory_stamps"

// WriteSnapshot dumps the frame table to memory_stamps/memory_stamp_<tick>.txt.
// names maps pid to process name for the ownership column.
func (m *Manager) WriteSnapshot(tick int64, names map[int]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return "", fmt.Errorf("could not create %s: %w", snapshotDir, err)
	}
	path := filepath.Join(snapshotDir, fmt.Sprintf("memory_stamp_%d.txt", tick))

	var b strings.Builder
	fmt.Fprintf(&b, "Timestamp: %s\n", utils.FormatTimestamp(time.Now()))
	fmt.Fprintf(&b, "Tick: %d\n", tick)

	inMemory := make(map[int]bool)
	for _, f := range m.frames {
		if !f.Free {
			inMemory[f.PID] = true
		}
	}
	fmt.Fprintf(&b, "Processes in memory: %d\n", len(inMemory))
	fmt.Fprintf(&b, "Used frames: %d / %d\n\n", m.numFrames-len(m.freeFrames), m.numFrames)

	for i, f := range m.frames {
		if f.Free {
			fmt.Fprintf(&b, "frame %4d  free\n", i)
			continue
		}
		name := names[f.PID]
		if name == "" {
			name = fmt.Sprintf("pid %d", f.PID)
		}
		fmt.Fprintf(&b, "frame %4d  %-12s page %d\n", i, name, f.Page)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("could not write %s: %w", path, err)
	}
	utils.InfoLog.Info("Memory snapshot written", "path", path, "tick", tick)
	return path, nil
}
