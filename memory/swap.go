package memory

import (
	"os"

	"github.com/csopesy-group3/csopesy-emu/utils"
)

// backingStore is the single flat swap file. Offsets are append-allocated in
// frame-size chunks and never reused for a different page; the file is never
// compacted or truncated during a run.
//
// All calls happen under the manager lock, so file access is serialized.
// An I/O error here means the environment is broken and the whole emulator
// aborts.
type backingStore struct {
	file       *os.File
	path       string
	nextOffset int64
}

func openBackingStore(path string) (*backingStore, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &backingStore{file: file, path: path}, nil
}

// allocate reserves the next chunk and returns its stable offset
func (b *backingStore) allocate(size int) int64 {
	offset := b.nextOffset
	b.nextOffset += int64(size)
	return offset
}

func (b *backingStore) writePage(data []byte, offset int64) {
	if _, err := b.file.WriteAt(data, offset); err != nil {
		b.fatal("write", offset, err)
	}
	if err := b.file.Sync(); err != nil {
		b.fatal("sync", offset, err)
	}
}

func (b *backingStore) readPage(data []byte, offset int64) {
	if _, err := b.file.ReadAt(data, offset); err != nil {
		b.fatal("read", offset, err)
	}
}

func (b *backingStore) close() error {
	return b.file.Close()
}

func (b *backingStore) fatal(op string, offset int64, err error) {
	utils.ErrorLog.Error("Backing store I/O failure, aborting",
		"operation", op, "file", b.path, "offset", offset, "error", err)
	os.Exit(1)
}
