package process

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/csopesy-group3/csopesy-emu/memory"
	"github.com/csopesy-group3/csopesy-emu/utils"
)

// Memory is the interpreter's window onto the MMU
type Memory interface {
	ReadWord(pid int, addr int) (uint16, error)
	WriteWord(pid int, addr int, value uint16) error
}

// ExecuteOne runs the instruction at the current pointer against mem, on
// behalf of core coreID at clock tick tick.
//
// The pointer only advances when the instruction retires: a page fault leaves
// ip untouched and sets the fault flag for the worker; a memory violation
// terminates the process on the spot. A faulted instruction re-executes from
// the start after page-in, which is safe because resolution is deterministic
// for a given memory state.
func (p *Process) ExecuteOne(mem Memory, coreID int, tick int64, delayPerExec int) {
	if p.finished.Load() || p.IsSleeping(tick) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ip := int(p.ip.Load())
	if ip >= len(p.program) {
		p.finished.Store(true)
		return
	}

	p.faulted.Store(false)
	p.executeLocked(p.program[ip], mem, coreID, tick)

	if p.finished.Load() || p.faulted.Load() {
		return
	}

	ip = int(p.ip.Add(1))
	if delayPerExec > 0 {
		p.sleepUntilTick.Store(tick + int64(delayPerExec))
	}
	if ip >= len(p.program) {
		p.finished.Store(true)
	}
}

func (p *Process) executeLocked(instr Instruction, mem Memory, coreID int, tick int64) {
	switch instr.Op {
	case OpPrint:
		var b strings.Builder
		fmt.Fprintf(&b, "(%s) Core %d: ", utils.FormatTimestamp(time.Now()), coreID)
		if len(instr.Args) == 0 {
			b.WriteString("Hello from " + p.Name)
		} else {
			for _, arg := range instr.Args {
				if arg.Kind == ValueSymbol {
					if _, declared := p.symbols[arg.Symbol]; !declared {
						b.WriteString(arg.Symbol)
						continue
					}
				}
				v, ok := p.resolveLocked(mem, arg, coreID)
				if !ok {
					return
				}
				fmt.Fprintf(&b, "%d", v)
			}
		}
		p.logs = append(p.logs, b.String())

	case OpDeclare:
		if len(instr.Args) != 2 {
			return
		}
		v, ok := p.resolveLocked(mem, instr.Args[1], coreID)
		if !ok {
			return
		}
		p.writeSymbolLocked(mem, instr.Args[0].Symbol, v, coreID)

	case OpAdd, OpSubtract:
		if len(instr.Args) != 3 {
			return
		}
		a, ok := p.resolveLocked(mem, instr.Args[1], coreID)
		if !ok {
			return
		}
		b, ok := p.resolveLocked(mem, instr.Args[2], coreID)
		if !ok {
			return
		}
		var result uint16
		if instr.Op == OpAdd {
			// Saturating 16-bit arithmetic: compute wide, clamp
			sum := uint32(a) + uint32(b)
			if sum > 65535 {
				sum = 65535
			}
			result = uint16(sum)
		} else {
			if a < b {
				result = 0
			} else {
				result = a - b
			}
		}
		p.writeSymbolLocked(mem, instr.Args[0].Symbol, result, coreID)

	case OpSleep:
		if len(instr.Args) != 1 {
			return
		}
		d, ok := p.resolveLocked(mem, instr.Args[0], coreID)
		if !ok {
			return
		}
		p.sleepUntilTick.Store(tick + int64(d))

	case OpFor:
		if len(instr.ForBlock) == 0 || instr.ForRepeats <= 0 {
			return
		}
		repeated := make([]Instruction, 0, len(instr.ForBlock)*instr.ForRepeats)
		for i := 0; i < instr.ForRepeats; i++ {
			repeated = append(repeated, instr.ForBlock...)
		}
		// Unroll-on-execute: splice the repeated block in right after the FOR
		pos := int(p.ip.Load()) + 1
		unrolled := make([]Instruction, 0, len(p.program)+len(repeated))
		unrolled = append(unrolled, p.program[:pos]...)
		unrolled = append(unrolled, repeated...)
		unrolled = append(unrolled, p.program[pos:]...)
		p.program = unrolled

	case OpRead:
		if len(instr.Args) != 2 {
			return
		}
		v, ok := p.readMemLocked(mem, instr.Args[1].Address, coreID)
		if !ok {
			return
		}
		p.writeSymbolLocked(mem, instr.Args[0].Symbol, v, coreID)

	case OpWrite:
		if len(instr.Args) != 2 {
			return
		}
		v, ok := p.resolveLocked(mem, instr.Args[1], coreID)
		if !ok {
			return
		}
		p.writeMemLocked(mem, instr.Args[0].Address, v, coreID)
	}
}

// resolveLocked evaluates a Value: literals are themselves, a declared symbol
// reads its slot, an undeclared symbol is 0, an address reads that address.
// ok=false means the access faulted or violated and the instruction must stop.
func (p *Process) resolveLocked(mem Memory, v Value, coreID int) (uint16, bool) {
	switch v.Kind {
	case ValueLiteral:
		return v.Literal, true
	case ValueAddress:
		return p.readMemLocked(mem, v.Address, coreID)
	default:
		off, declared := p.symbols[v.Symbol]
		if !declared {
			return 0, true
		}
		return p.readMemLocked(mem, int32(off), coreID)
	}
}

// writeSymbolLocked stores val into the symbol's slot, allocating the next
// free 2-byte slot for a new symbol. When the 64-byte region is exhausted the
// write is dropped and the instruction still completes. The table entry is
// committed only after the memory write lands, so a page-faulted attempt
// leaves the table unchanged and the retry allocates the same offset.
func (p *Process) writeSymbolLocked(mem Memory, name string, val uint16, coreID int) bool {
	off, declared := p.symbols[name]
	if !declared {
		if p.nextFreeOffset+2 > SymbolTableSize {
			utils.InfoLog.Warn("Symbol table full, write dropped", "pid", p.PID, "symbol", name)
			return true
		}
		off = p.nextFreeOffset
	}
	if !p.writeMemLocked(mem, int32(off), val, coreID) {
		return false
	}
	if !declared {
		p.symbols[name] = off
		p.nextFreeOffset += 2
	}
	return true
}

func (p *Process) readMemLocked(mem Memory, addr int32, coreID int) (uint16, bool) {
	v, err := mem.ReadWord(p.PID, int(addr))
	if err != nil {
		p.handleMemError(err, addr, coreID)
		return 0, false
	}
	return v, true
}

func (p *Process) writeMemLocked(mem Memory, addr int32, val uint16, coreID int) bool {
	if err := mem.WriteWord(p.PID, int(addr), val); err != nil {
		p.handleMemError(err, addr, coreID)
		return false
	}
	return true
}

func (p *Process) handleMemError(err error, addr int32, coreID int) {
	var fault *memory.PageFaultError
	switch {
	case errors.As(err, &fault):
		p.faultAddress.Store(addr)
		p.faulted.Store(true)
	case errors.Is(err, memory.ErrAddressOutOfRange):
		p.setViolationLocked(addr, coreID)
	default:
		utils.ErrorLog.Error("Unexpected memory error", "pid", p.PID, "address", addr, "error", err)
		p.setViolationLocked(addr, coreID)
	}
}
