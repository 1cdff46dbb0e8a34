package kernel

import (
	"testing"

	"github.com/csopesy-group3/csopesy-emu/config"
	"github.com/csopesy-group3/csopesy-emu/process"
)

// unrolledCount mirrors how the generator projects a program's size: a FOR
// counts as its block fully repeated, everything else as one instruction
func unrolledCount(program []process.Instruction) int {
	total := 0
	for _, instr := range program {
		if instr.Op == process.OpFor {
			total += instr.ForRepeats * unrolledCount(instr.ForBlock)
		} else {
			total++
		}
	}
	return total
}

func checkGenerated(t *testing.T, program []process.Instruction, depth int, declared map[string]bool) {
	t.Helper()
	for _, instr := range program {
		switch instr.Op {
		case process.OpDeclare:
			if len(instr.Args) != 2 {
				t.Errorf("DECLARE with %d args", len(instr.Args))
			}
			declared[instr.Args[0].Symbol] = true

		case process.OpAdd, process.OpSubtract:
			if len(instr.Args) != 3 {
				t.Errorf("%v with %d args", instr.Op, len(instr.Args))
			}
			for _, arg := range instr.Args {
				if arg.Kind != process.ValueSymbol {
					t.Errorf("%v argument is not a symbol: %+v", instr.Op, arg)
				}
			}

		case process.OpSleep:
			if len(instr.Args) != 1 || instr.Args[0].Kind != process.ValueLiteral {
				t.Errorf("SLEEP args = %+v", instr.Args)
			}
			if d := instr.Args[0].Literal; d < 5 || d > 20 {
				t.Errorf("SLEEP duration %d outside [5, 20]", d)
			}

		case process.OpFor:
			if depth >= maxForNesting {
				t.Errorf("FOR generated at depth %d, cap is %d", depth+1, maxForNesting)
			}
			if instr.ForRepeats < 2 || instr.ForRepeats > 10 {
				t.Errorf("FOR repeats = %d outside [2, 10]", instr.ForRepeats)
			}
			if len(instr.ForBlock) == 0 {
				t.Error("FOR with empty block")
			}
			checkGenerated(t, instr.ForBlock, depth+1, declared)

		case process.OpRead, process.OpWrite:
			t.Errorf("generator produced %v, which only user programs may contain", instr.Op)
		}
	}
}

func TestGenerateProgramProperties(t *testing.T) {
	cfg := config.Default()
	cfg.MinInstructions = 10
	cfg.MaxInstructions = 60

	for i := 0; i < 50; i++ {
		program, total := GenerateProgram(cfg)
		if total < cfg.MinInstructions || total > cfg.MaxInstructions {
			t.Fatalf("projected total %d outside [%d, %d]", total, cfg.MinInstructions, cfg.MaxInstructions)
		}
		if got := unrolledCount(program); got != total {
			t.Fatalf("unrolled count %d != projected total %d", got, total)
		}
		declared := make(map[string]bool)
		checkGenerated(t, program, 0, declared)
		if len(declared) > maxVariables {
			t.Fatalf("generator declared %d variables, cap is %d", len(declared), maxVariables)
		}
	}
}

func TestRandomMemorySizeIsBoundedPowerOfTwo(t *testing.T) {
	cfg := testConfig()
	cfg.MinMemPerProc = 256
	cfg.MaxMemPerProc = 4096
	s := newTestScheduler(t, cfg)

	for i := 0; i < 100; i++ {
		size := s.randomMemorySize()
		if !config.IsValidMemorySize(size) {
			t.Fatalf("randomMemorySize = %d, not a valid power of two", size)
		}
		if size < 256 || size > 4096 {
			t.Fatalf("randomMemorySize = %d outside [256, 4096]", size)
		}
	}
}

func TestGenerationLifecycle(t *testing.T) {
	cfg := testConfig()
	cfg.BatchProcessFreq = 1
	s := newTestScheduler(t, cfg)
	s.Start()

	s.StartGeneration()
	waitFor(t, "a generated process", func() bool { return len(s.Processes()) > 0 })
	s.StopGeneration()

	procs := s.Processes()
	if procs[0].Name != "p1" {
		t.Errorf("first generated process named %q, want p1", procs[0].Name)
	}
}
