package kernel

import (
	"fmt"
	"math/bits"
	"math/rand"
	"time"

	"github.com/csopesy-group3/csopesy-emu/config"
	"github.com/csopesy-group3/csopesy-emu/process"
	"github.com/csopesy-group3/csopesy-emu/utils"
)

const (
	maxVariables  = 20
	maxForNesting = 3
)

// StartGeneration enables the generator task. Idempotent while enabled.
func (s *Scheduler) StartGeneration() {
	if s.shuttingDown.Load() || !s.generating.CompareAndSwap(false, true) {
		return
	}
	s.genWG.Add(1)
	go s.generatorLoop()
	utils.InfoLog.Info("Process generation started", "batch_process_freq", s.cfg.BatchProcessFreq)
}

// StopGeneration clears the generation flag; the task exits at its next poll
func (s *Scheduler) StopGeneration() {
	if s.generating.CompareAndSwap(true, false) {
		utils.InfoLog.Info("Process generation stopped")
	}
}

// generatorLoop sleeps batch_process_freq ticks, polling every tick so
// stop/shutdown stay responsive, then synthesizes one random process.
func (s *Scheduler) generatorLoop() {
	defer s.genWG.Done()
	if s.cfg.BatchProcessFreq <= 0 {
		s.generating.Store(false)
		return
	}
	for s.generating.Load() && !s.shuttingDown.Load() {
		for i := 0; i < s.cfg.BatchProcessFreq && s.generating.Load() && !s.shuttingDown.Load(); i++ {
			time.Sleep(TickInterval)
		}
		if !s.generating.Load() || s.shuttingDown.Load() {
			return
		}
		name := fmt.Sprintf("p%d", s.nextPID.Load()+1)
		if _, err := s.AddProcess(name, s.randomMemorySize(), nil); err != nil {
			utils.ErrorLog.Error("Could not generate process", "name", name, "error", err)
		}
	}
}

// randomMemorySize samples U(min, max) and rounds down to a power of two
func (s *Scheduler) randomMemorySize() int {
	lo, hi := s.cfg.MinMemPerProc, s.cfg.MaxMemPerProc
	sampled := lo + rand.Intn(hi-lo+1)
	return 1 << (bits.Len(uint(sampled)) - 1)
}

// GenerateProgram builds a random program of between min-ins and max-ins
// unrolled instructions. Returns the instructions and the projected unrolled
// total, which is what operators see as the process's instruction count.
func GenerateProgram(cfg *config.Config) ([]process.Instruction, int) {
	target := cfg.MinInstructions + rand.Intn(cfg.MaxInstructions-cfg.MinInstructions+1)
	var declared []string
	total := 0
	program := generateBlock(cfg, target, &declared, 0, &total)
	return program, total
}

// generateBlock samples instruction kinds with weights PRINT 5/10 and
// DECLARE/ADD/SUBTRACT/SLEEP/FOR 1/10 each, falling back to PRINT whenever a
// kind is not eligible. total tracks the projected unrolled count and caps
// the block at max-ins.
func generateBlock(cfg *config.Config, count int, declared *[]string, depth int, total *int) []process.Instruction {
	program := make([]process.Instruction, 0, count)
	for i := 0; i < count; i++ {
		if *total >= cfg.MaxInstructions {
			break
		}
		switch choice := rand.Intn(10); {
		case choice == 5 && len(*declared) < maxVariables:
			name := fmt.Sprintf("v%d", len(*declared))
			*declared = append(*declared, name)
			program = append(program, process.Instruction{
				Op:   process.OpDeclare,
				Args: []process.Value{process.SymbolValue(name), process.LiteralValue(uint16(rand.Intn(1001)))},
			})
			*total++

		case (choice == 6 || choice == 7) && len(*declared) >= 2:
			op := process.OpAdd
			if choice == 7 {
				op = process.OpSubtract
			}
			program = append(program, process.Instruction{
				Op: op,
				Args: []process.Value{
					process.SymbolValue(randomVariable(*declared)),
					process.SymbolValue(randomVariable(*declared)),
					process.SymbolValue(randomVariable(*declared)),
				},
			})
			*total++

		case choice == 8:
			program = append(program, process.Instruction{
				Op:   process.OpSleep,
				Args: []process.Value{process.LiteralValue(uint16(5 + rand.Intn(16)))},
			})
			*total++

		case choice == 9 && depth < maxForNesting:
			repeats := 2 + rand.Intn(9)
			innerCount := 2 + rand.Intn(4)
			innerTotal := 0
			inner := generateBlock(cfg, innerCount, declared, depth+1, &innerTotal)
			if len(inner) > 0 && *total+innerTotal*repeats < cfg.MaxInstructions {
				program = append(program, process.Instruction{
					Op:         process.OpFor,
					ForBlock:   inner,
					ForRepeats: repeats,
				})
				*total += innerTotal * repeats
			} else {
				program = append(program, process.Instruction{Op: process.OpPrint})
				*total++
			}

		default:
			program = append(program, process.Instruction{Op: process.OpPrint})
			*total++
		}
	}
	return program
}

func randomVariable(declared []string) string {
	return declared[rand.Intn(len(declared))]
}
