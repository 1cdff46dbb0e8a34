package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/csopesy-group3/csopesy-emu/utils"
)

// Scheduling algorithms accepted by the "scheduler" key
const (
	SchedulerFCFS = "fcfs"
	SchedulerRR   = "rr"
)

// Config holds every tunable of the emulator, loaded from config.txt
type Config struct {
	NumCPU           int
	Scheduler        string
	QuantumCycles    int
	BatchProcessFreq int
	MinInstructions  int
	MaxInstructions  int
	DelayPerExec     int

	MaxOverallMem int
	MemPerFrame   int
	MinMemPerProc int
	MaxMemPerProc int

	MonitorPort int
	LogLevel    string
}

// Default returns the configuration used when a key is absent from the file
func Default() *Config {
	return &Config{
		NumCPU:           1,
		Scheduler:        SchedulerFCFS,
		QuantumCycles:    10,
		BatchProcessFreq: 100,
		MinInstructions:  100,
		MaxInstructions:  500,
		DelayPerExec:     0,
		MaxOverallMem:    16384,
		MemPerFrame:      256,
		MinMemPerProc:    1024,
		MaxMemPerProc:    4096,
		MonitorPort:      0,
		LogLevel:         "info",
	}
}

// Load reads a whitespace-separated key/value config file
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer file.Close()

	cfg := Default()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("key %q has no value", fields[0])
		}
		key, value := fields[0], strings.Trim(fields[1], "\"")
		if err := cfg.apply(key, value); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	utils.InfoLog.Info("Configuration loaded",
		"path", path,
		"num_cpu", cfg.NumCPU,
		"scheduler", cfg.Scheduler,
		"quantum_cycles", cfg.QuantumCycles,
		"batch_process_freq", cfg.BatchProcessFreq,
		"min_ins", cfg.MinInstructions,
		"max_ins", cfg.MaxInstructions,
		"delay_per_exec", cfg.DelayPerExec,
		"max_overall_mem", cfg.MaxOverallMem,
		"mem_per_frame", cfg.MemPerFrame)

	return cfg, nil
}

func (c *Config) apply(key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("key %q: invalid number %q", key, value)
		}
		return n, nil
	}

	var err error
	switch key {
	case "num-cpu":
		c.NumCPU, err = atoi()
	case "scheduler":
		c.Scheduler = strings.ToLower(value)
	case "quantum-cycles":
		c.QuantumCycles, err = atoi()
	case "batch-process-freq":
		c.BatchProcessFreq, err = atoi()
	case "min-ins":
		c.MinInstructions, err = atoi()
	case "max-ins":
		c.MaxInstructions, err = atoi()
	case "delay-per-exec":
		c.DelayPerExec, err = atoi()
	case "max-overall-mem":
		c.MaxOverallMem, err = atoi()
	case "mem-per-frame":
		c.MemPerFrame, err = atoi()
	case "min-mem-per-proc":
		c.MinMemPerProc, err = atoi()
	case "max-mem-per-proc":
		c.MaxMemPerProc, err = atoi()
	case "monitor-port":
		c.MonitorPort, err = atoi()
	case "log-level":
		c.LogLevel = strings.ToLower(value)
	default:
		utils.InfoLog.Warn("Ignoring unknown config key", "key", key)
	}
	return err
}

// Validate rejects configurations the emulator cannot run with
func (c *Config) Validate() error {
	if c.NumCPU < 1 {
		return fmt.Errorf("num-cpu must be at least 1, got %d", c.NumCPU)
	}
	if c.Scheduler != SchedulerFCFS && c.Scheduler != SchedulerRR {
		return fmt.Errorf("scheduler must be %q or %q, got %q", SchedulerFCFS, SchedulerRR, c.Scheduler)
	}
	if c.Scheduler == SchedulerRR && c.QuantumCycles < 1 {
		return fmt.Errorf("quantum-cycles must be at least 1 for rr, got %d", c.QuantumCycles)
	}
	if c.MinInstructions < 1 || c.MaxInstructions < c.MinInstructions {
		return fmt.Errorf("instruction bounds invalid: min-ins=%d max-ins=%d", c.MinInstructions, c.MaxInstructions)
	}
	if c.MemPerFrame < 1 || c.MaxOverallMem < c.MemPerFrame {
		return fmt.Errorf("memory bounds invalid: max-overall-mem=%d mem-per-frame=%d", c.MaxOverallMem, c.MemPerFrame)
	}
	if c.MaxOverallMem%c.MemPerFrame != 0 {
		return fmt.Errorf("max-overall-mem (%d) must be a multiple of mem-per-frame (%d)", c.MaxOverallMem, c.MemPerFrame)
	}
	if !IsValidMemorySize(c.MinMemPerProc) {
		return fmt.Errorf("min-mem-per-proc must be a power of two in [64, 65536], got %d", c.MinMemPerProc)
	}
	if !IsValidMemorySize(c.MaxMemPerProc) {
		return fmt.Errorf("max-mem-per-proc must be a power of two in [64, 65536], got %d", c.MaxMemPerProc)
	}
	if c.MaxMemPerProc < c.MinMemPerProc {
		return fmt.Errorf("max-mem-per-proc (%d) below min-mem-per-proc (%d)", c.MaxMemPerProc, c.MinMemPerProc)
	}
	if c.MonitorPort < 0 || c.MonitorPort > 65535 {
		return fmt.Errorf("monitor-port out of range: %d", c.MonitorPort)
	}
	return nil
}

// IsValidMemorySize reports whether n is an accepted process memory size:
// a power of two in [64, 65536]
func IsValidMemorySize(n int) bool {
	if n < 64 || n > 65536 {
		return false
	}
	return n&(n-1) == 0
}
