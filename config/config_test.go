package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadAppliesKeysAndDefaults(t *testing.T) {
	path := writeConfig(t, `
num-cpu 4
scheduler "rr"
quantum-cycles 5
batch-process-freq 2
min-ins 10
max-ins 50
max-overall-mem 1024
mem-per-frame 256
min-mem-per-proc 256
max-mem-per-proc 1024
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NumCPU != 4 {
		t.Errorf("NumCPU = %d, want 4", cfg.NumCPU)
	}
	if cfg.Scheduler != SchedulerRR {
		t.Errorf("Scheduler = %q, want rr (quotes stripped)", cfg.Scheduler)
	}
	if cfg.QuantumCycles != 5 {
		t.Errorf("QuantumCycles = %d, want 5", cfg.QuantumCycles)
	}
	// Keys absent from the file keep their defaults
	if cfg.DelayPerExec != 0 {
		t.Errorf("DelayPerExec = %d, want default 0", cfg.DelayPerExec)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default info", cfg.LogLevel)
	}
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	path := writeConfig(t, "num-cpu 2\nsome-future-key 7\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NumCPU != 2 {
		t.Errorf("NumCPU = %d, want 2", cfg.NumCPU)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cpus", func(c *Config) { c.NumCPU = 0 }},
		{"bad algorithm", func(c *Config) { c.Scheduler = "sjf" }},
		{"rr without quantum", func(c *Config) { c.Scheduler = SchedulerRR; c.QuantumCycles = 0 }},
		{"max-ins below min-ins", func(c *Config) { c.MinInstructions = 10; c.MaxInstructions = 5 }},
		{"memory not multiple of frame", func(c *Config) { c.MaxOverallMem = 1000; c.MemPerFrame = 256 }},
		{"min-mem-per-proc not power of two", func(c *Config) { c.MinMemPerProc = 100 }},
		{"max below min mem", func(c *Config) { c.MinMemPerProc = 1024; c.MaxMemPerProc = 256 }},
		{"negative monitor port", func(c *Config) { c.MonitorPort = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate accepted an invalid config")
			}
		})
	}
}

func TestIsValidMemorySize(t *testing.T) {
	tests := []struct {
		n    int
		want bool
	}{
		{64, true},
		{128, true},
		{65536, true},
		{32, false},
		{100, false},
		{131072, false},
		{0, false},
		{-256, false},
	}
	for _, tt := range tests {
		if got := IsValidMemorySize(tt.n); got != tt.want {
			t.Errorf("IsValidMemorySize(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}
