package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/csopesy-group3/csopesy-emu/config"
	"github.com/csopesy-group3/csopesy-emu/kernel"
	"github.com/csopesy-group3/csopesy-emu/monitor"
	"github.com/csopesy-group3/csopesy-emu/process"
	"github.com/csopesy-group3/csopesy-emu/utils"
)

const configPath = "config.txt"

type shell struct {
	cfg     *config.Config
	sched   *kernel.Scheduler
	monitor *monitor.StatusServer
}

func main() {
	clearScreen()
	printBanner()

	sh := &shell{}
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("[main] Enter command: ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !sh.dispatch(line, scanner) {
			break
		}
	}

	fmt.Println("Shutting down scheduler and worker threads...")
	sh.shutdown()
	fmt.Println("Shutdown complete. Exiting.")
}

// dispatch runs one shell command; returns false on exit
func (sh *shell) dispatch(line string, scanner *bufio.Scanner) bool {
	fields := strings.Fields(line)
	command := fields[0]

	if sh.sched == nil && command != "initialize" && command != "exit" {
		fmt.Println("Please enter the command 'initialize' before using any other command.")
		return true
	}

	switch command {
	case "initialize":
		sh.initialize()
	case "screen":
		sh.screenCommand(fields, line, scanner)
	case "scheduler-start":
		fmt.Println("Starting process generation...")
		sh.sched.StartGeneration()
	case "scheduler-stop":
		fmt.Println("Stopping process generation...")
		sh.sched.StopGeneration()
	case "process-smi":
		printProcessSMI(sh.sched)
	case "vmstat":
		fmt.Println(sh.sched.VMStatSnapshot().String())
	case "report-util":
		sh.reportUtil()
	case "memory-stamp":
		sh.memoryStamp()
	case "clear":
		clearScreen()
		printBanner()
	case "exit":
		return false
	default:
		fmt.Printf("Unknown command: %s. Please try again.\n", command)
	}
	return true
}

func (sh *shell) initialize() {
	if sh.sched != nil {
		fmt.Println("System already initialized.")
		return
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Error: could not load %s: %v\n", configPath, err)
		return
	}
	utils.InitLogger(cfg.LogLevel, "csopesy")

	sched, err := kernel.New(cfg)
	if err != nil {
		fmt.Printf("Error: could not initialize scheduler: %v\n", err)
		return
	}
	sched.Start()

	sh.cfg = cfg
	sh.sched = sched
	if cfg.MonitorPort > 0 {
		sh.monitor = monitor.NewStatusServer(cfg.MonitorPort, sched)
		sh.monitor.Start()
	}

	fmt.Println("\nSystem initialized successfully with config:")
	fmt.Println("------------------------------------------")
	fmt.Printf("CPU cores: %d\n", cfg.NumCPU)
	fmt.Printf("Scheduler: %s\n", cfg.Scheduler)
	fmt.Printf("Quantum Cycles: %d\n", cfg.QuantumCycles)
	fmt.Printf("Batch Process Frequency: %d\n", cfg.BatchProcessFreq)
	fmt.Printf("Min Instructions: %d\n", cfg.MinInstructions)
	fmt.Printf("Max Instructions: %d\n", cfg.MaxInstructions)
	fmt.Printf("Delay per Execution: %d\n", cfg.DelayPerExec)
	fmt.Printf("Total Memory: %d bytes\n", cfg.MaxOverallMem)
	fmt.Printf("Frame Size: %d bytes\n", cfg.MemPerFrame)
	fmt.Println("------------------------------------------")
	fmt.Println()
}

func (sh *shell) shutdown() {
	if sh.monitor != nil {
		sh.monitor.Stop()
	}
	if sh.sched != nil {
		sh.sched.Shutdown()
	}
}

func (sh *shell) screenCommand(fields []string, line string, scanner *bufio.Scanner) {
	if len(fields) < 2 {
		fmt.Println("Usage: screen -s <name> <size> | screen -c <name> <size> \"<instructions>\" | screen -r <name> | screen -ls")
		return
	}

	switch fields[1] {
	case "-ls":
		writeListing(os.Stdout, sh.sched)

	case "-s":
		if len(fields) != 4 {
			fmt.Println("Usage: screen -s <name> <size>")
			return
		}
		sh.createScreen(fields[2], fields[3], nil, scanner)

	case "-c":
		if len(fields) < 4 {
			fmt.Println("Usage: screen -c <name> <size> \"<instructions>\"")
			return
		}
		src, ok := quotedSection(line)
		if !ok {
			fmt.Println("Please provide the instructions in double quotes.")
			return
		}
		program, err := process.ParseProgram(src)
		if err != nil {
			fmt.Printf("Invalid program: %v\n", err)
			return
		}
		sh.createScreen(fields[2], fields[3], program, nil)

	case "-r":
		if len(fields) != 3 {
			fmt.Println("Please provide a screen name.")
			return
		}
		sh.attachScreen(fields[2], scanner)

	default:
		fmt.Printf("Unknown screen option: %s\n", fields[1])
	}
}

func (sh *shell) createScreen(name, sizeArg string, program []process.Instruction, scanner *bufio.Scanner) {
	size, err := strconv.Atoi(sizeArg)
	if err != nil || !config.IsValidMemorySize(size) {
		fmt.Println("Invalid memory allocation: size must be a power of 2 between 64 and 65536.")
		return
	}
	if sh.sched.FindProcess(name) != nil {
		fmt.Printf("Screen '%s' already exists. Use 'screen -r %s' to attach.\n", name, name)
		return
	}
	proc, err := sh.sched.AddProcess(name, size, program)
	if err != nil {
		fmt.Printf("Could not create process: %v\n", err)
		return
	}
	fmt.Printf("Screen '%s' created.\n", name)
	if scanner != nil {
		displayProcessScreen(proc, scanner)
	}
}

func (sh *shell) attachScreen(name string, scanner *bufio.Scanner) {
	proc := sh.sched.FindProcess(name)
	if proc == nil {
		fmt.Printf("Process <%s> not found.\n", name)
		return
	}
	if v, violated := proc.ViolationRecord(); violated {
		fmt.Printf("Process %s shut down due to memory access violation error that occurred at %s. 0x%X invalid.\n",
			name, utils.FormatTimestamp(v.Timestamp), v.Address)
		return
	}
	if proc.IsFinished() {
		fmt.Printf("Process <%s> not found.\n", name)
		return
	}
	displayProcessScreen(proc, scanner)
}

// quotedSection extracts the text between the first and last double quote
func quotedSection(line string) (string, bool) {
	first := strings.Index(line, "\"")
	last := strings.LastIndex(line, "\"")
	if first == -1 || last <= first {
		return "", false
	}
	return line[first+1 : last], true
}
