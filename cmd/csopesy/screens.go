package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/csopesy-group3/csopesy-emu/kernel"
	"github.com/csopesy-group3/csopesy-emu/process"
	"github.com/csopesy-group3/csopesy-emu/utils"
)

const reportPath = "csopesy-log.txt"

const (
	colorCyan   = "\033[36m"
	colorGreen  = "\033[92m"
	colorYellow = "\033[93m"
	colorReset  = "\033[0m"
)

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func printBanner() {
	fmt.Println()
	fmt.Println(colorCyan + `   _____  _____  ____  _____  ______  _______     __` + colorReset)
	fmt.Println(colorCyan + `  / ____|/ ____|/ __ \|  __ \|  ____|/ ____\ \   / /` + colorReset)
	fmt.Println(colorCyan + ` | |    | (___ | |  | | |__) | |__  | (___  \ \_/ / ` + colorReset)
	fmt.Println(colorCyan + ` | |     \___ \| |  | |  ___/|  __|  \___ \  \   /  ` + colorReset)
	fmt.Println(colorCyan + ` | |____ ____) | |__| | |    | |____ ____) |  | |   ` + colorReset)
	fmt.Println(colorCyan + `  \_____|_____/ \____/|_|    |______|_____/   |_|   ` + colorReset)
	fmt.Println()
	fmt.Println(colorGreen + "Welcome to the CSOPESY command line!" + colorReset)
	fmt.Println(colorYellow + "Type 'initialize', then 'exit' to quit, 'clear' to clear the screen" + colorReset)
	fmt.Println()
}

// displayProcessScreen is the attached view of one process: info, logs and a
// tiny sub-prompt accepting process-smi and exit
func displayProcessScreen(proc *process.Process, scanner *bufio.Scanner) {
	for {
		clearScreen()
		fmt.Printf("Process name: %s\n", proc.Name)
		fmt.Printf("ID: %d\n", proc.PID)
		fmt.Println("Logs:")
		for _, line := range proc.Logs() {
			fmt.Println(line)
		}
		fmt.Printf("\nCurrent instruction line: %d\n", proc.ExecutedCount())
		fmt.Printf("Lines of code: %d\n\n", proc.TotalInstructions())
		if proc.IsFinished() {
			fmt.Println("Finished!")
			fmt.Println()
		}

		fmt.Print(colorCyan + "> " + colorReset)
		if !scanner.Scan() {
			return
		}
		switch scanner.Text() {
		case "exit":
			clearScreen()
			printBanner()
			return
		case "process-smi", "":
			continue
		default:
			fmt.Println("Unknown command inside process screen. Type 'exit' to return.")
		}
	}
}

// writeListing renders the screen -ls / report-util view
func writeListing(w io.Writer, sched *kernel.Scheduler) {
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "CPU utilization: %.2f%%\n", sched.CPUUtilization())
	fmt.Fprintf(w, "Cores used: %d\n", sched.CoresUsed())
	fmt.Fprintf(w, "Cores available: %d\n\n", sched.Config().NumCPU-sched.CoresUsed())

	fmt.Fprintln(w, "Running processes:")
	for _, proc := range sched.RunningProcesses() {
		core := "wait"
		if c := proc.Core(); c != -1 {
			core = fmt.Sprintf("%d", c)
		}
		fmt.Fprintf(w, "%-12s (%s)  Core: %s   %d / %d\n",
			proc.Name, utils.FormatTimestamp(proc.CreationTime), core,
			proc.ExecutedCount(), proc.TotalInstructions())
	}

	fmt.Fprintln(w, "\nFinished processes:")
	for _, proc := range sched.FinishedProcesses() {
		status := "Finished"
		if _, violated := proc.ViolationRecord(); violated {
			status = "MEM_FAULT"
		}
		fmt.Fprintf(w, "%-12s (%s)  %s   %d / %d\n",
			proc.Name, utils.FormatTimestamp(proc.CreationTime), status,
			proc.TotalInstructions(), proc.TotalInstructions())
	}
	fmt.Fprintln(w, "----------------------------------------")
}

func printProcessSMI(sched *kernel.Scheduler) {
	fmt.Println("-------------------------------------------------------")
	fmt.Printf("%-6s %-14s %-10s %s\n", "PID", "Name", "Memory", "Status")
	for _, row := range sched.ProcessTable() {
		fmt.Printf("%-6d %-14s %-10d %s\n", row.PID, row.Name, row.MemorySize, row.Status)
	}
	fmt.Println("-------------------------------------------------------")
}

func (sh *shell) reportUtil() {
	file, err := os.Create(reportPath)
	if err != nil {
		fmt.Printf("Error: could not open %s for writing.\n", reportPath)
		return
	}
	defer file.Close()
	writeListing(file, sh.sched)
	fmt.Printf("Report generated at %s!\n", reportPath)
}

func (sh *shell) memoryStamp() {
	names := make(map[int]string)
	for _, proc := range sh.sched.Processes() {
		names[proc.PID] = proc.Name
	}
	path, err := sh.sched.Memory().WriteSnapshot(sh.sched.CPUTick(), names)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Memory snapshot written to %s\n", path)
}
