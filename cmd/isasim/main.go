// isasim - Interactive virtual-processor REPL.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/tinyarch/isasim/internal/assembler"
	"github.com/tinyarch/isasim/internal/cpu"
	"github.com/tinyarch/isasim/internal/device"
	"github.com/tinyarch/isasim/internal/isa"
	logger "github.com/tinyarch/isasim/util/logger"
)

var commands = []string{"step", "run", "regs", "flags", "mem", "in", "output", "help", "quit", "exit"}

func isaFromFlag(s string) (isa.Name, error) {
	switch strings.ToLower(s) {
	case "risc1":
		return isa.Stack, nil
	case "risc2":
		return isa.Accumulator, nil
	case "risc3":
		return isa.RISC, nil
	case "cisc":
		return isa.CISC, nil
	default:
		return "", fmt.Errorf("unknown --isa value %q", s)
	}
}

func archFromFlag(s string) cpu.Architecture {
	switch strings.ToLower(s) {
	case "harvard":
		return cpu.Harvard
	case "harvardm":
		return cpu.HarvardM
	default:
		return cpu.Neumann
	}
}

func ioFromFlag(s string) device.Mode {
	if strings.ToLower(s) == "mmio" {
		return device.ModeMMIO
	}
	return device.ModeSpecial
}

func main() {
	optFile := getopt.StringLong("file", 'f', "", "Assembly source")
	optIsa := getopt.StringLong("isa", 0, "", "ISA: risc1|risc2|risc3|cisc")
	optArch := getopt.StringLong("arch", 0, "neumann", "Architecture: neumann|harvard|harvardm")
	optIO := getopt.StringLong("io", 0, "special", "I/O mode: special|mmio")
	optDebug := getopt.BoolLong("debug", 'd', "Trace every fetch/decode/execute/writeback stage to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	programLevel := new(slog.LevelVar)
	if *optDebug {
		programLevel.Set(slog.LevelDebug)
	} else {
		programLevel.Set(slog.LevelInfo)
	}
	log := slog.New(logger.NewHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel}, optDebug))
	slog.SetDefault(log)

	if *optHelp || *optFile == "" || *optIsa == "" {
		getopt.Usage()
		os.Exit(0)
	}

	isaName, err := isaFromFlag(*optIsa)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	src, err := os.ReadFile(*optFile)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	d, err := isa.Load(isaName)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	listing, err := assembler.Assemble(d, string(src))
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	c, err := cpu.New(isaName, archFromFlag(*optArch), ioFromFlag(*optIO), listing)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	consoleLoop(c)
}

func consoleLoop(c *cpu.CPU) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var out []string
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, partial) {
				out = append(out, cmd)
			}
		}
		return out
	})

	for {
		command, err := line.Prompt("isasim> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("error reading line: " + err.Error())
			return
		}
		line.AppendHistory(command)
		if quit := processCommand(c, command); quit {
			return
		}
	}
}

func processCommand(c *cpu.CPU, command string) (quit bool) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "quit", "exit":
		return true
	case "help":
		fmt.Println("step [n] | run | regs | flags | mem start end | in value | output | quit")
	case "step":
		n := 1
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil {
				n = v
			}
		}
		for i := 0; i < n && !c.Halted(); i++ {
			if err := c.Step(); err != nil {
				fmt.Println("Error: " + err.Error())
				return false
			}
		}
	case "run":
		for !c.Halted() && !c.InputActive() {
			if err := c.Step(); err != nil {
				fmt.Println("Error: " + err.Error())
				return false
			}
		}
	case "regs":
		printRegisters(c)
	case "flags":
		f := c.Flags()
		fmt.Printf("CF=%v ZF=%v SF=%v OF=%v\n", f.CF, f.ZF, f.SF, f.OF)
	case "mem":
		if len(fields) != 3 {
			fmt.Println("usage: mem start end")
			return false
		}
		start, err1 := strconv.Atoi(fields[1])
		end, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil {
			fmt.Println("usage: mem start end")
			return false
		}
		hex, err := c.MemoryHex(start, end)
		if err != nil {
			fmt.Println("Error: " + err.Error())
			return false
		}
		fmt.Println(hex)
	case "in":
		if len(fields) != 2 {
			fmt.Println("usage: in value")
			return false
		}
		v, err := strconv.ParseUint(fields[1], 0, 16)
		if err != nil {
			fmt.Println("usage: in value")
			return false
		}
		if err := c.InputFinish(uint16(v)); err != nil {
			fmt.Println("Error: " + err.Error())
		}
	case "output":
		fmt.Println(c.DeviceOutput())
	default:
		fmt.Println("unknown command: " + fields[0])
	}
	return false
}

func printRegisters(c *cpu.CPU) {
	for name, v := range c.Registers() {
		fmt.Printf("%s=%#04x ", name, v)
	}
	fmt.Println()
}
