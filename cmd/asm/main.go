// isasim-asm - Assembler command-line driver.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/tinyarch/isasim/internal/assembler"
	"github.com/tinyarch/isasim/internal/isa"
	logger "github.com/tinyarch/isasim/util/logger"
)

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
		return "", &assembler.AssemblerError{Kind: assembler.UnknownIsa, Msg: "unknown --isa value " + s}
	}
}

func defaultOutput(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), base+".bin")
}

func main() {
	optFile := getopt.StringLong("file", 'f', "", "Assembly source")
	optIsa := getopt.StringLong("isa", 0, "", "ISA: risc1|risc2|risc3|cisc")
	optOutput := getopt.StringLong("output", 'o', "", "Output path")
	optDebug := getopt.BoolLong("debug", 'd', "Trace every accepted line to stderr")
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

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	if *optFile == "" {
		fail(&assembler.AssemblerError{Kind: assembler.MissingFile, Msg: "-f/--file is required"})
	}
	if *optIsa == "" {
		fail(&assembler.AssemblerError{Kind: assembler.UnknownIsa, Msg: "--isa is required"})
	}

	isaName, err := isaFromFlag(*optIsa)
	if err != nil {
		fail(err)
	}

	src, err := os.ReadFile(*optFile)
	if err != nil {
		fail(&assembler.AssemblerError{Kind: assembler.MissingFile, Msg: err.Error()})
	}

	d, err := isa.Load(isaName)
	if err != nil {
		fail(err)
	}

	listing, err := assembler.Assemble(d, string(src))
	if err != nil {
		fail(err)
	}

	out := *optOutput
	if out == "" {
		out = defaultOutput(*optFile)
	}
	text := strings.Join(listing, "\n")
	if len(listing) > 0 {
		text += "\n"
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		fail(&assembler.AssemblerError{Kind: assembler.MissingFile, Msg: err.Error()})
	}

	log.Info("assembled", "file", *optFile, "isa", *optIsa, "output", out, "instructions", len(listing))
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "isasim-asm: "+err.Error())
	os.Exit(1)
}
