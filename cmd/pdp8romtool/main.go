/*
 * olive-petrel - pdp8romtool: flat-flag ROM linker front end.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// pdp8romtool wraps the linker (package linker) in a single flat option
// set, the way the teacher's own main.go favors getopt over subcommands
// for a small tool with one job. Two modes, selected by --mode:
//
//	pdp8romtool --mode lib  --out LIB.s19 --sym LIB.sym --base 0200 --page 0200 ROUTINE...
//	pdp8romtool --mode link --lib LIB.s19 --sym LIB.sym --out OUT.s19 APP
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rsbohn/olive-petrel/linker"
	"github.com/rsbohn/olive-petrel/loader"
	logger "github.com/rsbohn/olive-petrel/util/logger"
	w "github.com/rsbohn/olive-petrel/word"
)

func main() {
	optMode := getopt.StringLong("mode", 'm', "lib", "Mode: lib or link")
	optOut := getopt.StringLong("out", 'o', "", "Output S-record file")
	optSym := getopt.StringLong("sym", 's', "", "Symbol file (written in lib mode, read in link mode)")
	optLib := getopt.StringLong("lib", 0, "", "Library S-record file (link mode)")
	optBase := getopt.StringLong("base", 0, "0200", "Base address, octal (lib mode)")
	optPage := getopt.StringLong("page", 0, "0200", "Page size, octal (lib mode)")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Echo log records to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLogFile != "" {
		logFile, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	log := slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, optDebug))
	slog.SetDefault(log)

	args := getopt.Args()

	switch *optMode {
	case "lib":
		if err := runBuildLib(log, *optOut, *optSym, *optBase, *optPage, args); err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
	case "link":
		if err := runLink(log, *optLib, *optSym, *optOut, args); err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q, want lib or link\n", *optMode)
		os.Exit(2)
	}
}

func runBuildLib(log *slog.Logger, outPath, symPath, baseStr, pageStr string, routinePaths []string) error {
	if outPath == "" || symPath == "" || len(routinePaths) == 0 {
		return fmt.Errorf("lib mode requires --out, --sym, and at least one routine source file")
	}
	base, err := strconv.ParseUint(baseStr, 8, 16)
	if err != nil {
		return fmt.Errorf("bad --base %q: %w", baseStr, err)
	}
	page, err := strconv.ParseUint(pageStr, 8, 16)
	if err != nil {
		return fmt.Errorf("bad --page %q: %w", pageStr, err)
	}

	sources := make([]string, len(routinePaths))
	for i, p := range routinePaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		sources[i] = string(data)
	}

	lib, err := linker.BuildLib(sources, w.Mask12(base), w.Mask12(page))
	if err != nil {
		return fmt.Errorf("build_lib: %w", err)
	}

	if err := writeLines(outPath, lib.EncodeSRecord()); err != nil {
		return err
	}
	if err := writeLines(symPath, lib.EncodeSymbols()); err != nil {
		return err
	}
	log.Info("library built", "routines", len(sources), "out", outPath, "sym", symPath)
	return nil
}

func runLink(log *slog.Logger, libPath, symPath, outPath string, appPaths []string) error {
	if libPath == "" || symPath == "" || outPath == "" || len(appPaths) != 1 {
		return fmt.Errorf("link mode requires --lib, --sym, --out, and exactly one application source file")
	}

	libRecData, err := os.ReadFile(libPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", libPath, err)
	}
	libRes, err := loader.Load(string(libRecData))
	if err != nil {
		return fmt.Errorf("decoding library image %s: %w", libPath, err)
	}

	symData, err := os.ReadFile(symPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", symPath, err)
	}
	symbols, err := linker.DecodeSymbols(splitLines(string(symData)))
	if err != nil {
		return fmt.Errorf("decoding symbol file %s: %w", symPath, err)
	}

	appData, err := os.ReadFile(appPaths[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", appPaths[0], err)
	}

	lib := &linker.Library{Words: libRes.Words, Symbols: symbols}
	result, err := linker.Link(lib, string(appData))
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}

	if err := writeLines(outPath, result.EncodeSRecord()); err != nil {
		return err
	}
	log.Info("application linked", "app", appPaths[0], "out", outPath, "start", w.FormatOctal(result.Start))
	return nil
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i, c := range text {
		if c == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
