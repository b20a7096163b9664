/*
 * olive-petrel - pdp8: the emulator command-line front end.
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

// pdp8 is the emulator's multi-command front end: run loads a config and
// an image and executes it, asm drives the assembler end to end, and
// link wraps the ROM linker's two phases (lib, app). Subcommands are
// built on cobra, the way a CLI with more than one flat option set is
// better served by subcommands than the teacher's single getopt group
// (see cmd/pdp8romtool for that flatter case).
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsbohn/olive-petrel/assemble"
	"github.com/rsbohn/olive-petrel/config"
	"github.com/rsbohn/olive-petrel/console"
	"github.com/rsbohn/olive-petrel/cpu"
	"github.com/rsbohn/olive-petrel/linker"
	"github.com/rsbohn/olive-petrel/loader"
	"github.com/rsbohn/olive-petrel/lpt"
	"github.com/rsbohn/olive-petrel/rx8e"
	"github.com/rsbohn/olive-petrel/tc08"
	logger "github.com/rsbohn/olive-petrel/util/logger"
	w "github.com/rsbohn/olive-petrel/word"
)

var debugLogging bool

func main() {
	root := &cobra.Command{
		Use:   "pdp8",
		Short: "A PDP-8 emulator, assembler, and ROM linker",
	}
	root.PersistentFlags().BoolVar(&debugLogging, "debug", false, "echo log records to stderr")

	root.AddCommand(newRunCmd(), newAsmCmd(), newLinkCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	log := slog.New(logger.NewHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel}, &debugLogging))
	slog.SetDefault(log)
	return log
}

func newRunCmd() *cobra.Command {
	var configPath, loadPath string
	var startAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Attach devices, load an image, and run to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMachine(configPath, loadPath, startAddr)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "device attachment config file")
	cmd.Flags().StringVar(&loadPath, "load", "", "image file to load (octal/S-record/saved-memory autodetected)")
	cmd.Flags().StringVar(&startAddr, "start", "", "starting PC, octal (defaults to the image's own S9 start, or 0200)")
	cmd.MarkFlagRequired("load")
	return cmd
}

func runMachine(configPath, loadPath, startAddr string) error {
	log := newLogger()
	c := cpu.New()

	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Warn("config had problems", "error", err)
		}
		if cfg != nil {
			if err := attachDevices(c, cfg); err != nil {
				return err
			}
			if cfg.LogPath != "" {
				log.Info("config requested log file", "path", cfg.LogPath)
			}
		}
	}

	host, err := console.Open()
	if err == nil {
		c.Console = host
		defer host.Close()
	} else {
		log.Warn("console not available, running headless", "error", err)
	}

	imageData, err := os.ReadFile(loadPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", loadPath, err)
	}
	res, err := loader.Load(string(imageData))
	if err != nil {
		return fmt.Errorf("loading %s: %w", loadPath, err)
	}
	for addr, val := range res.Words {
		if err := c.Write(addr, val); err != nil {
			return fmt.Errorf("depositing word at %s: %w", w.FormatOctal(addr), err)
		}
	}

	pc := uint16(0200)
	switch {
	case startAddr != "":
		v, err := strconv.ParseUint(startAddr, 8, 16)
		if err != nil {
			return fmt.Errorf("bad --start %q: %w", startAddr, err)
		}
		pc = w.Mask12(v)
	case res.PC != nil:
		pc = *res.PC
	}
	c.SetPC(pc)
	c.ClearHalt()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	var executed int
	var runErr error
	go func() {
		executed, runErr = c.Run(1 << 30)
		close(done)
	}()

	select {
	case <-sigChan:
		log.Info("interrupted")
	case <-done:
	}

	if runErr != nil {
		return runErr
	}
	log.Info("halted", "instructions", executed)
	fmt.Printf("AC=%s L=%v PC=%s\n", w.FormatOctal(c.AC), c.L, w.FormatOctal(c.PC))
	return nil
}

func attachDevices(c *cpu.CPU, cfg *config.Config) error {
	var rxCtl *rx8e.Controller
	var tcCtl *tc08.Controller
	var lptDev *lpt.Printer

	for _, a := range cfg.Attachments {
		createIfMissing := a.HasOption("create")
		switch a.Device {
		case "rx8e":
			if rxCtl == nil {
				rxCtl = rx8e.New()
				c.RX8E = rxCtl
			}
			if err := rxCtl.Attach(a.Slot, a.Path, createIfMissing); err != nil {
				return fmt.Errorf("attaching rx8e %d: %w", a.Slot, err)
			}
		case "tc08":
			if tcCtl == nil {
				tcCtl = tc08.New()
				c.TC08 = tcCtl
			}
			if err := tcCtl.Attach(a.Slot, a.Path, createIfMissing); err != nil {
				return fmt.Errorf("attaching tc08 %d: %w", a.Slot, err)
			}
		case "lpt":
			if lptDev == nil {
				lptDev = lpt.New()
				c.LPT = lptDev
			}
			if err := lptDev.Attach(a.Path); err != nil {
				return fmt.Errorf("attaching lpt: %w", err)
			}
		}
	}
	return nil
}

func newAsmCmd() *cobra.Command {
	var outPath string
	var listing bool

	cmd := &cobra.Command{
		Use:   "asm SOURCE",
		Short: "Assemble a PAL source file to an S-record image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsm(args[0], outPath, listing)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output S-record file")
	cmd.Flags().BoolVar(&listing, "listing", false, "print an assembly listing to stdout")
	cmd.MarkFlagRequired("out")
	return cmd
}

func runAsm(srcPath, outPath string, listing bool) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}
	res, err := assemble.Assemble(string(data))
	if err != nil {
		return fmt.Errorf("assembling %s: %w", srcPath, err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer f.Close()
	for _, line := range res.EncodeSRecord() {
		fmt.Fprintln(f, line)
	}
	if listing {
		for _, line := range res.Listing {
			fmt.Println(line)
		}
	}
	return nil
}

func newLinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Build or apply ROM libraries",
	}
	cmd.AddCommand(newLinkLibCmd(), newLinkAppCmd())
	return cmd
}

func newLinkLibCmd() *cobra.Command {
	var base, page string
	cmd := &cobra.Command{
		Use:   "lib OUT.s19 OUT.sym SOURCES...",
		Short: "Pack position-independent routines into a library image",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinkLib(args[0], args[1], args[2:], base, page)
		},
	}
	cmd.Flags().StringVar(&base, "base", "0200", "base address, octal")
	cmd.Flags().StringVar(&page, "page", "0200", "page size, octal")
	return cmd
}

func runLinkLib(outPath, symPath string, routinePaths []string, baseStr, pageStr string) error {
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
	return writeLines(symPath, lib.EncodeSymbols())
}

func newLinkAppCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "app LIBROM LIBSYM SOURCE OUT.s19",
		Short: "Resolve LINK references against a built library and merge images",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinkApp(args[0], args[1], args[2], args[3])
		},
	}
}

func runLinkApp(libPath, symPath, srcPath, outPath string) error {
	libData, err := os.ReadFile(libPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", libPath, err)
	}
	libRes, err := loader.Load(string(libData))
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

	appData, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", srcPath, err)
	}

	lib := &linker.Library{Words: libRes.Words, Symbols: symbols}
	result, err := linker.Link(lib, string(appData))
	if err != nil {
		return fmt.Errorf("link: %w", err)
	}
	return writeLines(outPath, result.EncodeSRecord())
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
	for i, ch := range text {
		if ch == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
