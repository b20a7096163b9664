/*
 * olive-petrel - device-attachment config file reader.
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

// Package config reads the line-oriented host attachment file: which
// drive slot is attached to which backing file, and where the log goes.
// Grammar is whitespace-separated fields with `#` comments:
//
//	rx8e    0   ./disks/rx0.img      create
//	tc08    0   ./tapes/dectape0.tc8 create,readonly
//	lpt     0   ./print/lpt0.txt
//	log     ./pdp8.log
//
// Unknown device keywords and malformed lines are collected rather than
// aborting on the first one, so a caller can report every problem in the
// file at once, the way the teacher's config parser collects per-line
// diagnostics.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Attach is one device-attachment line: a device kind (lowercase, as
// written in the file), a slot number (0 for the single-unit lpt), a
// backing file path, and its comma-separated options.
type Attach struct {
	Device  string
	Slot    int
	Path    string
	Options []string
}

// HasOption reports whether name appears in a.Options.
func (a Attach) HasOption(name string) bool {
	for _, o := range a.Options {
		if o == name {
			return true
		}
	}
	return false
}

// Config is the parsed result of a config file: every attachment line in
// file order, plus the log file path (empty if the file had no `log`
// line).
type Config struct {
	Attachments []Attach
	LogPath     string
}

var knownDevices = map[string]bool{
	"rx8e": true,
	"tc08": true,
	"lpt":  true,
}

// ParseError collects the line number and text of one malformed or
// unrecognized config line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrorList is the set of ParseErrors collected while reading a config
// file. Load still returns a best-effort *Config alongside this error so
// a caller can choose to proceed with whatever parsed cleanly.
type ErrorList []*ParseError

func (el ErrorList) Error() string {
	lines := make([]string, len(el))
	for i, e := range el {
		lines[i] = e.Error()
	}
	return strings.Join(lines, "; ")
}

// Load reads and parses the config file at path. Unknown device
// keywords and malformed lines are collected into an ErrorList rather
// than aborting the read on the first one.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(string(data))
}

// Parse parses config text directly, for callers that already have the
// file contents (e.g. tests, or an embedded default config).
func Parse(text string) (*Config, error) {
	cfg := &Config{}
	var errs ErrorList

	for i, rawLine := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := rawLine
		if j := strings.IndexByte(line, '#'); j >= 0 {
			line = line[:j]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		kind := strings.ToLower(fields[0])
		if kind == "log" {
			if len(fields) != 2 {
				errs = append(errs, &ParseError{lineNo, rawLine, fmt.Errorf("log expects exactly one path")})
				continue
			}
			cfg.LogPath = fields[1]
			continue
		}

		if !knownDevices[kind] {
			errs = append(errs, &ParseError{lineNo, rawLine, fmt.Errorf("unknown device %q", fields[0])})
			continue
		}
		if len(fields) < 3 {
			errs = append(errs, &ParseError{lineNo, rawLine, fmt.Errorf("expected device slot path [options]")})
			continue
		}
		slot, err := strconv.Atoi(fields[1])
		if err != nil {
			errs = append(errs, &ParseError{lineNo, rawLine, fmt.Errorf("bad slot %q: %w", fields[1], err)})
			continue
		}

		a := Attach{Device: kind, Slot: slot, Path: fields[2]}
		if len(fields) >= 4 {
			a.Options = strings.Split(fields[3], ",")
		}
		cfg.Attachments = append(cfg.Attachments, a)
	}

	if len(errs) > 0 {
		return cfg, errs
	}
	return cfg, nil
}
