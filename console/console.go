/*
 * olive-petrel - host console TTI/TTO.
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

// Package console implements the host side of the PDP-8's TTI/TTO: a
// raw-mode terminal reader that lets cpu.Console see individual
// keystrokes without waiting for a newline, and a plain byte writer for
// output. Single-threaded console (spec §9): a background reader
// goroutine only feeds a buffered channel KeyAvailable/ReadKey poll
// non-blockingly; the emulator's own execution stays single-threaded.
package console

import (
	"bufio"
	"os"

	"golang.org/x/term"
)

// Host is a terminal-backed implementation of cpu.Console.
type Host struct {
	in       *os.File
	out      *bufio.Writer
	oldState *term.State
	keys     chan byte
}

// Open puts stdin into raw mode and starts the background key reader.
// If stdin is not a terminal (piped input, CI), raw mode is skipped and
// KeyAvailable always reports false — the guest simply never sees a key,
// matching "the core must function without them".
func Open() (*Host, error) {
	h := &Host{
		in:   os.Stdin,
		out:  bufio.NewWriter(os.Stdout),
		keys: make(chan byte, 256),
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		state, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			h.oldState = state
			go h.readLoop()
		}
	}
	return h, nil
}

func (h *Host) readLoop() {
	buf := make([]byte, 1)
	for {
		n, err := h.in.Read(buf)
		if err != nil {
			return
		}
		if n == 1 {
			h.keys <- buf[0]
		}
	}
}

// Close restores the terminal's prior mode.
func (h *Host) Close() error {
	_ = h.out.Flush()
	if h.oldState != nil {
		return term.Restore(int(os.Stdin.Fd()), h.oldState)
	}
	return nil
}

// KeyAvailable reports whether a keystroke is buffered.
func (h *Host) KeyAvailable() bool {
	return len(h.keys) > 0
}

// ReadKey returns the next buffered keystroke, or 0 if none is ready.
func (h *Host) ReadKey() byte {
	select {
	case b := <-h.keys:
		return b
	default:
		return 0
	}
}

// WriteChar writes one character to the host console, flushing on
// newline so output appears promptly in an interactive session.
func (h *Host) WriteChar(b byte) {
	_ = h.out.WriteByte(b)
	if b == '\n' {
		_ = h.out.Flush()
	}
}
