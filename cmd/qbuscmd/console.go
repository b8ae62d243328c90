// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbuscmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/platinasystems/liner"
	"github.com/platinasystems/pciqbus/qbus"
)

type prompter interface {
	Prompt(string) (string, error)
	Close() error
}

// editor is a liner prompter with history.
type editor struct {
	*liner.State
}

func (e editor) Prompt(prompt string) (string, error) {
	s, err := e.State.Prompt(prompt)
	if err == nil && len(strings.TrimSpace(s)) > 0 {
		e.AppendHistory(s)
	}
	if err == liner.ErrPromptAborted {
		err = io.EOF
	}
	return s, err
}

// scanner prompts lines of a non-terminal.
type scanner struct {
	*bufio.Scanner
	w io.Writer
}

func (s scanner) Prompt(prompt string) (string, error) {
	if s.w != nil {
		fmt.Fprint(s.w, prompt)
	}
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.Text(), nil
}

func (scanner) Close() error { return nil }

func newPrompter() prompter {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		s := liner.NewLiner()
		s.SetCtrlCAborts(true)
		return editor{s}
	}
	return scanner{bufio.NewScanner(os.Stdin), nil}
}

// console runs commands on h until quit or the end of input. Command
// errors are printed and don't end the console.
func console(h *qbus.Handle, p prompter, w io.Writer) error {
	prompt := fmt.Sprint(h.Endpoint, "> ")
	for {
		line, err := p.Prompt(prompt)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}
		if err = run(h, w, args[0], args[1:]); err != nil {
			fmt.Fprintln(w, err)
		}
	}
}

func run(h *qbus.Handle, w io.Writer, name string, args []string) error {
	switch name {
	case "seek":
		if len(args) != 1 {
			return errors.New("seek ADDRESS")
		}
		addr, err := parseWord(args[0])
		if err != nil {
			return err
		}
		return h.SetAddress(addr)
	case "read":
		n := 1
		if len(args) > 0 {
			var err error
			if n, err = strconv.Atoi(args[0]); err != nil || n < 1 {
				return fmt.Errorf("COUNT: %q invalid", args[0])
			}
		}
		buf := make([]uint16, n)
		n, err := h.ReadWords(buf)
		printWords(w, buf[:n], true)
		return err
	case "write":
		if len(args) == 0 {
			return errors.New("write DATA...")
		}
		words := make([]uint16, len(args))
		for i, s := range args {
			var err error
			if words[i], err = parseWord(s); err != nil {
				return err
			}
		}
		_, err := h.WriteWords(words)
		return err
	case "clear":
		return h.ClearError()
	case "reset":
		return h.ResetDevice()
	case "test":
		ok, err := h.SelfTest()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s: %w", h.Endpoint, qbus.ErrSelfTest)
		}
		fmt.Fprintln(w, "pass")
	case "status":
		s, err := h.Status()
		if err != nil {
			return err
		}
		cycles, failures := h.Counters()
		fmt.Fprintf(w, "%s: io=%#x status=%s address=%04x cycles=%d failures=%d\n",
			h.Endpoint, h.Base(), qbus.StatusString(s), h.Address(),
			cycles, failures)
	default:
		return fmt.Errorf("%s: unknown", name)
	}
	return nil
}
