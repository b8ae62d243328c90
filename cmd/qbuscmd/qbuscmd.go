// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package qbuscmd reads and writes QBUS words through a PCI-QBUS bridge.
package qbuscmd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/parms"
	"github.com/platinasystems/pciqbus/lang"
	"github.com/platinasystems/pciqbus/pci"
	"github.com/platinasystems/pciqbus/qbus"
)

type Command struct {
	// Table, if set, is used instead of one bound by PCI discovery and
	// isn't closed by Main.
	Table *qbus.Table
}

func (*Command) String() string { return "qbus" }

func (*Command) Usage() string {
	return `qbus [-n COUNT] [-a ADDRESS] [-w] [-x] [-clear] [-reset] [-test] [-i]
	[-no-test] [-t TIMEOUT] [-spin COUNT] [-capacity COUNT]
	[-policy warn|fatal] [MINOR] [DATA]...`
}

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "read/write QBUS words through a PCI-QBUS bridge",
	}
}

func (*Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Access the QBUS behind the MINOR'th PCI-QBUS bridge card, default 0.

	Without -w, read COUNT words, default 1, from ADDRESS. The cursor
	doesn't advance so every word is read from the same address.

	With -w, write each hex DATA word to ADDRESS, or, without DATA,
	stream little endian words from stdin.

	Words are printed in hex to a terminal, or with -x; otherwise they
	are written as little endian binary.

OPTIONS
	-a ADDRESS	hex QBUS address, default 0
	-n COUNT	words to read
	-clear		clear the bridge error before the transfer
	-reset		reset the bridge before the transfer
	-test		run the Reg5 canary and report
	-i		interactive console
	-no-test	skip the canary at open
	-t TIMEOUT	bus cycle bound, e.g. 100ms
	-spin COUNT	status polls before sleeping
	-capacity COUNT	endpoints in the table
	-policy		self-test failure at open is a warning or fatal

CONSOLE
	seek ADDRESS	set the cursor
	read [COUNT]	read words at the cursor
	write DATA...	write words at the cursor
	clear		clear the bridge error
	reset		reset the bridge
	test		run the canary
	status		show status, cursor, and counters
	quit`,
	}
}

func (c *Command) Main(args ...string) (err error) {
	flag, args := flags.New(args, "-w", "-x", "-i", "-clear", "-reset",
		"-test", "-no-test")
	parm, args := parms.New(args, "-n", "-a", "-t", "-spin", "-capacity",
		"-policy")

	minor := 0
	if len(args) > 0 {
		if minor, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("%s: %v", args[0], err)
		}
		args = args[1:]
	}
	if len(args) > 0 && !flag.ByName["-w"] {
		return fmt.Errorf("%v: unexpected", args)
	}

	t := c.Table
	if t == nil {
		if t, err = bind(flag, parm); err != nil {
			return err
		}
		defer t.Close()
	}

	if flag.ByName["-test"] {
		return selfTest(os.Stdout, t, minor)
	}

	h, err := t.Open(minor)
	if err != nil {
		return err
	}
	defer h.Close()

	if flag.ByName["-i"] {
		p := newPrompter()
		defer p.Close()
		return console(h, p, os.Stdout)
	}

	if flag.ByName["-reset"] {
		if err = h.ResetDevice(); err != nil {
			return err
		}
	}
	if flag.ByName["-clear"] {
		if err = h.ClearError(); err != nil {
			return err
		}
	}
	if s := parm.ByName["-a"]; len(s) > 0 {
		addr, err := parseWord(s)
		if err != nil {
			return err
		}
		if err = h.SetAddress(addr); err != nil {
			return err
		}
	}

	hex := flag.ByName["-x"] || isatty.IsTerminal(os.Stdout.Fd())
	switch {
	case flag.ByName["-w"] && len(args) > 0:
		words := make([]uint16, len(args))
		for i, s := range args {
			if words[i], err = parseWord(s); err != nil {
				return err
			}
		}
		_, err = h.WriteWords(words)
	case flag.ByName["-w"]:
		_, err = copyWords(h, os.Stdin)
	case len(parm.ByName["-n"]) > 0 ||
		!(flag.ByName["-clear"] || flag.ByName["-reset"]):
		n := 1
		if s := parm.ByName["-n"]; len(s) > 0 {
			if n, err = strconv.Atoi(s); err != nil || n < 1 {
				return fmt.Errorf("COUNT: %q invalid", s)
			}
		}
		buf := make([]uint16, n)
		n, err = h.ReadWords(buf)
		if werr := printWords(os.Stdout, buf[:n], hex); err == nil {
			err = werr
		}
	}
	return err
}

func bind(flag *flags.Flags, parm *parms.Parms) (*qbus.Table, error) {
	cfg, err := Config(flag, parm)
	if err != nil {
		return nil, err
	}
	t := qbus.New(cfg)
	if _, err = pci.Bind(t); err != nil {
		// unbound endpoints fail at Open
		fmt.Fprintln(os.Stderr, err)
	}
	return t, nil
}

// Config returns the default table configuration as modified by the
// -no-test flag and the -t, -spin, -capacity, and -policy parameters.
func Config(flag *flags.Flags, parm *parms.Parms) (qbus.Config, error) {
	cfg := qbus.DefaultConfig()
	if flag.ByName["-no-test"] {
		cfg.SelfTest = false
	}
	if s := parm.ByName["-t"]; len(s) > 0 {
		d, err := time.ParseDuration(s)
		if err != nil {
			return cfg, fmt.Errorf("TIMEOUT: %v", err)
		}
		cfg.Timeout = d
	}
	for _, p := range []struct {
		name string
		v    *int
	}{
		{"-spin", &cfg.Spin},
		{"-capacity", &cfg.Capacity},
	} {
		s := parm.ByName[p.name]
		if len(s) == 0 {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("%s: %q invalid", p.name, s)
		}
		*p.v = n
	}
	policy, err := qbus.ParsePolicy(parm.ByName["-policy"])
	if err != nil {
		return cfg, err
	}
	cfg.Policy = policy
	return cfg, nil
}

func selfTest(w io.Writer, t *qbus.Table, minor int) error {
	e, err := t.Endpoint(minor)
	if err != nil {
		return err
	}
	if !e.Bound() {
		_, err = t.Open(minor)
		return err
	}
	ok, err := e.SelfTest()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(w, e, "self-test: fail")
		return fmt.Errorf("%s: %w", e, qbus.ErrSelfTest)
	}
	fmt.Fprintln(w, e, "self-test: pass")
	return nil
}

// copyWords writes r to w in blocks of whole words however r splits its
// reads. Only a lone byte at the end of r is left unwritten, with
// io.ErrShortWrite.
func copyWords(w io.Writer, r io.Reader) (written int64, err error) {
	buf := make([]byte, 4096)
	for {
		n, rerr := io.ReadFull(r, buf)
		if even := n &^ 1; even > 0 {
			m, werr := w.Write(buf[:even])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
		}
		switch rerr {
		case nil:
		case io.EOF:
			return written, nil
		case io.ErrUnexpectedEOF:
			if n%2 != 0 {
				return written, fmt.Errorf("odd trailing byte: %w",
					io.ErrShortWrite)
			}
			return written, nil
		default:
			return written, rerr
		}
	}
}

func parseWord(s string) (uint16, error) {
	u, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", s, errors.Unwrap(err))
	}
	return uint16(u), nil
}

// printWords writes eight hex words per line, or raw little endian.
func printWords(w io.Writer, words []uint16, hex bool) error {
	if !hex {
		return binary.Write(w, binary.LittleEndian, words)
	}
	for len(words) > 0 {
		n := min(len(words), 8)
		s := make([]string, n)
		for i, word := range words[:n] {
			s[i] = fmt.Sprintf("%04x", word)
		}
		if _, err := fmt.Fprintln(w, strings.Join(s, " ")); err != nil {
			return err
		}
		words = words[n:]
	}
	return nil
}
