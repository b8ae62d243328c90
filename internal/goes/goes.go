// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package goes runs one of a set of commands named by the first argument
// or by the program name.
package goes

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/pciqbus/cmd"
	"github.com/platinasystems/pciqbus/lang"
)

var Exit = os.Exit

type Goes struct {
	NAME    string
	USAGE   string
	APROPOS lang.Alt
	MAN     lang.Alt
	ByName  map[string]cmd.Cmd
}

func New(name string, cmds ...cmd.Cmd) *Goes {
	g := &Goes{
		NAME:   name,
		ByName: make(map[string]cmd.Cmd),
	}
	for _, v := range cmds {
		if _, found := g.ByName[v.String()]; found {
			panic(fmt.Errorf("%s: duplicate", v))
		}
		g.ByName[v.String()] = v
	}
	return g
}

func (g *Goes) String() string { return g.NAME }

// Names returns the sorted names of the commands that aren't hidden.
func (g *Goes) Names() (names []string) {
	for name, v := range g.ByName {
		if !cmd.WhatKind(v).IsHidden() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return
}

// Main runs the named command. Without args it uses os.Args, where the
// program itself may be named for a command, and exits on error.
//
// A command argument of -h, -help, or --help prints its usage; likewise
// -apropos and -man.
func (g *Goes) Main(args ...string) error {
	if len(args) == 0 {
		prog := filepath.Base(os.Args[0])
		if _, found := g.ByName[prog]; found {
			args = append([]string{prog}, os.Args[1:]...)
		} else if len(os.Args) > 1 {
			args = os.Args[1:]
		} else {
			args = []string{"help"}
		}
		if err := g.Main(args...); err != nil {
			fmt.Fprintln(os.Stderr, err)
			Exit(1)
		}
		return nil
	}

	name := args[0]
	flag, args := flags.New(args[1:],
		[]string{"-h", "-help", "--help"},
		[]string{"-apropos", "--apropos"},
		[]string{"-man", "--man"},
		[]string{"-usage", "--usage"})
	switch name {
	case "apropos":
		return g.apropos(args...)
	case "help", "-h", "-help", "--help":
		return g.help(args...)
	case "man":
		return g.man(args...)
	case "usage":
		return g.usage(args...)
	}
	switch {
	case flag.ByName["-h"], flag.ByName["-usage"]:
		return g.usage(name)
	case flag.ByName["-apropos"]:
		return g.apropos(name)
	case flag.ByName["-man"]:
		return g.man(name)
	}

	v, found := g.ByName[name]
	if !found {
		return fmt.Errorf("%s: command not found", name)
	}
	if cmd.WhatKind(v).IsDaemon() {
		if closer, found := v.(io.Closer); found {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGTERM, os.Interrupt)
			defer signal.Stop(sig)
			go func() {
				if _, ok := <-sig; ok {
					log.Print("info", name, ": stopping")
					closer.Close()
				}
			}()
		}
	}
	err := v.Main(args...)
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return err
}
