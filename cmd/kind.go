// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package cmd defines the interface shared by the pciqbus commands.
package cmd

import "github.com/platinasystems/pciqbus/lang"

const (
	Daemon Kind = 1 << iota
	Hidden
)

type Cmd interface {
	Apropos() lang.Alt
	Main(...string) error
	// String returns the command name.
	String() string
	Usage() string
	/* Optional
	Close() error
	Kind() Kind
	Man() lang.Alt
	*/
}

func WhatKind(v Cmd) Kind {
	if m, found := v.(kinder); found {
		return m.Kind()
	}
	return 0
}

type kinder interface {
	Kind() Kind
}

type Kind uint16

func (k Kind) IsDaemon() bool { return (k & Daemon) == Daemon }
func (k Kind) IsHidden() bool { return (k & Hidden) == Hidden }

func (k Kind) String() string {
	s := "unknown"
	switch k {
	case Daemon:
		s = "daemon"
	case Hidden:
		s = "hidden"
	}
	return s
}
