// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

//go:build !linux || !amd64

// Package ioport provides 16-bit access to a window of the CPU's I/O ports.
package ioport

import (
	"errors"

	"github.com/platinasystems/pciqbus/qbus"
)

var (
	ErrClosed      = errors.New("window closed")
	ErrUnsupported = errors.New("I/O ports unsupported on this platform")
)

type Window struct {
	Base uint16
	Size int
}

func Open(base uint16, size int) (*Window, error) {
	return nil, ErrUnsupported
}

func (*Window) In(qbus.Reg) (uint16, error) { return 0, ErrUnsupported }
func (*Window) Out(qbus.Reg, uint16) error  { return ErrUnsupported }
func (*Window) Close() error                { return nil }
