// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus

import "fmt"

// PCI identifiers of the IHEP PCI-QBUS bridge.
const (
	VendorID = 0x1172
	DeviceID = 0x0003
)

// Reg is a register offset within an Endpoint's I/O window.
type Reg uint16

const (
	Status       Reg = 0
	Vector       Reg = 4
	ReadAddress  Reg = 8
	Data         Reg = 12
	WriteAddress Reg = 16
	Reg5         Reg = 20
	Reg6         Reg = 24
	Reg7         Reg = 28
)

// WindowSize is the span of the register window in bytes.
const WindowSize = 32

// Status register values. StatusBusy means the cycle hasn't settled.
const (
	StatusBusy      uint16 = 0
	StatusReady     uint16 = 1
	StatusTimeout   uint16 = 2
	StatusInterrupt uint16 = 4
)

// Canary is written to and read back from Reg5 by the self-test.
const Canary uint16 = 0x5a5a

var Regs = []Reg{
	Status,
	Vector,
	ReadAddress,
	Data,
	WriteAddress,
	Reg5,
	Reg6,
	Reg7,
}

func (r Reg) String() string {
	switch r {
	case Status:
		return "status"
	case Vector:
		return "vector"
	case ReadAddress:
		return "addr"
	case Data:
		return "data"
	case WriteAddress:
		return "addw"
	case Reg5:
		return "reg5"
	case Reg6:
		return "reg6"
	case Reg7:
		return "reg7"
	}
	return fmt.Sprintf("reg%#x", uint16(r))
}

// Window is the register window of one bridge card function. The 16-bit
// accesses are ordered as issued.
type Window interface {
	In(Reg) (uint16, error)
	Out(Reg, uint16) error
}

// StatusString names a settled status value.
func StatusString(s uint16) string {
	switch s {
	case StatusBusy:
		return "busy"
	case StatusReady:
		return "ready"
	case StatusTimeout:
		return "timeout"
	case StatusInterrupt:
		return "interrupt"
	}
	return fmt.Sprintf("%#x", s)
}
