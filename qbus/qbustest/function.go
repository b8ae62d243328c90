// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbustest

import (
	"fmt"

	"github.com/platinasystems/pciqbus/qbus"
)

// Function is a qbus.Function backed by a Card.
type Function struct {
	Card *Card
	Io   uint16
	// Line is the IRQ; 0 is none.
	Line int
	// Len is the window size; 0 is qbus.WindowSize.
	Len int
	// ReserveErr fails Reserve.
	ReserveErr error

	Reserved, Released int
}

func NewFunction(io uint16) *Function {
	return &Function{Card: NewCard(), Io: io}
}

func (f *Function) String() string { return fmt.Sprintf("sim@%#x", f.Io) }

func (f *Function) Base() uint16 { return f.Io }

func (f *Function) Size() int {
	if f.Len == 0 {
		return qbus.WindowSize
	}
	return f.Len
}

func (f *Function) IRQ() (int, bool) { return f.Line, f.Line > 0 }

func (f *Function) Reserve() (qbus.Window, error) {
	if f.ReserveErr != nil {
		return nil, f.ReserveErr
	}
	f.Reserved++
	return f.Card, nil
}

func (f *Function) Release() error {
	f.Released++
	return nil
}
