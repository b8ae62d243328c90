// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package qbustest simulates PCI-QBUS bridge cards for tests.
package qbustest

import (
	"fmt"
	"sync"

	"github.com/platinasystems/pciqbus/qbus"
)

// Access is one recorded register access; for reads, Value is what the
// card returned.
type Access struct {
	Write bool
	Reg   qbus.Reg
	Value uint16
}

func (a Access) String() string {
	if a.Write {
		return fmt.Sprintf("%s <- %#04x", a.Reg, a.Value)
	}
	return fmt.Sprintf("%s -> %#04x", a.Reg, a.Value)
}

// Card is a qbus.Window whose bus echoes writes: a word written at an
// address is read back from it.
type Card struct {
	mutex sync.Mutex

	// Mem is the simulated bus.
	Mem map[uint16]uint16

	// Settle, if set, returns the status of a cycle at addr; otherwise
	// every cycle is ready.
	Settle func(addr uint16, write bool) uint16

	// Busy is the number of Status reads that return busy after each
	// trigger; negative never settles.
	Busy int

	// NoEcho makes Reg5 read back the complement of what was written.
	NoEcho bool

	// Err, if set, fails every access.
	Err error

	// OnStatus is called, without the card lock, before each Status read.
	OnStatus func()

	log     []Access
	status  uint16
	pending uint16
	polls   int
	active  bool
	data    uint16
	scratch [3]uint16
	resets  int
	overlap int
}

func NewCard() *Card {
	return &Card{Mem: make(map[uint16]uint16)}
}

func (c *Card) In(r qbus.Reg) (uint16, error) {
	if r == qbus.Status {
		c.mutex.Lock()
		f := c.OnStatus
		c.mutex.Unlock()
		if f != nil {
			f()
		}
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	var v uint16
	switch r {
	case qbus.Status:
		v = c.status
		if c.active {
			if c.Busy < 0 || c.polls < c.Busy {
				c.polls++
				v = qbus.StatusBusy
			} else {
				c.status = c.pending
				c.active = false
				v = c.status
			}
		}
	case qbus.Data:
		v = c.data
	case qbus.Reg5, qbus.Reg6, qbus.Reg7:
		v = c.scratch[(r-qbus.Reg5)/4]
	}
	c.log = append(c.log, Access{Reg: r, Value: v})
	return v, nil
}

func (c *Card) Out(r qbus.Reg, v uint16) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.log = append(c.log, Access{Write: true, Reg: r, Value: v})
	switch r {
	case qbus.Status:
		c.resets++
		c.status = qbus.StatusBusy
		c.active = false
		c.data = 0
	case qbus.Vector:
		c.status = qbus.StatusBusy
		c.active = false
	case qbus.Data:
		if c.active {
			c.overlap++
		}
		c.data = v
	case qbus.ReadAddress, qbus.WriteAddress:
		c.trigger(v, r == qbus.WriteAddress)
	case qbus.Reg5, qbus.Reg6, qbus.Reg7:
		if r == qbus.Reg5 && c.NoEcho {
			v = ^v
		}
		c.scratch[(r-qbus.Reg5)/4] = v
	}
	return nil
}

func (c *Card) trigger(addr uint16, write bool) {
	if c.active {
		c.overlap++
	}
	st := qbus.StatusReady
	if c.Settle != nil {
		st = c.Settle(addr, write)
	}
	if st == qbus.StatusReady {
		if write {
			c.Mem[addr] = c.data
		} else {
			c.data = c.Mem[addr]
		}
	}
	c.status = qbus.StatusBusy
	c.pending = st
	c.polls = 0
	c.active = true
}

// Log returns the accesses recorded since the last Reset.
func (c *Card) Log() []Access {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]Access(nil), c.log...)
}

// Writes returns the values written to r.
func (c *Card) Writes(r qbus.Reg) (values []uint16) {
	for _, a := range c.Log() {
		if a.Write && a.Reg == r {
			values = append(values, a.Value)
		}
	}
	return
}

// Overlaps counts cycles started or loaded before the previous cycle had
// settled.
func (c *Card) Overlaps() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.overlap
}

// Reset forgets the recorded accesses.
func (c *Card) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.log = c.log[:0]
}
