// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Endpoint is one bus connection, backed by one reserved register window.
// The mutex serializes the address cursor with every bus cycle; separate
// Endpoints never contend.
type Endpoint struct {
	mutex  sync.Mutex
	index  int
	cfg    *Config
	fn     Function
	window Window
	base   uint16
	irq    int
	cursor uint16

	cycles, failures atomic.Uint64
}

func (e *Endpoint) String() string { return fmt.Sprint("pq", e.index) }

func (e *Endpoint) Index() int { return e.index }

func (e *Endpoint) Bound() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.window != nil
}

// Base returns the I/O address of the window, 0 if unbound.
func (e *Endpoint) Base() uint16 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.base
}

// IRQ returns the interrupt line of the bound function, if it has one.
// The line is informational; completion is always polled.
func (e *Endpoint) IRQ() (int, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.irq, e.irq >= 0
}

// Counters returns the number of bus cycles run and how many failed.
func (e *Endpoint) Counters() (cycles, failures uint64) {
	return e.cycles.Load(), e.failures.Load()
}

// SetAddress positions the cursor for subsequent reads and writes. This
// doesn't touch the card.
func (e *Endpoint) SetAddress(addr uint16) {
	e.mutex.Lock()
	e.cursor = addr
	e.mutex.Unlock()
}

func (e *Endpoint) Address() uint16 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.cursor
}

// ClearError writes 0 to Vector, clearing the card's error and interrupt
// condition.
func (e *Endpoint) ClearError() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.window == nil {
		return e.notBound()
	}
	return e.out(Vector, 0)
}

// ResetDevice writes 0 to Status, resetting the card and its bus branch.
// Cycles in flight on other Endpoints of the same branch are lost.
func (e *Endpoint) ResetDevice() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.window == nil {
		return e.notBound()
	}
	return e.out(Status, 0)
}

// Status reads the Status register without starting a cycle.
func (e *Endpoint) Status() (uint16, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.window == nil {
		return 0, e.notBound()
	}
	return e.in(Status)
}

// ReadWord runs one read cycle at the cursor.
func (e *Endpoint) ReadWord() (uint16, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.window == nil {
		return 0, e.notBound()
	}
	return e.readWord()
}

// WriteWord runs one write cycle of w at the cursor.
func (e *Endpoint) WriteWord(w uint16) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.window == nil {
		return e.notBound()
	}
	return e.writeWord(w)
}

func (e *Endpoint) notBound() error {
	return fmt.Errorf("%s: %w", e, ErrNotBound)
}

func (e *Endpoint) bind(fn Function, w Window) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.fn = fn
	e.window = w
	e.base = fn.Base()
	if irq, ok := fn.IRQ(); ok {
		e.irq = irq
	}
}

// release returns the window to its function; it's a no-op once unbound.
func (e *Endpoint) release() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.fn == nil {
		return nil
	}
	fn := e.fn
	e.fn = nil
	e.window = nil
	e.base = 0
	e.irq = -1
	return fn.Release()
}
