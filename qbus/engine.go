// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus

import (
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/platinasystems/pciqbus/internal/dbg"
)

// Trace prints every register access when set to another dbg style.
var Trace = dbg.NoOp

// The bus cycle engine. Every method here expects e.mutex held and a bound
// window.

// Writing the cursor to ReadAddress starts the read cycle.
func (e *Endpoint) readWord() (uint16, error) {
	if err := e.out(ReadAddress, e.cursor); err != nil {
		return 0, e.fail(err)
	}
	if err := e.settle(); err != nil {
		return 0, err
	}
	w, err := e.in(Data)
	if err != nil {
		return 0, e.fail(err)
	}
	return w, nil
}

// Data must be loaded before the cursor is written to WriteAddress, which
// starts the write cycle.
func (e *Endpoint) writeWord(w uint16) error {
	if err := e.out(Data, w); err != nil {
		return e.fail(err)
	}
	if err := e.out(WriteAddress, e.cursor); err != nil {
		return e.fail(err)
	}
	return e.settle()
}

// settle polls Status until the cycle completes, the card reports a
// failure, or the deadline passes. All but completion clear Vector.
func (e *Endpoint) settle() error {
	e.cycles.Add(1)
	s, err := e.poll()
	if err != nil {
		return e.fail(err)
	}
	if s != StatusReady {
		return e.fail(fmt.Errorf("%s: %#04x: %s: %w", e, e.cursor,
			StatusString(s), ErrBusTimeout))
	}
	return nil
}

func (e *Endpoint) poll() (uint16, error) {
	var b *backoff.Backoff
	deadline := time.Now().Add(e.cfg.Timeout)
	for i := 0; ; i++ {
		s, err := e.in(Status)
		if err != nil {
			return 0, err
		}
		if s != StatusBusy {
			return s, nil
		}
		if i < e.cfg.Spin {
			continue
		}
		left := time.Until(deadline)
		if left <= 0 {
			return 0, fmt.Errorf("%s: %#04x: no status after %v: %w",
				e, e.cursor, e.cfg.Timeout, ErrUnresponsive)
		}
		if b == nil {
			b = &backoff.Backoff{
				Min:    e.cfg.PollMin,
				Max:    e.cfg.PollMax,
				Factor: 2,
			}
		}
		d := b.Duration()
		if d > left {
			d = left
		}
		time.Sleep(d)
	}
}

// fail counts the failure and clears Vector, returning err even if the
// clear fails.
func (e *Endpoint) fail(err error) error {
	e.failures.Add(1)
	if xerr := e.out(Vector, 0); xerr != nil {
		Trace.Log(xerr)
	}
	return err
}

func (e *Endpoint) out(r Reg, v uint16) error {
	Trace.Logf("%s: %s <- %#04x", e, r, v)
	if err := e.window.Out(r, v); err != nil {
		return fmt.Errorf("%s: %s: %w", e, r, err)
	}
	return nil
}

func (e *Endpoint) in(r Reg) (uint16, error) {
	v, err := e.window.In(r)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", e, r, err)
	}
	Trace.Logf("%s: %s -> %#04x", e, r, v)
	return v, nil
}
