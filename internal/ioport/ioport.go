// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

//go:build linux && amd64

// Package ioport provides 16-bit access to a window of the CPU's I/O ports.
//
// Linux grants port access per thread, so every access runs locked to its
// OS thread and each thread is granted the window on its first access.
package ioport

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/platinasystems/pciqbus/qbus"
	"golang.org/x/sys/unix"
)

var ErrClosed = errors.New("window closed")

// implemented in ioport_amd64.s
func inw(port uint16) uint16
func outw(port, v uint16)

type Window struct {
	Base uint16
	Size int

	mutex   sync.Mutex
	granted map[int]bool
	closed  bool
}

// Open grants the calling process access to size ports from base. It
// fails without CAP_SYS_RAWIO.
func Open(base uint16, size int) (*Window, error) {
	if size <= 0 || int(base)+size > 0x10000 {
		return nil, fmt.Errorf("ioport %#x+%d: invalid window", base, size)
	}
	w := &Window{
		Base:    base,
		Size:    size,
		granted: make(map[int]bool),
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := w.grant(); err != nil {
		return nil, err
	}
	return w, nil
}

// grant expects the caller locked to its thread.
func (w *Window) grant() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return fmt.Errorf("ioport %#x: %w", w.Base, ErrClosed)
	}
	tid := unix.Gettid()
	if w.granted[tid] {
		return nil
	}
	err := unix.Ioperm(int(w.Base), w.Size, 1)
	if err != nil {
		return fmt.Errorf("ioperm %#x+%d: %w", w.Base, w.Size, err)
	}
	w.granted[tid] = true
	return nil
}

func (w *Window) port(r qbus.Reg) (uint16, error) {
	if int(r)+2 > w.Size {
		return 0, fmt.Errorf("ioport %#x: %s: outside window", w.Base, r)
	}
	return w.Base + uint16(r), nil
}

func (w *Window) In(r qbus.Reg) (uint16, error) {
	p, err := w.port(r)
	if err != nil {
		return 0, err
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err = w.grant(); err != nil {
		return 0, err
	}
	return inw(p), nil
}

func (w *Window) Out(r qbus.Reg, v uint16) error {
	p, err := w.port(r)
	if err != nil {
		return err
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err = w.grant(); err != nil {
		return err
	}
	outw(p, v)
	return nil
}

// Close revokes the window on the calling thread; other threads keep the
// permission but every later access fails.
func (w *Window) Close() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.granted[unix.Gettid()] {
		return nil
	}
	return unix.Ioperm(int(w.Base), w.Size, 0)
}
