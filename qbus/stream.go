// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadWords fills buf with words read at the cursor. It stops at the first
// failed cycle and returns the count with a *ShortTransferError.
func (e *Endpoint) ReadWords(buf []uint16) (int, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.window == nil {
		return 0, e.notBound()
	}
	for i := range buf {
		w, err := e.readWord()
		if err != nil {
			return i, &ShortTransferError{N: i, Err: err}
		}
		buf[i] = w
	}
	return len(buf), nil
}

// WriteWords writes each word at the cursor in order. It stops at the
// first failed cycle and returns the count with a *ShortTransferError.
func (e *Endpoint) WriteWords(words []uint16) (int, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.window == nil {
		return 0, e.notBound()
	}
	for i, w := range words {
		if err := e.writeWord(w); err != nil {
			return i, &ShortTransferError{N: i, Err: err}
		}
	}
	return len(words), nil
}

// Read is the byte stream form of ReadWords with little endian words. A
// trailing odd byte of p is left untouched.
func (h *Handle) Read(p []byte) (int, error) {
	if err := h.ok(); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) < 2 {
		return 0, io.ErrShortBuffer
	}
	buf := make([]uint16, len(p)/2)
	n, err := h.ReadWords(buf)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(p[2*i:], buf[i])
	}
	return 2 * n, err
}

// Write is the byte stream form of WriteWords with little endian words. A
// trailing odd byte isn't written and results in io.ErrShortWrite.
func (h *Handle) Write(p []byte) (int, error) {
	words := make([]uint16, len(p)/2)
	for i := range words {
		words[i] = binary.LittleEndian.Uint16(p[2*i:])
	}
	n, err := h.WriteWords(words)
	if err == nil && len(p)%2 != 0 {
		err = io.ErrShortWrite
	}
	return 2 * n, err
}

// Seek positions the cursor at offset with io.SeekStart. With
// io.SeekCurrent and a 0 offset it returns the cursor unchanged. Anything
// else is ErrWhence; errors are cleared and the card is reset with
// ClearError and ResetDevice.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if err := h.ok(); err != nil {
		return 0, err
	}
	switch {
	case whence == io.SeekStart:
		if offset < 0 || offset > 0xffff {
			return 0, fmt.Errorf("%s: %#x: %w", h, offset, ErrRange)
		}
		h.Endpoint.SetAddress(uint16(offset))
		return offset, nil
	case whence == io.SeekCurrent && offset == 0:
		return int64(h.Address()), nil
	}
	return 0, fmt.Errorf("%s: %d: %w", h, whence, ErrWhence)
}
