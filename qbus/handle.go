// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus

import (
	"fmt"
	"sync/atomic"

	uuid "github.com/satori/go.uuid"
)

// Handle is an open Endpoint. Handles of the same Endpoint share its
// cursor. Closing a Handle releases nothing on the card.
type Handle struct {
	*Endpoint
	id     uuid.UUID
	closed atomic.Bool
}

func newHandle(e *Endpoint) *Handle {
	return &Handle{
		Endpoint: e,
		id:       uuid.NewV4(),
	}
}

func (h *Handle) String() string {
	return fmt.Sprint(h.Endpoint, "/", h.id.String()[:8])
}

func (h *Handle) Close() error {
	if h.closed.Swap(true) {
		return fmt.Errorf("%s: %w", h, ErrClosed)
	}
	return nil
}

func (h *Handle) ok() error {
	if h.closed.Load() {
		return fmt.Errorf("%s: %w", h, ErrClosed)
	}
	return nil
}

func (h *Handle) SetAddress(addr uint16) error {
	if err := h.ok(); err != nil {
		return err
	}
	h.Endpoint.SetAddress(addr)
	return nil
}

func (h *Handle) ClearError() error {
	if err := h.ok(); err != nil {
		return err
	}
	return h.Endpoint.ClearError()
}

func (h *Handle) ResetDevice() error {
	if err := h.ok(); err != nil {
		return err
	}
	return h.Endpoint.ResetDevice()
}

func (h *Handle) Status() (uint16, error) {
	if err := h.ok(); err != nil {
		return 0, err
	}
	return h.Endpoint.Status()
}

func (h *Handle) SelfTest() (bool, error) {
	if err := h.ok(); err != nil {
		return false, err
	}
	return h.Endpoint.SelfTest()
}

func (h *Handle) ReadWord() (uint16, error) {
	if err := h.ok(); err != nil {
		return 0, err
	}
	return h.Endpoint.ReadWord()
}

func (h *Handle) WriteWord(w uint16) error {
	if err := h.ok(); err != nil {
		return err
	}
	return h.Endpoint.WriteWord(w)
}

func (h *Handle) ReadWords(buf []uint16) (int, error) {
	if err := h.ok(); err != nil {
		return 0, err
	}
	return h.Endpoint.ReadWords(buf)
}

func (h *Handle) WriteWords(words []uint16) (int, error) {
	if err := h.ok(); err != nil {
		return 0, err
	}
	return h.Endpoint.WriteWords(words)
}
