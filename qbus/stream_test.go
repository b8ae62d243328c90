// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus_test

import (
	"errors"
	"io"
	"testing"

	"github.com/platinasystems/pciqbus/internal/test"
	"github.com/platinasystems/pciqbus/qbus"
)

// failAfter settles n cycles then times out every one after.
func failAfter(n int) func(uint16, bool) uint16 {
	return func(uint16, bool) uint16 {
		if n > 0 {
			n--
			return qbus.StatusReady
		}
		return qbus.StatusTimeout
	}
}

func TestReadWords(t *testing.T) {
	assert := test.Assert{TB: t}
	h, card := open(t, config())
	card.Mem[0x10] = 0xa5a5
	assert.Nil(h.SetAddress(0x10))
	buf := make([]uint16, 4)
	n, err := h.ReadWords(buf)
	assert.Nil(err)
	assert.True(n == 4)
	assert.Same(buf, []uint16{0xa5a5, 0xa5a5, 0xa5a5, 0xa5a5})
	assert.Same(card.Writes(qbus.ReadAddress),
		[]uint16{0x10, 0x10, 0x10, 0x10})
}

func TestShortRead(t *testing.T) {
	assert := test.Assert{TB: t}
	h, card := open(t, config())
	card.Settle = failAfter(2)
	buf := make([]uint16, 5)
	n, err := h.ReadWords(buf)
	assert.True(n == 2)
	assert.Error(err, qbus.ErrBusTimeout)
	var short *qbus.ShortTransferError
	assert.True(errors.As(err, &short))
	assert.True(short.N == 2)
	assert.True(len(card.Writes(qbus.ReadAddress)) == 3)
	assert.Same(card.Writes(qbus.Vector), []uint16{0})
}

func TestShortWrite(t *testing.T) {
	assert := test.Assert{TB: t}
	h, card := open(t, config())
	card.Settle = failAfter(1)
	n, err := h.WriteWords([]uint16{1, 2, 3})
	assert.True(n == 1)
	assert.Error(err, qbus.ErrBusTimeout)
	assert.Same(card.Writes(qbus.Data), []uint16{1, 2})
	assert.Same(card.Writes(qbus.Vector), []uint16{0})

	// clear and retry from where the stream stopped
	card.Settle = nil
	assert.Nil(h.ClearError())
	n, err = h.WriteWords([]uint16{2, 3})
	assert.Nil(err)
	assert.True(n == 2)
}

func TestByteStream(t *testing.T) {
	assert := test.Assert{TB: t}
	h, card := open(t, config())

	off, err := h.Seek(0x0200, io.SeekStart)
	assert.Nil(err)
	assert.True(off == 0x0200)

	n, err := h.Write([]byte{0x34, 0x12})
	assert.Nil(err)
	assert.True(n == 2)
	assert.True(card.Mem[0x0200] == 0x1234)

	p := make([]byte, 5)
	n, err = h.Read(p)
	assert.Nil(err)
	assert.True(n == 4)
	assert.Same(p, []byte{0x34, 0x12, 0x34, 0x12, 0})

	off, err = h.Seek(0, io.SeekCurrent)
	assert.Nil(err)
	assert.True(off == 0x0200)

	n, err = h.Write([]byte{1, 0, 2})
	assert.True(n == 2)
	assert.Error(err, io.ErrShortWrite)

	_, err = h.Read(p[:1])
	assert.Error(err, io.ErrShortBuffer)
}

func TestByteStreamShort(t *testing.T) {
	assert := test.Assert{TB: t}
	h, card := open(t, config())
	card.Settle = failAfter(1)
	p := make([]byte, 8)
	n, err := h.Read(p)
	assert.True(n == 2)
	assert.Error(err, qbus.ErrBusTimeout)
}

func TestSeek(t *testing.T) {
	assert := test.Assert{TB: t}
	h, card := open(t, config())
	_, err := h.Seek(0, io.SeekEnd)
	assert.Error(err, qbus.ErrWhence)
	_, err = h.Seek(4, io.SeekCurrent)
	assert.Error(err, qbus.ErrWhence)
	_, err = h.Seek(0x10000, io.SeekStart)
	assert.Error(err, qbus.ErrRange)
	_, err = h.Seek(-1, io.SeekStart)
	assert.Error(err, qbus.ErrRange)
	assert.True(len(card.Log()) == 0)
}
