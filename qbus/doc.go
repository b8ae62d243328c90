// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

/*
Package qbus drives the IHEP PCI-QBUS bridge, a PCI card that runs 16-bit
address/data cycles on an external QBUS instrumentation crate.

A Table holds the Endpoints of the process, one per bridge function, bound
in discovery order:

	t := qbus.New(qbus.DefaultConfig())
	defer t.Close()
	if _, err := pci.Bind(t); err != nil {
		...
	}
	h, err := t.Open(0)
	...
	h.SetAddress(0x1f00)
	buf := make([]uint16, 16)
	n, err := h.ReadWords(buf)

Each read or write is a bus cycle: the address register write starts the
cycle and the Status register is polled until it settles. A cycle that
settles to anything but ready fails with ErrBusTimeout; one that doesn't
settle within Config.Timeout fails with ErrUnresponsive. Either way the
Vector register is cleared before return. Stream operations stop at the
first failure and report the words transferred in a *ShortTransferError.

The cursor is never advanced by a transfer; reading N words at one
address reads that address N times, as a crate FIFO expects.
*/
package qbus
