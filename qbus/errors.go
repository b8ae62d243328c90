// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus

import (
	"errors"
	"fmt"
)

var (
	ErrNotBound     = errors.New("no card bound")
	ErrSelfTest     = errors.New("self-test failed")
	ErrBusTimeout   = errors.New("bus timeout")
	ErrUnresponsive = errors.New("unresponsive")
	ErrClosed       = errors.New("closed")
	ErrReserved     = errors.New("window already reserved")
	ErrIndex        = errors.New("no such endpoint")
	ErrWhence       = errors.New("invalid whence")
	ErrRange        = errors.New("address out of range")
)

// ShortTransferError is returned by a stream operation that stopped
// before transferring every word. N words were transferred; Err is the
// cause, usually ErrBusTimeout.
type ShortTransferError struct {
	N   int
	Err error
}

func (e *ShortTransferError) Error() string {
	return fmt.Sprintf("short transfer of %d word(s): %v", e.N, e.Err)
}

func (e *ShortTransferError) Unwrap() error { return e.Err }

