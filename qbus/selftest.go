// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus

// SelfTest writes Canary to the Reg5 scratch register and reads it back.
// It's a liveness check of the card and its window mapping; no bus cycle
// is run and no other register is touched.
func (e *Endpoint) SelfTest() (bool, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.window == nil {
		return false, e.notBound()
	}
	if err := e.out(Reg5, Canary); err != nil {
		return false, err
	}
	v, err := e.in(Reg5)
	if err != nil {
		return false, err
	}
	if v != Canary {
		Trace.Logf("%s: canary %#04x != %#04x", e, v, Canary)
	}
	return v == Canary, nil
}
