// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package main

import (
	"testing"

	"github.com/platinasystems/pciqbus/internal/test"
)

func TestNames(t *testing.T) {
	assert := test.Assert{TB: t}
	assert.Same(Goes().Names(), []string{"qbus", "qbusd"})
}

func ExampleGoes() {
	Goes().Main("apropos")
	// Output:
	// qbus            read/write QBUS words through a PCI-QBUS bridge
	// qbusd           PCI-QBUS bridge daemon
}
