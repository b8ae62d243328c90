// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// This is the goes-qbus multi-call binary. Run as, or linked to, qbus or
// qbusd it runs that command.
package main

import (
	"github.com/platinasystems/pciqbus/cmd/qbuscmd"
	"github.com/platinasystems/pciqbus/cmd/qbusd"
	"github.com/platinasystems/pciqbus/internal/goes"
	"github.com/platinasystems/pciqbus/lang"
)

func Goes() *goes.Goes {
	g := goes.New("goes-qbus",
		&qbuscmd.Command{},
		&qbusd.Command{},
	)
	g.APROPOS = lang.Alt{
		lang.EnUS: "PCI-QBUS bridge tools",
	}
	return g
}

func main() {
	Goes().Main()
}
