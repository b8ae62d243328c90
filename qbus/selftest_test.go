// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus_test

import (
	"context"
	"testing"

	"github.com/platinasystems/pciqbus/internal/test"
	"github.com/platinasystems/pciqbus/qbus"
	"github.com/platinasystems/pciqbus/qbus/qbustest"
)

func TestSelfTest(t *testing.T) {
	assert := test.Assert{TB: t}
	h, card := open(t, config())
	ok, err := h.SelfTest()
	assert.Nil(err)
	assert.True(ok)
	assert.Same(card.Log(), []qbustest.Access{
		{Write: true, Reg: qbus.Reg5, Value: qbus.Canary},
		{Reg: qbus.Reg5, Value: qbus.Canary},
	})

	card.NoEcho = true
	ok, err = h.SelfTest()
	assert.Nil(err)
	assert.False(ok)
}

func TestOpenPolicy(t *testing.T) {
	for _, tc := range []struct {
		policy qbus.Policy
		noEcho bool
		err    error
	}{
		{qbus.PolicyWarn, false, nil},
		{qbus.PolicyWarn, true, nil},
		{qbus.PolicyFatal, false, nil},
		{qbus.PolicyFatal, true, qbus.ErrSelfTest},
	} {
		assert := test.Assert{TB: t}
		cfg := config()
		cfg.SelfTest = true
		cfg.Policy = tc.policy
		fn := qbustest.NewFunction(0xd000)
		fn.Card.NoEcho = tc.noEcho
		tbl := qbus.New(cfg)
		_, err := tbl.Bind(fn)
		assert.Nil(err)
		h, err := tbl.Open(0)
		if tc.err == nil {
			assert.Nil(err)
			assert.True(h != nil)
		} else {
			assert.Error(err, tc.err)
		}
		assert.True(len(fn.Card.Writes(qbus.Reg5)) == 1)
		assert.Nil(tbl.Close())
	}
}

func TestOpenWithoutSelfTest(t *testing.T) {
	assert := test.Assert{TB: t}
	cfg := config()
	cfg.Policy = qbus.PolicyFatal
	fn := qbustest.NewFunction(0xd000)
	fn.Card.NoEcho = true
	tbl := qbus.New(cfg)
	_, err := tbl.Bind(fn)
	assert.Nil(err)
	_, err = tbl.Open(0)
	assert.Nil(err)
	assert.True(len(fn.Card.Log()) == 0)
}

func TestSelfTestAll(t *testing.T) {
	assert := test.Assert{TB: t}
	cfg := config()
	cfg.Capacity = 3
	good := qbustest.NewFunction(0xd000)
	bad := qbustest.NewFunction(0xd020)
	bad.Card.NoEcho = true
	tbl := qbus.New(cfg)
	n, err := tbl.Bind(good, bad)
	assert.Nil(err)
	assert.True(n == 2)
	results, err := tbl.SelfTestAll(context.Background())
	assert.Nil(err)
	assert.Same(results, []bool{true, false, false})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tbl.SelfTestAll(ctx)
	assert.Error(err, context.Canceled)
}
