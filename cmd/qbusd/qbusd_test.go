// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbusd

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/platinasystems/pciqbus/internal/test"
	"github.com/platinasystems/pciqbus/qbus"
	"github.com/platinasystems/pciqbus/qbus/qbustest"
	"github.com/platinasystems/redis/rpc/args"
	"github.com/platinasystems/redis/rpc/reply"
)

// lines records each publication as a line.
type lines struct {
	bytes.Buffer
}

func (l *lines) Print(a ...interface{}) (int, error) {
	n, err := fmt.Fprint(&l.Buffer, a...)
	l.WriteByte('\n')
	return n, err
}

func (l *lines) take() []string {
	defer l.Reset()
	s := strings.TrimSpace(l.String())
	if len(s) == 0 {
		return nil
	}
	return strings.Split(s, "\n")
}

func newInfo(t *testing.T) (*Info, *qbustest.Function, *lines) {
	cfg := qbus.DefaultConfig()
	cfg.Capacity = 2
	cfg.Timeout = 50 * time.Millisecond
	tbl := qbus.New(cfg)
	t.Cleanup(func() { tbl.Close() })
	fn := qbustest.NewFunction(0xd000)
	fn.Line = 11
	if _, err := tbl.Bind(fn); err != nil {
		t.Fatal(err)
	}
	pub := new(lines)
	return &Info{table: tbl, pub: pub}, fn, pub
}

func hset(i *Info, field, value string) error {
	var r reply.Hset
	err := i.Hset(args.Hset{
		Key:   "platina",
		Field: field,
		Value: []byte(value),
	}, &r)
	if err == nil && r != 1 {
		err = fmt.Errorf("%s: reply %d", field, r)
	}
	return err
}

func TestUpdate(t *testing.T) {
	assert := test.Assert{TB: t}
	i, _, pub := newInfo(t)
	assert.Nil(i.update())
	assert.Same(pub.take(), []string{
		"qbus.0.base: 0xd000",
		"qbus.0.irq: 11",
		"qbus.0.bound: true",
		"qbus.0.selftest: untested",
		"qbus.0.address: 0x0000",
		"qbus.0.cycles: 0",
		"qbus.0.errors: 0",
		"qbus.1.base: 0x0000",
		"qbus.1.irq: none",
		"qbus.1.bound: false",
		"qbus.1.selftest: untested",
		"qbus.1.address: 0x0000",
		"qbus.1.cycles: 0",
		"qbus.1.errors: 0",
	})

	assert.Nil(i.update())
	assert.True(len(pub.take()) == 0)

	assert.Nil(hset(i, "qbus.0.address", "0x104"))
	assert.Nil(hset(i, "qbus.0.data", "beef"))
	assert.Nil(i.update())
	assert.Same(pub.take(), []string{
		"qbus.0.address: 0x0104",
		"qbus.0.cycles: 1",
	})
}

func TestSelfTest(t *testing.T) {
	assert := test.Assert{TB: t}
	i, fn, pub := newInfo(t)
	assert.Nil(i.selfTest(context.Background()))
	assert.Nil(i.update())
	out := strings.Join(pub.take(), "\n")
	assert.Match(out, "qbus.0.selftest: pass")
	assert.Match(out, "qbus.1.selftest: untested")

	fn.Card.NoEcho = true
	assert.Nil(i.selfTest(context.Background()))
	assert.Nil(i.update())
	assert.Same(pub.take(), []string{"qbus.0.selftest: fail"})
}

func TestHset(t *testing.T) {
	assert := test.Assert{TB: t}
	i, fn, _ := newInfo(t)
	card := fn.Card

	assert.Nil(hset(i, "qbus.0.address", "20\n"))
	assert.Nil(hset(i, "qbus.0.data", "0x1234"))
	assert.True(card.Mem[0x20] == 0x1234)
	assert.Same(card.Writes(qbus.WriteAddress), []uint16{0x20})

	card.Reset()
	assert.Nil(hset(i, "qbus.0.clear", ""))
	assert.Nil(hset(i, "qbus.0.reset", "true"))
	assert.Same(card.Writes(qbus.Vector), []uint16{0})
	assert.Same(card.Writes(qbus.Status), []uint16{0})

	assert.Error(hset(i, "qbus.1.data", "1"), qbus.ErrNotBound)
	assert.Error(hset(i, "qbus.7.data", "1"), qbus.ErrIndex)
	assert.Error(hset(i, "qbus.0.data", "xyzzy"), "xyzzy: invalid word")
	assert.Error(hset(i, "qbus.0.speed", "1"), "can't set qbus.0.speed")
	assert.Error(hset(i, "fan_tray.speed", "1"), "can't set fan_tray.speed")
	assert.Error(hset(i, "qbus.x.data", "1"), regexp.MustCompile("^qbus.x.data: "))
}

func TestHsetBusTimeout(t *testing.T) {
	assert := test.Assert{TB: t}
	i, fn, pub := newInfo(t)
	fn.Card.Settle = func(uint16, bool) uint16 { return qbus.StatusTimeout }
	assert.Error(hset(i, "qbus.0.data", "1"), qbus.ErrBusTimeout)
	assert.Nil(i.update())
	assert.Match(strings.Join(pub.take(), "\n"), "qbus.0.errors: 1")
}

func TestMainArgs(t *testing.T) {
	assert := test.Assert{TB: t}
	c := new(Command)
	assert.Error(c.Main("bogus"), "[bogus]: unexpected")
	assert.Error(c.Main("-interval", "often"),
		regexp.MustCompile("^-interval: "))
	assert.Error(c.Main("-policy", "ignore"),
		regexp.MustCompile("invalid policy"))
	assert.Nil(c.Close())
}

func TestClose(t *testing.T) {
	assert := test.Assert{TB: t}
	c := new(Command)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}
	wg.Wait()
	assert.Nil(c.Close())
	select {
	case <-c.stopped():
	default:
		t.Fatal("not stopped")
	}
}

func ExampleCommand() {
	c := new(Command)
	fmt.Println(c)
	fmt.Println(c.Apropos())
	fmt.Println(c.Kind())
	// Output:
	// qbusd
	// PCI-QBUS bridge daemon
	// daemon
}
