// Copyright © 2015-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package qbusd publishes PCI-QBUS endpoint state to redis and accepts
// bus control through redis hset.
package qbusd

import (
	"context"
	"fmt"
	"net/rpc"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/platinasystems/atsock"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"
	"github.com/platinasystems/pciqbus/cmd"
	"github.com/platinasystems/pciqbus/cmd/qbuscmd"
	"github.com/platinasystems/pciqbus/lang"
	"github.com/platinasystems/pciqbus/pci"
	"github.com/platinasystems/pciqbus/qbus"
	"github.com/platinasystems/redis"
	"github.com/platinasystems/redis/publisher"
	"github.com/platinasystems/redis/rpc/args"
	"github.com/platinasystems/redis/rpc/reply"
)

const (
	Name   = "qbusd"
	Prefix = "qbus."

	DefaultInterval = 5 * time.Second
)

type Command struct {
	Info
	// Table, if set, is served instead of one bound by PCI discovery.
	Table    *qbus.Table
	Interval time.Duration

	stopOnce  sync.Once
	closeOnce sync.Once
	stop      chan struct{}
}

type printer interface {
	Print(...interface{}) (int, error)
}

type Info struct {
	mutex    sync.Mutex
	table    *qbus.Table
	rpc      *atsock.RpcServer
	pub      printer
	last     map[string]string
	selftest map[int]string
}

func (*Command) String() string { return Name }

func (*Command) Usage() string {
	return Name + ` [-no-test] [-interval DURATION] [-t TIMEOUT] [-spin COUNT]
	[-capacity COUNT] [-policy warn|fatal]`
}

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "PCI-QBUS bridge daemon",
	}
}

func (*Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Publish the state of each PCI-QBUS endpoint N as these fields:
		qbus.N.base	bridge I/O address
		qbus.N.irq	interrupt line or "none"
		qbus.N.bound	true or false
		qbus.N.selftest	pass, fail, or untested
		qbus.N.address	QBUS cursor
		qbus.N.cycles	bus cycles run
		qbus.N.errors	bus cycles failed

	Accept control with hset of these fields:
		qbus.N.address HEX	set the cursor
		qbus.N.data HEX		write a word at the cursor
		qbus.N.clear		clear the bridge error
		qbus.N.reset		reset the bridge`,
	}
}

func (*Command) Kind() cmd.Kind { return cmd.Daemon }

func (c *Command) Main(args ...string) error {
	flag, args := flags.New(args, "-no-test")
	parm, args := parms.New(args, "-interval", "-t", "-spin", "-capacity",
		"-policy")
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}
	cfg, err := qbuscmd.Config(flag, parm)
	if err != nil {
		return err
	}
	interval := c.Interval
	if s := parm.ByName["-interval"]; len(s) > 0 {
		if interval, err = time.ParseDuration(s); err != nil {
			return fmt.Errorf("-interval: %v", err)
		}
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	if err = redis.IsReady(); err != nil {
		return err
	}

	stop := c.stopped()
	c.table = c.Table
	if c.table == nil {
		c.table = qbus.New(cfg)
		if _, err = pci.Bind(c.table); err != nil {
			log.Print("err", Name, ": ", err)
		}
		defer c.table.Close()
	}

	pub, err := publisher.New()
	if err != nil {
		return err
	}
	defer pub.Close()
	c.pub = pub

	if c.rpc, err = atsock.NewRpcServer(Name); err != nil {
		return err
	}
	defer c.rpc.Close()

	rpc.Register(&c.Info)
	err = redis.Assign(redis.DefaultHash+":"+Prefix, Name, "Info")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	if c.table.Config().SelfTest {
		if err = c.selfTest(ctx); err != nil {
			log.Print("warn", Name, ": ", err)
		}
	}

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err = c.update(); err != nil {
			log.Print("err", Name, ": ", err)
		}
		select {
		case <-stop:
			return nil
		case <-t.C:
		}
	}
}

// Close stops Main, even one not yet started.
func (c *Command) Close() error {
	stop := c.stopped()
	c.closeOnce.Do(func() { close(stop) })
	return nil
}

func (c *Command) stopped() chan struct{} {
	c.stopOnce.Do(func() { c.stop = make(chan struct{}) })
	return c.stop
}

// selfTest runs the canary on every bound endpoint for publication.
func (i *Info) selfTest(ctx context.Context) error {
	results, err := i.table.SelfTestAll(ctx)
	i.mutex.Lock()
	defer i.mutex.Unlock()
	i.selftest = make(map[int]string)
	for n, e := range i.table.Endpoints() {
		switch {
		case !e.Bound() || err != nil && !results[n]:
			i.selftest[n] = "untested"
		case results[n]:
			i.selftest[n] = "pass"
		default:
			i.selftest[n] = "fail"
		}
	}
	return err
}

func (i *Info) update() error {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	if i.last == nil {
		i.last = make(map[string]string)
	}
	for n, e := range i.table.Endpoints() {
		k := fmt.Sprint(Prefix, n, ".")
		for _, kv := range i.fields(n, e) {
			if kv[1] != i.last[k+kv[0]] {
				if _, err := i.pub.Print(k, kv[0], ": ", kv[1]); err != nil {
					return err
				}
				i.last[k+kv[0]] = kv[1]
			}
		}
	}
	return nil
}

func (i *Info) fields(n int, e *qbus.Endpoint) [][2]string {
	irq := "none"
	if line, ok := e.IRQ(); ok {
		irq = strconv.Itoa(line)
	}
	selftest := i.selftest[n]
	if len(selftest) == 0 {
		selftest = "untested"
	}
	cycles, failures := e.Counters()
	return [][2]string{
		{"base", fmt.Sprintf("0x%04x", e.Base())},
		{"irq", irq},
		{"bound", strconv.FormatBool(e.Bound())},
		{"selftest", selftest},
		{"address", fmt.Sprintf("0x%04x", e.Address())},
		{"cycles", strconv.FormatUint(cycles, 10)},
		{"errors", strconv.FormatUint(failures, 10)},
	}
}

func (i *Info) Hset(args args.Hset, reply *reply.Hset) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	v := strings.TrimSpace(string(args.Value))

	f := strings.SplitN(strings.TrimPrefix(args.Field, Prefix), ".", 2)
	if !strings.HasPrefix(args.Field, Prefix) || len(f) != 2 {
		return fmt.Errorf("can't set %s", args.Field)
	}
	n, err := strconv.Atoi(f[0])
	if err != nil {
		return fmt.Errorf("%s: %v", args.Field, err)
	}
	e, err := i.table.Endpoint(n)
	if err != nil {
		return err
	}
	if !e.Bound() {
		return fmt.Errorf("%s: %w", e, qbus.ErrNotBound)
	}

	switch f[1] {
	case "address":
		var w uint16
		if w, err = parseWord(v); err == nil {
			e.SetAddress(w)
		}
	case "data":
		var w uint16
		if w, err = parseWord(v); err == nil {
			err = e.WriteWord(w)
		}
	case "clear":
		err = e.ClearError()
	case "reset":
		err = e.ResetDevice()
	default:
		return fmt.Errorf("can't set %s", args.Field)
	}
	if err != nil {
		return err
	}
	*reply = 1
	return nil
}

func parseWord(s string) (uint16, error) {
	u, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid word", s)
	}
	return uint16(u), nil
}
