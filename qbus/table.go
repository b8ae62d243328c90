// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/platinasystems/log"
	"golang.org/x/sync/errgroup"
)

// Function is a discovered bridge card function. Reserve grants access to
// its register window; Release returns it.
type Function interface {
	fmt.Stringer
	Base() uint16
	Size() int
	IRQ() (int, bool)
	Reserve() (Window, error)
	Release() error
}

// Table is the fixed set of Endpoints of this process, indexed by minor
// number in discovery order.
type Table struct {
	cfg       Config
	mutex     sync.Mutex
	endpoints []*Endpoint
	next      int
	reserved  map[uint16]bool
}

// New returns a Table of cfg.Capacity unbound Endpoints.
func New(cfg Config) *Table {
	cfg.fill()
	t := &Table{
		cfg:       cfg,
		endpoints: make([]*Endpoint, cfg.Capacity),
		reserved:  make(map[uint16]bool),
	}
	for i := range t.endpoints {
		t.endpoints[i] = &Endpoint{
			index: i,
			cfg:   &t.cfg,
			irq:   -1,
		}
	}
	return t
}

func (t *Table) Config() Config { return t.cfg }

func (t *Table) Len() int { return len(t.endpoints) }

// Bind assigns each function the next Endpoint and reserves its window.
// A function whose window can't be reserved still takes an index, leaving
// that Endpoint unbound. Functions beyond capacity are ignored. Bind
// returns the number of Endpoints bound and the joined reservation errors.
func (t *Table) Bind(fns ...Function) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var errs []error
	n := 0
	for _, fn := range fns {
		if t.next >= len(t.endpoints) {
			log.Print("warn", "qbus: ", fn, ": ignored, table full")
			continue
		}
		e := t.endpoints[t.next]
		t.next++
		err := t.reserve(fn)
		if err != nil {
			log.Print("err", e, ": ", err)
			errs = append(errs, fmt.Errorf("%s: %w", e, err))
			continue
		}
		w, err := fn.Reserve()
		if err != nil {
			delete(t.reserved, fn.Base())
			log.Print("err", e, ": ", err)
			errs = append(errs, fmt.Errorf("%s: %w", e, err))
			continue
		}
		e.bind(fn, w)
		n++
		log.Printf("info", "%s: %s io=%#x", e, fn, fn.Base())
	}
	return n, errors.Join(errs...)
}

func (t *Table) reserve(fn Function) error {
	base := fn.Base()
	switch {
	case base == 0:
		return fmt.Errorf("%s: no I/O window", fn)
	case fn.Size() < WindowSize:
		return fmt.Errorf("%s: %d byte window, need %d", fn, fn.Size(),
			WindowSize)
	case t.reserved[base]:
		return fmt.Errorf("%s: io=%#x: %w", fn, base, ErrReserved)
	}
	t.reserved[base] = true
	return nil
}

func (t *Table) Endpoint(i int) (*Endpoint, error) {
	if i < 0 || i >= len(t.endpoints) {
		return nil, fmt.Errorf("pq%d: %w", i, ErrIndex)
	}
	return t.endpoints[i], nil
}

// Endpoints returns every Endpoint, bound or not, in index order.
func (t *Table) Endpoints() []*Endpoint {
	return append([]*Endpoint(nil), t.endpoints...)
}

// Open returns a Handle to the i'th Endpoint. An unbound Endpoint fails
// with ErrNotBound before any register access. With Config.SelfTest, the
// canary is run and its failure handled per Config.Policy.
func (t *Table) Open(i int) (*Handle, error) {
	e, err := t.Endpoint(i)
	if err != nil {
		return nil, err
	}
	if !e.Bound() {
		return nil, e.notBound()
	}
	if t.cfg.SelfTest {
		ok, err := e.SelfTest()
		if err == nil && !ok {
			err = fmt.Errorf("%s: %w", e, ErrSelfTest)
		}
		if err != nil {
			if t.cfg.Policy == PolicyFatal {
				return nil, err
			}
			log.Print("warn", err)
		}
	}
	return newHandle(e), nil
}

// SelfTestAll runs the canary on every bound Endpoint concurrently. The
// result is indexed like the table; unbound Endpoints are false.
func (t *Table) SelfTestAll(ctx context.Context) ([]bool, error) {
	results := make([]bool, len(t.endpoints))
	g, ctx := errgroup.WithContext(ctx)
	for i, e := range t.endpoints {
		if !e.Bound() {
			continue
		}
		i, e := i, e
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := e.SelfTest()
			results[i] = ok
			return err
		})
	}
	return results, g.Wait()
}

// Close releases every reserved window once. The Endpoints are unbound
// afterward and the table can't be bound again.
func (t *Table) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var errs []error
	for _, e := range t.endpoints {
		if err := e.release(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e, err))
		}
	}
	t.next = len(t.endpoints)
	return errors.Join(errs...)
}
