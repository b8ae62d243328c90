// Copyright © 2016-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package pci discovers PCI-QBUS bridge functions through Linux sysfs.
package pci

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/platinasystems/log"
	"github.com/platinasystems/pciqbus/internal/ioport"
	"github.com/platinasystems/pciqbus/internal/memmap"
	"github.com/platinasystems/pciqbus/qbus"
)

var (
	SysBusPciPath = "/sys/bus/pci/devices"
	IoPortsPath   = memmap.IoPorts
)

// IORESOURCE_IO in the sysfs resource flags
const ioResource = 0x100

type Addr struct {
	Domain, Bus, Slot, Fn uint
}

func (a Addr) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%x", a.Domain, a.Bus, a.Slot, a.Fn)
}

// Resource is one BAR line of the sysfs resource file.
type Resource struct {
	Index      int
	Base, Size uint64
	Flags      uint64
}

func (r Resource) IsIo() bool { return r.Flags&ioResource != 0 }

// Function is a qbus.Function found in sysfs; its window is BAR0.
type Function struct {
	Addr      Addr
	Vendor    uint16
	Device    uint16
	Irq       int
	Resources []Resource

	window *ioport.Window
}

func (f *Function) String() string { return f.Addr.String() }

func (f *Function) SysfsPath(name string) string {
	return filepath.Join(SysBusPciPath, f.Addr.String(), name)
}

func (f *Function) bar0() (Resource, bool) {
	if len(f.Resources) == 0 || !f.Resources[0].IsIo() {
		return Resource{}, false
	}
	r := f.Resources[0]
	if r.Base == 0 || r.Base+r.Size > 0x10000 {
		return Resource{}, false
	}
	return r, true
}

// Base is the BAR0 I/O address, 0 if BAR0 isn't an I/O window.
func (f *Function) Base() uint16 {
	r, ok := f.bar0()
	if !ok {
		return 0
	}
	return uint16(r.Base)
}

func (f *Function) Size() int {
	r, ok := f.bar0()
	if !ok {
		return 0
	}
	return int(r.Size)
}

func (f *Function) IRQ() (int, bool) { return f.Irq, f.Irq > 0 }

// Reserve refuses a window claimed by a kernel driver, enables the
// function, then opens its I/O ports.
func (f *Function) Reserve() (qbus.Window, error) {
	if f.window != nil {
		return nil, fmt.Errorf("%s: %w", f, qbus.ErrReserved)
	}
	base, size := f.Base(), f.Size()
	if err := f.unclaimed(uintptr(base), uintptr(base)+uintptr(size)-1); err != nil {
		return nil, err
	}
	if err := f.enable(); err != nil {
		return nil, err
	}
	w, err := ioport.Open(base, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f, err)
	}
	f.window = w
	return w, nil
}

func (f *Function) Release() error {
	if f.window == nil {
		return nil
	}
	w := f.window
	f.window = nil
	return w.Close()
}

func (f *Function) unclaimed(start, end uintptr) error {
	m, err := memmap.FileToMap(IoPortsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, r := range m.Overlapping(start, end) {
		if r.What == f.Addr.String() || strings.HasPrefix(r.What, "PCI Bus") {
			continue
		}
		return fmt.Errorf("%s: io=%#x claimed by %q", f, start, r.What)
	}
	return nil
}

func (f *Function) enable() error {
	fn := f.SysfsPath("enable")
	b, err := os.ReadFile(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if string(bytes.TrimSpace(b)) != "0" {
		return nil
	}
	if err = os.WriteFile(fn, []byte("1"), 0); err != nil {
		return fmt.Errorf("%s: enable: %w", f, err)
	}
	return nil
}

func (f *Function) readHex(name string) (v uint, err error) {
	b, err := os.ReadFile(f.SysfsPath(name))
	if err != nil {
		return
	}
	_, err = fmt.Sscanf(string(b), "0x%x", &v)
	if err != nil {
		err = fmt.Errorf("%s: %v", f.SysfsPath(name), err)
	}
	return
}

// Loop through BARs to find resources.
func (f *Function) findResources() error {
	b, err := os.ReadFile(f.SysfsPath("resource"))
	if err != nil {
		return err
	}
	r := bytes.NewReader(b)
	for i := 0; r.Len() > 0; i++ {
		var v [3]uint64
		n, err := fmt.Fscanf(r, "0x%x 0x%x 0x%x\n", &v[0], &v[1], &v[2])
		if n != 3 || err != nil {
			return fmt.Errorf("%s: short read", f.SysfsPath("resource"))
		}
		size := v[0]
		if v[0] != 0 {
			size = 1 + v[1] - v[0]
		}
		f.Resources = append(f.Resources, Resource{
			Index: i,
			Base:  v[0],
			Size:  size,
			Flags: v[2],
		})
	}
	return nil
}

// Discover returns the PCI-QBUS functions in sysfs order.
func Discover() ([]*Function, error) {
	return DiscoverIDs(qbus.VendorID, qbus.DeviceID)
}

func DiscoverIDs(vendor, device uint16) (fns []*Function, err error) {
	des, err := os.ReadDir(SysBusPciPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, de := range des {
		f := new(Function)
		n := de.Name()
		if _, err = fmt.Sscanf(n, "%x:%x:%x.%x", &f.Addr.Domain,
			&f.Addr.Bus, &f.Addr.Slot, &f.Addr.Fn); err != nil {
			return nil, fmt.Errorf("%s: %v", n, err)
		}
		var v, d uint
		if v, err = f.readHex("vendor"); err != nil {
			return nil, err
		}
		if d, err = f.readHex("device"); err != nil {
			return nil, err
		}
		if uint16(v) != vendor || uint16(d) != device {
			continue
		}
		f.Vendor, f.Device = uint16(v), uint16(d)
		if err = f.findResources(); err != nil {
			return nil, err
		}
		if b, err := os.ReadFile(f.SysfsPath("irq")); err == nil {
			fmt.Sscan(string(b), &f.Irq)
		}
		fns = append(fns, f)
	}
	return fns, nil
}

// Bind discovers the bridge functions and binds them to the table.
func Bind(t *qbus.Table) (int, error) {
	fns, err := Discover()
	if err != nil {
		return 0, err
	}
	if len(fns) == 0 {
		log.Print("warn", "qbus: no PCI-QBUS card found")
		return 0, nil
	}
	qfns := make([]qbus.Function, len(fns))
	for i, f := range fns {
		qfns[i] = f
	}
	return t.Bind(qfns...)
}
