// Copyright © 2016-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pci

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/platinasystems/pciqbus/internal/test"
	"github.com/platinasystems/pciqbus/qbus"
)

const (
	ioBar  = "0x000000000000d000 0x000000000000d01f 0x0000000000040101\n"
	memBar = "0x00000000f7c00000 0x00000000f7c0001f 0x0000000000040200\n"
	noBar  = "0x0000000000000000 0x0000000000000000 0x0000000000000000\n"
)

type fakeFn struct {
	vendor, device string
	resource       string
	irq            string
	enable         string
}

// sysfs builds a fake devices directory and points discovery at it.
func sysfs(t *testing.T, fns map[string]fakeFn) string {
	t.Helper()
	dir := t.TempDir()
	for name, f := range fns {
		d := filepath.Join(dir, name)
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatal(err)
		}
		for file, s := range map[string]string{
			"vendor":   f.vendor,
			"device":   f.device,
			"resource": f.resource,
			"irq":      f.irq,
			"enable":   f.enable,
		} {
			if len(s) == 0 {
				continue
			}
			err := os.WriteFile(filepath.Join(d, file), []byte(s), 0644)
			if err != nil {
				t.Fatal(err)
			}
		}
	}
	saved := SysBusPciPath
	SysBusPciPath = dir
	t.Cleanup(func() { SysBusPciPath = saved })
	return dir
}

func ioports(t *testing.T, s string) {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "ioports")
	if err := os.WriteFile(fn, []byte(s), 0644); err != nil {
		t.Fatal(err)
	}
	saved := IoPortsPath
	IoPortsPath = fn
	t.Cleanup(func() { IoPortsPath = saved })
}

func qbusFn(resource string) fakeFn {
	return fakeFn{
		vendor:   "0x1172\n",
		device:   "0x0003\n",
		resource: resource,
		irq:      "11\n",
		enable:   "1\n",
	}
}

func TestDiscover(t *testing.T) {
	assert := test.Assert{TB: t}
	dir := sysfs(t, map[string]fakeFn{
		"0000:00:1f.0": {
			vendor:   "0x8086\n",
			device:   "0xa1c8\n",
			resource: noBar,
		},
		"0000:03:00.0": qbusFn(ioBar + noBar + noBar),
		"0000:04:00.0": qbusFn(memBar),
	})
	fns, err := Discover()
	assert.Nil(err)
	assert.True(len(fns) == 2)

	f := fns[0]
	assert.Equal(f.String(), "0000:03:00.0")
	assert.True(f.Base() == 0xd000)
	assert.Equal(f.SysfsPath("irq"),
		filepath.Join(dir, "0000:03:00.0", "irq"))
	assert.True(f.Size() == 32)
	assert.True(len(f.Resources) == 3)
	assert.True(f.Resources[0].IsIo())
	assert.True(f.Resources[1].Size == 0)
	irq, ok := f.IRQ()
	assert.True(ok)
	assert.True(irq == 11)

	f = fns[1]
	assert.Equal(f.String(), "0000:04:00.0")
	assert.True(f.Base() == 0)
	assert.True(f.Size() == 0)
}

func TestDiscoverNone(t *testing.T) {
	assert := test.Assert{TB: t}
	SysBusPciPath = filepath.Join(t.TempDir(), "missing")
	t.Cleanup(func() { SysBusPciPath = "/sys/bus/pci/devices" })
	fns, err := Discover()
	assert.Nil(err)
	assert.True(len(fns) == 0)
}

func TestDiscoverBadResource(t *testing.T) {
	assert := test.Assert{TB: t}
	sysfs(t, map[string]fakeFn{
		"0000:03:00.0": qbusFn("0xd000\n"),
	})
	_, err := Discover()
	assert.Error(err, regexp.MustCompile("short read"))
}

func TestBindMemoryBar(t *testing.T) {
	assert := test.Assert{TB: t}
	sysfs(t, map[string]fakeFn{
		"0000:04:00.0": qbusFn(memBar),
	})
	tbl := qbus.New(qbus.DefaultConfig())
	n, err := Bind(tbl)
	assert.True(n == 0)
	assert.Error(err, regexp.MustCompile("no I/O window"))
	_, err = tbl.Open(0)
	assert.Error(err, qbus.ErrNotBound)
}

func TestReserveClaimed(t *testing.T) {
	assert := test.Assert{TB: t}
	sysfs(t, map[string]fakeFn{
		"0000:03:00.0": qbusFn(ioBar),
	})
	ioports(t, `0000-0cf7 : PCI Bus 0000:00
d000-dfff : PCI Bus 0000:03
  d000-d01f : 0000:03:00.0
    d000-d01f : pci-qbus
`)
	fns, err := Discover()
	assert.Nil(err)
	assert.True(len(fns) == 1)
	_, err = fns[0].Reserve()
	assert.Error(err, regexp.MustCompile(`claimed by "pci-qbus"`))
	assert.Nil(fns[0].Release())
}

func TestUnclaimed(t *testing.T) {
	assert := test.Assert{TB: t}
	sysfs(t, map[string]fakeFn{
		"0000:03:00.0": qbusFn(ioBar),
	})
	ioports(t, `d000-dfff : PCI Bus 0000:03
  d000-d01f : 0000:03:00.0
  d020-d03f : 0000:03:01.0
`)
	fns, err := Discover()
	assert.Nil(err)
	assert.Nil(fns[0].unclaimed(0xd000, 0xd01f))
}

func TestEnable(t *testing.T) {
	assert := test.Assert{TB: t}
	fn := qbusFn(ioBar)
	fn.enable = "0\n"
	dir := sysfs(t, map[string]fakeFn{"0000:03:00.0": fn})
	fns, err := Discover()
	assert.Nil(err)
	assert.Nil(fns[0].enable())
	b, err := os.ReadFile(filepath.Join(dir, "0000:03:00.0", "enable"))
	assert.Nil(err)
	assert.Equal(string(b), "1")
}
