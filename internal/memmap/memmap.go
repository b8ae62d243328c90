// Copyright © 2016-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package memmap parses /proc/ioports and anything else of similar
// structure.
package memmap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

const IoPorts = "/proc/ioports"

type Range struct {
	Start uintptr
	End   uintptr
}

// Region is one line of the map; Depth is its nesting level, 0 for
// top-level ranges.
type Region struct {
	What  string
	Depth int
	Range
}

type Map []Region

func (r Range) String() string {
	return fmt.Sprintf("%x-%x", r.Start, r.End)
}

func (r Region) String() string {
	return fmt.Sprintf("%v : %s", r.Range, r.What)
}

// Overlaps is true if any part of [start, end] is within the range.
func (r Range) Overlaps(start, end uintptr) bool {
	return start <= r.End && end >= r.Start
}

// Overlapping returns the regions that share any address with
// [start, end], in file order.
func (m Map) Overlapping(start, end uintptr) (regions []Region) {
	for _, r := range m {
		if r.Overlaps(start, end) {
			regions = append(regions, r)
		}
	}
	return
}

func ReaderToMap(r io.Reader) (m Map, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimLeft(line, " ")
		if len(trimmed) == 0 {
			continue
		}
		fields := strings.SplitN(trimmed, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%q: missing ':'", line)
		}
		var rg Range
		if _, err = fmt.Sscanf(strings.TrimSpace(fields[0]), "%x-%x",
			&rg.Start, &rg.End); err != nil {
			return nil, fmt.Errorf("%q: %v", line, err)
		}
		m = append(m, Region{
			What:  strings.TrimSpace(fields[1]),
			Depth: (len(line) - len(trimmed)) / 2,
			Range: rg,
		})
	}
	return m, scanner.Err()
}

func FileToMap(s string) (Map, error) {
	f, err := os.OpenFile(s, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReaderToMap(f)
}
