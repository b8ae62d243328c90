// Copyright © 2018-2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

/*
Package dbg provides the register trace printer.

Usage:

	var Trace = dbg.NoOp
	...
	Trace.Logf("%s <- %#04x", reg, v)

Where Style may be: NoOp, Plain, FileLine, or Func.

Nothing is printed with NoOp style, no args, or a nil args[0].

If args[0] is an error, both Log and Logf return that error; otherwise, these
return nil, so a returned error may be traced with

	return Trace.Log(err)
*/
package dbg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
)

type Style int

const (
	NoOp     Style = iota
	Plain          // TEXT
	FileLine       // engine.go:22: TEXT
	Func           // github.com/platinasystems/pciqbus/qbus.(*Endpoint).cycle() TEXT
	nStyles
)

var (
	writer atomic.Value
	mutex  sync.Mutex
)

// Atomic change of the os.Stdout default.
func Writer(w io.Writer) {
	writer.Store(&w)
}

// Print style prefix, then args formated with fmt.Println.
func (style Style) Log(args ...interface{}) error {
	if len(args) == 0 || args[0] == nil {
		return nil
	}
	err, _ := args[0].(error)
	if style == NoOp {
		return err
	}
	style.logln(args...)
	return err
}

// Print style prefix, then args formatted with fmt.Printf, and end with
// newline.
func (style Style) Logf(format string, args ...interface{}) error {
	if len(args) == 0 || args[0] == nil {
		return nil
	}
	err, _ := args[0].(error)
	if style == NoOp {
		return err
	}
	style.logf(format, args...)
	return err
}

func (style Style) String() string {
	if style < 0 || style >= nStyles {
		return fmt.Sprint(int(style))
	}
	return []string{
		"NoOp",
		"Plain",
		"FileLine",
		"Func",
	}[style]
}

func (style Style) logln(args ...interface{}) {
	buf := style.prefix()
	fmt.Fprintln(buf, args...)
	output(buf)
}

func (style Style) logf(format string, args ...interface{}) {
	buf := style.prefix()
	fmt.Fprintf(buf, format, args...)
	fmt.Fprintln(buf)
	output(buf)
}

// prefix is called through Log or Logf and logln or logf.
func (style Style) prefix() *bytes.Buffer {
	const skip = 3
	buf := new(bytes.Buffer)
	if style > Plain {
		pc, file, line, ok := runtime.Caller(skip)
		switch {
		case !ok:
			fmt.Fprintf(buf, "pc[%#x] ", pc)
		case style == FileLine:
			fmt.Fprint(buf, filepath.Base(file), ":", line, ": ")
		case style == Func:
			fmt.Fprint(buf, runtime.FuncForPC(pc).Name(), "() ")
		}
	}
	return buf
}

func output(buf *bytes.Buffer) {
	w := io.Writer(os.Stdout)
	if p, ok := writer.Load().(*io.Writer); ok && *p != nil {
		w = *p
	}
	mutex.Lock()
	w.Write(buf.Bytes())
	mutex.Unlock()
}
