// Copyright © 2026 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package qbus

import (
	"fmt"
	"time"
)

// Policy selects what Open does with a failed self-test.
type Policy int

const (
	// PolicyWarn logs the failure and opens anyway.
	PolicyWarn Policy = iota
	// PolicyFatal fails the open with ErrSelfTest.
	PolicyFatal
)

func (p Policy) String() string {
	switch p {
	case PolicyWarn:
		return "warn"
	case PolicyFatal:
		return "fatal"
	}
	return fmt.Sprint(int(p))
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "warn":
		return PolicyWarn, nil
	case "fatal":
		return PolicyFatal, nil
	}
	return PolicyWarn, fmt.Errorf("%s: invalid policy, expect warn or fatal",
		s)
}

type Config struct {
	// Capacity is the number of Endpoints in the Table.
	Capacity int
	// SelfTest runs the canary test on every Open.
	SelfTest bool
	Policy   Policy
	// Timeout bounds the wait for a bus cycle to settle.
	Timeout time.Duration
	// Spin is the number of back to back Status polls before the poller
	// starts to sleep between polls.
	Spin int
	// PollMin and PollMax bound the sleep between polls after Spin.
	PollMin, PollMax time.Duration
}

const (
	DefaultCapacity = 4
	DefaultTimeout  = 100 * time.Millisecond
	DefaultSpin     = 1000
	DefaultPollMin  = 10 * time.Microsecond
	DefaultPollMax  = time.Millisecond
)

func DefaultConfig() Config {
	return Config{
		Capacity: DefaultCapacity,
		SelfTest: true,
		Policy:   PolicyWarn,
		Timeout:  DefaultTimeout,
		Spin:     DefaultSpin,
		PollMin:  DefaultPollMin,
		PollMax:  DefaultPollMax,
	}
}

// fill replaces zero values with defaults.
func (c *Config) fill() {
	if c.Capacity < 1 {
		c.Capacity = DefaultCapacity
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Spin < 0 {
		c.Spin = 0
	}
	if c.PollMin <= 0 {
		c.PollMin = DefaultPollMin
	}
	if c.PollMax < c.PollMin {
		c.PollMax = c.PollMin
	}
}
