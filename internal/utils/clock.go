// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"sync"
	"time"
)

// Clock is the time source of the sync engine. All persisted timestamps are
// UTC and truncated to milliseconds so that they survive a round trip through
// SQLite and JSON unchanged.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// LogicalClock never goes backwards: if the wall clock reports a time at or
// before the previous reading, the previous reading plus one millisecond is
// returned instead. Pending changes use it for createdAt so FIFO order
// follows mutation order even when the wall clock is adjusted.
type LogicalClock struct {
	mu   sync.Mutex
	base Clock
	last time.Time
}

// NewLogicalClock wraps base. A nil base means SystemClock.
func NewLogicalClock(base Clock) *LogicalClock {
	if base == nil {
		base = SystemClock{}
	}
	return &LogicalClock{base: base}
}

func (c *LogicalClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.base.Now()
	if !now.After(c.last) {
		now = c.last.Add(time.Millisecond)
	}
	c.last = now
	return now
}

// ManualClock is a Clock whose time only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start.UTC().Truncate(time.Millisecond)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.UTC().Truncate(time.Millisecond)
	c.mu.Unlock()
}
