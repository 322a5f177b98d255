// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock only moves when Advance is called. Safe for concurrent use.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*timer
	added  *sync.Cond // broadcast when a timer is scheduled
}

// timer is a pending After channel or a ticker (every > 0).
type timer struct {
	due   time.Time
	every time.Duration
	ch    chan time.Time
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	c := &FakeClock{now: start}
	c.added = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
	} else {
		c.scheduleLocked(&timer{due: c.now.Add(d), ch: ch})
	}
	return ch
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker interval must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{due: c.now.Add(d), every: d, ch: make(chan time.Time, 1)}
	c.scheduleLocked(t)
	return &Ticker{C: t.ch, stop: func() { c.cancel(t) }}
}

// Advance moves the clock forward by d, then delivers every tick and
// timeout that came due, earliest first. A ticker overtaken by several
// intervals fires once for each, and ticks the reader has not taken
// are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	until := c.now
	c.mu.Unlock()

	for {
		due, ch, ok := c.popDue(until)
		if !ok {
			return
		}
		select {
		case ch <- due:
		default:
		}
	}
}

// popDue takes the earliest timer due by until, rescheduling it if it
// is a ticker.
func (c *FakeClock) popDue(until time.Time) (time.Time, chan time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 || c.timers[0].due.After(until) {
		return time.Time{}, nil, false
	}
	t := c.timers[0]
	c.timers = c.timers[1:]
	due := t.due
	if t.every > 0 {
		t.due = t.due.Add(t.every)
		c.insertLocked(t)
	}
	return due, t.ch, true
}

// WaitForTimers blocks until n or more timers are pending. Tests call
// it before Advance so that a goroutine's After or NewTicker is
// registered first.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.timers) < n {
		c.added.Wait()
	}
}

// PendingCount is the number of scheduled timers and live tickers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *FakeClock) scheduleLocked(t *timer) {
	c.insertLocked(t)
	c.added.Broadcast()
}

// insertLocked keeps timers ordered by due time, ties in insertion
// order.
func (c *FakeClock) insertLocked(t *timer) {
	at, _ := slices.BinarySearchFunc(c.timers, t.due, func(pending *timer, due time.Time) int {
		if pending.due.After(due) {
			return 1
		}
		return -1
	})
	c.timers = slices.Insert(c.timers, at, t)
}

func (c *FakeClock) cancel(t *timer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = slices.DeleteFunc(c.timers, func(pending *timer) bool { return pending == t })
}
