// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package external

import (
	"sync"
	"time"
)

// hundredNanos is the EDK2 timer-tick unit every Timer method's
// duration argument is expressed in.
const hundredNanos = 100 * time.Nanosecond

// SoftwareTimer implements Timer over Go's own time.Ticker/time.Timer.
// Each periodic timer ticks on its own goroutine and each one-shot fires
// from time.AfterFunc, but every callback runs under one per-instance
// mutex, so two timers (the 20ms poll and the 2s escape one-shot) never
// race each other's callback. This is the one concrete Timer a demo caller
// can reach for; an embedding firmware bridges to its own event/timer
// protocol instead.
type SoftwareTimer struct {
	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	cbMu   sync.Mutex // held while any callback created through sf runs
}

// NewSoftwareTimer constructs a ready-to-use SoftwareTimer.
func NewSoftwareTimer() *SoftwareTimer {
	return &SoftwareTimer{stop: make(chan struct{})}
}

// CreatePeriodic implements Timer.
func (sf *SoftwareTimer) CreatePeriodic(period uint64, cb TimerCallback) (Status, func()) {
	sf.mu.Lock()
	if sf.closed {
		sf.mu.Unlock()
		return AlreadyStarted, func() {}
	}
	sf.mu.Unlock()

	ticker := time.NewTicker(time.Duration(period) * hundredNanos)
	cancelCh := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sf.cbMu.Lock()
				cb()
				sf.cbMu.Unlock()
			case <-cancelCh:
				return
			case <-sf.stop:
				return
			}
		}
	}()
	var once sync.Once
	cancel := func() { once.Do(func() { close(cancelCh) }) }
	return OK, cancel
}

// softwareOneShot is the OneShot handle CreateOneShot returns.
type softwareOneShot struct {
	mu     sync.Mutex
	timer  *time.Timer
	parent *SoftwareTimer
	cb     TimerCallback
}

// CreateOneShot implements Timer. The returned OneShot is unarmed until
// Arm is called.
func (sf *SoftwareTimer) CreateOneShot(cb TimerCallback) (Status, OneShot) {
	sf.mu.Lock()
	if sf.closed {
		sf.mu.Unlock()
		return AlreadyStarted, nil
	}
	sf.mu.Unlock()
	return OK, &softwareOneShot{parent: sf, cb: cb}
}

// Arm implements OneShot: (re-)arms the one-shot to fire relative
// hundred-nanosecond ticks from now, replacing any pending fire.
func (sf *softwareOneShot) Arm(relative uint64) {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.timer != nil {
		sf.timer.Stop()
	}
	parent, cb := sf.parent, sf.cb
	sf.timer = time.AfterFunc(time.Duration(relative)*hundredNanos, func() {
		parent.cbMu.Lock()
		defer parent.cbMu.Unlock()
		cb()
	})
}

// Cancel implements OneShot.
func (sf *softwareOneShot) Cancel() {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.timer != nil {
		sf.timer.Stop()
	}
}

// Close implements Timer, stopping every periodic timer created through
// sf. One-shots created through sf are unaffected beyond their own
// Cancel - they do not share sf.stop.
func (sf *SoftwareTimer) Close() Status {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	if sf.closed {
		return OK
	}
	sf.closed = true
	close(sf.stop)
	return OK
}
