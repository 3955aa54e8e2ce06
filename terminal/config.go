// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package terminal

import (
	"errors"
	"time"
)

// Valid ranges for the tunable timings. The FIFO capacities are not
// configurable in production (fifo.RawCap/UnicodeCap/KeyCap are fixed),
// only the poll period and escape timeout flex, and only within a
// narrow band around the documented defaults - wide enough for tests
// that want a faster escape timeout, never so wide it changes observable
// behavior for a production caller that leaves the field zero.
const (
	PollPeriodMin = 1 * time.Millisecond
	PollPeriodMax = 1 * time.Second

	EscapeTimeoutMin = 10 * time.Millisecond
	EscapeTimeoutMax = 60 * time.Second
)

// Config configures a terminal Instance. The zero value is invalid until
// Valid fills in defaults.
type Config struct {
	// Type selects the codec, outbound glyph table and FSM table.
	Type Type

	// PollPeriod is the tick period of the poll driver.
	// default 20ms.
	PollPeriod time.Duration

	// EscapeTimeout is the one-shot armed whenever the FSM leaves
	// DEFAULT.
	// default 2s.
	EscapeTimeout time.Duration
}

// DefaultConfig returns the documented default configuration for t.
func DefaultConfig(t Type) Config {
	return Config{
		Type:          t,
		PollPeriod:    20 * time.Millisecond,
		EscapeTimeout: 2 * time.Second,
	}
}

// Valid applies the default for each unspecified field and rejects
// out-of-range values.
func (sf *Config) Valid() error {
	if sf == nil {
		return errors.New("terminal: invalid pointer")
	}
	if sf.PollPeriod == 0 {
		sf.PollPeriod = 20 * time.Millisecond
	} else if sf.PollPeriod < PollPeriodMin || sf.PollPeriod > PollPeriodMax {
		return errors.New("terminal: PollPeriod out of range")
	}
	if sf.EscapeTimeout == 0 {
		sf.EscapeTimeout = 2 * time.Second
	} else if sf.EscapeTimeout < EscapeTimeoutMin || sf.EscapeTimeout > EscapeTimeoutMax {
		return errors.New("terminal: EscapeTimeout out of range")
	}
	return nil
}
