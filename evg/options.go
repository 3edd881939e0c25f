// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package evg

import "time"

type config struct {
	timeout time.Duration // per-attempt reply timeout
	retries int           // transmissions before giving up
	reset   bool          // run the card reset sequence during Init
	nreset  int           // sequence RAM entries cleared by the reset
}

func newConfig() config {
	return config{
		timeout: DefaultTimeout,
		retries: DefaultRetries,
		nreset:  100,
	}
}

// Option configures a Registry and the devices it creates.
type Option func(*config)

// WithTimeout sets the per-attempt reply timeout of register exchanges.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = timeout
	}
}

// WithRetries sets how many times a register exchange is transmitted
// before it fails with ErrTimeout.
func WithRetries(n int) Option {
	return func(cfg *config) {
		cfg.retries = n
	}
}

// WithReset makes Init put every device into a known state: master
// disable, sequencers disabled with prescaler 1, AC trigger sync off
// with prescaler 50, RF prescaler 4, and the first sequence RAM
// entries cleared to the end-of-sequence code with zero timestamps.
func WithReset(reset bool) Option {
	return func(cfg *config) {
		cfg.reset = reset
	}
}
