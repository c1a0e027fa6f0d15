// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import "time"

// completion is a single-shot, resettable signal.
// A successful wait consumes the signal.
type completion struct {
	c chan struct{}
}

func newCompletion() *completion {
	return &completion{c: make(chan struct{}, 1)}
}

// complete raises the signal. Raising an already raised signal is a no-op.
func (c *completion) complete() {
	select {
	case c.c <- struct{}{}:
	default:
	}
}

// reset drops any pending signal.
func (c *completion) reset() {
	select {
	case <-c.c:
	default:
	}
}

// wait blocks until the signal is raised or the timeout expires.
func (c *completion) wait(timeout time.Duration) bool {
	tmr := time.NewTimer(timeout)
	defer tmr.Stop()

	select {
	case <-c.c:
		return true
	case <-tmr.C:
		return false
	}
}
