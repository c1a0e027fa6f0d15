// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"errors"

	"github.com/go-lpc/amp/regmap"
)

var (
	ErrInvalidArgument = errors.New("cs35l35: invalid argument")
	ErrTimedOut        = errors.New("cs35l35: timed out")
	ErrDeviceNotFound  = errors.New("cs35l35: device not found")

	// ErrIO is matched by register bus failures.
	ErrIO = regmap.ErrIO
)
