// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package amp holds code to drive CS35L35 boosted class-D amplifiers.
//
// The driver itself lives in package cs35l35, on top of the cached
// register map of package regmap. The I2C bus and GPIO lines of a board
// are wired by internal/board. Board configurations and fault history
// are stored in the conddb database.
//
// Two commands are provided:
//   - amp-srv, a TDAQ server powering the amplifier up and down with the
//     run control,
//   - amp-ctl, an interactive shell to configure and inspect an amplifier.
package amp // import "github.com/go-lpc/amp"

import (
	"fmt"
	"runtime/debug"
)

// Version returns the version of amp and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	const root = "github.com/go-lpc/amp"
	for _, m := range b.Deps {
		if m.Path != root {
			continue
		}
		if m.Replace != nil {
			switch {
			case m.Replace.Version != "" && m.Replace.Path != "":
				return fmt.Sprintf("%s %s", m.Replace.Path, m.Replace.Version), m.Replace.Sum
			case m.Replace.Version != "":
				return m.Replace.Version, m.Replace.Sum
			case m.Replace.Path != "":
				return m.Replace.Path, m.Replace.Sum
			default:
				return m.Version + "*", ""
			}
		}
		return m.Version, m.Sum
	}
	return "", ""
}
