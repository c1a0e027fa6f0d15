// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amp

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	for _, tc := range []struct {
		name string
		mod  debug.Module
		ver  string
		sum  string
	}{
		{
			name: "plain",
			mod:  debug.Module{Path: "github.com/go-lpc/amp", Version: "v0.3.0", Sum: "h1:xxx"},
			ver:  "v0.3.0",
			sum:  "h1:xxx",
		},
		{
			name: "replace-version",
			mod: debug.Module{
				Path: "github.com/go-lpc/amp", Version: "v0.3.0",
				Replace: &debug.Module{Version: "v0.3.1", Sum: "h1:yyy"},
			},
			ver: "v0.3.1",
			sum: "h1:yyy",
		},
		{
			name: "replace-path",
			mod: debug.Module{
				Path: "github.com/go-lpc/amp", Version: "v0.3.0",
				Replace: &debug.Module{Path: "../amp"},
			},
			ver: "../amp",
		},
		{
			name: "replace-path-version",
			mod: debug.Module{
				Path: "github.com/go-lpc/amp", Version: "v0.3.0",
				Replace: &debug.Module{Path: "example.org/amp", Version: "v0.4.0"},
			},
			ver: "example.org/amp v0.4.0",
		},
		{
			name: "other",
			mod:  debug.Module{Path: "github.com/go-daq/tdaq", Version: "v0.14.2"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ver, sum := versionOf(&debug.BuildInfo{Deps: []*debug.Module{&tc.mod}})
			if ver != tc.ver || sum != tc.sum {
				t.Fatalf("invalid version: got=(%q, %q), want=(%q, %q)", ver, sum, tc.ver, tc.sum)
			}
		})
	}

	if ver, sum := versionOf(nil); ver != "" || sum != "" {
		t.Fatalf("invalid version for nil build info: (%q, %q)", ver, sum)
	}
}
