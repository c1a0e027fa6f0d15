// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cs35l35

import (
	"errors"
	"fmt"
)

// Node is a power/clock node gated by the four-phase lifecycle.
type Node int

const (
	MclkPath Node = iota
	PdmPath
	OutputStage

	nNodes = 3
)

func (n Node) valid() bool { return 0 <= n && n < nNodes }

func (n Node) String() string {
	switch n {
	case MclkPath:
		return "mclk"
	case PdmPath:
		return "pdm"
	case OutputStage:
		return "amp"
	}
	return fmt.Sprintf("Node(%d)", int(n))
}

// Phase is a lifecycle phase.
type Phase int

const (
	PreEnable Phase = iota
	PostEnable
	PreDisable
	PostDisable
)

func (p Phase) valid() bool { return PreEnable <= p && p <= PostDisable }

func (p Phase) String() string {
	switch p {
	case PreEnable:
		return "pre-enable"
	case PostEnable:
		return "post-enable"
	case PreDisable:
		return "pre-disable"
	case PostDisable:
		return "post-disable"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// NodeState is the lifecycle state of a node.
type NodeState int

const (
	NodeOff NodeState = iota
	NodePoweringUp
	NodeOn
	NodePoweringDown
)

func (s NodeState) String() string {
	switch s {
	case NodeOff:
		return "off"
	case NodePoweringUp:
		return "powering-up"
	case NodeOn:
		return "on"
	case NodePoweringDown:
		return "powering-down"
	}
	return fmt.Sprintf("NodeState(%d)", int(s))
}

func (p Phase) next() NodeState {
	switch p {
	case PreEnable:
		return NodePoweringUp
	case PostEnable:
		return NodeOn
	case PreDisable:
		return NodePoweringDown
	default:
		return NodeOff
	}
}

type node interface {
	event(p Phase) error
}

var (
	_ node = (*mclkPath)(nil)
	_ node = (*pdmPath)(nil)
	_ node = (*outputStage)(nil)
)

func (dev *Device) node(n Node) node {
	switch n {
	case MclkPath:
		return &dev.mclk
	case PdmPath:
		return &dev.pdm
	case OutputStage:
		return &dev.amp
	}
	return nil
}

// Event runs the lifecycle phase p of node n.
func (dev *Device) Event(n Node, p Phase) error {
	if !n.valid() {
		return fmt.Errorf("%w: unknown node %v", ErrInvalidArgument, n)
	}
	if !p.valid() {
		return fmt.Errorf("%w: unknown phase %v for node %v", ErrInvalidArgument, p, n)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	return dev.event(n, p)
}

func (dev *Device) event(n Node, p Phase) error {
	err := dev.node(n).event(p)
	if err != nil {
		return fmt.Errorf("cs35l35: %v %v: %w", n, p, err)
	}
	dev.st.nodes[n] = p.next()
	return nil
}

// PowerUp brings the audio path up: the clock supply (PDM or MCLK) then
// the output stage.
func (dev *Device) PowerUp(pdm bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.st.up >= 0 {
		return fmt.Errorf("%w: audio path already up via %v", ErrInvalidArgument, dev.st.up)
	}

	clk := MclkPath
	if pdm {
		clk = PdmPath
	}

	// a failed power-up leaves the path recorded, so that PowerDown
	// tears down the phases that did run.
	dev.st.up = clk

	for _, ev := range []struct {
		n Node
		p Phase
	}{
		{clk, PreEnable},
		{OutputStage, PreEnable},
		{clk, PostEnable},
		{OutputStage, PostEnable},
	} {
		err := dev.event(ev.n, ev.p)
		if err != nil {
			return err
		}
	}

	return nil
}

// PowerDown brings the audio path down: the output stage then the clock
// supply used by PowerUp.
// Every phase is attempted; failures are returned together.
func (dev *Device) PowerDown() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	clk := dev.st.up
	if clk < 0 {
		return nil
	}
	dev.st.up = -1

	var errs []error
	for _, ev := range []struct {
		n Node
		p Phase
	}{
		{OutputStage, PreDisable},
		{clk, PreDisable},
		{OutputStage, PostDisable},
		{clk, PostDisable},
	} {
		err := dev.event(ev.n, ev.p)
		if err != nil {
			dev.msg.Printf("could not power down: %+v", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
