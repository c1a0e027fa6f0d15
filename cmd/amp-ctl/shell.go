// Copyright 2022 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/go-lpc/amp/cs35l35"
	"github.com/peterh/liner"
)

type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

type shell struct {
	dev   *cs35l35.Device
	out   io.Writer
	db    faultLogger
	board string
}

type command struct {
	usage string
	help  string
	run   func(sh *shell, args []string) error
}

var cmds map[string]command

func init() {
	cmds = map[string]command{
		"up":        {"up pcm|pdm", "power the amplifier up", (*shell).cmdUp},
		"down":      {"down", "power the amplifier down", (*shell).cmdDown},
		"event":     {"event <node> <phase>", "run one lifecycle phase of a node", (*shell).cmdEvent},
		"fmt":       {"fmt i2s|dsp-a|pdm [master]", "set the serial port format", (*shell).cmdFmt},
		"sysclk":    {"sysclk mclk|sclk|pdm <freq>", "set the system clock", (*shell).cmdSysClk},
		"sclk":      {"sclk <freq>", "set the serial bit clock", (*shell).cmdSClk},
		"hw-params": {"hw-params <rate> <width> [pdm|capture]", "negotiate the stream parameters", (*shell).cmdHWParams},
		"irq":       {"irq", "service the interrupt line once", (*shell).cmdIRQ},
		"regs":      {"regs", "dump the register cache", (*shell).cmdRegs},
		"state":     {"state", "display the clock, node and fault states", (*shell).cmdState},
		"faults":    {"faults [n]", "display the last fault events logged for the board", (*shell).cmdFaults},
		"help":      {"help", "display this help", (*shell).cmdHelp},
		"quit":      {"quit", "leave the shell", func(*shell, []string) error { return errQuit }},
	}
}

func complete(line string) []string {
	var out []string
	for name := range cmds {
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// loop runs commands read from term until quit, end of input or ctx is done.
func (sh *shell) loop(ctx context.Context, term prompter) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := term.Prompt("amp> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return fmt.Errorf("could not read command: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		term.AppendHistory(line)

		err = sh.exec(line)
		switch {
		case errors.Is(err, errQuit):
			return nil
		case err != nil:
			fmt.Fprintf(sh.out, "error: %+v\n", err)
		}
	}
}

func (sh *shell) exec(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	cmd, ok := cmds[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(sh, args[1:])
}

func (sh *shell) cmdUp(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", cmds["up"].usage)
	}
	var pdm bool
	switch args[0] {
	case "pcm":
	case "pdm":
		pdm = true
	default:
		return fmt.Errorf("invalid stream mode %q", args[0])
	}
	return sh.dev.PowerUp(pdm)
}

func (sh *shell) cmdDown(args []string) error {
	return sh.dev.PowerDown()
}

func parseNode(s string) (cs35l35.Node, error) {
	for n := cs35l35.MclkPath; n <= cs35l35.OutputStage; n++ {
		if n.String() == s {
			return n, nil
		}
	}
	return -1, fmt.Errorf("invalid node %q", s)
}

func parsePhase(s string) (cs35l35.Phase, error) {
	for p := cs35l35.PreEnable; p <= cs35l35.PostDisable; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return -1, fmt.Errorf("invalid phase %q", s)
}

func (sh *shell) cmdEvent(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", cmds["event"].usage)
	}
	n, err := parseNode(args[0])
	if err != nil {
		return err
	}
	p, err := parsePhase(args[1])
	if err != nil {
		return err
	}
	return sh.dev.Event(n, p)
}

func (sh *shell) cmdFmt(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: %s", cmds["fmt"].usage)
	}
	var f cs35l35.Format
	switch args[0] {
	case "i2s":
		f.Protocol = cs35l35.ProtoI2S
	case "dsp-a":
		f.Protocol = cs35l35.ProtoDSPA
	case "pdm":
		f.Protocol = cs35l35.ProtoPDM
	default:
		return fmt.Errorf("invalid format %q", args[0])
	}
	if len(args) == 2 {
		if args[1] != "master" {
			return fmt.Errorf("invalid clocking %q", args[1])
		}
		f.Master = true
	}

	if f.Protocol == cs35l35.ProtoPDM {
		return sh.dev.SetPDMFormat(f)
	}
	return sh.dev.SetFormat(f)
}

func parseFreq(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid frequency %q: %w", s, err)
	}
	return uint32(v), nil
}

func (sh *shell) cmdSysClk(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: %s", cmds["sysclk"].usage)
	}
	var src cs35l35.ClockSource
	switch args[0] {
	case "mclk":
		src = cs35l35.SourceMCLK
	case "sclk":
		src = cs35l35.SourceSCLK
	case "pdm":
		src = cs35l35.SourcePDM
	default:
		return fmt.Errorf("invalid clock source %q", args[0])
	}
	freq, err := parseFreq(args[1])
	if err != nil {
		return err
	}
	return sh.dev.SetSysClock(src, freq)
}

func (sh *shell) cmdSClk(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", cmds["sclk"].usage)
	}
	freq, err := parseFreq(args[0])
	if err != nil {
		return err
	}
	sh.dev.SetSerialClock(freq)
	return nil
}

func (sh *shell) cmdHWParams(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: %s", cmds["hw-params"].usage)
	}
	rate, err := parseFreq(args[0])
	if err != nil {
		return err
	}
	width, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid sample width %q: %w", args[1], err)
	}
	p := cs35l35.Params{Rate: rate, Width: width}
	if len(args) == 3 {
		switch args[2] {
		case "pdm":
			p.PDM = true
		case "capture":
			p.Capture = true
		default:
			return fmt.Errorf("invalid stream mode %q", args[2])
		}
	}
	return sh.dev.HWParams(p)
}

func (sh *shell) cmdIRQ(args []string) error {
	ok, err := sh.dev.Monitor().Handle()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(sh.out, "no pending interrupt\n")
	}
	return nil
}

func (sh *shell) cmdRegs(args []string) error {
	for _, r := range sh.dev.Registers().Cached() {
		fmt.Fprintf(sh.out, "0x%02x: 0x%02x\n", r.Reg, r.Val)
	}
	return nil
}

func (sh *shell) cmdState(args []string) error {
	mode := "pcm"
	if sh.dev.Mode() {
		mode = "pdm"
	}
	fmt.Fprintf(sh.out, "device: 0x%x rev=0x%02x\n", sh.dev.ID(), sh.dev.Revision())
	fmt.Fprintf(sh.out, "clock:  %v (%s)\n", sh.dev.ClockState(), mode)
	for n := cs35l35.MclkPath; n <= cs35l35.OutputStage; n++ {
		fmt.Fprintf(sh.out, "node %-5s %v\n", n.String()+":", sh.dev.NodeState(n))
	}
	mon := sh.dev.Monitor()
	for f := cs35l35.FaultCalibration; f <= cs35l35.FaultIMONOverflow; f++ {
		if s := mon.State(f); s != cs35l35.FaultClear {
			fmt.Fprintf(sh.out, "fault %v: %v\n", f, s)
		}
	}
	return nil
}

func (sh *shell) cmdFaults(args []string) error {
	if sh.db == nil {
		return fmt.Errorf("no board database")
	}
	n := 10
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid number of faults %q", args[0])
		}
		n = v
	}
	recs, err := sh.db.Faults(context.Background(), sh.board, n)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		flags := ""
		switch {
		case rec.Critical:
			flags = " [critical]"
		case rec.Released:
			flags = " [released]"
		}
		fmt.Fprintf(sh.out, "%s %s%s\n", rec.Time.Format("2006-01-02 15:04:05"), rec.Fault, flags)
	}
	return nil
}

func (sh *shell) cmdHelp(args []string) error {
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sh.out, "%-32s %s\n", cmds[name].usage, cmds[name].help)
	}
	return nil
}
