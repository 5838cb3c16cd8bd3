// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/bits"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/motesim/motesim/logger"
	"github.com/motesim/motesim/progctx"
	"github.com/motesim/motesim/simulation"
	. "github.com/motesim/motesim/types"
)

const (
	Prompt = "> "
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

func (cc *CommandContext) outputYaml(v interface{}) {
	data, err := yaml.Marshal(v)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
}

// RunCommand parses and executes one command line, writing its output to output. It returns an
// error once the program context is done.
func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := ParseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

// GetPrompt shows the horizon of the medium while the simulation runs.
func (rt *CmdRunner) GetPrompt() string {
	if rt.ctx.Err() != nil {
		return Prompt
	}
	return fmt.Sprintf("%d%s", rt.sim.Horizon(), Prompt)
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Context: rt.ctx,
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Move != nil {
		rt.executeMoveNode(cc, cmd.Move)
	} else if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Nodes != nil {
		rt.executeLsNodes(cc, cmd.Nodes)
	} else if cmd.Add != nil {
		rt.executeAddNode(cc, cmd.Add)
	} else if cmd.Del != nil {
		rt.executeDelNode(cc, cmd.Del)
	} else if cmd.Send != nil {
		rt.executeSend(cc, cmd.Send)
	} else if cmd.Rx != nil {
		rt.executeRx(cc, cmd.Rx)
	} else if cmd.Stats != nil {
		rt.executeStats(cc, cmd.Stats)
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.Model != nil {
		rt.executeModel(cc, cmd.Model)
	} else if cmd.Save != nil {
		rt.executeSave(cc, cmd.Save)
	} else if cmd.Exit != nil {
		rt.executeExit(cc, cmd.Exit)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Time != nil {
		rt.executeTime(cc, cmd.Time)
	} else if cmd.Trace != nil {
		rt.executeTrace(cc, cmd.Trace)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// parseGoTicks converts the 'go' argument to bit ticks. A plain integer is a number of ticks,
// anything else must be a duration with unit.
func (rt *CmdRunner) parseGoTicks(timeStr string) (uint64, error) {
	if ticks, err := strconv.ParseUint(timeStr, 10, 64); err == nil {
		return ticks, nil
	}
	dur, err := time.ParseDuration(timeStr)
	if err != nil {
		return 0, errors.Errorf("could not parse time duration: %s", timeStr)
	}
	bitRate := rt.sim.Medium().Config().BitRate
	hi, lo := bits.Mul64(uint64(dur.Microseconds()), bitRate)
	if hi != 0 {
		return 0, errors.Errorf("time duration too long: %s", timeStr)
	}
	return lo / 1000000, nil
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	ticks, err := rt.parseGoTicks(cmd.Time)
	if err != nil {
		cc.error(err)
		return
	}
	horizon := rt.sim.Horizon()
	if ticks >= Ever-horizon {
		cc.errorf("cannot go %d ticks beyond tick %d", ticks, horizon)
		return
	}
	cc.error(rt.sim.Run(horizon + ticks))
}

func (rt *CmdRunner) executeAddNode(cc *CommandContext, cmd *AddCmd) {
	ym := simulation.YamlMote{Id: cmd.Node.Id}
	if cmd.X != nil || cmd.Y != nil || cmd.Z != nil {
		ym.Pos = &[3]float64{}
		for i, c := range []*Coord{cmd.X, cmd.Y, cmd.Z} {
			if c != nil {
				ym.Pos[i] = c.Value()
			}
		}
	}
	if cmd.Channel != nil {
		ym.Channel = *cmd.Channel
	}
	if cmd.Hz != nil {
		if *cmd.Hz <= 0 {
			cc.errorf("invalid clock frequency: %d", *cmd.Hz)
			return
		}
		ym.Hz = uint64(*cmd.Hz)
	}

	m, err := rt.sim.AddMote(ym)
	if err != nil {
		cc.error(err)
		return
	}
	cc.outputf("%d\n", m.Id)
}

func (rt *CmdRunner) executeDelNode(cc *CommandContext, cmd *DelCmd) {
	for _, id := range nodeIds(getUniqueAndSorted(cmd.Nodes)) {
		if rt.sim.Mote(id) == nil {
			cc.outputf("Warn: node %d not found, skipping\n", id)
			continue
		}
		if err := rt.sim.DeleteMote(id); err != nil {
			cc.errorf("node %d, %+v", id, err)
		}
	}
}

func (rt *CmdRunner) executeExit(cc *CommandContext, cmd *ExitCmd) {
	rt.sim.Stop()
}

func (rt *CmdRunner) executeMoveNode(cc *CommandContext, cmd *MoveCmd) {
	pos := NewPosition(cmd.X.Value(), cmd.Y.Value(), 0)
	if cmd.Z != nil {
		pos.Z = cmd.Z.Value()
	} else if cur, ok := rt.sim.Topology().Get(TransmitterOf(cmd.Target.Id)); ok {
		pos.Z = cur.Z
	}
	cc.error(rt.sim.MoveMote(cmd.Target.Id, pos))
}

func (rt *CmdRunner) executeSend(cc *CommandContext, cmd *SendCmd) {
	ys := simulation.YamlSend{Data: cmd.Data}
	if cmd.Hex != nil {
		ys = simulation.YamlSend{Hex: cmd.Data}
	}
	data, err := simulation.DecodeSendData(ys)
	if err != nil {
		cc.error(err)
		return
	}
	if len(data) == 0 {
		cc.errorf("nothing to send")
		return
	}
	cc.error(rt.sim.Send(cmd.Node.Id, data))
}

func (rt *CmdRunner) executeLsNodes(cc *CommandContext, cmd *NodesCmd) {
	var nodes []nodeInfo
	for _, id := range rt.sim.Nodes() {
		m := rt.sim.Mote(id)
		if m == nil {
			continue // deleted meanwhile
		}
		info := nodeInfo{
			Id:      id,
			Channel: m.Transmitter().Channel,
			Hz:      m.Clock.Hz,
			Tick:    m.Tick(),
			State:   m.RadioState().String(),
			Rx:      len(m.Received()),
		}
		if pos, ok := rt.sim.Topology().Get(TransmitterOf(id)); ok {
			info.Pos = &[3]float64{pos.X, pos.Y, pos.Z}
		}
		nodes = append(nodes, info)
	}
	if len(nodes) > 0 {
		cc.outputItemsAsYaml(nodes)
	}
}

type rxInfo struct {
	Id   NodeId `yaml:"id"`
	Len  int    `yaml:"len"`
	Hex  string `yaml:"hex"`
	Text string `yaml:"text"`
}

func (rt *CmdRunner) executeRx(cc *CommandContext, cmd *RxCmd) {
	data, err := rt.sim.Received(cmd.Node.Id)
	if err != nil {
		cc.error(err)
		return
	}
	cc.outputYaml(rxInfo{
		Id:   cmd.Node.Id,
		Len:  len(data),
		Hex:  hex.EncodeToString(data),
		Text: printable(data),
	})
}

func (rt *CmdRunner) executeStats(cc *CommandContext, cmd *StatsCmd) {
	cc.outputYaml(rt.sim.Stats())
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	if cmd.Save != nil {
		if len(cmd.Path) == 0 {
			cc.errorf("missing KPI file name")
			return
		}
		cc.error(rt.sim.SaveKpi(cmd.Path))
		return
	}
	data := rt.sim.KpiData()
	if data == nil {
		cc.errorf("KPI collection is not enabled")
		return
	}
	js, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		cc.error(err)
		return
	}
	cc.outputf("%s\n", js)
}

func (rt *CmdRunner) executeModel(cc *CommandContext, cmd *ModelCmd) {
	cc.outputf("%v\n", rt.sim.Arbitrator())
}

func (rt *CmdRunner) executeSave(cc *CommandContext, cmd *SaveCmd) {
	cc.error(rt.sim.SaveScenario(cmd.Path))
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevel())
		return
	}
	lv, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(lv)
}

func (rt *CmdRunner) executeTime(cc *CommandContext, cmd *TimeCmd) {
	horizon := rt.sim.Horizon()
	cc.outputf("%d\n", horizon)
}

func (rt *CmdRunner) executeTrace(cc *CommandContext, cmd *TraceCmd) {
	cc.error(rt.sim.RotateTrace())
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}
