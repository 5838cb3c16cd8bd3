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
	"strconv"

	"github.com/alecthomas/participle"

	. "github.com/motesim/motesim/types"
)

// noinspection GoStructTag
type Command struct {
	Add      *AddCmd      `  @@` //nolint
	Del      *DelCmd      `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Kpi      *KpiCmd      `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Model    *ModelCmd    `| @@` //nolint
	Move     *MoveCmd     `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Rx       *RxCmd       `| @@` //nolint
	Save     *SaveCmd     `| @@` //nolint
	Send     *SendCmd     `| @@` //nolint
	Stats    *StatsCmd    `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Trace    *TraceCmd    `| @@` //nolint
}

// noinspection GoStructTag
type NodeSelector struct {
	Id int `@Int` //nolint
}

func (ns *NodeSelector) String() string {
	return strconv.Itoa(ns.Id)
}

// Coord is a position coordinate. The lexer emits the sign as a separate token.
// noinspection GoStructTag
type Coord struct {
	Neg bool    `[ @"-" ]`      //nolint
	Val float64 `(@Int|@Float)` //nolint
}

func (c *Coord) Value() float64 {
	if c.Neg {
		return -c.Val
	}
	return c.Val
}

// noinspection GoStructTag
type AddCmd struct {
	Cmd     struct{}     `"add"`          //nolint
	Node    NodeSelector `@@`             //nolint
	X       *Coord       `( "x" @@`       //nolint
	Y       *Coord       `| "y" @@`       //nolint
	Z       *Coord       `| "z" @@`       //nolint
	Channel *int         `| "ch" @Int`    //nolint
	Hz      *int         `| "hz" @Int )*` //nolint
}

// noinspection GoStructTag
type DelCmd struct {
	Cmd   struct{}       `"del"`   //nolint
	Nodes []NodeSelector `( @@ )+` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type GoCmd struct {
	Cmd  struct{} `"go"`                                  //nolint
	Time string   `@((Int|Float)["h"|"us"|"m"|"ms"|"s"])` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd  struct{}  `"kpi"`       //nolint
	Save *SaveFlag `[ @@ ]`      //nolint
	Path string    `[ @String ]` //nolint
}

// noinspection GoStructTag
type SaveFlag struct {
	Dummy struct{} `"save"` //nolint
}

type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                   //nolint
	Level string   `[@( "trace"|"debug"|"info"|"note"|"warn"|"error"|"crit"|"off"|"none" )]` //nolint
}

// noinspection GoStructTag
type ModelCmd struct {
	Cmd struct{} `( "model" | "radiomodel" )` //nolint
}

// noinspection GoStructTag
type MoveCmd struct {
	Cmd    struct{}     `"move"` //nolint
	Target NodeSelector `@@`     //nolint
	X      Coord        `@@`     //nolint
	Y      Coord        `@@`     //nolint
	Z      *Coord       `[ @@ ]` //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type RxCmd struct {
	Cmd  struct{}     `"rx"` //nolint
	Node NodeSelector `@@`   //nolint
}

// noinspection GoStructTag
type SaveCmd struct {
	Cmd  struct{} `"save"`  //nolint
	Path string   `@String` //nolint
}

// noinspection GoStructTag
type SendCmd struct {
	Cmd  struct{}     `"send"`  //nolint
	Node NodeSelector `@@`      //nolint
	Hex  *HexFlag     `[ @@ ]`  //nolint
	Data string       `@String` //nolint
}

// noinspection GoStructTag
type HexFlag struct {
	Dummy struct{} `"hex"` //nolint
}

// noinspection GoStructTag
type StatsCmd struct {
	Cmd struct{} `"stats"` //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

// ParseBytes parses a single command line.
func ParseBytes(b []byte, cmd *Command) error {
	return commandParser.ParseBytes(b, cmd)
}

// nodeIds converts the selectors to node ids.
func nodeIds(sels []NodeSelector) []NodeId {
	ids := make([]NodeId, 0, len(sels))
	for _, sel := range sels {
		ids = append(ids, sel.Id)
	}
	return ids
}

// noinspection GoStructTag
type TraceCmd struct {
	Cmd    struct{} `"trace"`  //nolint
	Rotate struct{} `"rotate"` //nolint
}
