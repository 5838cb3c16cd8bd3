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

package topology

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/motesim/motesim/logger"
	. "github.com/motesim/motesim/types"
)

// YamlPosition is one entry of a topology file. A radio's endpoints are co-located unless
// rx-pos is given.
type YamlPosition struct {
	Node  NodeId      `yaml:"node"`
	Pos   [3]float64  `yaml:"pos,flow"`
	RxPos *[3]float64 `yaml:"rx-pos,flow,omitempty"`
}

type YamlTopologyFile struct {
	Positions []YamlPosition `yaml:"positions"`
}

// LoadBytes adds all positions in the YAML document data to the topology.
func (t *Topology) LoadBytes(data []byte) error {
	var f YamlTopologyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return errors.Wrap(err, "parsing topology")
	}

	seen := make(map[NodeId]struct{}, len(f.Positions))
	for _, p := range f.Positions {
		if p.Node <= InvalidNodeId || p.Node > MaxNodeId {
			return errors.Errorf("invalid node id in topology: %d", p.Node)
		}
		if _, ok := seen[p.Node]; ok {
			return errors.Errorf("duplicate node in topology: %d", p.Node)
		}
		seen[p.Node] = struct{}{}
	}

	for _, p := range f.Positions {
		t.SetRadioPosition(p.Node, NewPosition(p.Pos[0], p.Pos[1], p.Pos[2]))
		if p.RxPos != nil {
			t.Set(ReceiverOf(p.Node), NewPosition(p.RxPos[0], p.RxPos[1], p.RxPos[2]))
		}
	}
	logger.Debugf("topology: loaded %d radio positions", len(f.Positions))
	return nil
}

// Load adds all positions from the YAML topology file at path.
func (t *Topology) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading topology file %s", path)
	}
	return t.LoadBytes(data)
}

// Export gets the topology in its YAML file representation.
func (t *Topology) Export() YamlTopologyFile {
	var f YamlTopologyFile
	for _, node := range t.Nodes() {
		txPos, txOk := t.Get(TransmitterOf(node))
		rxPos, rxOk := t.Get(ReceiverOf(node))
		if !txOk {
			txPos = rxPos
		}
		entry := YamlPosition{Node: node, Pos: [3]float64{txPos.X, txPos.Y, txPos.Z}}
		if txOk && rxOk && rxPos != txPos {
			entry.RxPos = &[3]float64{rxPos.X, rxPos.Y, rxPos.Z}
		}
		f.Positions = append(f.Positions, entry)
	}
	return f
}

// Save writes the topology to a YAML file at path.
func (t *Topology) Save(path string) error {
	data, err := yaml.Marshal(t.Export())
	if err != nil {
		return errors.Wrap(err, "encoding topology")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "writing topology file %s", path)
}
