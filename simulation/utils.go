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

package simulation

import (
	"encoding/hex"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/motesim/motesim/mote"
	"github.com/motesim/motesim/trace"
	. "github.com/motesim/motesim/types"
)

func removeAllFiles(globPath string) error {
	files, err := filepath.Glob(globPath)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}

// DecodeSendData gets the bytes of a scheduled send: Hex when given, else the text of Data.
func DecodeSendData(s YamlSend) ([]byte, error) {
	if s.Hex == "" {
		return []byte(s.Data), nil
	}
	if s.Data != "" {
		return nil, errors.Errorf("send at %d: both data and hex given", s.At)
	}
	data, err := hex.DecodeString(strings.ReplaceAll(s.Hex, " ", ""))
	if err != nil {
		return nil, errors.Wrapf(err, "send at %d", s.At)
	}
	return data, nil
}

// DecodePrint converts a scheduled print to the debug port write of a mote.
func DecodePrint(p YamlPrint) (mote.Print, error) {
	command, ok := trace.ParsePrintCommand(p.Kind)
	if !ok {
		return mote.Print{}, errors.Errorf("print at %d: unknown kind %q", p.At, p.Kind)
	}
	res := mote.Print{At: p.At, Command: command, Text: p.Text}
	switch command {
	case trace.PrintHex16, trace.PrintInt16:
		if p.Value < math.MinInt16 || p.Value > math.MaxUint16 {
			return res, errors.Errorf("print at %d: value %d out of 16-bit range", p.At, p.Value)
		}
		res.Value = uint32(uint16(p.Value))
	case trace.PrintHex32, trace.PrintInt32:
		if p.Value < math.MinInt32 || p.Value > math.MaxUint32 {
			return res, errors.Errorf("print at %d: value %d out of 32-bit range", p.At, p.Value)
		}
		res.Value = uint32(p.Value)
	case trace.PrintHexDump:
		data, err := hex.DecodeString(strings.ReplaceAll(p.Hex, " ", ""))
		if err != nil {
			return res, errors.Wrapf(err, "print at %d", p.At)
		}
		res.Data = data
	}
	return res, nil
}

func toPosition(p [3]float64) Position {
	return NewPosition(p[0], p[1], p[2])
}

func fromPosition(p Position) *[3]float64 {
	return &[3]float64{p.X, p.Y, p.Z}
}
