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

package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelString(t *testing.T) {
	lv, err := ParseLevelString("debug")
	assert.Nil(t, err)
	assert.Equal(t, DebugLevel, lv)

	lv, err = ParseLevelString("W")
	assert.Nil(t, err)
	assert.Equal(t, WarnLevel, lv)

	lv, err = ParseLevelString("none")
	assert.Nil(t, err)
	assert.Equal(t, OffLevel, lv)

	_, err = ParseLevelString("loud")
	assert.NotNil(t, err)

	for _, lv := range []Level{TraceLevel, DebugLevel, InfoLevel, NoteLevel, WarnLevel, ErrorLevel, OffLevel} {
		parsed, err := ParseLevelString(lv.String())
		assert.Nil(t, err)
		assert.Equal(t, lv, parsed)
	}
}

func TestParseTaggedLine(t *testing.T) {
	ok, lv, rest := ParseTaggedLine("[WARN] queue full")
	assert.True(t, ok)
	assert.Equal(t, WarnLevel, lv)
	assert.Equal(t, "queue full", rest)

	ok, lv, _ = ParseTaggedLine("  [DEBG]x")
	assert.True(t, ok)
	assert.Equal(t, DebugLevel, lv)

	ok, _, rest = ParseTaggedLine("plain text [INFO]")
	assert.False(t, ok)
	assert.Equal(t, "plain text [INFO]", rest)
}

func TestPanicAlwaysLogged(t *testing.T) {
	old := GetLevel()
	defer SetLevel(old)
	SetLevel(OffLevel)

	assert.Panics(t, func() {
		Panicf("invariant %d violated", 42)
	})
	assert.Panics(t, func() {
		AssertTrue(false)
	})
	assert.NotPanics(t, func() {
		AssertTrue(true)
		Warnf("not printed at level %v", OffLevel)
	})
}

func TestSetLogFile(t *testing.T) {
	old := GetLevel()
	defer SetLevel(old)
	SetLevel(InfoLevel)

	fn := filepath.Join(t.TempDir(), "logs", "motesim.log")
	require.NoError(t, SetLogFile(fn, 1, 1))
	Infof("written to %s", "file")
	Debugf("filtered")
	require.NoError(t, Close())

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Contains(t, string(data), "info")
	assert.Contains(t, string(data), "written to file")
	assert.NotContains(t, string(data), "filtered")

	// no more writes after Close
	Infof("after close")
	data, err = os.ReadFile(fn)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "after close")
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t, "plain", formatMessage("plain", nil))
	assert.Equal(t, "n=3", formatMessage("n=%d", []interface{}{3}))
	assert.Equal(t, "only", formatMessage("", []interface{}{"only"}))
	assert.Equal(t, "1 2", formatMessage("", []interface{}{1, 2}))
}
