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

package pcap

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motesim/motesim/radio"
	"github.com/motesim/motesim/topology"
	. "github.com/motesim/motesim/types"
)

func TestPcapRawFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeRaw)
	require.NoError(t, err)
	defer func() {
		_ = pcap.Close()
	}()

	require.NoError(t, pcap.Sync())
	assert.Equal(t, pcapFileHeaderSize, getFileSize(t, pcapFilename))

	for i := 0; i < 10; i++ {
		frame := Frame{
			Timestamp: uint64(i) * 1000,
			Data:      []byte{0x12, 0x10, 0xa6, 0x80, 0x65},
			Channel:   12,
			Source:    3,
		}
		require.NoError(t, pcap.AppendFrame(frame))
		require.NoError(t, pcap.Sync())
		assert.Equal(t, pcapFileHeaderSize+(pcapFrameHeaderSize+5)*(i+1), getFileSize(t, pcapFilename))
	}

	data, err := os.ReadFile(pcapFilename)
	require.NoError(t, err)
	assert.Equal(t, uint32(pcapMagicNumber), binary.LittleEndian.Uint32(data[0:4]))
	assert.Equal(t, uint32(dltUser0), binary.LittleEndian.Uint32(data[20:24]))
}

func TestPcapMetaFile(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "test_meta.pcap")
	pcap, err := NewFile(pcapFilename, FrameTypeMeta)
	require.NoError(t, err)
	defer func() {
		_ = pcap.Close()
	}()

	require.NoError(t, pcap.AppendFrame(Frame{
		Timestamp: 1500000,
		Data:      []byte{0xaa, 0xbb},
		Channel:   7,
		Source:    513,
		PowerDbm:  -3.5,
	}))
	require.NoError(t, pcap.Sync())
	assert.Equal(t, pcapFileHeaderSize+pcapFrameHeaderSize+pcapMetaFrameHeaderSize+2, getFileSize(t, pcapFilename))

	data, err := os.ReadFile(pcapFilename)
	require.NoError(t, err)
	assert.Equal(t, uint32(dltUser1), binary.LittleEndian.Uint32(data[20:24]))
	fr := data[pcapFileHeaderSize:]
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(fr[0:4]))
	assert.Equal(t, uint32(500000), binary.LittleEndian.Uint32(fr[4:8]))
	assert.Equal(t, uint32(pcapMetaFrameHeaderSize+2), binary.LittleEndian.Uint32(fr[8:12]))

	hdr := fr[pcapFrameHeaderSize:]
	assert.Equal(t, uint16(pcapMetaFrameHeaderSize), binary.LittleEndian.Uint16(hdr[2:4]))
	assert.Equal(t, uint16(tlvSource), binary.LittleEndian.Uint16(hdr[4:6]))
	assert.Equal(t, uint16(513), binary.LittleEndian.Uint16(hdr[8:10]))
	assert.Equal(t, uint16(tlvChannel), binary.LittleEndian.Uint16(hdr[12:14]))
	assert.Equal(t, uint16(7), binary.LittleEndian.Uint16(hdr[16:18]))
	assert.Equal(t, uint16(tlvTxPower), binary.LittleEndian.Uint16(hdr[20:22]))
	assert.Equal(t, float32(-3.5), math.Float32frombits(binary.LittleEndian.Uint32(hdr[24:28])))
	assert.Equal(t, []byte{0xaa, 0xbb}, hdr[pcapMetaFrameHeaderSize:])
}

func TestParseFrameType(t *testing.T) {
	assert.Equal(t, FrameTypeOff, ParseFrameTypeStr("off"))
	assert.Equal(t, FrameTypeRaw, ParseFrameTypeStr("raw"))
	assert.Equal(t, FrameTypeMeta, ParseFrameTypeStr("meta"))
	assert.Equal(t, FrameTypeUnknown, ParseFrameTypeStr("wpan"))

	_, err := NewFile(filepath.Join(t.TempDir(), "x.pcap"), FrameTypeUnknown)
	assert.Error(t, err)
}

func TestCaptureOnMedium(t *testing.T) {
	pcapFilename := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := NewFile(pcapFilename, FrameTypeRaw)
	require.NoError(t, err)

	cfg := radio.DefaultConfig()
	capture := NewCapture(f, cfg.BitsPerByte)
	cfg.Capture = capture
	topo := topology.New()
	m, err := radio.NewMedium(cfg, &silentArbitrator{}, topo)
	require.NoError(t, err)
	tx, err := m.NewTransmitter(1, 0, 0)
	require.NoError(t, err)

	_, err = tx.Transmit(0, []byte("abc"))
	require.NoError(t, err)
	_, err = tx.TransmitFunc(100, 16, func(offset uint64) byte {
		return byte(0x10 + offset/8)
	})
	require.NoError(t, err)
	m.RunUntil(1000)
	assert.Equal(t, 2, capture.Frames())
	require.NoError(t, capture.Close())

	data, err := os.ReadFile(pcapFilename)
	require.NoError(t, err)
	require.Len(t, data, pcapFileHeaderSize+2*pcapFrameHeaderSize+5)
	assert.Equal(t, []byte("abc"), data[pcapFileHeaderSize+pcapFrameHeaderSize:pcapFileHeaderSize+pcapFrameHeaderSize+3])
	assert.Equal(t, []byte{0x10, 0x11}, data[len(data)-2:])
}

type silentArbitrator struct{}

func (silentArbitrator) Noise(ChannelId) DbValue {
	return -90
}

func (silentArbitrator) ReceivedPower(radio.Env, *radio.Transmission, *radio.Receiver, int64) DbValue {
	return radio.PowerUnsupported
}

func (silentArbitrator) LockTransmission(radio.Env, *radio.Receiver, *radio.Transmission, int64) bool {
	return false
}

func (silentArbitrator) MergeTransmissions(radio.Env, *radio.Receiver, []*radio.Transmission, uint64, int64) radio.Merge {
	panic("no transmission ever locks")
}

func getFileSize(t *testing.T, fp string) int {
	info, err := os.Stat(fp)
	if err != nil {
		t.Fatal(err)
	}

	return int(info.Size())
}
