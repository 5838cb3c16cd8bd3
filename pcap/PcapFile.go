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

// Package pcap writes the transmissions on the shared medium to a PCAP file.
package pcap

import (
	"encoding/binary"
	"os"

	"github.com/pkg/errors"

	. "github.com/motesim/motesim/types"
)

type FrameType int

const (
	FrameTypeOff FrameType = iota
	FrameTypeRaw
	FrameTypeMeta
	FrameTypeUnknown
)

const (
	FrameTypeOffStr  string = "off"
	FrameTypeRawStr  string = "raw"
	FrameTypeMetaStr string = "meta"
)

const (
	dltUser0            = 147 // raw transmission bytes
	pcapMagicNumber     = 0xA1B2C3D4
	pcapVersionMajor    = 2
	pcapVersionMinor    = 4
	pcapSnapLen         = 65535
	pcapFileHeaderSize  = 24
	pcapFrameHeaderSize = 16
)

// File represents a PCAP file
type File interface {
	AppendFrame(frame Frame) error
	Sync() error
	Close() error
}

// Frame represents a single transmission that can be added to a PCAP file
type Frame struct {
	Timestamp uint64 // microseconds
	Data      []byte
	Channel   ChannelId
	Source    NodeId
	PowerDbm  float32
}

type rawFile struct {
	fd *os.File
}

// NewFile creates a new PCAP file with all frames using specified frameType
func NewFile(filename string, frameType FrameType) (File, error) {
	switch frameType {
	case FrameTypeRaw:
		return newRawFile(filename)
	case FrameTypeMeta:
		return newMetaFile(filename)
	default:
		return nil, errors.Errorf("invalid PCAP frame type: %d", frameType)
	}
}

func ParseFrameTypeStr(tp string) FrameType {
	switch tp {
	case FrameTypeOffStr, "":
		return FrameTypeOff
	case FrameTypeRawStr:
		return FrameTypeRaw
	case FrameTypeMetaStr:
		return FrameTypeMeta
	default:
		return FrameTypeUnknown
	}
}

func createFile(filename string, linkType uint32) (*os.File, error) {
	fd, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "create pcap file")
	}
	if err = writeFileHeader(fd, linkType); err != nil {
		_ = fd.Close()
		return nil, errors.Wrapf(err, "write pcap header to %s", filename)
	}
	return fd, nil
}

func newRawFile(filename string) (File, error) {
	fd, err := createFile(filename, dltUser0)
	if err != nil {
		return nil, err
	}
	return &rawFile{fd: fd}, nil
}

func (pf *rawFile) AppendFrame(frame Frame) error {
	var header [pcapFrameHeaderSize]byte
	putFrameHeader(header[:], frame.Timestamp, uint32(len(frame.Data)))

	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	_, err := pf.fd.Write(frame.Data)
	return err
}

func (pf *rawFile) Sync() error {
	return pf.fd.Sync()
}

func (pf *rawFile) Close() error {
	return pf.fd.Close()
}

func putFrameHeader(header []byte, timestampUs uint64, frameLen uint32) {
	binary.LittleEndian.PutUint32(header[:4], uint32(timestampUs/1000000))
	binary.LittleEndian.PutUint32(header[4:8], uint32(timestampUs%1000000))
	binary.LittleEndian.PutUint32(header[8:12], frameLen)
	binary.LittleEndian.PutUint32(header[12:16], frameLen)
}

func writeFileHeader(fd *os.File, linkType uint32) error {
	var header [pcapFileHeaderSize]byte
	binary.LittleEndian.PutUint32(header[:4], pcapMagicNumber)
	binary.LittleEndian.PutUint16(header[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(header[6:8], pcapVersionMinor)
	binary.LittleEndian.PutUint32(header[8:12], 0)
	binary.LittleEndian.PutUint32(header[12:16], 0)
	binary.LittleEndian.PutUint32(header[16:20], pcapSnapLen)
	binary.LittleEndian.PutUint32(header[20:24], linkType)
	if _, err := fd.Write(header[:]); err != nil {
		return err
	}
	return fd.Sync()
}
