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
)

// Meta frames prefix the transmission bytes with a header of TLVs carrying the source, channel and
// transmit power, in the layout of the IEEE 802.15.4 TAP header.
const (
	dltUser1                = 148
	pcapMetaFrameHeaderSize = 28
)

const (
	tlvSource  = 1
	tlvChannel = 2
	tlvTxPower = 3
)

type metaFile struct {
	fd *os.File
}

func newMetaFile(filename string) (File, error) {
	fd, err := createFile(filename, dltUser1)
	if err != nil {
		return nil, err
	}
	return &metaFile{fd: fd}, nil
}

func setTlv(hdr []byte, idx *int, tlvType uint16, data []byte) {
	lenData := uint16(len(data))
	l := lenData & 0xFFFC
	if lenData&0x0003 > 0 {
		l += 4
	}
	binary.LittleEndian.PutUint16(hdr[*idx:], tlvType)
	binary.LittleEndian.PutUint16(hdr[*idx+2:], lenData)
	copy(hdr[*idx+4:], data)
	*idx += int(4 + l)
}

func (pf *metaFile) AppendFrame(frame Frame) error {
	var header [pcapFrameHeaderSize + pcapMetaFrameHeaderSize]byte
	putFrameHeader(header[:], frame.Timestamp, uint32(len(frame.Data))+pcapMetaFrameHeaderSize)

	n := pcapFrameHeaderSize
	header[n] = 0 // version
	header[n+1] = 0
	binary.LittleEndian.PutUint16(header[n+2:n+4], pcapMetaFrameHeaderSize)
	n += 4

	var buf [4]byte
	binary.LittleEndian.PutUint16(buf[:2], uint16(frame.Source))
	setTlv(header[:], &n, tlvSource, buf[:2])
	binary.LittleEndian.PutUint16(buf[:2], uint16(frame.Channel))
	setTlv(header[:], &n, tlvChannel, buf[:2])
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(frame.PowerDbm))
	setTlv(header[:], &n, tlvTxPower, buf[:])

	if _, err := pf.fd.Write(header[:]); err != nil {
		return err
	}
	_, err := pf.fd.Write(frame.Data)
	return err
}

func (pf *metaFile) Sync() error {
	return pf.fd.Sync()
}

func (pf *metaFile) Close() error {
	return pf.fd.Close()
}
