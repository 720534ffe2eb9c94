package audio

import (
	"encoding/binary"
	"fmt"
	"io"
)

var wmaAvgBytesPerSec = [...]uint32{12000, 24000, 4000, 6000, 8000, 20000}

var wmaBlockAlign = [...]uint16{
	929, 1487, 1280, 2230, 8917, 8192, 4459, 5945,
	2304, 1536, 1485, 1008, 2731, 4096, 6827, 5462,
}

const xwmaPacketBytes = 4096

// wmaFormat resolves the byte rate and packet size from a wave bank's block
// align field. A value past the end of a table is packed: bits 0-3 select the
// packet size and bits 5 and up the byte rate.
func wmaFormat(align int) (uint32, uint16, error) {
	rate := align
	if rate >= len(wmaAvgBytesPerSec) {
		rate = align >> 5
	}
	if rate >= len(wmaAvgBytesPerSec) {
		return 0, 0, fmt.Errorf("%w: WMA byte rate index %d", ErrFormat, rate)
	}
	packet := align
	if packet >= len(wmaBlockAlign) {
		packet = align & 0xf
	}
	return wmaAvgBytesPerSec[rate], wmaBlockAlign[packet], nil
}

// WriteXWMA wraps raw WMA packets from a wave bank in an XWMA RIFF container
// so an external decoder can read them.
func WriteXWMA(w io.Writer, channels, sampleRate, align int, data []byte) error {
	avgBytes, blockAlign, err := wmaFormat(align)
	if err != nil {
		return err
	}

	packets := len(data) / int(blockAlign)

	// cumulative decoded byte counts, spreading the 4096 byte blocks of the
	// estimated output evenly over the packets
	full := int64(len(data)) * int64(avgBytes)
	if full%xwmaPacketBytes != 0 {
		full = (1 + full/xwmaPacketBytes) * xwmaPacketBytes
	} else {
		full = int64(len(data))
	}
	allBlocks := full / xwmaPacketBytes
	var perPacket, spare int64
	if packets > 0 {
		perPacket = allBlocks / int64(packets)
		spare = allBlocks - perPacket*int64(packets)
	}
	table := make([]uint32, packets)
	var accu int64
	for i := range table {
		accu += perPacket * xwmaPacketBytes
		if spare != 0 {
			accu += xwmaPacketBytes
			spare--
		}
		table[i] = uint32(accu)
	}

	header := struct {
		RIFF   chunkHeader
		Kind   [4]byte
		Fmt    chunkHeader
		Format Format
		CbSize uint16
		Dpds   chunkHeader
	}{
		// the RIFF size is not checked by readers of this container
		RIFF: chunkHeader{labelRIFF, 0},
		Kind: labelXWMA,
		Fmt:  chunkHeader{labelFmt, 18},
		Format: Format{
			Tag:            TagWMA2,
			Channels:       uint16(channels),
			SampleRate:     uint32(sampleRate),
			AvgBytesPerSec: avgBytes,
			BlockAlign:     blockAlign,
			BitsPerSample:  16,
		},
		Dpds: chunkHeader{labelDpds, uint32(packets * 4)},
	}

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, table); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, chunkHeader{labelData, uint32(len(data))}); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
