package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// MS-ADPCM

var adaptionTable = [16]int{
	230, 230, 230, 230, 307, 409, 512, 614,
	768, 614, 512, 409, 307, 230, 230, 230,
}

var adaptCoeff1 = [7]int{256, 512, 0, 192, 240, 460, 392}
var adaptCoeff2 = [7]int{0, -256, 0, 64, 0, -208, -232}

type adpcmChannel struct {
	predictor int
	delta     int
	sample1   int
	sample2   int
}

func (c *adpcmChannel) expand(nibble byte) int16 {
	signed := int(nibble)
	if signed&0x8 != 0 {
		signed -= 0x10
	}

	sample := (c.sample1*adaptCoeff1[c.predictor] + c.sample2*adaptCoeff2[c.predictor]) / 256
	sample += signed * c.delta
	if sample < math.MinInt16 {
		sample = math.MinInt16
	} else if sample > math.MaxInt16 {
		sample = math.MaxInt16
	}

	c.sample2 = c.sample1
	c.sample1 = sample
	c.delta = int(int16(adaptionTable[nibble] * c.delta / 256))
	if c.delta < 16 {
		c.delta = 16
	}
	return int16(sample)
}

// DecodeMSADPCM expands MS-ADPCM blocks of blockAlign bytes to signed 16-bit
// little-endian PCM. A trailing short block is decoded as far as it goes.
func DecodeMSADPCM(src []byte, channels, blockAlign int) ([]byte, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: MS-ADPCM data is not mono or stereo (%d channels)", ErrFormat, channels)
	}
	preamble := 7 * channels
	if blockAlign <= preamble {
		return nil, fmt.Errorf("%w: MS-ADPCM block align %d too small", ErrFormat, blockAlign)
	}

	blocks := (len(src) + blockAlign - 1) / blockAlign
	out := make([]byte, 0, blocks*(blockAlign-preamble)*4+blocks*channels*4)
	emit := func(s int16) {
		out = binary.LittleEndian.AppendUint16(out, uint16(s))
	}

	state := make([]adpcmChannel, channels)
	for start := 0; start+preamble <= len(src); start += blockAlign {
		end := start + blockAlign
		if end > len(src) {
			end = len(src)
		}
		block := src[start:end]

		// preamble fields are interleaved by channel
		for ch := range state {
			predictor := int(block[ch])
			if predictor >= len(adaptCoeff1) {
				return nil, fmt.Errorf("%w: MS-ADPCM predictor %d out of range", ErrFormat, predictor)
			}
			field := func(i int) int {
				off := channels + 2*(i*channels+ch)
				return int(int16(binary.LittleEndian.Uint16(block[off:])))
			}
			state[ch] = adpcmChannel{
				predictor: predictor,
				delta:     field(0),
				sample1:   field(1),
				sample2:   field(2),
			}
		}

		for ch := range state {
			emit(int16(state[ch].sample2))
		}
		for ch := range state {
			emit(int16(state[ch].sample1))
		}

		for _, b := range block[preamble:] {
			if channels == 1 {
				emit(state[0].expand(b >> 4))
				emit(state[0].expand(b & 0xf))
			} else {
				emit(state[0].expand(b >> 4))
				emit(state[1].expand(b & 0xf))
			}
		}
	}
	return out, nil
}
