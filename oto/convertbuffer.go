package oto

import (
	"encoding/binary"
	"math"

	"github.com/loopsmith/loopsmith"
)

// FloatBufferToLE appends the frames of buff to dst as interleaved float32
// little endian samples, reusing the capacity of dst, and returns it.
func FloatBufferToLE(buff loopsmith.AudioBuffer, dst []byte) []byte {
	for _, frame := range buff {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[0]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[1]))
	}
	return dst
}
