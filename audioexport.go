package loopsmith

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var ErrNotWavFile = errors.New("not a valid WAV file")

// ReadWav decodes a PCM WAV stream into stereo frames. Mono files are copied
// to both channels; channels beyond the second are ignored. It returns the
// frames and the sample rate of the file.
func ReadWav(r io.ReadSeeker) (AudioBuffer, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, ErrNotWavFile
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("ReadWav failed: %w", err)
	}
	channels := int(dec.NumChans)
	if channels < 1 || pcm.Format == nil {
		return nil, 0, ErrNotWavFile
	}
	bitDepth := pcm.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(dec.BitDepth)
	}
	scale := float32(math.Pow(2, float64(bitDepth-1)) - 1)
	if scale <= 0 {
		return nil, 0, fmt.Errorf("ReadWav failed: unsupported bit depth %d", bitDepth)
	}
	frames := len(pcm.Data) / channels
	ret := make(AudioBuffer, frames)
	for i := range ret {
		l := float32(pcm.Data[i*channels]) / scale
		r := l
		if channels > 1 {
			r = float32(pcm.Data[i*channels+1]) / scale
		}
		ret[i] = [2]float32{l, r}
	}
	return ret, int(dec.SampleRate), nil
}

// WriteWav encodes buffer as a 16-bit stereo PCM WAV stream. Samples are
// clamped to [-1, 1].
func WriteWav(w io.WriteSeeker, buffer AudioBuffer, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, 16, 2, 1)
	data := make([]int, 0, 2*len(buffer))
	for _, frame := range buffer {
		for _, v := range frame {
			data = append(data, clamp(int(math.Round(float64(v)*math.MaxInt16)), -math.MaxInt16, math.MaxInt16))
		}
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("WriteWav failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("WriteWav failed: %w", err)
	}
	return nil
}

// Raw converts buffer to interleaved little-endian raw samples, either
// 16-bit integers or 32-bit floats.
func Raw(buffer AudioBuffer, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	var err error
	if pcm16 {
		int16data := make([]int16, 0, 2*len(buffer))
		for _, frame := range buffer {
			for _, v := range frame {
				int16data = append(int16data, int16(clamp(int(v*math.MaxInt16), math.MinInt16, math.MaxInt16)))
			}
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, buffer)
	}
	if err != nil {
		return nil, fmt.Errorf("Raw failed: %v", err)
	}
	return buf.Bytes(), nil
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
