// Package audio provides the sample-level building blocks of the voxtask
// pipeline: WAV container encoding, float32 ↔ int16 PCM conversion, and
// block-maximum downsampling for level metering.
//
// All functions are pure and allocation-bounded; none of them block or touch
// the network, so they are safe to call from the audio capture path.
package audio

import (
	"encoding/binary"
	"math"
)

// wavHeaderSize is the fixed size of the RIFF/WAVE header written by
// [EncodeWAV]: 12-byte RIFF descriptor + 24-byte fmt chunk + 8-byte data
// chunk header.
const wavHeaderSize = 44

// EncodeWAV wraps normalised float32 samples in a standard RIFF/WAVE
// container: mono, 16-bit signed little-endian integer PCM at the given
// sample rate. The output is always exactly 44 bytes of header followed by
// 2×len(samples) bytes of payload.
//
// Each sample is scaled by 32767, clipped to the int16 range, and rounded
// half to even. Values outside [-1.0, 1.0] are clipped, not wrapped.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, wavHeaderSize+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk (PCM, mono, 16-bit)
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                   // sub-chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)                    // audio format: integer PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1)                    // channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))   // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)                    // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                   // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+i*2:], uint16(quantize(s)))
	}
	return buf
}

// quantize converts a normalised float32 sample to int16 using round half to
// even, clipping to the representable range.
func quantize(s float32) int16 {
	v := math.RoundToEven(float64(s) * 32767.0)
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// Float32ToPCM16 converts normalised float32 samples to raw 16-bit signed
// little-endian PCM bytes using the same quantisation as [EncodeWAV].
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(quantize(s)))
	}
	return out
}

// PCM16ToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to [-1.0, 1.0). The input length must be even (two
// bytes per sample); any trailing odd byte is silently ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}
