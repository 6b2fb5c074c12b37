// Package speech turns raw PCM sample buffers returned by the speech
// synthesizer into audible output.
package speech

import (
	"encoding/binary"
	"fmt"
)

// SampleRate is the implicit rate of synthesizer output: 16-bit signed
// little-endian mono at 24 kHz.
const SampleRate = 24000

// DecodeError reports a malformed PCM buffer.
type DecodeError struct {
	Length int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode pcm (%d bytes): %s", e.Length, e.Reason)
}

// Decode converts a little-endian 16-bit mono PCM buffer into samples
// normalized to [-1, 1]. The buffer must be non-empty and an exact
// multiple of two bytes.
func Decode(buf []byte) ([]float32, error) {
	if len(buf) == 0 {
		return nil, &DecodeError{Length: 0, Reason: "empty buffer"}
	}
	if len(buf)%2 != 0 {
		return nil, &DecodeError{Length: len(buf), Reason: "odd byte count for 16-bit samples"}
	}

	samples := make([]float32, len(buf)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(buf[2*i:]))
		samples[i] = float32(v) / 32768.0
	}
	return samples, nil
}
