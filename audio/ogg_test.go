package audio

import (
	"encoding/binary"
	"testing"
)

func TestFramesRejectsBadBuffers(t *testing.T) {
	if _, err := Frames(nil); err == nil {
		t.Error("empty buffer accepted")
	}
	if _, err := Frames([]byte{1, 2, 3}); err == nil {
		t.Error("odd-length buffer accepted")
	}
}

func TestFramesSplitsAndPads(t *testing.T) {
	// One and a half frames of samples.
	n := frameSamples + frameSamples/2
	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(i%100)))
	}

	frames, err := Frames(pcm)
	if err != nil {
		t.Fatalf("frames: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	for i, f := range frames {
		if len(f) != frameSamples {
			t.Fatalf("frame %d has %d samples, want %d", i, len(f), frameSamples)
		}
	}
	// The tail of the final frame is silence.
	last := frames[1]
	for i := frameSamples / 2; i < frameSamples; i++ {
		if last[i] != 0 {
			t.Fatalf("padding sample %d = %d, want 0", i, last[i])
		}
	}
}

func TestFramesPreservesSampleValues(t *testing.T) {
	pcm := make([]byte, frameSamples*2)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(int16(-123)))
	binary.LittleEndian.PutUint16(pcm[2:], uint16(int16(456)))

	frames, err := Frames(pcm)
	if err != nil {
		t.Fatalf("frames: %v", err)
	}
	if frames[0][0] != -123 || frames[0][1] != 456 {
		t.Fatalf("samples = %d, %d, want -123, 456", frames[0][0], frames[0][1])
	}
}
