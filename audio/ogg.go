// Package audio finalizes captured PCM into the Ogg/Opus blob handed to
// the pronunciation scorer.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"
)

// Capture format: 16-bit signed little-endian mono at 24 kHz, encoded in
// 20 ms Opus frames.
const (
	CaptureSampleRate = 24000
	frameSamples      = CaptureSampleRate / 50
	maxPacketSize     = 1275
)

// PacketWriter is the container sink for encoded Opus packets.
type PacketWriter interface {
	WriteRTP(*rtp.Packet) error
	Close() error
}

// Encoder turns PCM frames into Opus packets on a PacketWriter.
type Encoder struct {
	enc       *opus.Encoder
	writer    PacketWriter
	sampleIdx uint32
	log       *log.Logger
}

func NewEncoder(w PacketWriter, logger *log.Logger) (*Encoder, error) {
	enc, err := opus.NewEncoder(CaptureSampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	return &Encoder{enc: enc, writer: w, log: logger}, nil
}

// WriteFrame encodes one frame of exactly frameSamples samples.
func (e *Encoder) WriteFrame(frame []int16) error {
	packet := make([]byte, maxPacketSize)
	n, err := e.enc.Encode(frame, packet)
	if err != nil {
		return fmt.Errorf("encode opus frame: %w", err)
	}

	if err := e.writer.WriteRTP(&rtp.Packet{
		Header:  rtp.Header{Timestamp: e.sampleIdx},
		Payload: packet[:n],
	}); err != nil {
		return fmt.Errorf("write opus packet: %w", err)
	}
	e.sampleIdx += uint32(len(frame))
	return nil
}

func (e *Encoder) Close() error {
	return e.writer.Close()
}

// EncodeOggOpus converts a raw capture buffer into a self-contained
// Ogg/Opus blob. The final short frame, if any, is zero-padded to a full
// frame.
func EncodeOggOpus(logger *log.Logger, pcm []byte) ([]byte, error) {
	frames, err := Frames(pcm)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer, err := oggwriter.NewWith(&buf, CaptureSampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("create ogg writer: %w", err)
	}

	enc, err := NewEncoder(writer, logger)
	if err != nil {
		return nil, err
	}

	for _, frame := range frames {
		if err := enc.WriteFrame(frame); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close ogg writer: %w", err)
	}

	logger.Debug("encoded capture blob",
		"frames", len(frames), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// Frames splits little-endian 16-bit mono PCM into fixed-size encoder
// frames, zero-padding the tail.
func Frames(pcm []byte) ([][]int16, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("empty capture buffer")
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("capture buffer length %d is not sample-aligned", len(pcm))
	}

	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[2*i:]))
	}

	var frames [][]int16
	for start := 0; start < len(samples); start += frameSamples {
		frame := make([]int16, frameSamples)
		copy(frame, samples[start:min(start+frameSamples, len(samples))])
		frames = append(frames, frame)
	}
	return frames, nil
}
