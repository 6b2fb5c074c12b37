package speech

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"
)

// CommandDevice pipes raw PCM into an external player process, one
// process per playback. The zero command defaults to aplay with the
// pipeline's sample format.
type CommandDevice struct {
	Command string
	Args    []string
	Log     *log.Logger
}

func NewCommandDevice(logger *log.Logger) *CommandDevice {
	return &CommandDevice{
		Command: "aplay",
		Args:    []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1"},
		Log:     logger,
	}
}

// Resume is a no-op: a fresh process is spawned per playback, so there
// is no suspended state to recover from.
func (d *CommandDevice) Resume() error { return nil }

func (d *CommandDevice) Play(samples []float32, sampleRate int) (<-chan struct{}, error) {
	args := append(append([]string{}, d.Args...), "-r", fmt.Sprint(sampleRate))
	cmd := exec.Command(d.Command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open player stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start player %s: %w", d.Command, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		werr := writeSamples(stdin, samples)
		stdin.Close()
		if err := cmd.Wait(); err != nil {
			d.logError("player exited", err)
		} else if werr != nil {
			d.logError("player write failed", werr)
		}
	}()
	return done, nil
}

func (d *CommandDevice) logError(msg string, err error) {
	if d.Log != nil {
		d.Log.Error(msg, "command", d.Command, "error", err)
	}
}

// WriterDevice renders playbacks as WAV onto a writer, for piping to a
// file or another tool instead of a sound card.
type WriterDevice struct {
	mu sync.Mutex
	W  io.Writer
}

func (d *WriterDevice) Resume() error { return nil }

func (d *WriterDevice) Play(samples []float32, sampleRate int) (<-chan struct{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := WriteWAV(d.W, samples, sampleRate); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	close(done)
	return done, nil
}

// WriteWAV encodes samples as a 16-bit mono PCM WAV stream.
func WriteWAV(w io.Writer, samples []float32, sampleRate int) error {
	dataLen := uint32(len(samples) * 2)

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataLen)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataLen)

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	return writeSamples(w, samples)
}

func writeSamples(w io.Writer, samples []float32) error {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(math.Round(float64(s) * 32767))
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	_, err := w.Write(buf)
	return err
}
