package capture

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"parlo/audio"
)

// CommandMicrophone records by running an external capture tool (arecord
// by default) that writes raw PCM to stdout. Closing the returned stream
// stops the process and releases the device.
type CommandMicrophone struct {
	Command string
	Args    []string
}

func NewCommandMicrophone() *CommandMicrophone {
	return &CommandMicrophone{
		Command: "arecord",
		Args: []string{
			"-q", "-t", "raw", "-f", "S16_LE", "-c", "1",
			"-r", fmt.Sprint(audio.CaptureSampleRate),
		},
	}
}

func (m *CommandMicrophone) Open(ctx context.Context) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, m.Command, m.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open recorder stdout: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recorder %s: %w", m.Command, err)
	}
	return &micStream{cmd: cmd, out: stdout, stderr: &stderr}, nil
}

type micStream struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr *strings.Builder
}

func (s *micStream) Read(p []byte) (int, error) {
	n, err := s.out.Read(p)
	if err == io.EOF {
		// arecord refuses the device after startup; the refusal only
		// shows up here, as a dead stdout plus a stderr message.
		msg := strings.TrimSpace(s.stderr.String())
		if strings.Contains(strings.ToLower(msg), "permission") {
			return n, fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
		}
		if msg != "" {
			return n, fmt.Errorf("recorder: %s", msg)
		}
	}
	return n, err
}

func (s *micStream) Close() error {
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.out.Close()
	return s.cmd.Wait()
}
