package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"herelaw/internal/ports"
)

// ErrCaptureBusy is returned when a capture session is already holding the
// microphone. The OS-level mic lock is a singleton; callers must stop the
// active session first.
var ErrCaptureBusy = errors.New("microphone is already captured by an active session")

// FFmpegCapture streams microphone PCM audio using an ffmpeg subprocess.
type FFmpegCapture struct {
	command string
	busy    atomic.Bool
}

func NewFFmpegCapture(command string) *FFmpegCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFmpegCapture{command: command}
}

func (c *FFmpegCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrCaptureBusy
	}

	session, err := c.start(ctx, cfg)
	if err != nil {
		c.busy.Store(false)
		return nil, err
	}
	return session, nil
}

func (c *FFmpegCapture) start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start recorder: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	// An immediate exit means the device or format is wrong; surface the
	// recorder's own diagnostics instead of an empty stream.
	select {
	case err := <-waitErr:
		c.busy.Store(false)
		if err != nil {
			return nil, fmt.Errorf("recorder exited before capture started: %w: %s", err, trimmedStderr(&stderr))
		}
		return nil, errors.New("recorder exited before capture started")
	case <-time.After(250 * time.Millisecond):
	}

	return &captureSession{
		owner:   c,
		stdout:  stdout,
		stderr:  &stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}, nil
}

type captureSession struct {
	owner  *FFmpegCapture
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (s *captureSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *captureSession) Close() error {
	return s.Stop()
}

// Stop releases the microphone. It is idempotent and safe on error paths.
func (s *captureSession) Stop() error {
	s.stopOnce.Do(func() {
		defer s.owner.busy.Store(false)

		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if s.stopErr == nil {
				s.stopErr = closeErr
			}
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, trimmedStderr(s.stderr))
		}
	})

	return s.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	// ffmpeg exits non-zero when interrupted; that is a clean stop here.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimmedStderr(buf *bytes.Buffer) string {
	return string(bytes.TrimSpace(buf.Bytes()))
}
