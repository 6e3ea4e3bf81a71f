package usecase

import (
	"errors"
	"fmt"
	"io"
	"time"

	"herelaw/internal/domain"
	"herelaw/internal/ports"
)

func pumpAudioChunks(
	audio ports.AudioSession,
	stream ports.SpeechStream,
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("failed to stream audio: %v", sendErr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

func waitForStream(stream ports.SpeechStream, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- stream.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = stream.Close()
		return <-done
	}
}
