package herelaw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"herelaw/internal/domain"
	"herelaw/internal/ports"
)

// endOfStream is the sentinel the backend expects once recording stops.
const endOfStream = "END_STREAM"

// OpenStream dials the duplex speech-to-text endpoint. Binary frames carry
// raw audio chunks; the backend pushes JSON results tagged interim or final.
func (c *Client) OpenStream(ctx context.Context, cfg ports.StreamConfig) (ports.SpeechStream, error) {
	wsURL, err := c.buildStreamURL(cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	if token := c.bearer(); token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to streaming transcription: %w", err)
	}

	session := &sttSession{
		conn:   conn,
		events: make(chan domain.TranscriptEvent, 64),
		audio:  make(chan []byte, 32),
		done:   make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

func (c *Client) buildStreamURL(cfg ports.StreamConfig) (string, error) {
	base := c.baseURL
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	streamURL, err := url.Parse(strings.TrimRight(base, "/") + "/stream-stt")
	if err != nil {
		return "", fmt.Errorf("invalid backend base URL: %w", err)
	}

	query := streamURL.Query()
	if cfg.Encoding != "" {
		query.Set("encoding", cfg.Encoding)
	}
	if cfg.SampleRate > 0 {
		query.Set("sample_rate", fmt.Sprintf("%d", cfg.SampleRate))
	}
	if cfg.Channels > 0 {
		query.Set("channels", fmt.Sprintf("%d", cfg.Channels))
	}
	streamURL.RawQuery = query.Encode()
	return streamURL.String(), nil
}

type sttSession struct {
	conn *websocket.Conn

	events chan domain.TranscriptEvent
	audio  chan []byte
	done   chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeSendOnce sync.Once
	closeOnce     sync.Once
	sendMu        sync.RWMutex
	sendClosed    bool
}

func (s *sttSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.sendMu.RLock()
	closed := s.sendClosed
	s.sendMu.RUnlock()
	if closed {
		return errors.New("audio stream is already closed")
	}

	copied := append([]byte(nil), chunk...)
	select {
	case s.audio <- copied:
		return nil
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("streaming session closed")
	}
}

// CloseSend flushes pending audio and sends the end-of-stream sentinel.
func (s *sttSession) CloseSend() error {
	s.closeSendOnce.Do(func() {
		s.sendMu.Lock()
		s.sendClosed = true
		close(s.audio)
		s.sendMu.Unlock()
	})
	return nil
}

func (s *sttSession) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *sttSession) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *sttSession) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *sttSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *sttSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *sttSession) writeLoop() {
	defer s.wg.Done()

	for chunk := range s.audio {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			s.setErr(fmt.Errorf("failed to send audio: %w", err))
			return
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(endOfStream)); err != nil {
		s.setErr(fmt.Errorf("failed to close stream: %w", err))
	}
}

func (s *sttSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read transcription result: %w", err))
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "interim":
			s.emit(domain.TranscriptEvent{Kind: domain.TranscriptKindInterim, Text: msg.Text})
		case "final":
			s.emit(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: msg.Text})
		case "error":
			detail := strings.TrimSpace(msg.Error)
			if detail == "" {
				detail = "the transcription service reported an unknown error"
			}
			s.setErr(errors.New(detail))
			return
		}
	}
}

// emit delivers results strictly in receipt order. It blocks rather than
// dropping: a lost final would silently corrupt the transcript.
func (s *sttSession) emit(event domain.TranscriptEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	}
}

type streamMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}
