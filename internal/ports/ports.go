package ports

import (
	"context"
	"io"

	"herelaw/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session. The microphone is a singleton
// resource; Stop must be called on every exit path.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamConfig describes settings for a streaming transcription channel.
type StreamConfig struct {
	SampleRate int
	Channels   int
	Encoding   string
}

// SpeechStream is an open duplex transcription channel.
type SpeechStream interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// SpeechStreamer opens streaming transcription channels.
type SpeechStreamer interface {
	OpenStream(ctx context.Context, cfg StreamConfig) (SpeechStream, error)
}

// CaseService is the complaint-generation backend.
type CaseService interface {
	Login(ctx context.Context, username, password string) (domain.AuthResult, error)
	Register(ctx context.Context, username, password, email string) (domain.AuthResult, error)
	SetToken(token string)

	GenerateComplaint(ctx context.Context, userInput string) (domain.GenerateResult, error)
	TranscribeAudio(ctx context.Context, artifact domain.AudioArtifact) (string, error)
	UpdateComplaint(ctx context.Context, sessionID, complaint string) error
	RateSession(ctx context.Context, sessionID string, rating int, feedback string) error
	Sessions(ctx context.Context) ([]domain.SessionRecord, error)
	Session(ctx context.Context, sessionID string) (domain.SessionRecord, error)
}

// TranscriptRules transforms transcripts using deterministic rules.
type TranscriptRules interface {
	Apply(text string) (string, error)
}

// CredentialStore persists auth breadcrumbs across app restarts.
type CredentialStore interface {
	Load() (domain.Credentials, error)
	Save(creds domain.Credentials) error
	Clear() error
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits controller state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	InterimTranscript(text string)
	TranscriptChanged(text string)
	ComplaintChanged(text string, sessionID string)
	SessionError(code domain.ErrorCode, detail string)
	LoggedOut(reason string)
}
