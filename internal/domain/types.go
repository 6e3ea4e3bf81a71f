package domain

import "time"

// SessionState models the consultation workflow lifecycle.
type SessionState string

const (
	SessionStateIdle         SessionState = "idle"
	SessionStateRecording    SessionState = "recording"
	SessionStateTranscribing SessionState = "transcribing"
	SessionStateGenerating   SessionState = "generating"
	SessionStateError        SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady               SessionStateReason = "ready"
	SessionReasonDictationStarted    SessionStateReason = "dictation_started"
	SessionReasonTranscribing        SessionStateReason = "transcribing"
	SessionReasonTranscriptReady     SessionStateReason = "transcript_ready"
	SessionReasonDictationDiscarded  SessionStateReason = "dictation_discarded"
	SessionReasonNoTranscript        SessionStateReason = "no_transcript"
	SessionReasonTranscriptionFailed SessionStateReason = "transcription_failed"
	SessionReasonGenerationStarted   SessionStateReason = "generation_started"
	SessionReasonComplaintReady      SessionStateReason = "complaint_ready"
	SessionReasonGenerationFailed    SessionStateReason = "generation_failed"
	SessionReasonComplaintSaved      SessionStateReason = "complaint_saved"
	SessionReasonRatingRecorded      SessionStateReason = "rating_recorded"
	SessionReasonSessionLoaded       SessionStateReason = "session_loaded"
	SessionReasonSessionReset        SessionStateReason = "session_reset"
	SessionReasonLoggedOut           SessionStateReason = "logged_out"
)

// ErrorCode identifies non-fatal and fatal client errors.
type ErrorCode string

const (
	ErrorCodeStartup       ErrorCode = "startup"
	ErrorCodeAuth          ErrorCode = "auth"
	ErrorCodeAudioStop     ErrorCode = "audio_stop"
	ErrorCodeAudioStream   ErrorCode = "audio_stream"
	ErrorCodeTranscription ErrorCode = "transcription"
	ErrorCodeGeneration    ErrorCode = "generation"
	ErrorCodeSave          ErrorCode = "save"
	ErrorCodeRating        ErrorCode = "rating"
	ErrorCodeHistory       ErrorCode = "history"
	ErrorCodeExport        ErrorCode = "export"
	ErrorCodeClipboard     ErrorCode = "clipboard"
)

// Logout reasons forwarded to the UI so it can explain why the user
// landed back on the login screen.
const (
	LogoutReasonUser    = "user_logout"
	LogoutReasonExpired = "session_expired"
)

// TranscriptKind mirrors the wire tags of the streaming endpoint.
type TranscriptKind string

const (
	TranscriptKindInterim TranscriptKind = "interim"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent is one incremental speech-to-text result.
type TranscriptEvent struct {
	Kind TranscriptKind `json:"kind"`
	Text string         `json:"text"`
}

// Rating bounds for the five-star scale used by the rating endpoint.
const (
	RatingMin = 1
	RatingMax = 5
)

// AudioArtifact is an immutable captured or uploaded audio payload.
type AudioArtifact struct {
	ID       string `json:"id"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

// AuthResult is returned by login and signup.
type AuthResult struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// GenerateResult binds a generated complaint to its server-assigned session.
type GenerateResult struct {
	Complaint string `json:"complaint"`
	SessionID string `json:"sessionId"`
}

// DictationResult is returned once a dictation is stopped and processed.
type DictationResult struct {
	Transcript string `json:"transcript"`
}

// SessionRecord is one persisted consultation session as the backend
// returns it from the session listing endpoints.
type SessionRecord struct {
	SessionID        string    `json:"session_id"`
	CreatedAt        time.Time `json:"created_at"`
	ConsultationText string    `json:"consultation_text"`
	Complaint        string    `json:"complaint"`
	Rating           int       `json:"rating,omitempty"`
	Feedback         string    `json:"feedback,omitempty"`
}

// Credentials are the locally persisted resume breadcrumbs. Everything
// else about a session lives only for the lifetime of the controller.
type Credentials struct {
	Token         string `json:"token"`
	UserID        string `json:"user_id,omitempty"`
	Username      string `json:"username,omitempty"`
	LastSessionID string `json:"last_session_id,omitempty"`
}

// Status summarizes the current controller status for the UI.
type Status struct {
	State     SessionState `json:"state"`
	Active    bool         `json:"active"`
	SessionID string       `json:"sessionId,omitempty"`
	Editing   bool         `json:"editing"`
	Rated     bool         `json:"rated"`
	Message   string       `json:"message,omitempty"`
}
