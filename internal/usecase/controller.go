package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"herelaw/internal/domain"
	"herelaw/internal/ports"
)

var (
	ErrNoActiveDictation  = errors.New("no active dictation session")
	ErrDictationActive    = errors.New("a dictation session is already active")
	ErrGenerationInFlight = errors.New("complaint generation is already in progress")
	ErrNoSession          = errors.New("no session id: generate a complaint first")
	ErrNoComplaint        = errors.New("no complaint has been generated yet")
	ErrAlreadyRated       = errors.New("this session has already been rated")
	ErrInvalidRating      = fmt.Errorf("rating must be between %d and %d", domain.RatingMin, domain.RatingMax)
)

// Config controls dictation and streaming behavior.
type Config struct {
	Audio          ports.AudioConfig
	Stream         ports.StreamConfig
	ChunkSize      int
	StreamingGrace time.Duration
}

// ConsultationController drives the consultation workflow: dictation,
// transcription, complaint generation, editing, and rating. It owns all
// client-side session state; the UI layer only forwards calls and
// renders events.
type ConsultationController struct {
	backend   ports.CaseService
	streamer  ports.SpeechStreamer
	audio     ports.AudioCapture
	rules     ports.TranscriptRules
	clipboard ports.Clipboard
	creds     ports.CredentialStore
	events    ports.EventSink
	log       *logrus.Entry
	cfg       Config

	mu         sync.Mutex
	dictation  *activeDictation
	state      domain.SessionState
	generation uint64
	sessionID  string
	transcript string
	complaint  string
	editing    bool
	generating bool

	ratings *ratingLedger
}

func NewConsultationController(
	backend ports.CaseService,
	streamer ports.SpeechStreamer,
	audio ports.AudioCapture,
	rules ports.TranscriptRules,
	clipboard ports.Clipboard,
	creds ports.CredentialStore,
	events ports.EventSink,
	log *logrus.Entry,
	cfg Config,
) *ConsultationController {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &ConsultationController{
		backend:   backend,
		streamer:  streamer,
		audio:     audio,
		rules:     rules,
		clipboard: clipboard,
		creds:     creds,
		events:    events,
		log:       log,
		cfg:       cfg,
		state:     domain.SessionStateIdle,
		ratings:   newRatingLedger(),
	}
}

// RestoreSession loads saved credentials and re-arms the backend token.
// It never fails the startup path: a missing or corrupt file simply
// means the user has to log in again.
func (c *ConsultationController) RestoreSession() domain.Credentials {
	saved, err := c.creds.Load()
	if err != nil {
		c.log.WithError(err).Warn("failed to load stored credentials")
		return domain.Credentials{}
	}
	if saved.Token != "" {
		c.backend.SetToken(saved.Token)
	}
	return saved
}

// Login authenticates and persists the credentials for the next start.
func (c *ConsultationController) Login(ctx context.Context, username, password string) (domain.AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.AuthResult{}, errors.New("username and password are required")
	}

	result, err := c.backend.Login(ctx, username, password)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeAuth, err.Error())
		return domain.AuthResult{}, err
	}
	c.adoptAuth(result)
	return result, nil
}

// Register creates an account and logs the new user straight in.
func (c *ConsultationController) Register(ctx context.Context, username, password, email string) (domain.AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.AuthResult{}, errors.New("username and password are required")
	}

	result, err := c.backend.Register(ctx, username, password, email)
	if err != nil {
		c.events.SessionError(domain.ErrorCodeAuth, err.Error())
		return domain.AuthResult{}, err
	}
	c.adoptAuth(result)
	return result, nil
}

func (c *ConsultationController) adoptAuth(result domain.AuthResult) {
	c.backend.SetToken(result.Token)
	err := c.creds.Save(domain.Credentials{
		Token:    result.Token,
		UserID:   result.UserID,
		Username: result.Username,
	})
	if err != nil {
		c.log.WithError(err).Warn("failed to persist credentials")
	}
}

// Logout clears the token and all local session state on user request.
func (c *ConsultationController) Logout() {
	c.clearAuth(domain.LogoutReasonUser)
}

// clearAuth tears down everything tied to the authenticated user. The
// token and session state are gone before the logout event fires, so
// nothing can act on stale identity afterwards.
func (c *ConsultationController) clearAuth(reason string) {
	c.teardownDictation()
	c.backend.SetToken("")
	if err := c.creds.Clear(); err != nil {
		c.log.WithError(err).Warn("failed to clear stored credentials")
	}

	c.mu.Lock()
	c.generation++
	c.sessionID = ""
	c.transcript = ""
	c.complaint = ""
	c.editing = false
	c.state = domain.SessionStateIdle
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonLoggedOut)
	c.events.LoggedOut(reason)
}

// StartDictation opens the speech stream, then the microphone. A second
// start while one is running is rejected so the user cannot lose an
// in-progress dictation by accident.
func (c *ConsultationController) StartDictation(ctx context.Context) error {
	c.mu.Lock()
	if c.dictation != nil {
		c.mu.Unlock()
		return ErrDictationActive
	}
	gen := c.generation
	c.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	stream, err := c.streamer.OpenStream(sessionCtx, c.cfg.Stream)
	if err != nil {
		cancel()
		return c.reportErr(domain.ErrorCodeTranscription, err)
	}

	audioSession, err := c.audio.Start(sessionCtx, c.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		c.events.SessionError(domain.ErrorCodeAudioStream, err.Error())
		return err
	}

	active := &activeDictation{
		cancel:     cancel,
		audio:      audioSession,
		stream:     stream,
		generation: gen,
		aggregator: newTranscriptAggregator(),
		eventsDone: make(chan struct{}),
		audioDone:  make(chan struct{}),
	}

	c.mu.Lock()
	if c.dictation != nil || c.generation != gen {
		c.mu.Unlock()
		c.stopDictation(active)
		return ErrDictationActive
	}
	c.dictation = active
	c.state = domain.SessionStateRecording
	c.mu.Unlock()

	go consumeTranscriptEvents(active.stream, active.aggregator, c.events, active.eventsDone)
	go pumpAudioChunks(active.audio, active.stream, c.cfg.ChunkSize, c.events, active.audioDone)

	c.events.SessionStateChanged(domain.SessionStateRecording, domain.SessionReasonDictationStarted)
	return nil
}

// StopDictation ends the active dictation and folds the settled
// transcript into the consultation text.
func (c *ConsultationController) StopDictation(ctx context.Context) (domain.DictationResult, error) {
	active, err := c.getDictation()
	if err != nil {
		return domain.DictationResult{}, err
	}

	c.emitState(domain.SessionStateTranscribing, domain.SessionReasonTranscribing)

	if err := active.audio.Stop(); err != nil {
		c.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}

	if c.cfg.StreamingGrace > 0 {
		timer := time.NewTimer(c.cfg.StreamingGrace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	_ = active.stream.CloseSend()
	streamErr := waitForStream(active.stream, 4*time.Second)
	<-active.eventsDone
	<-active.audioDone

	c.mu.Lock()
	stale := c.generation != active.generation
	c.mu.Unlock()
	if stale {
		active.cancel()
		c.dropDictation(active)
		c.log.Debug("discarding dictation result from a superseded session")
		return domain.DictationResult{}, nil
	}

	transcript := active.aggregator.Transcript()
	if transcript == "" && streamErr != nil {
		c.events.SessionError(domain.ErrorCodeTranscription, streamErr.Error())
		c.finishDictation(active, domain.SessionStateError, domain.SessionReasonTranscriptionFailed)
		return domain.DictationResult{}, streamErr
	}
	if transcript == "" {
		c.finishDictation(active, domain.SessionStateIdle, domain.SessionReasonNoTranscript)
		return domain.DictationResult{}, errors.New("no speech was transcribed")
	}

	cleaned, ruleErr := c.rules.Apply(transcript)
	if ruleErr != nil {
		c.log.WithError(ruleErr).Warn("transcript cleanup failed, keeping raw text")
		cleaned = transcript
	}

	c.mu.Lock()
	c.transcript = joinText(c.transcript, cleaned)
	snapshot := c.transcript
	c.mu.Unlock()

	c.events.TranscriptChanged(snapshot)
	if streamErr != nil {
		// Text already shown to the user is kept even when the stream
		// ended badly; the error is surfaced alongside it.
		c.events.SessionError(domain.ErrorCodeTranscription, streamErr.Error())
	}

	c.finishDictation(active, domain.SessionStateIdle, domain.SessionReasonTranscriptReady)
	return domain.DictationResult{Transcript: snapshot}, nil
}

// AbortDictation cancels the active dictation and discards its audio.
func (c *ConsultationController) AbortDictation() error {
	active, err := c.getDictation()
	if err != nil {
		return err
	}

	c.stopDictation(active)
	c.finishDictation(active, domain.SessionStateIdle, domain.SessionReasonDictationDiscarded)
	return nil
}

// SetConsultationText replaces the consultation text with what the
// user typed. The UI calls this whenever the textarea is edited.
func (c *ConsultationController) SetConsultationText(text string) {
	c.mu.Lock()
	c.transcript = text
	c.mu.Unlock()
}

// TranscribeArtifact uploads a finished recording for batch
// transcription and replaces the consultation text with the result.
func (c *ConsultationController) TranscribeArtifact(ctx context.Context, artifact domain.AudioArtifact) (string, error) {
	if len(artifact.Data) == 0 {
		return "", errors.New("audio artifact is empty")
	}

	c.mu.Lock()
	gen := c.generation
	c.mu.Unlock()

	c.emitState(domain.SessionStateTranscribing, domain.SessionReasonTranscribing)

	text, err := c.backend.TranscribeAudio(ctx, artifact)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.clearAuth(domain.LogoutReasonExpired)
			return "", err
		}
		c.events.SessionError(domain.ErrorCodeTranscription, err.Error())
		c.emitState(domain.SessionStateError, domain.SessionReasonTranscriptionFailed)
		return "", err
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.log.Debug("discarding batch transcript from a superseded session")
		return "", nil
	}
	c.transcript = strings.TrimSpace(text)
	snapshot := c.transcript
	c.mu.Unlock()

	c.events.TranscriptChanged(snapshot)
	c.emitState(domain.SessionStateIdle, domain.SessionReasonTranscriptReady)
	return snapshot, nil
}

// Generate asks the backend for a complaint from the consultation
// text. Empty input is a deliberate no-op: no request, no events. Only
// one generation may be in flight at a time, and a response that
// arrives after a reset or logout is discarded.
func (c *ConsultationController) Generate(ctx context.Context, consultation string) (domain.GenerateResult, error) {
	trimmed := strings.TrimSpace(consultation)
	if trimmed == "" {
		return domain.GenerateResult{}, nil
	}

	c.mu.Lock()
	if c.generating {
		c.mu.Unlock()
		return domain.GenerateResult{}, ErrGenerationInFlight
	}
	c.generating = true
	c.transcript = trimmed
	gen := c.generation
	c.mu.Unlock()

	c.emitState(domain.SessionStateGenerating, domain.SessionReasonGenerationStarted)

	result, err := c.backend.GenerateComplaint(ctx, trimmed)

	c.mu.Lock()
	c.generating = false
	stale := c.generation != gen
	c.mu.Unlock()

	if stale {
		c.log.Debug("discarding generated complaint from a superseded session")
		return domain.GenerateResult{}, nil
	}
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.clearAuth(domain.LogoutReasonExpired)
			return domain.GenerateResult{}, err
		}
		c.events.SessionError(domain.ErrorCodeGeneration, err.Error())
		c.emitState(domain.SessionStateError, domain.SessionReasonGenerationFailed)
		return domain.GenerateResult{}, err
	}

	c.mu.Lock()
	c.sessionID = result.SessionID
	c.complaint = result.Complaint
	c.editing = false
	c.mu.Unlock()

	c.rememberSession(result.SessionID)
	c.events.ComplaintChanged(result.Complaint, result.SessionID)
	c.emitState(domain.SessionStateIdle, domain.SessionReasonComplaintReady)
	return result, nil
}

// BeginEdit switches the complaint into edit mode and returns the
// canonical text to seed the editor. Edits always start from the last
// saved version, never from a stale draft.
func (c *ConsultationController) BeginEdit() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.complaint == "" {
		return "", ErrNoComplaint
	}
	c.editing = true
	return c.complaint, nil
}

// CancelEdit leaves edit mode and re-renders the canonical complaint.
func (c *ConsultationController) CancelEdit() {
	c.mu.Lock()
	c.editing = false
	complaint, sessionID := c.complaint, c.sessionID
	c.mu.Unlock()
	c.events.ComplaintChanged(complaint, sessionID)
}

// SaveComplaint submits the edited text. Calling it without a session
// id is a programming error and fails immediately. On failure the
// controller stays in edit mode so the user keeps their draft.
func (c *ConsultationController) SaveComplaint(ctx context.Context, edited string) error {
	c.mu.Lock()
	if c.sessionID == "" {
		c.mu.Unlock()
		return ErrNoSession
	}
	sessionID := c.sessionID
	gen := c.generation
	c.mu.Unlock()

	if err := c.backend.UpdateComplaint(ctx, sessionID, edited); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.clearAuth(domain.LogoutReasonExpired)
			return err
		}
		c.events.SessionError(domain.ErrorCodeSave, err.Error())
		return err
	}

	c.mu.Lock()
	applied := c.generation == gen && c.sessionID == sessionID
	if applied {
		c.complaint = edited
		c.editing = false
	}
	c.mu.Unlock()

	if !applied {
		c.log.WithField("session_id", sessionID).Debug("discarding save for abandoned session")
		return nil
	}

	c.events.ComplaintChanged(edited, sessionID)
	c.emitState(domain.SessionStateIdle, domain.SessionReasonComplaintSaved)
	return nil
}

// Rate submits a star rating for the current session. The ledger
// reserves the session before any network call, so at most one
// submission reaches the backend even when calls race, and a failed
// submission releases the reservation for retry.
func (c *ConsultationController) Rate(ctx context.Context, rating int, feedback string) error {
	if rating < domain.RatingMin || rating > domain.RatingMax {
		return ErrInvalidRating
	}

	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()
	if sessionID == "" {
		return ErrNoSession
	}
	if !c.ratings.Begin(sessionID) {
		return ErrAlreadyRated
	}

	if err := c.backend.RateSession(ctx, sessionID, rating, feedback); err != nil {
		c.ratings.Abort(sessionID)
		if errors.Is(err, domain.ErrUnauthorized) {
			c.clearAuth(domain.LogoutReasonExpired)
			return err
		}
		c.events.SessionError(domain.ErrorCodeRating, err.Error())
		return err
	}

	c.ratings.Commit(sessionID, rating)
	c.emitState(domain.SessionStateIdle, domain.SessionReasonRatingRecorded)
	return nil
}

// Sessions lists the user's saved consultation sessions. Ratings that
// already exist server-side are folded into the ledger so they cannot
// be submitted again from this client.
func (c *ConsultationController) Sessions(ctx context.Context) ([]domain.SessionRecord, error) {
	records, err := c.backend.Sessions(ctx)
	if err != nil {
		return nil, c.reportErr(domain.ErrorCodeHistory, err)
	}
	for _, record := range records {
		if record.Rating > 0 {
			c.ratings.Record(record.SessionID, record.Rating)
		}
	}
	return records, nil
}

// LoadSession makes a saved session the current one.
func (c *ConsultationController) LoadSession(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	record, err := c.backend.Session(ctx, sessionID)
	if err != nil {
		return domain.SessionRecord{}, c.reportErr(domain.ErrorCodeHistory, err)
	}

	c.mu.Lock()
	c.sessionID = record.SessionID
	c.transcript = record.ConsultationText
	c.complaint = record.Complaint
	c.editing = false
	c.mu.Unlock()

	if record.Rating > 0 {
		c.ratings.Record(record.SessionID, record.Rating)
	}
	c.rememberSession(record.SessionID)

	c.events.TranscriptChanged(record.ConsultationText)
	c.events.ComplaintChanged(record.Complaint, record.SessionID)
	c.emitState(domain.SessionStateIdle, domain.SessionReasonSessionLoaded)
	return record, nil
}

// ResumeLastSession reloads the session the user worked on last, if
// any. A zero record means there was nothing to resume.
func (c *ConsultationController) ResumeLastSession(ctx context.Context) (domain.SessionRecord, error) {
	saved, err := c.creds.Load()
	if err != nil || saved.LastSessionID == "" {
		return domain.SessionRecord{}, err
	}
	return c.LoadSession(ctx, saved.LastSessionID)
}

// CopyComplaint puts the canonical complaint on the system clipboard.
func (c *ConsultationController) CopyComplaint(ctx context.Context) error {
	c.mu.Lock()
	complaint := c.complaint
	c.mu.Unlock()
	if complaint == "" {
		return ErrNoComplaint
	}

	if err := c.clipboard.SetText(ctx, complaint); err != nil {
		c.events.SessionError(domain.ErrorCodeClipboard, "complaint ready but clipboard write failed")
		return err
	}
	return nil
}

// Reset abandons the current consultation without logging out. Any
// in-flight backend response is discarded when it arrives.
func (c *ConsultationController) Reset() {
	c.teardownDictation()

	c.mu.Lock()
	c.generation++
	c.sessionID = ""
	c.transcript = ""
	c.complaint = ""
	c.editing = false
	c.state = domain.SessionStateIdle
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonSessionReset)
}

// Status snapshots the controller for the UI.
func (c *ConsultationController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Status{
		State:     c.state,
		Active:    c.dictation != nil || c.generating,
		SessionID: c.sessionID,
		Editing:   c.editing,
		Rated:     c.sessionID != "" && c.ratings.Rated(c.sessionID),
	}
}

// ConsultationText returns the current consultation text.
func (c *ConsultationController) ConsultationText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// Complaint returns the canonical complaint and its session id.
func (c *ConsultationController) Complaint() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complaint, c.sessionID
}

func (c *ConsultationController) reportErr(code domain.ErrorCode, err error) error {
	if errors.Is(err, domain.ErrUnauthorized) {
		c.clearAuth(domain.LogoutReasonExpired)
		return err
	}
	c.events.SessionError(code, err.Error())
	return err
}

// rememberSession persists the session id so the next app start can
// offer to resume it. Failure to save is not worth interrupting the
// user for.
func (c *ConsultationController) rememberSession(sessionID string) {
	if sessionID == "" {
		return
	}
	saved, err := c.creds.Load()
	if err != nil {
		c.log.WithError(err).Warn("failed to load stored credentials")
		return
	}
	if saved.Token == "" {
		return
	}
	saved.LastSessionID = sessionID
	if err := c.creds.Save(saved); err != nil {
		c.log.WithError(err).Warn("failed to persist last session id")
	}
}

func (c *ConsultationController) getDictation() (*activeDictation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dictation == nil {
		return nil, ErrNoActiveDictation
	}
	return c.dictation, nil
}

func (c *ConsultationController) teardownDictation() {
	c.mu.Lock()
	active := c.dictation
	c.dictation = nil
	c.mu.Unlock()
	if active != nil {
		c.stopDictation(active)
	}
}

// stopDictation releases the microphone and the stream and waits for
// both pump goroutines. Safe to call more than once per dictation.
func (c *ConsultationController) stopDictation(active *activeDictation) {
	active.cancel()
	_ = active.audio.Stop()
	_ = active.stream.Close()
	<-active.eventsDone
	<-active.audioDone
}

func (c *ConsultationController) finishDictation(active *activeDictation, state domain.SessionState, reason domain.SessionStateReason) {
	active.cancel()
	c.dropDictation(active)

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	c.events.SessionStateChanged(state, reason)
}

func (c *ConsultationController) dropDictation(active *activeDictation) {
	c.mu.Lock()
	if c.dictation == active {
		c.dictation = nil
	}
	c.mu.Unlock()
}

func (c *ConsultationController) emitState(state domain.SessionState, reason domain.SessionStateReason) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	c.events.SessionStateChanged(state, reason)
}

func joinText(existing, addition string) string {
	existing = strings.TrimSpace(existing)
	addition = strings.TrimSpace(addition)
	switch {
	case existing == "":
		return addition
	case addition == "":
		return existing
	default:
		return existing + "\n" + addition
	}
}
