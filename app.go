package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"herelaw/internal/bootstrap"
	"herelaw/internal/config"
	"herelaw/internal/domain"
	"herelaw/internal/export"
	"herelaw/internal/logger"
	"herelaw/internal/providers/herelaw"
	"herelaw/internal/usecase"
)

const (
	eventSession    = "herelaw:session"
	eventInterim    = "herelaw:interim"
	eventTranscript = "herelaw:transcript"
	eventComplaint  = "herelaw:complaint"
	eventError      = "herelaw:error"
	eventLogout     = "herelaw:logout"
)

const startupProbeWindow = 30 * time.Second

// App is the Wails application root. It forwards bound calls to the
// consultation controller and relays its events to the frontend.
type App struct {
	ctx context.Context
	log *logger.Logger

	controller *usecase.ConsultationController
	backend    *herelaw.Client
	exporter   *export.Exporter
	cfg        config.Config
	bootErr    error
}

func NewApp(log *logger.Logger) *App {
	return &App{log: log}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{}, a.log)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.backend = services.Backend
	a.exporter = services.Exporter

	a.controller.RestoreSession()

	// Probe the backend in the background so a slow server start does
	// not block the window from appearing.
	go func() {
		if err := a.backend.WaitReady(ctx, startupProbeWindow); err != nil {
			a.SessionError(domain.ErrorCodeStartup, fmt.Sprintf("backend unreachable: %v", err))
		}
	}()

	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

// Login authenticates against the backend.
func (a *App) Login(username, password string) (domain.AuthResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.AuthResult{}, err
	}
	return a.controller.Login(a.ctx, username, password)
}

// Register creates an account and logs the user in.
func (a *App) Register(username, password, email string) (domain.AuthResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.AuthResult{}, err
	}
	return a.controller.Register(a.ctx, username, password, email)
}

// Logout discards the token and all local session state.
func (a *App) Logout() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Logout()
	return nil
}

// GetSavedUser reports who is logged in from the stored credentials.
// The token itself never crosses into the frontend.
func (a *App) GetSavedUser() map[string]string {
	if a.controller == nil {
		return map[string]string{}
	}
	saved := a.controller.RestoreSession()
	if saved.Token == "" {
		return map[string]string{}
	}
	return map[string]string{
		"username":      saved.Username,
		"lastSessionId": saved.LastSessionID,
	}
}

// StartDictation begins streaming dictation.
func (a *App) StartDictation() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.StartDictation(a.ctx); err != nil {
		if errors.Is(err, usecase.ErrDictationActive) {
			a.SessionError(domain.ErrorCodeAudioStream, "a dictation is already running; stop it first")
		}
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// StopDictation ends dictation and returns the settled transcript.
func (a *App) StopDictation() (domain.DictationResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.DictationResult{}, err
	}
	return a.controller.StopDictation(a.ctx)
}

// AbortDictation discards an in-progress dictation.
func (a *App) AbortDictation() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.AbortDictation(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveDictation) {
			return nil
		}
		return err
	}
	return nil
}

// SetConsultationText syncs the consultation text edited in the UI.
func (a *App) SetConsultationText(text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.SetConsultationText(text)
	return nil
}

// UploadAudio submits a finished recording for batch transcription.
func (a *App) UploadAudio(mimeType string, data []byte) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	artifact := domain.AudioArtifact{
		ID:       uuid.NewString(),
		MIMEType: mimeType,
		Data:     data,
	}
	return a.controller.TranscribeArtifact(a.ctx, artifact)
}

// GenerateComplaint asks the backend to draft a complaint.
func (a *App) GenerateComplaint(consultation string) (domain.GenerateResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.GenerateResult{}, err
	}
	return a.controller.Generate(a.ctx, consultation)
}

// BeginEdit switches to edit mode and returns the text to edit.
func (a *App) BeginEdit() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	return a.controller.BeginEdit()
}

// CancelEdit leaves edit mode without saving.
func (a *App) CancelEdit() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.CancelEdit()
	return nil
}

// SaveComplaint submits the edited complaint text.
func (a *App) SaveComplaint(edited string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.SaveComplaint(a.ctx, edited)
}

// RateSession submits a star rating for the current session.
func (a *App) RateSession(rating int, feedback string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.Rate(a.ctx, rating, feedback)
}

// GetSessions lists the user's saved sessions.
func (a *App) GetSessions() ([]domain.SessionRecord, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	return a.controller.Sessions(a.ctx)
}

// LoadSession makes a saved session the current one.
func (a *App) LoadSession(sessionID string) (domain.SessionRecord, error) {
	if err := a.requireReady(); err != nil {
		return domain.SessionRecord{}, err
	}
	return a.controller.LoadSession(a.ctx, sessionID)
}

// ResumeLastSession reloads the most recently touched session, if any.
func (a *App) ResumeLastSession() (domain.SessionRecord, error) {
	if err := a.requireReady(); err != nil {
		return domain.SessionRecord{}, err
	}
	return a.controller.ResumeLastSession(a.ctx)
}

// CopyComplaint puts the complaint on the system clipboard.
func (a *App) CopyComplaint() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.CopyComplaint(a.ctx)
}

// ExportSessions writes the session history to an xlsx workbook and
// returns its path.
func (a *App) ExportSessions() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	records, err := a.controller.Sessions(a.ctx)
	if err != nil {
		return "", err
	}
	path, err := a.exporter.SessionsWorkbook(records)
	if err != nil {
		a.SessionError(domain.ErrorCodeExport, err.Error())
		return "", err
	}
	return path, nil
}

// ExportComplaint writes the current complaint to a text document and
// returns its path.
func (a *App) ExportComplaint() (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	complaint, sessionID := a.controller.Complaint()
	path, err := a.exporter.ComplaintDocument(sessionID, complaint)
	if err != nil {
		a.SessionError(domain.ErrorCodeExport, err.Error())
		return "", err
	}
	return path, nil
}

// ResetSession abandons the current consultation.
func (a *App) ResetSession() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.controller.Reset()
	return nil
}

// GetStatus returns the current controller status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"backend":          a.cfg.Backend.BaseURL,
		"rulesFile":        a.cfg.Rules.Path,
		"exportDir":        a.cfg.Store.ExportDir,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// InterimTranscript emits live provisional transcript text.
func (a *App) InterimTranscript(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventInterim, map[string]string{"text": text})
}

// TranscriptChanged emits the settled consultation text.
func (a *App) TranscriptChanged(text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTranscript, map[string]string{"text": text})
}

// ComplaintChanged emits the canonical complaint and its session id.
func (a *App) ComplaintChanged(text string, sessionID string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventComplaint, map[string]string{
		"text":      text,
		"sessionId": sessionID,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// LoggedOut tells the frontend to return to the login screen.
func (a *App) LoggedOut(reason string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventLogout, map[string]string{
		"reason":  reason,
		"message": logoutMessage(reason),
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "Ready"
	case domain.SessionReasonDictationStarted:
		return "Dictation started"
	case domain.SessionReasonTranscribing:
		return "Dictation stopped. Transcribing..."
	case domain.SessionReasonTranscriptReady:
		return "Transcript ready"
	case domain.SessionReasonDictationDiscarded:
		return "Dictation discarded"
	case domain.SessionReasonNoTranscript:
		return "No speech was transcribed"
	case domain.SessionReasonTranscriptionFailed:
		return "Transcription failed"
	case domain.SessionReasonGenerationStarted:
		return "Generating complaint..."
	case domain.SessionReasonComplaintReady:
		return "Complaint ready"
	case domain.SessionReasonGenerationFailed:
		return "Complaint generation failed"
	case domain.SessionReasonComplaintSaved:
		return "Complaint saved"
	case domain.SessionReasonRatingRecorded:
		return "Thanks for rating this session"
	case domain.SessionReasonSessionLoaded:
		return "Session loaded"
	case domain.SessionReasonSessionReset:
		return "Session reset"
	case domain.SessionReasonLoggedOut:
		return "Logged out"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAuth:
		return "Authentication failed"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeTranscription:
		return "Transcription error"
	case domain.ErrorCodeGeneration:
		return "Complaint generation failed"
	case domain.ErrorCodeSave:
		return "Saving the complaint failed"
	case domain.ErrorCodeRating:
		return "Submitting the rating failed"
	case domain.ErrorCodeHistory:
		return "Loading session history failed"
	case domain.ErrorCodeExport:
		return "Export failed"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

func logoutMessage(reason string) string {
	if reason == domain.LogoutReasonExpired {
		return "Your session expired. Please log in again."
	}
	return "Logged out"
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
