package bootstrap

import (
	"herelaw/internal/audio"
	"herelaw/internal/config"
	"herelaw/internal/export"
	"herelaw/internal/logger"
	"herelaw/internal/ports"
	"herelaw/internal/providers/herelaw"
	"herelaw/internal/rules"
	"herelaw/internal/store"
	"herelaw/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.ConsultationController
	Backend    *herelaw.Client
	Exporter   *export.Exporter
	Config     config.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard, log *logger.Logger) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	credentials, err := store.NewCredentialFile(cfg.Store.CredentialsPath)
	if err != nil {
		return Services{}, err
	}

	backend := herelaw.NewClient(herelaw.Config{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout,
		UploadTimeout:  cfg.Backend.UploadTimeout,
	}, log.WithComponent("backend"))

	controller := usecase.NewConsultationController(
		backend,
		backend,
		audio.NewFFmpegCapture(cfg.Audio.RecorderCommand),
		rulesEngine,
		clipboard,
		credentials,
		eventSink,
		log.WithComponent("controller"),
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Stream: ports.StreamConfig{
				SampleRate: cfg.Audio.SampleRate,
				Channels:   cfg.Audio.Channels,
				Encoding:   "linear16",
			},
			ChunkSize:      cfg.Session.ChunkSize,
			StreamingGrace: cfg.Session.StreamingGrace,
		},
	)

	exporter := export.NewExporter(cfg.Store.ExportDir, log.WithComponent("export"))

	return Services{
		Controller: controller,
		Backend:    backend,
		Exporter:   exporter,
		Config:     cfg,
	}, nil
}
