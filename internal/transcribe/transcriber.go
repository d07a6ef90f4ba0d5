package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"chorus/internal/config"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/services"
	"chorus/internal/services/transcriber"
	"chorus/internal/stage"
)

// TranscriptionService defines the subset of provider functionality the stage uses.
type TranscriptionService interface {
	Transcribe(ctx context.Context, mediaURL string) (transcriber.Result, error)
	HealthCheck(ctx context.Context) error
}

// Transcriber turns uploaded media into a diarized transcript. Interviews
// that arrive with a transcript already attached pass through without a
// provider call.
type Transcriber struct {
	store  *interview.Store
	cfg    *config.Config
	logger *slog.Logger
	client TranscriptionService
}

// NewTranscriber creates the stage handler with the default provider client.
func NewTranscriber(cfg *config.Config, store *interview.Store, logger *slog.Logger) *Transcriber {
	client := transcriber.NewClient(transcriber.Config{
		BaseURL:             cfg.Transcription.BaseURL,
		APIKey:              cfg.Transcription.APIKey,
		Model:               cfg.Transcription.Model,
		TimeoutSeconds:      cfg.Transcription.TimeoutSeconds,
		PollIntervalSeconds: cfg.Transcription.PollIntervalSeconds,
	})
	return NewTranscriberWithClient(cfg, store, logger, client)
}

// NewTranscriberWithClient allows injecting the provider client (used in tests).
func NewTranscriberWithClient(cfg *config.Config, store *interview.Store, logger *slog.Logger, client TranscriptionService) *Transcriber {
	return &Transcriber{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "transcriber"),
		client: client,
	}
}

// Prepare initializes progress messaging and seeds the payload envelope.
func (t *Transcriber) Prepare(ctx context.Context, iv *interview.Interview) error {
	iv.SetProgress("Transcribing", "Preparing transcription", 0)

	env, err := stage.Parse(iv.PayloadJSON)
	if err != nil {
		env = stage.Envelope{}
	}
	env.AccountID = iv.AccountID
	env.ProjectID = iv.ProjectID
	env.InterviewID = iv.ID
	env.MediaURL = iv.MediaURL
	return stage.SaveEnvelope(iv, env)
}

// Execute produces the transcript, calling the provider only when the upload
// did not already carry one.
func (t *Transcriber) Execute(ctx context.Context, iv *interview.Interview) error {
	logger := logging.WithContext(ctx, t.logger)

	env, err := stage.LoadEnvelope(iv)
	if err != nil {
		return err
	}
	if err := env.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "transcribe", "validate payload", err.Error(), err)
	}

	if iv.HasTranscript() {
		logger.Info("transcript supplied at upload, skipping provider",
			logging.Int64(logging.FieldInterviewID, iv.ID))
		env.FullTranscript = iv.Transcript
		iv.SetProgress("Transcribing", "Transcript supplied at upload", 100)
		return stage.SaveEnvelope(iv, env)
	}

	if !iv.HasMedia() {
		return services.Wrap(services.ErrValidation, "transcribe", "check source",
			"Interview has neither transcript nor media", nil)
	}

	logger.Info("submitting media for transcription",
		logging.Int64(logging.FieldInterviewID, iv.ID),
		logging.String("media_url", iv.MediaURL))
	iv.SetProgress("Transcribing", "Waiting for transcription provider", 25)

	result, err := t.client.Transcribe(ctx, iv.MediaURL)
	if err != nil {
		if errors.Is(err, transcriber.ErrJobFailed) {
			return services.Wrap(services.ErrValidation, "transcribe", "provider job",
				"Transcription provider rejected the media", err)
		}
		return services.Wrap(services.ErrExternalService, "transcribe", "provider job",
			"Transcription provider call failed", err)
	}
	if strings.TrimSpace(result.Transcript) == "" {
		return services.Wrap(services.ErrExternalService, "transcribe", "provider job",
			"Provider returned an empty transcript", nil)
	}

	iv.Transcript = result.Transcript
	env.FullTranscript = result.Transcript
	env.Segments = make([]stage.Segment, 0, len(result.Segments))
	for _, seg := range result.Segments {
		env.Segments = append(env.Segments, stage.Segment{
			Speaker: seg.Speaker,
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
		})
	}
	iv.SetProgress("Transcribing", "Transcript received", 100)

	logger.Info("transcription complete",
		logging.Int64(logging.FieldInterviewID, iv.ID),
		logging.Int("segment_count", len(env.Segments)))
	return stage.SaveEnvelope(iv, env)
}

// HealthCheck verifies the provider is reachable with the configured credentials.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	if t.client == nil {
		return stage.Unhealthy("transcriber", "no provider client configured")
	}
	if err := t.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("transcriber", err.Error())
	}
	return stage.Healthy("transcriber")
}
