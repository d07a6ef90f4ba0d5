package evidence

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"chorus/internal/attribution"
	"chorus/internal/config"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/services"
	"chorus/internal/services/llm"
	"chorus/internal/stage"
)

// IngestPathExtraction labels evidence written by the pipeline stage.
const IngestPathExtraction = "extraction"

// CompletionService defines the subset of LLM functionality the stage uses.
type CompletionService interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Extractor pulls evidence units out of the transcript and persists each with
// its resolved person attribution. Attribution is resolved exactly once, at
// insert time.
type Extractor struct {
	store     *interview.Store
	cfg       *config.Config
	logger    *slog.Logger
	client    CompletionService
	validator *attribution.Validator
}

// NewExtractor creates the stage handler with the default LLM client.
func NewExtractor(cfg *config.Config, store *interview.Store, logger *slog.Logger) *Extractor {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return NewExtractorWithClient(cfg, store, logger, client)
}

// NewExtractorWithClient allows injecting the LLM client (used in tests).
func NewExtractorWithClient(cfg *config.Config, store *interview.Store, logger *slog.Logger, client CompletionService) *Extractor {
	return &Extractor{
		store:     store,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "evidence-extractor"),
		client:    client,
		validator: attribution.NewValidator(store, logger),
	}
}

// Prepare initializes progress messaging prior to Execute.
func (e *Extractor) Prepare(ctx context.Context, iv *interview.Interview) error {
	iv.SetProgress("Processing", "Extracting evidence", 0)
	return nil
}

type extractionPayload struct {
	Units []extractedUnit `json:"units"`
}

type extractedUnit struct {
	Speaker  string `json:"speaker"`
	Kind     string `json:"kind"`
	Verbatim string `json:"verbatim"`
	Summary  string `json:"summary"`
}

// Execute regenerates the interview's evidence. Prior evidence is deleted
// first so reprocessing never duplicates rows.
func (e *Extractor) Execute(ctx context.Context, iv *interview.Interview) error {
	logger := logging.WithContext(ctx, e.logger)

	env, err := stage.LoadEnvelope(iv)
	if err != nil {
		return err
	}
	if err := env.RequireTranscript(); err != nil {
		return services.Wrap(services.ErrValidation, "evidence", "validate payload", err.Error(), err)
	}

	people, err := e.store.PeopleForInterview(ctx, iv.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "evidence", "load people",
			"Could not load speaker links", err)
	}
	attributionCtx := attribution.BuildContext(people)

	content, err := e.client.CompleteJSON(ctx, ExtractionPrompt, env.FullTranscript)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "evidence", "llm extract",
			"Evidence extraction call failed", err)
	}
	var payload extractionPayload
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return services.Wrap(services.ErrExternalService, "evidence", "decode extraction",
			"Evidence extraction returned unparseable output", err)
	}

	units := payload.Units
	if limit := e.cfg.Analysis.MaxEvidenceUnits; limit > 0 && len(units) > limit {
		logger.Warn("truncating extracted evidence",
			logging.Int64(logging.FieldInterviewID, iv.ID),
			logging.Int("extracted", len(units)),
			logging.Int("limit", limit))
		units = units[:limit]
	}

	deleted, err := e.store.DeleteEvidenceForInterview(ctx, iv.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "evidence", "clear evidence",
			"Could not clear prior evidence", err)
	}
	if deleted > 0 {
		logger.Info("cleared prior evidence before regeneration",
			logging.Int64(logging.FieldInterviewID, iv.ID),
			logging.Int64("deleted", deleted))
	}

	attributed := 0
	for position, unit := range units {
		verbatim := strings.TrimSpace(unit.Verbatim)
		if verbatim == "" {
			continue
		}
		personID := attribution.ResolvePersonID(unit.Speaker, attributionCtx, "")
		if personID != "" {
			attributed++
		}
		if err := e.store.InsertEvidence(ctx, interview.EvidenceUnit{
			ID:          uuid.NewString(),
			InterviewID: iv.ID,
			PersonID:    personID,
			Kind:        strings.TrimSpace(unit.Kind),
			Verbatim:    verbatim,
			Summary:     strings.TrimSpace(unit.Summary),
			SourcePath:  IngestPathExtraction,
			Position:    position,
		}); err != nil {
			return services.Wrap(services.ErrTransient, "evidence", "insert evidence",
				"Could not persist evidence unit", err)
		}
	}

	report, err := e.validator.Validate(ctx, iv.ID, IngestPathExtraction)
	if err != nil {
		return services.Wrap(services.ErrTransient, "evidence", "verify parity",
			"Attribution parity check failed to run", err)
	}

	env.EvidenceResult = &stage.EvidenceResult{
		Count:        report.Evidence,
		Attributed:   attributed,
		ParityPassed: report.Passed,
	}
	iv.SetProgress("Processing", "Evidence extracted", 40)
	return stage.SaveEnvelope(iv, env)
}

// HealthCheck verifies the LLM is reachable with the configured credentials.
func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	if e.client == nil {
		return stage.Unhealthy("evidence-extractor", "no llm client configured")
	}
	if err := e.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("evidence-extractor", err.Error())
	}
	return stage.Healthy("evidence-extractor")
}
