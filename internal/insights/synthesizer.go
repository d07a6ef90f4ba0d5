package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"chorus/internal/config"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/services"
	"chorus/internal/services/llm"
	"chorus/internal/stage"
)

// SynthesisPrompt instructs the model to distill insights from a transcript
// and its extracted evidence.
const SynthesisPrompt = `You are a qualitative research analyst. Synthesize the key insights from the interview transcript and its evidence units.

Return JSON only, matching this schema exactly:
{
  "summary": "<two or three sentences capturing the interview>",
  "insights": [
    {
      "title": "<short insight headline>",
      "body": "<one paragraph explaining the insight>",
      "evidence_ids": ["<ids of supporting evidence units>"]
    }
  ]
}

Rules:
- Ground every insight in the supplied evidence; cite evidence ids.
- Do not invent facts absent from the transcript.
- Return {"summary": "", "insights": []} if nothing substantive emerges.`

// CompletionService defines the subset of LLM functionality the stage uses.
type CompletionService interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Synthesizer produces the interview's insight summary from the transcript
// and the persisted evidence.
type Synthesizer struct {
	store  *interview.Store
	cfg    *config.Config
	logger *slog.Logger
	client CompletionService
}

// NewSynthesizer creates the stage handler with the default LLM client.
func NewSynthesizer(cfg *config.Config, store *interview.Store, logger *slog.Logger) *Synthesizer {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return NewSynthesizerWithClient(cfg, store, logger, client)
}

// NewSynthesizerWithClient allows injecting the LLM client (used in tests).
func NewSynthesizerWithClient(cfg *config.Config, store *interview.Store, logger *slog.Logger, client CompletionService) *Synthesizer {
	return &Synthesizer{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "insight-synthesizer"),
		client: client,
	}
}

// Prepare initializes progress messaging prior to Execute.
func (s *Synthesizer) Prepare(ctx context.Context, iv *interview.Interview) error {
	iv.SetProgress("Processing", "Synthesizing insights", 40)
	return nil
}

// Execute runs insight synthesis over the transcript and evidence.
func (s *Synthesizer) Execute(ctx context.Context, iv *interview.Interview) error {
	logger := logging.WithContext(ctx, s.logger)

	env, err := stage.LoadEnvelope(iv)
	if err != nil {
		return err
	}
	if err := env.RequireEvidence(); err != nil {
		return services.Wrap(services.ErrValidation, "insights", "validate payload", err.Error(), err)
	}

	units, err := s.store.EvidenceForInterview(ctx, iv.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "insights", "load evidence",
			"Could not load evidence units", err)
	}

	content, err := s.client.CompleteJSON(ctx, SynthesisPrompt, buildSynthesisInput(env.FullTranscript, units))
	if err != nil {
		return services.Wrap(services.ErrExternalService, "insights", "llm synthesize",
			"Insight synthesis call failed", err)
	}
	var result stage.InsightResult
	if err := llm.DecodeLLMJSON(content, &result); err != nil {
		return services.Wrap(services.ErrExternalService, "insights", "decode synthesis",
			"Insight synthesis returned unparseable output", err)
	}

	env.InsightResult = &result
	iv.SetProgress("Processing", "Insights synthesized", 60)
	logger.Info("insight synthesis complete",
		logging.Int64(logging.FieldInterviewID, iv.ID),
		logging.Int("insight_count", len(result.Insights)))
	return stage.SaveEnvelope(iv, env)
}

// HealthCheck verifies the LLM is reachable with the configured credentials.
func (s *Synthesizer) HealthCheck(ctx context.Context) stage.Health {
	if s.client == nil {
		return stage.Unhealthy("insight-synthesizer", "no llm client configured")
	}
	if err := s.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("insight-synthesizer", err.Error())
	}
	return stage.Healthy("insight-synthesizer")
}

func buildSynthesisInput(transcript string, units []interview.EvidenceUnit) string {
	var b strings.Builder
	b.WriteString("TRANSCRIPT:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nEVIDENCE UNITS:\n")
	for _, unit := range units {
		entry := map[string]string{
			"id":       unit.ID,
			"kind":     unit.Kind,
			"verbatim": unit.Verbatim,
			"summary":  unit.Summary,
		}
		encoded, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%s\n", encoded)
	}
	return b.String()
}
