package themes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"chorus/internal/attribution"
	"chorus/internal/config"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/services"
	"chorus/internal/services/llm"
	"chorus/internal/stage"
)

// ThemePrompt instructs the model to tag cross-cutting themes over the
// interview's evidence.
const ThemePrompt = `You are a qualitative research analyst. Identify the recurring themes across the interview's evidence units.

Return JSON only, matching this schema exactly:
{
  "themes": [
    {
      "name": "<short theme name>",
      "description": "<one sentence describing the theme>",
      "evidence_ids": ["<ids of evidence units under this theme>"]
    }
  ]
}

Rules:
- Every theme must reference at least one evidence id.
- Prefer fewer, stronger themes over many weak ones.
- Return {"themes": []} if no theme spans more than one evidence unit.`

// PersonaPrompt instructs the model to sketch speaker personas. It runs only
// when persona analysis is enabled.
const PersonaPrompt = `You are a qualitative research analyst. Sketch a persona for each distinct speaker in the transcript, grounded in what they actually said.

Return JSON only, matching this schema exactly:
{
  "personas": [
    {
      "name": "<persona archetype name>",
      "description": "<two sentences grounded in the speaker's statements>",
      "speaker": "<speaker label exactly as it appears in the transcript>"
    }
  ]
}

Rules:
- One persona per distinct speaker, interviewers excluded.
- Never invent traits the transcript does not support.
- Return {"personas": []} if no speaker says enough to characterize.`

// CompletionService defines the subset of LLM functionality the stage uses.
type CompletionService interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Analyzer tags themes across the interview's evidence and, when enabled,
// sketches speaker personas. A disabled persona flag yields an explicit empty
// persona result, never an error.
type Analyzer struct {
	store  *interview.Store
	cfg    *config.Config
	logger *slog.Logger
	client CompletionService
}

// NewAnalyzer creates the stage handler with the default LLM client.
func NewAnalyzer(cfg *config.Config, store *interview.Store, logger *slog.Logger) *Analyzer {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return NewAnalyzerWithClient(cfg, store, logger, client)
}

// NewAnalyzerWithClient allows injecting the LLM client (used in tests).
func NewAnalyzerWithClient(cfg *config.Config, store *interview.Store, logger *slog.Logger, client CompletionService) *Analyzer {
	return &Analyzer{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "theme-analyzer"),
		client: client,
	}
}

// Prepare initializes progress messaging prior to Execute.
func (a *Analyzer) Prepare(ctx context.Context, iv *interview.Interview) error {
	iv.SetProgress("Processing", "Analyzing themes", 60)
	return nil
}

// Execute tags themes and optionally personas, then records the tagged marker.
func (a *Analyzer) Execute(ctx context.Context, iv *interview.Interview) error {
	logger := logging.WithContext(ctx, a.logger)

	env, err := stage.LoadEnvelope(iv)
	if err != nil {
		return err
	}
	if err := env.RequireEvidence(); err != nil {
		return services.Wrap(services.ErrValidation, "themes", "validate payload", err.Error(), err)
	}

	units, err := a.store.EvidenceForInterview(ctx, iv.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "themes", "load evidence",
			"Could not load evidence units", err)
	}

	result := stage.ThemeResult{PersonaEnabled: a.cfg.Analysis.PersonaEnabled}

	content, err := a.client.CompleteJSON(ctx, ThemePrompt, buildThemeInput(units))
	if err != nil {
		return services.Wrap(services.ErrExternalService, "themes", "llm themes",
			"Theme analysis call failed", err)
	}
	var themePayload struct {
		Themes []stage.Theme `json:"themes"`
	}
	if err := llm.DecodeLLMJSON(content, &themePayload); err != nil {
		return services.Wrap(services.ErrExternalService, "themes", "decode themes",
			"Theme analysis returned unparseable output", err)
	}
	result.Themes = themePayload.Themes

	if a.cfg.Analysis.PersonaEnabled {
		personas, err := a.analyzePersonas(ctx, iv, env.FullTranscript)
		if err != nil {
			return err
		}
		result.Personas = personas
	} else {
		logger.Info("persona analysis disabled",
			logging.Int64(logging.FieldInterviewID, iv.ID))
	}

	env.ThemeResult = &result
	iv.SetProgress("Tagged", "Themes tagged", 80)
	logger.Info("theme analysis complete",
		logging.Int64(logging.FieldInterviewID, iv.ID),
		logging.Int("theme_count", len(result.Themes)),
		logging.Int("persona_count", len(result.Personas)))
	return stage.SaveEnvelope(iv, env)
}

func (a *Analyzer) analyzePersonas(ctx context.Context, iv *interview.Interview, transcript string) ([]stage.Persona, error) {
	content, err := a.client.CompleteJSON(ctx, PersonaPrompt, transcript)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "themes", "llm personas",
			"Persona analysis call failed", err)
	}
	var payload struct {
		Personas []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Speaker     string `json:"speaker"`
		} `json:"personas"`
	}
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "themes", "decode personas",
			"Persona analysis returned unparseable output", err)
	}

	people, err := a.store.PeopleForInterview(ctx, iv.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "themes", "load people",
			"Could not load speaker links", err)
	}
	attributionCtx := attribution.BuildContext(people)

	personas := make([]stage.Persona, 0, len(payload.Personas))
	for _, p := range payload.Personas {
		personas = append(personas, stage.Persona{
			Name:        strings.TrimSpace(p.Name),
			Description: strings.TrimSpace(p.Description),
			PersonID:    attribution.ResolvePersonID(p.Speaker, attributionCtx, ""),
		})
	}
	return personas, nil
}

// HealthCheck verifies the LLM is reachable with the configured credentials.
func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	if a.client == nil {
		return stage.Unhealthy("theme-analyzer", "no llm client configured")
	}
	if err := a.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("theme-analyzer", err.Error())
	}
	return stage.Healthy("theme-analyzer")
}

func buildThemeInput(units []interview.EvidenceUnit) string {
	var b strings.Builder
	b.WriteString("EVIDENCE UNITS:\n")
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
