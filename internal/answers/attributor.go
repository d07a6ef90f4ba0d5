package answers

import (
	"context"
	"encoding/json"
	"fmt"
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

// AnswerPrompt instructs the model to map the interview's findings onto the
// research questions it answers.
const AnswerPrompt = `You are a qualitative research analyst. Determine which research questions this interview answers and who answered them.

Return JSON only, matching this schema exactly:
{
  "answers": [
    {
      "question": "<the research question, phrased neutrally>",
      "answer": "<the answer grounded in the transcript>",
      "speaker": "<speaker label exactly as it appears in the transcript>",
      "evidence_ids": ["<ids of supporting evidence units>"]
    }
  ]
}

Rules:
- Copy the speaker label character-for-character from the transcript.
- Every answer must cite at least one evidence id.
- Return {"answers": []} if the interview answers no question directly.`

// CompletionService defines the subset of LLM functionality the stage uses.
type CompletionService interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	HealthCheck(ctx context.Context) error
}

// Answer is one attributed question/answer pair in the final analysis document.
type Answer struct {
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	PersonID    string   `json:"person_id,omitempty"`
	Speaker     string   `json:"speaker,omitempty"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}

// Document is the analysis payload persisted to interviews.analysis_json when
// the pipeline completes.
type Document struct {
	AnalysisJobID string                `json:"analysis_job_id"`
	Summary       string                `json:"summary,omitempty"`
	Insights      []stage.Insight       `json:"insights,omitempty"`
	Themes        []stage.Theme         `json:"themes,omitempty"`
	Personas      []stage.Persona       `json:"personas,omitempty"`
	Answers       []Answer              `json:"answers,omitempty"`
	Evidence      *stage.EvidenceResult `json:"evidence,omitempty"`
}

// Attributor maps evidence and insights to answered research questions, with
// speaker attribution resolved through the same alias context the evidence
// stage used, and assembles the final analysis document.
type Attributor struct {
	store  *interview.Store
	cfg    *config.Config
	logger *slog.Logger
	client CompletionService
}

// NewAttributor creates the stage handler with the default LLM client.
func NewAttributor(cfg *config.Config, store *interview.Store, logger *slog.Logger) *Attributor {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return NewAttributorWithClient(cfg, store, logger, client)
}

// NewAttributorWithClient allows injecting the LLM client (used in tests).
func NewAttributorWithClient(cfg *config.Config, store *interview.Store, logger *slog.Logger, client CompletionService) *Attributor {
	return &Attributor{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "answer-attributor"),
		client: client,
	}
}

// Prepare initializes progress messaging prior to Execute.
func (a *Attributor) Prepare(ctx context.Context, iv *interview.Interview) error {
	iv.SetProgress("Processing", "Attributing answers", 80)
	return nil
}

// Execute maps findings to answered questions and writes the final analysis
// document.
func (a *Attributor) Execute(ctx context.Context, iv *interview.Interview) error {
	logger := logging.WithContext(ctx, a.logger)

	env, err := stage.LoadEnvelope(iv)
	if err != nil {
		return err
	}
	if err := env.RequireEvidence(); err != nil {
		return services.Wrap(services.ErrValidation, "answers", "validate payload", err.Error(), err)
	}
	if env.ThemeResult == nil {
		return services.Wrap(services.ErrValidation, "answers", "validate payload",
			"payload missing theme result", nil)
	}

	people, err := a.store.PeopleForInterview(ctx, iv.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "answers", "load people",
			"Could not load speaker links", err)
	}
	attributionCtx := attribution.BuildContext(people)

	content, err := a.client.CompleteJSON(ctx, AnswerPrompt, buildAnswerInput(env))
	if err != nil {
		return services.Wrap(services.ErrExternalService, "answers", "llm answers",
			"Answer attribution call failed", err)
	}
	var payload struct {
		Answers []struct {
			Question    string   `json:"question"`
			Answer      string   `json:"answer"`
			Speaker     string   `json:"speaker"`
			EvidenceIDs []string `json:"evidence_ids"`
		} `json:"answers"`
	}
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return services.Wrap(services.ErrExternalService, "answers", "decode answers",
			"Answer attribution returned unparseable output", err)
	}

	answers := make([]Answer, 0, len(payload.Answers))
	for _, entry := range payload.Answers {
		answers = append(answers, Answer{
			Question:    strings.TrimSpace(entry.Question),
			Answer:      strings.TrimSpace(entry.Answer),
			Speaker:     strings.TrimSpace(entry.Speaker),
			PersonID:    attribution.ResolvePersonID(entry.Speaker, attributionCtx, ""),
			EvidenceIDs: entry.EvidenceIDs,
		})
	}

	env.AnalysisJobID = uuid.NewString()
	doc := Document{
		AnalysisJobID: env.AnalysisJobID,
		Themes:        env.ThemeResult.Themes,
		Personas:      env.ThemeResult.Personas,
		Answers:       answers,
		Evidence:      env.EvidenceResult,
	}
	if env.InsightResult != nil {
		doc.Summary = env.InsightResult.Summary
		doc.Insights = env.InsightResult.Insights
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return services.Wrap(services.ErrValidation, "answers", "encode analysis",
			"Analysis document could not be serialized", err)
	}
	iv.AnalysisJSON = string(encoded)
	iv.SetProgress("Processing", "Answers attributed", 95)

	logger.Info("answer attribution complete",
		logging.Int64(logging.FieldInterviewID, iv.ID),
		logging.Int("answer_count", len(answers)))
	return stage.SaveEnvelope(iv, env)
}

// HealthCheck verifies the LLM is reachable with the configured credentials.
func (a *Attributor) HealthCheck(ctx context.Context) stage.Health {
	if a.client == nil {
		return stage.Unhealthy("answer-attributor", "no llm client configured")
	}
	if err := a.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("answer-attributor", err.Error())
	}
	return stage.Healthy("answer-attributor")
}

func buildAnswerInput(env stage.Envelope) string {
	var b strings.Builder
	b.WriteString("TRANSCRIPT:\n")
	b.WriteString(env.FullTranscript)
	if env.InsightResult != nil && len(env.InsightResult.Insights) > 0 {
		b.WriteString("\n\nINSIGHTS:\n")
		for _, insight := range env.InsightResult.Insights {
			encoded, err := json.Marshal(insight)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "%s\n", encoded)
		}
	}
	if env.ThemeResult != nil && len(env.ThemeResult.Themes) > 0 {
		b.WriteString("\nTHEMES:\n")
		for _, theme := range env.ThemeResult.Themes {
			encoded, err := json.Marshal(theme)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "%s\n", encoded)
		}
	}
	return b.String()
}
