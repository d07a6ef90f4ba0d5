package answers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"chorus/internal/answers"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/services"
	"chorus/internal/stage"
	"chorus/internal/testsupport"
)

type stubCompletionService struct {
	response string
	err      error
}

func (s *stubCompletionService) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.response, s.err
}

func (s *stubCompletionService) HealthCheck(ctx context.Context) error { return nil }

func seedTagged(t *testing.T, store *interview.Store) *interview.Interview {
	t.Helper()
	iv := testsupport.NewUpload(t, store, "Session", "", "SPEAKER A: we switched tools last year")
	env := stage.Envelope{
		AccountID:      iv.AccountID,
		ProjectID:      iv.ProjectID,
		InterviewID:    iv.ID,
		FullTranscript: "SPEAKER A: we switched tools last year",
		EvidenceResult: &stage.EvidenceResult{Count: 1, Attributed: 1, ParityPassed: true},
		InsightResult: &stage.InsightResult{
			Summary:  "Tool churn drove the migration.",
			Insights: []stage.Insight{{Title: "Migration trigger", Body: "Cost pushed the switch.", EvidenceIDs: []string{"ev-1"}}},
		},
		ThemeResult: &stage.ThemeResult{
			Themes: []stage.Theme{{Name: "Tool churn", EvidenceIDs: []string{"ev-1"}}},
		},
	}
	if err := stage.SaveEnvelope(iv, env); err != nil {
		t.Fatalf("SaveEnvelope failed: %v", err)
	}
	return iv
}

func TestExecuteAttributesAnswers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	iv := seedTagged(t, store)
	if err := store.AddPerson(ctx, interview.Person{
		InterviewID: iv.ID, TranscriptKey: "SPEAKER A", PersonID: "person-1", DisplayName: "Alice",
	}); err != nil {
		t.Fatalf("AddPerson failed: %v", err)
	}

	svc := &stubCompletionService{response: `{
		"answers": [{
			"question": "Why do teams migrate tools?",
			"answer": "Cost pressure triggered the switch.",
			"speaker": "speaker a",
			"evidence_ids": ["ev-1"]
		}]
	}`}
	handler := answers.NewAttributorWithClient(cfg, store, logging.NewNop(), svc)

	if err := handler.Prepare(ctx, iv); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := handler.Execute(ctx, iv); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	var doc answers.Document
	if err := json.Unmarshal([]byte(iv.AnalysisJSON), &doc); err != nil {
		t.Fatalf("decode analysis document: %v", err)
	}
	if doc.AnalysisJobID == "" {
		t.Fatal("expected analysis job id to be assigned")
	}
	if len(doc.Answers) != 1 {
		t.Fatalf("expected one answer, got %#v", doc.Answers)
	}
	if doc.Answers[0].PersonID != "person-1" {
		t.Fatalf("answer speaker did not resolve: %#v", doc.Answers[0])
	}
	if doc.Summary == "" || len(doc.Insights) != 1 || len(doc.Themes) != 1 {
		t.Fatalf("analysis document incomplete: %#v", doc)
	}

	env, err := stage.Parse(iv.PayloadJSON)
	if err != nil {
		t.Fatalf("Parse envelope failed: %v", err)
	}
	if env.AnalysisJobID != doc.AnalysisJobID {
		t.Fatalf("job id mismatch: envelope %q document %q", env.AnalysisJobID, doc.AnalysisJobID)
	}
}

func TestExecuteRequiresThemeResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "Too early", "", "transcript")
	env := stage.Envelope{
		AccountID:      iv.AccountID,
		InterviewID:    iv.ID,
		FullTranscript: "transcript",
		EvidenceResult: &stage.EvidenceResult{Count: 0, ParityPassed: true},
	}
	if err := stage.SaveEnvelope(iv, env); err != nil {
		t.Fatalf("SaveEnvelope failed: %v", err)
	}

	handler := answers.NewAttributorWithClient(cfg, store, logging.NewNop(), &stubCompletionService{})
	if err := handler.Execute(ctx, iv); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
