package evidence_test

import (
	"context"
	"encoding/json"
	"testing"

	"chorus/internal/evidence"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/stage"
	"chorus/internal/testsupport"
)

type stubCompletionService struct {
	response string
	err      error
	calls    int
}

func (s *stubCompletionService) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	return s.response, s.err
}

func (s *stubCompletionService) HealthCheck(ctx context.Context) error { return nil }

func extractionResponse(t *testing.T, units []map[string]string) string {
	t.Helper()
	encoded, err := json.Marshal(map[string]any{"units": units})
	if err != nil {
		t.Fatalf("marshal stub response: %v", err)
	}
	return string(encoded)
}

func seedTranscribed(t *testing.T, store *interview.Store, transcript string) *interview.Interview {
	t.Helper()
	iv := testsupport.NewUpload(t, store, "Session", "", transcript)
	env := stage.Envelope{
		AccountID:      iv.AccountID,
		ProjectID:      iv.ProjectID,
		InterviewID:    iv.ID,
		FullTranscript: transcript,
	}
	if err := stage.SaveEnvelope(iv, env); err != nil {
		t.Fatalf("SaveEnvelope failed: %v", err)
	}
	return iv
}

func TestExecuteExtractsAndAttributes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	iv := seedTranscribed(t, store, "SPEAKER A: the sync keeps failing\nSPEAKER B: we mostly work offline")
	for _, p := range []interview.Person{
		{InterviewID: iv.ID, TranscriptKey: "SPEAKER A", PersonID: "person-1", DisplayName: "Alice"},
		{InterviewID: iv.ID, TranscriptKey: "SPEAKER B", PersonID: "person-2", DisplayName: "Bob"},
	} {
		if err := store.AddPerson(ctx, p); err != nil {
			t.Fatalf("AddPerson failed: %v", err)
		}
	}

	svc := &stubCompletionService{response: extractionResponse(t, []map[string]string{
		{"speaker": "speaker a", "kind": "pain", "verbatim": "the sync keeps failing", "summary": "Sync is unreliable"},
		{"speaker": "B", "kind": "behavior", "verbatim": "we mostly work offline", "summary": "Works offline"},
		{"speaker": "Moderator", "kind": "context", "verbatim": "session recorded remotely", "summary": "Remote session"},
	})}
	handler := evidence.NewExtractorWithClient(cfg, store, logging.NewNop(), svc)

	if err := handler.Prepare(ctx, iv); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := handler.Execute(ctx, iv); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	units, err := store.EvidenceForInterview(ctx, iv.ID)
	if err != nil {
		t.Fatalf("EvidenceForInterview failed: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected 3 evidence units, got %d", len(units))
	}
	if units[0].PersonID != "person-1" || units[1].PersonID != "person-2" {
		t.Fatalf("aliases did not resolve: %#v", units)
	}
	if units[2].PersonID != "" {
		t.Fatalf("expected unknown speaker to stay unattributed, got %q", units[2].PersonID)
	}
	if units[0].SourcePath != evidence.IngestPathExtraction {
		t.Fatalf("unexpected source path %q", units[0].SourcePath)
	}

	env, err := stage.Parse(iv.PayloadJSON)
	if err != nil {
		t.Fatalf("Parse envelope failed: %v", err)
	}
	if env.EvidenceResult == nil {
		t.Fatal("expected evidence result in envelope")
	}
	if env.EvidenceResult.Count != 3 || env.EvidenceResult.Attributed != 2 || !env.EvidenceResult.ParityPassed {
		t.Fatalf("unexpected evidence result: %#v", env.EvidenceResult)
	}
}

func TestExecuteReplacesPriorEvidence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	iv := seedTranscribed(t, store, "SPEAKER A: new take")
	if err := store.InsertEvidence(ctx, interview.EvidenceUnit{ID: "stale-ev", InterviewID: iv.ID, Verbatim: "old take"}); err != nil {
		t.Fatalf("InsertEvidence failed: %v", err)
	}

	svc := &stubCompletionService{response: extractionResponse(t, []map[string]string{
		{"speaker": "SPEAKER A", "kind": "quote", "verbatim": "new take", "summary": "New take"},
	})}
	handler := evidence.NewExtractorWithClient(cfg, store, logging.NewNop(), svc)
	if err := handler.Execute(ctx, iv); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	units, err := store.EvidenceForInterview(ctx, iv.ID)
	if err != nil {
		t.Fatalf("EvidenceForInterview failed: %v", err)
	}
	if len(units) != 1 || units[0].Verbatim != "new take" {
		t.Fatalf("expected regeneration to replace prior evidence, got %#v", units)
	}
}

func TestExecuteHonorsEvidenceLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Analysis.MaxEvidenceUnits = 2
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	iv := seedTranscribed(t, store, "SPEAKER A: one two three")
	svc := &stubCompletionService{response: extractionResponse(t, []map[string]string{
		{"speaker": "SPEAKER A", "verbatim": "one"},
		{"speaker": "SPEAKER A", "verbatim": "two"},
		{"speaker": "SPEAKER A", "verbatim": "three"},
	})}
	handler := evidence.NewExtractorWithClient(cfg, store, logging.NewNop(), svc)
	if err := handler.Execute(ctx, iv); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	units, err := store.EvidenceForInterview(ctx, iv.ID)
	if err != nil {
		t.Fatalf("EvidenceForInterview failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected limit of 2 units, got %d", len(units))
	}
}

func TestExecuteRequiresTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "No transcript yet", "s3://bucket/a.mp3", "")
	env := stage.Envelope{AccountID: iv.AccountID, InterviewID: iv.ID}
	if err := stage.SaveEnvelope(iv, env); err != nil {
		t.Fatalf("SaveEnvelope failed: %v", err)
	}

	handler := evidence.NewExtractorWithClient(cfg, store, logging.NewNop(), &stubCompletionService{})
	if err := handler.Execute(ctx, iv); err == nil {
		t.Fatal("expected missing transcript to fail validation")
	}
}
