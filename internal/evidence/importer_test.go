package evidence_test

import (
	"context"
	"testing"

	"chorus/internal/evidence"
	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/testsupport"
)

func TestImportMatchesExtractionAttribution(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	iv := seedTranscribed(t, store, "SPEAKER A: quota exports take hours")
	if err := store.AddPerson(ctx, interview.Person{
		InterviewID: iv.ID, TranscriptKey: "SPEAKER A", PersonID: "person-1", DisplayName: "Alice",
	}); err != nil {
		t.Fatalf("AddPerson failed: %v", err)
	}

	// The extraction stage writes one unit through the pipeline path.
	svc := &stubCompletionService{response: extractionResponse(t, []map[string]string{
		{"speaker": "SPEAKER A", "kind": "pain", "verbatim": "quota exports take hours", "summary": "Slow exports"},
	})}
	extractor := evidence.NewExtractorWithClient(cfg, store, logging.NewNop(), svc)
	if err := extractor.Execute(ctx, iv); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// A researcher captures more evidence live, using a looser alias.
	importer := evidence.NewImporter(store, logging.NewNop())
	report, err := importer.Import(ctx, iv.ID, []evidence.Unit{
		{Speaker: "alice", Kind: "need", Verbatim: "wants scheduled exports", Summary: "Scheduled exports"},
		{Speaker: "somebody else", Kind: "context", Verbatim: "joined midway", Summary: "Late joiner"},
	})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !report.Passed {
		t.Fatalf("expected parity to hold across ingestion paths: %#v", report)
	}

	units, err := store.EvidenceForInterview(ctx, iv.ID)
	if err != nil {
		t.Fatalf("EvidenceForInterview failed: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("expected 3 units across both paths, got %d", len(units))
	}

	byPath := make(map[string][]interview.EvidenceUnit)
	for _, unit := range units {
		byPath[unit.SourcePath] = append(byPath[unit.SourcePath], unit)
	}
	if len(byPath[evidence.IngestPathExtraction]) != 1 || len(byPath[evidence.IngestPathImport]) != 2 {
		t.Fatalf("unexpected path split: %#v", byPath)
	}

	// Both paths resolved the same person from different aliases.
	if byPath[evidence.IngestPathExtraction][0].PersonID != "person-1" {
		t.Fatalf("extraction attribution lost: %#v", byPath[evidence.IngestPathExtraction][0])
	}
	if byPath[evidence.IngestPathImport][0].PersonID != "person-1" {
		t.Fatalf("import attribution mismatch: %#v", byPath[evidence.IngestPathImport][0])
	}
	if byPath[evidence.IngestPathImport][1].PersonID != "" {
		t.Fatalf("unknown speaker should stay unattributed: %#v", byPath[evidence.IngestPathImport][1])
	}
}

func TestImportUnknownInterview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	importer := evidence.NewImporter(store, logging.NewNop())
	if _, err := importer.Import(context.Background(), 999, []evidence.Unit{{Speaker: "A", Verbatim: "x"}}); err == nil {
		t.Fatal("expected unknown interview to error")
	}
}
