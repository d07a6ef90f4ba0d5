package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"chorus/internal/interview"
	"chorus/internal/testsupport"
)

func seedStale(t *testing.T, store *interview.Store, title, mediaURL, transcript string, status interview.Status) *interview.Interview {
	t.Helper()
	iv := testsupport.NewUpload(t, store, title, mediaURL, transcript)
	iv.Status = status
	if err := store.Update(context.Background(), iv); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	// Thresholds are zero in these tests; let updated_at fall behind the cutoff.
	time.Sleep(5 * time.Millisecond)
	return iv
}

func TestRunStatusJSONListsStuckInterviews(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStaleThresholds(0, 0))
	store := testsupport.MustOpenStore(t, cfg)
	seedStale(t, store, "Stuck", "", "SPEAKER A: done", interview.StatusProcessing)

	var buf bytes.Buffer
	if err := runStatus(context.Background(), cfg, store, &buf, true); err != nil {
		t.Fatalf("runStatus failed: %v", err)
	}

	var payload statusPayload
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode status payload: %v", err)
	}
	if payload.Stats["processing"] != 1 {
		t.Fatalf("unexpected stats %#v", payload.Stats)
	}
	if len(payload.StuckInterviews) != 1 || payload.StuckInterviews[0].Title != "Stuck" {
		t.Fatalf("unexpected stuck list %#v", payload.StuckInterviews)
	}
	if payload.Health.InFlight != 1 || payload.Health.Total != 1 {
		t.Fatalf("unexpected health summary %#v", payload.Health)
	}
}

func TestRunStatusTableMentionsRepairHint(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStaleThresholds(0, 0))
	store := testsupport.MustOpenStore(t, cfg)
	seedStale(t, store, "Stuck", "https://media.example/a.mp3", "", interview.StatusTranscribing)

	var buf bytes.Buffer
	if err := runStatus(context.Background(), cfg, store, &buf, false); err != nil {
		t.Fatalf("runStatus failed: %v", err)
	}
	if !strings.Contains(buf.String(), "chorus repair --all") {
		t.Fatalf("expected repair hint in output, got:\n%s", buf.String())
	}
}

func TestRunRepairAllDryRunChangesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStaleThresholds(0, 0))
	store := testsupport.MustOpenStore(t, cfg)
	iv := seedStale(t, store, "Stuck", "", "SPEAKER A: done", interview.StatusProcessing)

	var buf bytes.Buffer
	if err := runRepairAll(context.Background(), cfg, store, &buf, true); err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if !strings.Contains(buf.String(), "planned action complete") {
		t.Fatalf("expected planned action in output, got:\n%s", buf.String())
	}

	stored, err := store.GetByID(context.Background(), iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != interview.StatusProcessing {
		t.Fatalf("dry run mutated the interview: %s", stored.Status)
	}
}

func TestRunRepairAllAppliesRepairs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStaleThresholds(0, 0))
	store := testsupport.MustOpenStore(t, cfg)
	done := seedStale(t, store, "Done", "", "SPEAKER A: done", interview.StatusProcessing)
	dead := seedStale(t, store, "Dead", "", "", interview.StatusUploading)

	var buf bytes.Buffer
	if err := runRepairAll(context.Background(), cfg, store, &buf, false); err != nil {
		t.Fatalf("runRepairAll failed: %v", err)
	}
	if !strings.Contains(buf.String(), "repaired 2 stuck interview(s)") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}

	checks := map[int64]interview.Status{
		done.ID: interview.StatusReady,
		dead.ID: interview.StatusError,
	}
	for id, want := range checks {
		stored, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if stored.Status != want {
			t.Fatalf("interview %d: expected %s, got %s", id, want, stored.Status)
		}
	}
}

func TestRunRepairOneNotStuck(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStaleThresholds(60, 120))
	store := testsupport.MustOpenStore(t, cfg)
	iv := testsupport.NewUpload(t, store, "Fresh", "https://media.example/a.mp3", "")

	var buf bytes.Buffer
	if err := runRepairOne(context.Background(), cfg, store, &buf, iv.ID, false); err != nil {
		t.Fatalf("runRepairOne failed: %v", err)
	}
	if !strings.Contains(buf.String(), "not stuck") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}
