package interview_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chorus/internal/interview"
	"chorus/internal/testsupport"
)

func TestOpenAppliesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	iv, err := store.NewUpload(ctx, "acct-1", "proj-1", "Kickoff interview", "s3://bucket/kickoff.mp3", "")
	if err != nil {
		t.Fatalf("NewUpload failed: %v", err)
	}
	if iv.ID == 0 {
		t.Fatal("expected interview ID to be assigned")
	}
	if iv.Status != interview.StatusUploaded {
		t.Fatalf("expected status uploaded, got %s", iv.Status)
	}
	if iv.CreatedAt.IsZero() || iv.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set: %#v", iv)
	}

	fetched, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Kickoff interview" {
		t.Fatalf("unexpected fetched interview: %#v", fetched)
	}
}

func TestNewUploadWithTranscriptStillEntersUploaded(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	iv, err := store.NewUpload(context.Background(), "acct-1", "proj-1", "Text only", "", "A: hello\nB: hi")
	if err != nil {
		t.Fatalf("NewUpload failed: %v", err)
	}
	if iv.Status != interview.StatusUploaded {
		t.Fatalf("expected transcript-bearing upload to enter uploaded, got %s", iv.Status)
	}
	if !iv.HasTranscript() {
		t.Fatal("expected HasTranscript to be true")
	}
}

func TestAddPersonNeverRebindsPersonID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	iv := testsupport.NewUpload(t, store, "Panel", "", "transcript")

	first := interview.Person{
		InterviewID:   iv.ID,
		TranscriptKey: "SPEAKER A",
		PersonID:      "person-1",
		DisplayName:   "Speaker A",
	}
	if err := store.AddPerson(ctx, first); err != nil {
		t.Fatalf("AddPerson failed: %v", err)
	}

	// Re-adding the same key with a different person id must keep the
	// original binding and only refresh the name fields.
	second := first
	second.PersonID = "person-2"
	second.DisplayName = "Alice"
	second.PersonName = "Alice Chen"
	if err := store.AddPerson(ctx, second); err != nil {
		t.Fatalf("AddPerson upsert failed: %v", err)
	}

	people, err := store.PeopleForInterview(ctx, iv.ID)
	if err != nil {
		t.Fatalf("PeopleForInterview failed: %v", err)
	}
	if len(people) != 1 {
		t.Fatalf("expected one person row, got %d", len(people))
	}
	if people[0].PersonID != "person-1" {
		t.Fatalf("expected person id to stay person-1, got %s", people[0].PersonID)
	}
	if people[0].DisplayName != "Alice" || people[0].PersonName != "Alice Chen" {
		t.Fatalf("expected name fields to refresh, got %#v", people[0])
	}
}

func TestInsertEvidenceProjectionsAgree(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	iv := testsupport.NewUpload(t, store, "Evidence", "", "transcript")

	units := []interview.EvidenceUnit{
		{ID: "ev-1", InterviewID: iv.ID, PersonID: "person-1", Kind: "pain", Verbatim: "it keeps crashing", Position: 0},
		{ID: "ev-2", InterviewID: iv.ID, PersonID: "person-2", Kind: "need", Verbatim: "we need exports", Position: 1},
		{ID: "ev-3", InterviewID: iv.ID, Kind: "context", Verbatim: "narrator aside", Position: 2},
	}
	for _, unit := range units {
		if err := store.InsertEvidence(ctx, unit); err != nil {
			t.Fatalf("InsertEvidence(%s) failed: %v", unit.ID, err)
		}
	}

	fromUnits, err := store.EvidencePersonsFromUnits(ctx, iv.ID)
	if err != nil {
		t.Fatalf("EvidencePersonsFromUnits failed: %v", err)
	}
	fromLinks, err := store.EvidencePersonsFromLinks(ctx, iv.ID)
	if err != nil {
		t.Fatalf("EvidencePersonsFromLinks failed: %v", err)
	}

	if len(fromUnits) != 3 || len(fromLinks) != 3 {
		t.Fatalf("expected all evidence ids in both projections, got %d and %d", len(fromUnits), len(fromLinks))
	}
	for id, unitPeople := range fromUnits {
		linkPeople, ok := fromLinks[id]
		if !ok {
			t.Fatalf("evidence %s missing from link projection", id)
		}
		if len(unitPeople) != len(linkPeople) {
			t.Fatalf("projection mismatch for %s: units=%v links=%v", id, unitPeople, linkPeople)
		}
		for i := range unitPeople {
			if unitPeople[i] != linkPeople[i] {
				t.Fatalf("projection mismatch for %s: units=%v links=%v", id, unitPeople, linkPeople)
			}
		}
	}
	if got := fromUnits["ev-3"]; len(got) != 0 {
		t.Fatalf("expected unattributed evidence to carry no people, got %v", got)
	}
}

func TestDeleteEvidenceForInterviewCascadesLinks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	iv := testsupport.NewUpload(t, store, "Reprocess", "", "transcript")
	if err := store.InsertEvidence(ctx, interview.EvidenceUnit{ID: "ev-1", InterviewID: iv.ID, PersonID: "person-1", Verbatim: "old"}); err != nil {
		t.Fatalf("InsertEvidence failed: %v", err)
	}

	deleted, err := store.DeleteEvidenceForInterview(ctx, iv.ID)
	if err != nil {
		t.Fatalf("DeleteEvidenceForInterview failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected one deleted row, got %d", deleted)
	}
	links, err := store.EvidencePersonsFromLinks(ctx, iv.ID)
	if err != nil {
		t.Fatalf("EvidencePersonsFromLinks failed: %v", err)
	}
	if len(links) != 0 {
		t.Fatalf("expected link projection to be empty after delete, got %v", links)
	}
}

func TestFindStaleBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store := testsupport.MustOpenStore(t, cfg, interview.WithClock(func() time.Time { return current }))

	ctx := context.Background()
	stale := testsupport.NewUpload(t, store, "Stale", "s3://bucket/a.mp3", "")

	current = base.Add(2 * time.Minute)
	fresh := testsupport.NewUpload(t, store, "Fresh", "s3://bucket/b.mp3", "")

	current = base.Add(3 * time.Minute)
	terminal := testsupport.NewUpload(t, store, "Done", "", "transcript")
	terminal.Status = interview.StatusReady
	if err := store.Update(ctx, terminal); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cutoff := base.Add(time.Minute)
	found, err := store.FindStale(ctx, cutoff)
	if err != nil {
		t.Fatalf("FindStale failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != stale.ID {
		t.Fatalf("expected only the stale in-flight interview, got %#v", found)
	}
	for _, iv := range found {
		if iv.ID == fresh.ID {
			t.Fatalf("fresh interview %d reported stale", fresh.ID)
		}
	}

	// A row touched exactly at the cutoff is not stale; staleness is strict.
	found, err = store.FindStale(ctx, base)
	if err != nil {
		t.Fatalf("FindStale at base failed: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected no stale rows at exact boundary, got %d", len(found))
	}
}

func TestHeartbeatDefersStaleness(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store := testsupport.MustOpenStore(t, cfg, interview.WithClock(func() time.Time { return current }))

	ctx := context.Background()
	iv := testsupport.NewUpload(t, store, "Slow but alive", "s3://bucket/slow.mp3", "")

	current = base.Add(10 * time.Minute)
	if err := store.UpdateHeartbeat(ctx, iv.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	found, err := store.FindStale(ctx, base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("FindStale failed: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("expected heartbeat to keep interview fresh, got %d stale", len(found))
	}
}

func TestBatchedRepairPartitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store := testsupport.MustOpenStore(t, cfg, interview.WithClock(func() time.Time { return current }))

	ctx := context.Background()
	var withTranscript, withoutSource []int64
	for i := 0; i < 6; i++ {
		iv := testsupport.NewUpload(t, store, fmt.Sprintf("Has transcript %d", i), "", "transcript body")
		iv.Status = interview.StatusProcessing
		if err := store.Update(ctx, iv); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		withTranscript = append(withTranscript, iv.ID)
	}
	for i := 0; i < 4; i++ {
		iv := testsupport.NewUpload(t, store, fmt.Sprintf("No source %d", i), "", "")
		iv.Status = interview.StatusTranscribing
		if err := store.Update(ctx, iv); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		withoutSource = append(withoutSource, iv.ID)
	}

	current = base.Add(30 * time.Minute)
	cutoff := base.Add(10 * time.Minute)

	completed, err := store.CompleteStaleWithTranscript(ctx, withTranscript, cutoff)
	if err != nil {
		t.Fatalf("CompleteStaleWithTranscript failed: %v", err)
	}
	if completed != 6 {
		t.Fatalf("expected 6 completions, got %d", completed)
	}
	failed, err := store.FailStaleWithoutSource(ctx, withoutSource, cutoff, "stalled with no transcript or media")
	if err != nil {
		t.Fatalf("FailStaleWithoutSource failed: %v", err)
	}
	if failed != 4 {
		t.Fatalf("expected 4 failures, got %d", failed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[interview.StatusReady] != 6 || stats[interview.StatusError] != 4 {
		t.Fatalf("unexpected stats after repair: %#v", stats)
	}

	// Repair is idempotent: rerunning over now-terminal rows touches nothing.
	completed, err = store.CompleteStaleWithTranscript(ctx, withTranscript, cutoff)
	if err != nil {
		t.Fatalf("second CompleteStaleWithTranscript failed: %v", err)
	}
	if completed != 0 {
		t.Fatalf("expected idempotent rerun to touch no rows, got %d", completed)
	}

	fixed, err := store.GetByID(ctx, withoutSource[0])
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fixed.ErrorMessage == "" {
		t.Fatal("expected failure reason to be recorded")
	}
}

func TestRepairSkipsRowsThatResumed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store := testsupport.MustOpenStore(t, cfg, interview.WithClock(func() time.Time { return current }))

	ctx := context.Background()
	iv := testsupport.NewUpload(t, store, "Resumed", "", "transcript body")
	iv.Status = interview.StatusProcessing
	if err := store.Update(ctx, iv); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// A worker heartbeat lands between detection and repair.
	current = base.Add(20 * time.Minute)
	if err := store.UpdateHeartbeat(ctx, iv.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	completed, err := store.CompleteStaleWithTranscript(ctx, []int64{iv.ID}, base.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("CompleteStaleWithTranscript failed: %v", err)
	}
	if completed != 0 {
		t.Fatalf("expected resumed row to be left alone, got %d repairs", completed)
	}

	fetched, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != interview.StatusProcessing {
		t.Fatalf("expected status to remain processing, got %s", fetched.Status)
	}
}

func TestRequeueStaleForTranscription(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store := testsupport.MustOpenStore(t, cfg, interview.WithClock(func() time.Time { return current }))

	ctx := context.Background()
	iv := testsupport.NewUpload(t, store, "Media only", "s3://bucket/media.mp3", "")
	iv.Status = interview.StatusTranscribing
	if err := store.Update(ctx, iv); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	current = base.Add(90 * time.Minute)
	requeued, err := store.RequeueStaleForTranscription(ctx, iv.ID, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("RequeueStaleForTranscription failed: %v", err)
	}
	if !requeued {
		t.Fatal("expected media-only stale interview to requeue")
	}

	fetched, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != interview.StatusUploaded {
		t.Fatalf("expected requeued status uploaded, got %s", fetched.Status)
	}

	// A second pass finds the row fresh (updated_at was just stamped).
	requeued, err = store.RequeueStaleForTranscription(ctx, iv.ID, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("second RequeueStaleForTranscription failed: %v", err)
	}
	if requeued {
		t.Fatal("expected second requeue to be a no-op")
	}
}

func TestHealthSummaryBuckets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	statuses := []interview.Status{
		interview.StatusUploaded,
		interview.StatusTranscribing,
		interview.StatusTranscribed,
		interview.StatusReady,
		interview.StatusError,
	}
	for i, status := range statuses {
		iv := testsupport.NewUpload(t, store, fmt.Sprintf("Interview %d", i), "s3://bucket/x.mp3", "")
		iv.Status = status
		if err := store.Update(ctx, iv); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 5 || health.InFlight != 2 || health.Transcribed != 1 || health.Ready != 1 || health.Error != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}
