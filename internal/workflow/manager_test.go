package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chorus/internal/interview"
	"chorus/internal/logging"
	"chorus/internal/services"
	"chorus/internal/stage"
	"chorus/internal/testsupport"
)

type scriptedHandler struct {
	name    string
	prepare func(ctx context.Context, iv *interview.Interview) error
	execute func(ctx context.Context, iv *interview.Interview) error
}

func (h *scriptedHandler) Prepare(ctx context.Context, iv *interview.Interview) error {
	if h.prepare == nil {
		return nil
	}
	return h.prepare(ctx, iv)
}

func (h *scriptedHandler) Execute(ctx context.Context, iv *interview.Interview) error {
	if h.execute == nil {
		return nil
	}
	return h.execute(ctx, iv)
}

func (h *scriptedHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(h.name)
}

type recordingNotifier struct {
	mu     sync.Mutex
	ready  []string
	failed []string
}

func (r *recordingNotifier) NotifyInterviewReady(_ context.Context, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = append(r.ready, title)
	return nil
}

func (r *recordingNotifier) NotifyInterviewFailed(_ context.Context, title, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, title)
	return nil
}

func (r *recordingNotifier) NotifyRepairCompleted(context.Context, int, int, int) error { return nil }
func (r *recordingNotifier) NotifyError(context.Context, error, string) error           { return nil }
func (r *recordingNotifier) TestNotification(context.Context) error                     { return nil }

func (r *recordingNotifier) readyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ready)
}

func (r *recordingNotifier) failedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed)
}

func newTestManager(t *testing.T, set StageSet) (*Manager, *interview.Store, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	mgr := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.retry = retryPolicy{maxAttempts: 3, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond}
	mgr.ConfigureStages(set)
	return mgr, store, notifier
}

func passthroughAnalysis() StageSet {
	return StageSet{
		Extractor:   &scriptedHandler{name: "extractor"},
		Synthesizer: &scriptedHandler{name: "synthesizer"},
		Analyzer:    &scriptedHandler{name: "analyzer"},
		Attributor:  &scriptedHandler{name: "attributor"},
	}
}

func TestProcessInterviewRunsTranscribeStage(t *testing.T) {
	set := passthroughAnalysis()
	set.Transcriber = &scriptedHandler{
		name: "transcriber",
		execute: func(_ context.Context, iv *interview.Interview) error {
			iv.Transcript = "SPEAKER A: hello"
			iv.SetProgress("Transcribed", "Transcript ready", 100)
			return nil
		},
	}
	mgr, store, _ := newTestManager(t, set)
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "Kickoff", "https://media.example/kickoff.mp3", "")
	if err := mgr.processInterview(ctx, logging.NewNop(), iv); err != nil {
		t.Fatalf("processInterview failed: %v", err)
	}

	stored, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != interview.StatusTranscribed {
		t.Fatalf("expected transcribed, got %s", stored.Status)
	}
	if stored.Transcript == "" {
		t.Fatal("expected transcript to be persisted")
	}
	if stored.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared after stage completion")
	}
}

func TestProcessInterviewChainsAnalysisToReady(t *testing.T) {
	var order []string
	record := func(name string) *scriptedHandler {
		return &scriptedHandler{
			name: name,
			execute: func(context.Context, *interview.Interview) error {
				order = append(order, name)
				return nil
			},
		}
	}
	set := StageSet{
		Extractor:   record("extractor"),
		Synthesizer: record("synthesizer"),
		Analyzer:    record("analyzer"),
		Attributor:  record("attributor"),
	}
	mgr, store, notifier := newTestManager(t, set)
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "Kickoff", "", "SPEAKER A: hello")
	iv.Status = interview.StatusTranscribed
	if err := store.Update(ctx, iv); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := mgr.processInterview(ctx, logging.NewNop(), iv); err != nil {
		t.Fatalf("processInterview failed: %v", err)
	}

	want := []string{"extractor", "synthesizer", "analyzer", "attributor"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}

	stored, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != interview.StatusReady {
		t.Fatalf("expected ready, got %s", stored.Status)
	}
	if stored.ProgressPercent != 100 {
		t.Fatalf("expected progress 100, got %v", stored.ProgressPercent)
	}
	if notifier.readyCount() != 1 {
		t.Fatalf("expected one ready notification, got %d", notifier.readyCount())
	}
}

func TestAnalyzerPersistsTaggedHandoff(t *testing.T) {
	set := passthroughAnalysis()
	var seenByAttributor interview.Status
	attributor := set.Attributor.(*scriptedHandler)
	mgr, store, _ := newTestManager(t, set)
	attributor.execute = func(ctx context.Context, iv *interview.Interview) error {
		stored, err := store.GetByID(ctx, iv.ID)
		if err != nil {
			return err
		}
		seenByAttributor = stored.Status
		return nil
	}
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "Marked", "", "SPEAKER A: hello")
	iv.Status = interview.StatusTranscribed
	if err := store.Update(ctx, iv); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := mgr.processInterview(ctx, logging.NewNop(), iv); err != nil {
		t.Fatalf("processInterview failed: %v", err)
	}
	if seenByAttributor != interview.StatusTagged {
		t.Fatalf("expected tagged persisted before answer attribution, got %s", seenByAttributor)
	}

	stored, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != interview.StatusReady {
		t.Fatalf("expected ready after full chain, got %s", stored.Status)
	}
}

func TestTaggedInterviewReentersProcessor(t *testing.T) {
	var calls int
	set := passthroughAnalysis()
	set.Extractor = &scriptedHandler{
		name: "extractor",
		execute: func(context.Context, *interview.Interview) error {
			calls++
			return nil
		},
	}
	mgr, store, _ := newTestManager(t, set)
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "Resumed", "", "SPEAKER A: hello")
	iv.Status = interview.StatusTagged
	if err := store.Update(ctx, iv); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := mgr.processInterview(ctx, logging.NewNop(), iv); err != nil {
		t.Fatalf("processInterview failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected extractor to rerun once, got %d", calls)
	}

	stored, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != interview.StatusReady {
		t.Fatalf("expected ready after re-entry, got %s", stored.Status)
	}
}

func TestFatalFailureLandsInErrorStatus(t *testing.T) {
	var attempts int
	set := passthroughAnalysis()
	set.Transcriber = &scriptedHandler{
		name: "transcriber",
		execute: func(context.Context, *interview.Interview) error {
			attempts++
			return services.Wrap(services.ErrValidation, "transcriber", "execute", "no media or transcript", nil)
		},
	}
	mgr, store, notifier := newTestManager(t, set)
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "Broken", "https://media.example/broken.mp3", "")
	if err := mgr.processInterview(ctx, logging.NewNop(), iv); err == nil {
		t.Fatal("expected stage failure to propagate")
	}

	if attempts != 1 {
		t.Fatalf("validation failures must not retry, got %d attempts", attempts)
	}
	stored, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != interview.StatusError {
		t.Fatalf("expected error status, got %s", stored.Status)
	}
	if stored.ErrorMessage == "" {
		t.Fatal("expected failure reason to be recorded")
	}
	if notifier.failedCount() != 1 {
		t.Fatalf("expected one failure notification, got %d", notifier.failedCount())
	}
}

func TestTransientFailureRetriesThenSucceeds(t *testing.T) {
	var attempts int
	set := passthroughAnalysis()
	set.Transcriber = &scriptedHandler{
		name: "transcriber",
		execute: func(_ context.Context, iv *interview.Interview) error {
			attempts++
			if attempts < 3 {
				return services.Wrap(services.ErrExternalService, "transcriber", "submit", "upstream 502", errors.New("bad gateway"))
			}
			iv.Transcript = "SPEAKER A: finally"
			return nil
		},
	}
	mgr, store, _ := newTestManager(t, set)
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "Flaky", "https://media.example/flaky.mp3", "")
	if err := mgr.processInterview(ctx, logging.NewNop(), iv); err != nil {
		t.Fatalf("processInterview failed: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected three attempts, got %d", attempts)
	}

	stored, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != interview.StatusTranscribed {
		t.Fatalf("expected transcribed after retry, got %s", stored.Status)
	}
}

func TestExhaustedRetriesLandInErrorStatus(t *testing.T) {
	var attempts int
	set := passthroughAnalysis()
	set.Transcriber = &scriptedHandler{
		name: "transcriber",
		execute: func(context.Context, *interview.Interview) error {
			attempts++
			return services.Wrap(services.ErrExternalService, "transcriber", "submit", "upstream down", errors.New("connection refused"))
		},
	}
	mgr, store, _ := newTestManager(t, set)
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "Down", "https://media.example/down.mp3", "")
	if err := mgr.processInterview(ctx, logging.NewNop(), iv); err == nil {
		t.Fatal("expected exhausted retries to propagate")
	}
	if attempts != 3 {
		t.Fatalf("expected attempt budget of three, got %d", attempts)
	}

	stored, err := store.GetByID(ctx, iv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != interview.StatusError {
		t.Fatalf("expected error status after exhausted retries, got %s", stored.Status)
	}
}

func TestStartRunsPipelineEndToEnd(t *testing.T) {
	set := passthroughAnalysis()
	set.Transcriber = &scriptedHandler{
		name: "transcriber",
		execute: func(_ context.Context, iv *interview.Interview) error {
			iv.Transcript = "SPEAKER A: hello"
			return nil
		},
	}
	mgr, store, notifier := newTestManager(t, set)
	ctx := context.Background()

	iv := testsupport.NewUpload(t, store, "EndToEnd", "https://media.example/e2e.mp3", "")
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer mgr.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for {
		stored, err := store.GetByID(ctx, iv.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if stored.Status == interview.StatusReady {
			break
		}
		if stored.Status == interview.StatusError {
			t.Fatalf("pipeline failed: %s", stored.ErrorMessage)
		}
		if time.Now().After(deadline) {
			t.Fatalf("interview never reached ready, stuck at %s", stored.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if notifier.readyCount() != 1 {
		t.Fatalf("expected one ready notification, got %d", notifier.readyCount())
	}

	summary := mgr.Status(ctx)
	if !summary.Running {
		t.Fatal("expected manager to report running")
	}
	if summary.StageHealth["transcriber"].Ready != true {
		t.Fatalf("expected transcriber healthy, got %#v", summary.StageHealth)
	}
}

func TestStartRequiresConfiguredStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail without stages")
	}
}
