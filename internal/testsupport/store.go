package testsupport

import (
	"context"
	"testing"

	"chorus/internal/config"
	"chorus/internal/interview"
)

// MustOpenStore opens an interview.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...interview.Option) *interview.Store {
	t.Helper()

	store, err := interview.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("interview.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewUpload creates a new interview row for tests using the provided store.
func NewUpload(t testing.TB, store *interview.Store, title, mediaURL, transcript string) *interview.Interview {
	t.Helper()

	iv, err := store.NewUpload(context.Background(), "acct-test", "proj-test", title, mediaURL, transcript)
	if err != nil {
		t.Fatalf("store.NewUpload: %v", err)
	}
	return iv
}
