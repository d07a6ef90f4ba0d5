package attribution_test

import (
	"testing"

	"chorus/internal/attribution"
	"chorus/internal/interview"
)

func buildTestContext() *attribution.Context {
	return attribution.BuildContext([]interview.Person{
		{InterviewID: 1, TranscriptKey: "SPEAKER A", PersonID: "person-1", DisplayName: "Alice", PersonName: "Alice Chen"},
		{InterviewID: 1, TranscriptKey: "SPEAKER B", PersonID: "person-2", DisplayName: "Bob"},
	})
}

func TestResolvePersonIDAliases(t *testing.T) {
	ctx := buildTestContext()

	cases := []struct {
		name string
		key  string
		want string
	}{
		{"exact key", "SPEAKER A", "person-1"},
		{"lower case", "speaker a", "person-1"},
		{"bare suffix", "A", "person-1"},
		{"lower suffix", "a", "person-1"},
		{"display name", "Alice", "person-1"},
		{"person name", "alice chen", "person-1"},
		{"extra whitespace", "  Speaker   B ", "person-2"},
		{"second speaker suffix", "b", "person-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := attribution.ResolvePersonID(tc.key, ctx, ""); got != tc.want {
				t.Fatalf("ResolvePersonID(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestResolvePersonIDUnknownUsesFallback(t *testing.T) {
	ctx := buildTestContext()

	if got := attribution.ResolvePersonID("SPEAKER Z", ctx, ""); got != "" {
		t.Fatalf("expected unknown label to resolve empty, got %q", got)
	}
	if got := attribution.ResolvePersonID("SPEAKER Z", ctx, "person-default"); got != "person-default" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := attribution.ResolvePersonID("", ctx, "person-default"); got != "person-default" {
		t.Fatalf("expected blank key to use fallback, got %q", got)
	}
}

func TestResolvePersonIDIsPure(t *testing.T) {
	ctx := buildTestContext()
	before := ctx.Size()
	for i := 0; i < 3; i++ {
		attribution.ResolvePersonID("speaker a", ctx, "")
		attribution.ResolvePersonID("unknown", ctx, "fallback")
	}
	if ctx.Size() != before {
		t.Fatalf("expected context to be untouched by resolution, size %d -> %d", before, ctx.Size())
	}
	if got := attribution.ResolvePersonID("speaker a", ctx, ""); got != "person-1" {
		t.Fatalf("expected repeated resolution to be stable, got %q", got)
	}
}

func TestStripSpeakerPrefix(t *testing.T) {
	cases := map[string]string{
		"SPEAKER A":   "A",
		"speaker 00":  "00",
		" Speaker A ": "A",
		"Alice":       "Alice",
		"SPEAKER":     "SPEAKER",
	}
	for in, want := range cases {
		if got := attribution.StripSpeakerPrefix(in); got != want {
			t.Fatalf("StripSpeakerPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildContextSkipsInvalidRows(t *testing.T) {
	ctx := attribution.BuildContext([]interview.Person{
		{TranscriptKey: "  ", PersonID: "person-1"},
		{TranscriptKey: "SPEAKER A", PersonID: ""},
		{TranscriptKey: "SPEAKER B", PersonID: "person-2"},
	})
	if ctx.Size() != 1 {
		t.Fatalf("expected one indexed person, got %d", ctx.Size())
	}
	if ctx.KeyForPerson("person-2") != "SPEAKER B" {
		t.Fatalf("expected key for person-2, got %q", ctx.KeyForPerson("person-2"))
	}
}
