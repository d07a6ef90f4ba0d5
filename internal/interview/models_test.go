package interview

import "testing"

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Uploaded "); !ok || status != StatusUploaded {
		t.Fatalf("expected uploaded to parse, got %q ok=%v", status, ok)
	}
	if _, ok := ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to fail")
	}
}

func TestTerminalAndInFlightArePartitioned(t *testing.T) {
	for _, status := range AllStatuses() {
		if IsTerminal(status) && IsInFlight(status) {
			t.Fatalf("status %s cannot be both terminal and in-flight", status)
		}
	}
	if !IsTerminal(StatusReady) || !IsTerminal(StatusError) {
		t.Fatal("ready and error must be terminal")
	}
	for _, status := range InFlightStatuses() {
		if IsTerminal(status) {
			t.Fatalf("in-flight status %s marked terminal", status)
		}
	}
	if IsInFlight(StatusTranscribed) || IsInFlight(StatusTagged) {
		t.Fatal("transcribed and tagged are hand-off markers, not in-flight work")
	}
}

func TestSetProgressClamps(t *testing.T) {
	iv := &Interview{}
	iv.SetProgress("Transcribing", "chunk 3 of 5", 140)
	if iv.ProgressPercent != 100 {
		t.Fatalf("expected clamp to 100, got %f", iv.ProgressPercent)
	}
	iv.SetProgress("Transcribing", "restart", -5)
	if iv.ProgressPercent != 0 {
		t.Fatalf("expected clamp to 0, got %f", iv.ProgressPercent)
	}
}
