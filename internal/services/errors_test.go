package services_test

import (
	"errors"
	"strings"
	"testing"

	"chorus/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "evidence", "extract", "provider call failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"evidence", "extract", "provider call failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "themes", "analyze", "failed", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		marker error
		fatal  bool
	}{
		{services.ErrValidation, true},
		{services.ErrConfiguration, true},
		{services.ErrNotFound, true},
		{services.ErrTransient, false},
		{services.ErrTimeout, false},
		{services.ErrExternalService, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "stage", "op", "msg", nil)
		if got := services.IsFatal(err); got != tc.fatal {
			t.Fatalf("IsFatal(%v) = %v, want %v", tc.marker, got, tc.fatal)
		}
	}
}

func TestDetailsFromWrappedError(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	err := services.Wrap(services.ErrTransient, "transcribe", "submit", "provider unreachable", base)
	details := services.Details(err)
	if details.Kind != "transient" {
		t.Fatalf("unexpected kind %q", details.Kind)
	}
	if details.Stage != "transcribe" || details.Operation != "submit" {
		t.Fatalf("unexpected context %q/%q", details.Stage, details.Operation)
	}
	if details.Cause == nil || !errors.Is(details.Cause, base) {
		t.Fatalf("expected cause to be preserved, got %v", details.Cause)
	}
}

func TestDetailsFromPlainError(t *testing.T) {
	details := services.Details(errors.New("plain failure"))
	if details.Kind != "transient" {
		t.Fatalf("expected transient fallback, got %q", details.Kind)
	}
	if details.Message != "plain failure" {
		t.Fatalf("unexpected message %q", details.Message)
	}
}
