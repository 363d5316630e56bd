package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(func() { Set(zap.NewNop()) })

	if err := Init("debug"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if !Logger().Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected logger to enable debug level")
	}
}

func TestInitFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { Set(zap.NewNop()) })

	if err := Init("loud"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if Logger().Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug to be disabled")
	}
	if !Logger().Core().Enabled(zap.InfoLevel) {
		t.Fatal("expected info to be enabled")
	}
}

func TestHelpersEmitStructuredDetails(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(func() { Set(zap.NewNop()) })
	Set(zap.New(core))

	Info("asset_uploaded", map[string]interface{}{"asset_id": "a1"})
	Warn("probe_skipped", nil)
	Error("payload_release_failed", errors.New("boom"), map[string]interface{}{"path": "uploads/x"})

	entries := recorded.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "asset_uploaded" {
		t.Fatalf("unexpected message %q", entries[0].Message)
	}
	if got := entries[0].ContextMap()["asset_id"]; got != "a1" {
		t.Fatalf("expected asset_id field, got %v", got)
	}
	errCtx := entries[2].ContextMap()
	if errCtx["error"] != "boom" {
		t.Fatalf("expected error field, got %v", errCtx["error"])
	}
	if errCtx["path"] != "uploads/x" {
		t.Fatalf("expected path field, got %v", errCtx["path"])
	}
}

func TestRedactSensitiveFields(t *testing.T) {
	m := map[string]interface{}{"secretKey": "abc", "name": "n"}
	redactSensitiveFields(m)
	if m["secretKey"] != "[REDACTED]" {
		t.Fatalf("expected redaction, got %v", m["secretKey"])
	}
	if m["name"] != "n" {
		t.Fatalf("unexpected change to name: %v", m["name"])
	}
}
