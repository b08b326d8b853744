package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := &Logger{SugaredLogger: zap.New(core).Sugar()}

	log.With("component", "aggregator").Warn("skipping orphaned lesson progress", "lesson_id", "l9")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "aggregator" || fields["lesson_id"] != "l9" {
		t.Fatalf("unexpected fields %+v", fields)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "production"} {
		log, err := New(mode)
		if err != nil {
			t.Fatalf("new %s: %v", mode, err)
		}
		log.Info("hello", "mode", mode)
	}
}
