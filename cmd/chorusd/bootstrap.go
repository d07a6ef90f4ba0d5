package main

import (
	"log/slog"

	"chorus/internal/answers"
	"chorus/internal/config"
	"chorus/internal/evidence"
	"chorus/internal/insights"
	"chorus/internal/interview"
	"chorus/internal/themes"
	"chorus/internal/transcribe"
	"chorus/internal/workflow"
)

func registerStages(manager *workflow.Manager, cfg *config.Config, store *interview.Store, logger *slog.Logger) {
	if manager == nil || cfg == nil {
		return
	}
	manager.ConfigureStages(workflow.StageSet{
		Transcriber: transcribe.NewTranscriber(cfg, store, logger),
		Extractor:   evidence.NewExtractor(cfg, store, logger),
		Synthesizer: insights.NewSynthesizer(cfg, store, logger),
		Analyzer:    themes.NewAnalyzer(cfg, store, logger),
		Attributor:  answers.NewAttributor(cfg, store, logger),
	})
}
