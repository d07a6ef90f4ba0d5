package workflow

import (
	"chorus/internal/interview"
	"chorus/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Transcriber stage.Handler
	Extractor   stage.Handler
	Synthesizer stage.Handler
	Analyzer    stage.Handler
	Attributor  stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      interview.Status
	processingStatus interview.Status
	doneStatus       interview.Status
}

// ConfigureStages registers the concrete stage handlers the workflow will run.
// The analysis handlers are chained into a single processor so an interview
// moves transcribed -> processing -> ready in one pass; the tagged hand-off
// marker re-enters the same processor, which is safe because every analysis
// sub-stage regenerates its output from scratch.
func (m *Manager) ConfigureStages(set StageSet) {
	var stages []pipelineStage

	if set.Transcriber != nil {
		stages = append(stages, pipelineStage{
			name:             "transcriber",
			handler:          set.Transcriber,
			startStatus:      interview.StatusUploaded,
			processingStatus: interview.StatusTranscribing,
			doneStatus:       interview.StatusTranscribed,
		})
	}

	analysis := make([]subStage, 0, 4)
	if set.Extractor != nil {
		analysis = append(analysis, subStage{name: "extractor", handler: set.Extractor})
	}
	if set.Synthesizer != nil {
		analysis = append(analysis, subStage{name: "synthesizer", handler: set.Synthesizer})
	}
	if set.Analyzer != nil {
		analysis = append(analysis, subStage{name: "analyzer", handler: set.Analyzer, marker: interview.StatusTagged})
	}
	if set.Attributor != nil {
		analysis = append(analysis, subStage{name: "attributor", handler: set.Attributor})
	}
	if len(analysis) > 0 {
		processor := NewProcessor(m.store, m.logger, analysis...)
		for _, start := range []interview.Status{interview.StatusTranscribed, interview.StatusTagged} {
			stages = append(stages, pipelineStage{
				name:             "processor",
				handler:          processor,
				startStatus:      start,
				processingStatus: interview.StatusProcessing,
				doneStatus:       interview.StatusReady,
			})
		}
	}

	byStart := make(map[interview.Status]pipelineStage, len(stages))
	order := make([]interview.Status, 0, len(stages))
	for _, stg := range stages {
		byStart[stg.startStatus] = stg
		order = append(order, stg.startStatus)
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByStart = byStart
	m.statusOrder = order
	m.mu.Unlock()
}

func (m *Manager) stageForStatus(status interview.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByStart[status]
	return stg, ok
}
