package attribution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"chorus/internal/logging"
)

const mismatchSampleLimit = 5

// ProjectionSource exposes the two attribution projections the validator
// compares. *interview.Store satisfies it.
type ProjectionSource interface {
	EvidencePersonsFromUnits(ctx context.Context, interviewID int64) (map[string][]string, error)
	EvidencePersonsFromLinks(ctx context.Context, interviewID int64) (map[string][]string, error)
}

// Mismatch records one evidence unit whose projections disagree.
type Mismatch struct {
	EvidenceID string   `json:"evidenceId"`
	FromUnits  []string `json:"fromUnits"`
	FromLinks  []string `json:"fromLinks"`
}

// Report summarizes a parity check over one interview.
type Report struct {
	InterviewID int64      `json:"interviewId"`
	IngestPath  string     `json:"ingestPath"`
	Evidence    int        `json:"evidence"`
	Mismatches  int        `json:"mismatches"`
	Passed      bool       `json:"passed"`
	Sample      []Mismatch `json:"sample,omitempty"`
}

// Validator checks that evidence_units.person_id and the evidence_people
// links describe the same evidence→person sets. It only reads.
type Validator struct {
	source ProjectionSource
	logger *slog.Logger
}

// NewValidator builds a parity validator over the given projection source.
func NewValidator(source ProjectionSource, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Validator{source: source, logger: logging.NewComponentLogger(logger, "attribution-parity")}
}

// Validate compares the two projections for one interview and logs the
// outcome. ingestPath labels which write path produced the evidence, so
// every ingestion route can assert the same invariant.
func (v *Validator) Validate(ctx context.Context, interviewID int64, ingestPath string) (Report, error) {
	report := Report{InterviewID: interviewID, IngestPath: ingestPath}

	fromUnits, err := v.source.EvidencePersonsFromUnits(ctx, interviewID)
	if err != nil {
		return report, fmt.Errorf("load unit projection: %w", err)
	}
	fromLinks, err := v.source.EvidencePersonsFromLinks(ctx, interviewID)
	if err != nil {
		return report, fmt.Errorf("load link projection: %w", err)
	}

	ids := make(map[string]struct{}, len(fromUnits))
	for id := range fromUnits {
		ids[id] = struct{}{}
	}
	for id := range fromLinks {
		ids[id] = struct{}{}
	}
	report.Evidence = len(ids)

	ordered := make([]string, 0, len(ids))
	for id := range ids {
		ordered = append(ordered, id)
	}
	sort.Strings(ordered)

	for _, id := range ordered {
		unitsSet := normalizeSet(fromUnits[id])
		linksSet := normalizeSet(fromLinks[id])
		if !equalSets(unitsSet, linksSet) {
			report.Mismatches++
			if len(report.Sample) < mismatchSampleLimit {
				report.Sample = append(report.Sample, Mismatch{EvidenceID: id, FromUnits: unitsSet, FromLinks: linksSet})
			}
		}
	}
	report.Passed = report.Mismatches == 0

	if report.Passed {
		v.logger.InfoContext(ctx, "attribution parity verified",
			logging.Int64(logging.FieldInterviewID, interviewID),
			logging.String(logging.FieldIngestPath, ingestPath),
			logging.Int("evidence_count", report.Evidence))
	} else {
		v.logger.WarnContext(ctx, "attribution parity mismatch",
			logging.Int64(logging.FieldInterviewID, interviewID),
			logging.String(logging.FieldIngestPath, ingestPath),
			logging.Int("evidence_count", report.Evidence),
			logging.Int("mismatch_count", report.Mismatches),
			logging.Any("sample", report.Sample))
	}
	return report, nil
}

func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
