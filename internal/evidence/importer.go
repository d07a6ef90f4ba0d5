package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"chorus/internal/attribution"
	"chorus/internal/interview"
	"chorus/internal/logging"
)

// IngestPathImport labels evidence captured live, outside the pipeline stage.
const IngestPathImport = "import"

// Importer is the live-capture ingestion path: evidence noted by a researcher
// during or after a session, written through the same insert-time attribution
// flow the extraction stage uses.
type Importer struct {
	store     *interview.Store
	logger    *slog.Logger
	validator *attribution.Validator
}

// NewImporter creates the live-capture ingestion path.
func NewImporter(store *interview.Store, logger *slog.Logger) *Importer {
	return &Importer{
		store:     store,
		logger:    logging.NewComponentLogger(logger, "evidence-importer"),
		validator: attribution.NewValidator(store, logger),
	}
}

// Unit is one externally captured evidence unit.
type Unit struct {
	Speaker  string
	Kind     string
	Verbatim string
	Summary  string
}

// Import persists the given units for an interview, resolving each speaker
// label against the interview's people exactly as the extraction stage does,
// then verifies attribution parity.
func (im *Importer) Import(ctx context.Context, interviewID int64, units []Unit) (attribution.Report, error) {
	iv, err := im.store.GetByID(ctx, interviewID)
	if err != nil {
		return attribution.Report{}, fmt.Errorf("load interview: %w", err)
	}
	if iv == nil {
		return attribution.Report{}, fmt.Errorf("interview %d not found", interviewID)
	}

	people, err := im.store.PeopleForInterview(ctx, interviewID)
	if err != nil {
		return attribution.Report{}, fmt.Errorf("load people: %w", err)
	}
	attributionCtx := attribution.BuildContext(people)

	existing, err := im.store.EvidenceForInterview(ctx, interviewID)
	if err != nil {
		return attribution.Report{}, fmt.Errorf("load existing evidence: %w", err)
	}
	position := len(existing)

	inserted := 0
	for _, unit := range units {
		verbatim := strings.TrimSpace(unit.Verbatim)
		if verbatim == "" {
			continue
		}
		personID := attribution.ResolvePersonID(unit.Speaker, attributionCtx, "")
		if err := im.store.InsertEvidence(ctx, interview.EvidenceUnit{
			ID:          uuid.NewString(),
			InterviewID: interviewID,
			PersonID:    personID,
			Kind:        strings.TrimSpace(unit.Kind),
			Verbatim:    verbatim,
			Summary:     strings.TrimSpace(unit.Summary),
			SourcePath:  IngestPathImport,
			Position:    position,
		}); err != nil {
			return attribution.Report{}, fmt.Errorf("insert evidence: %w", err)
		}
		position++
		inserted++
	}

	im.logger.InfoContext(ctx, "imported live evidence",
		logging.Int64(logging.FieldInterviewID, interviewID),
		logging.String(logging.FieldIngestPath, IngestPathImport),
		logging.Int("inserted", inserted))

	return im.validator.Validate(ctx, interviewID, IngestPathImport)
}
