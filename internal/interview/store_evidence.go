package interview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// InsertEvidence persists an evidence unit and, when attributed, its
// evidence_people link in one transaction. This is the only write path that
// accepts a person id; the store exposes no way to update it afterwards.
func (s *Store) InsertEvidence(ctx context.Context, unit EvidenceUnit) error {
	if strings.TrimSpace(unit.ID) == "" {
		return errors.New("evidence id is required")
	}
	if unit.InterviewID == 0 {
		return errors.New("interview id is required")
	}
	ctx = ensureContext(ctx)
	createdAt := unit.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin evidence tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO evidence_units (id, interview_id, person_id, kind, verbatim, summary, source_path, position, created_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			unit.ID,
			unit.InterviewID,
			nullableString(unit.PersonID),
			nullableString(unit.Kind),
			nullableString(unit.Verbatim),
			nullableString(unit.Summary),
			nullableString(unit.SourcePath),
			unit.Position,
			createdAt.Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("insert evidence unit: %w", err)
		}

		if strings.TrimSpace(unit.PersonID) != "" {
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO evidence_people (evidence_id, person_id) VALUES (?, ?)`,
				unit.ID,
				unit.PersonID,
			); err != nil {
				return fmt.Errorf("insert evidence person link: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit evidence insert: %w", err)
		}
		return nil
	})
}

// DeleteEvidenceForInterview removes all evidence rows for an interview.
// Used only by explicit reprocessing before regeneration.
func (s *Store) DeleteEvidenceForInterview(ctx context.Context, interviewID int64) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM evidence_units WHERE interview_id = ?`, interviewID)
	if err != nil {
		return 0, fmt.Errorf("delete evidence: %w", err)
	}
	return res.RowsAffected()
}

// EvidenceForInterview returns all evidence units for an interview in insert order.
func (s *Store) EvidenceForInterview(ctx context.Context, interviewID int64) ([]EvidenceUnit, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT id, interview_id, person_id, kind, verbatim, summary, source_path, position, created_at
         FROM evidence_units WHERE interview_id = ? ORDER BY position, id`,
		interviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("query evidence: %w", err)
	}
	defer rows.Close()

	var units []EvidenceUnit
	for rows.Next() {
		unit, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// EvidencePersonsFromUnits returns the evidence_id -> person set projection
// taken from evidence_units.person_id.
func (s *Store) EvidencePersonsFromUnits(ctx context.Context, interviewID int64) (map[string][]string, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT id, person_id FROM evidence_units WHERE interview_id = ?`,
		interviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("query unit projection: %w", err)
	}
	defer rows.Close()

	projection := make(map[string][]string)
	for rows.Next() {
		var (
			evidenceID string
			personID   sql.NullString
		)
		if err := rows.Scan(&evidenceID, &personID); err != nil {
			return nil, err
		}
		if _, ok := projection[evidenceID]; !ok {
			projection[evidenceID] = nil
		}
		if personID.Valid && personID.String != "" {
			projection[evidenceID] = append(projection[evidenceID], personID.String)
		}
	}
	return projection, rows.Err()
}

// EvidencePersonsFromLinks returns the evidence_id -> person set projection
// taken from the denormalized evidence_people table.
func (s *Store) EvidencePersonsFromLinks(ctx context.Context, interviewID int64) (map[string][]string, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT eu.id, ep.person_id
         FROM evidence_units eu
         LEFT JOIN evidence_people ep ON ep.evidence_id = eu.id
         WHERE eu.interview_id = ?`,
		interviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("query link projection: %w", err)
	}
	defer rows.Close()

	projection := make(map[string][]string)
	for rows.Next() {
		var (
			evidenceID string
			personID   sql.NullString
		)
		if err := rows.Scan(&evidenceID, &personID); err != nil {
			return nil, err
		}
		if _, ok := projection[evidenceID]; !ok {
			projection[evidenceID] = nil
		}
		if personID.Valid && personID.String != "" {
			projection[evidenceID] = append(projection[evidenceID], personID.String)
		}
	}
	return projection, rows.Err()
}

func scanEvidence(scanner interface{ Scan(dest ...any) error }) (EvidenceUnit, error) {
	var (
		unit       EvidenceUnit
		personID   sql.NullString
		kind       sql.NullString
		verbatim   sql.NullString
		summary    sql.NullString
		sourcePath sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(
		&unit.ID,
		&unit.InterviewID,
		&personID,
		&kind,
		&verbatim,
		&summary,
		&sourcePath,
		&unit.Position,
		&createdRaw,
	); err != nil {
		return EvidenceUnit{}, err
	}
	unit.PersonID = personID.String
	unit.Kind = kind.String
	unit.Verbatim = verbatim.String
	unit.Summary = summary.String
	unit.SourcePath = sourcePath.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		unit.CreatedAt = created
	}
	return unit, nil
}
