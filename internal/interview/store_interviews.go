package interview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const interviewColumns = "id, account_id, project_id, title, media_url, transcript, status, error_message, progress_stage, progress_message, progress_percent, payload_json, analysis_json, created_at, updated_at, last_heartbeat"

// NewUpload inserts a new interview for an uploaded recording or transcript.
// Interviews arriving with a transcript still enter at uploaded; the
// transcription stage passes them through without provider calls.
func (s *Store) NewUpload(ctx context.Context, accountID, projectID, title, mediaURL, transcript string) (*Interview, error) {
	now := s.now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO interviews (
            account_id, project_id, title, media_url, transcript, status,
            progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		nullableString(accountID),
		nullableString(projectID),
		nullableString(title),
		nullableString(mediaURL),
		nullableString(transcript),
		StatusUploaded,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert interview: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an interview by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Interview, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id)
	iv, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get interview: %w", err)
	}
	return iv, nil
}

// Update persists changes to an existing interview and refreshes updated_at.
func (s *Store) Update(ctx context.Context, iv *Interview) error {
	if iv == nil {
		return errors.New("interview is nil")
	}
	iv.UpdatedAt = s.now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE interviews
         SET account_id = ?, project_id = ?, title = ?, media_url = ?, transcript = ?,
             status = ?, error_message = ?, progress_stage = ?, progress_message = ?,
             progress_percent = ?, payload_json = ?, analysis_json = ?, updated_at = ?,
             last_heartbeat = ?
         WHERE id = ?`,
		nullableString(iv.AccountID),
		nullableString(iv.ProjectID),
		nullableString(iv.Title),
		nullableString(iv.MediaURL),
		nullableString(iv.Transcript),
		iv.Status,
		nullableString(iv.ErrorMessage),
		nullableString(iv.ProgressStage),
		nullableString(iv.ProgressMessage),
		iv.ProgressPercent,
		nullableString(iv.PayloadJSON),
		nullableString(iv.AnalysisJSON),
		iv.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(iv.LastHeartbeat),
		iv.ID,
	)
	if err != nil {
		return fmt.Errorf("update interview: %w", err)
	}
	return nil
}

// List returns interviews filtered by status set (or all when none given).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Interview, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + interviewColumns + ` FROM interviews`
	orderClause := ` ORDER BY created_at`
	ctx = ensureContext(ctx)

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	var items []*Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, iv)
	}
	return items, rows.Err()
}

// NextForStatuses returns the oldest interview matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Interview, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + interviewColumns + ` FROM interviews WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ensureContext(ctx), query, args...)
	iv, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return iv, nil
}

// UpdateHeartbeat refreshes both last_heartbeat and updated_at for an
// in-flight interview so staleness detection sees live progress.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE interviews SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// Stats returns a count of interviews grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM interviews GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("interview stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates interview state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusReady:
			health.Ready += count
		case StatusError:
			health.Error += count
		case StatusTranscribed, StatusTagged:
			health.Transcribed += count
		default:
			if IsInFlight(status) {
				health.InFlight += count
			}
		}
	}
	return health, nil
}

// Remove deletes an interview by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM interviews WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete interview: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanInterview(scanner interface{ Scan(dest ...any) error }) (*Interview, error) {
	var (
		id               int64
		accountID        sql.NullString
		projectID        sql.NullString
		title            sql.NullString
		mediaURL         sql.NullString
		transcript       sql.NullString
		statusStr        string
		errorMessage     sql.NullString
		progressStage    sql.NullString
		progressMessage  sql.NullString
		progressPercent  sql.NullFloat64
		payloadJSON      sql.NullString
		analysisJSON     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&accountID,
		&projectID,
		&title,
		&mediaURL,
		&transcript,
		&statusStr,
		&errorMessage,
		&progressStage,
		&progressMessage,
		&progressPercent,
		&payloadJSON,
		&analysisJSON,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	iv := &Interview{
		ID:              id,
		AccountID:       accountID.String,
		ProjectID:       projectID.String,
		Title:           title.String,
		MediaURL:        mediaURL.String,
		Transcript:      transcript.String,
		Status:          Status(statusStr),
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressMessage: progressMessage.String,
		ProgressPercent: progressPercent.Float64,
		PayloadJSON:     payloadJSON.String,
		AnalysisJSON:    analysisJSON.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		iv.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		iv.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			iv.LastHeartbeat = &heartbeat
		}
	}
	return iv, nil
}
