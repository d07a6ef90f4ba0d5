package interview

import (
	"context"
	"fmt"
	"time"
)

// FindStale returns in-flight interviews whose updated_at is older than the
// cutoff, oldest first.
func (s *Store) FindStale(ctx context.Context, cutoff time.Time) ([]*Interview, error) {
	statuses := InFlightStatuses()
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, 0, len(statuses)+1)
	for _, status := range statuses {
		args = append(args, status)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	query := `SELECT ` + interviewColumns + ` FROM interviews
        WHERE status IN (` + placeholders + `) AND updated_at < ?
        ORDER BY updated_at`
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stale interviews: %w", err)
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

// CompleteStaleWithTranscript flips the given interviews to ready in one
// batched write. The write is conditional: a row is touched only if it is
// still in-flight, still stale, and still carries a transcript, so an
// interview that resumed between detection and repair is left alone.
func (s *Store) CompleteStaleWithTranscript(ctx context.Context, ids []int64, cutoff time.Time) (int64, error) {
	query := `UPDATE interviews
        SET status = ?, error_message = NULL, progress_stage = 'Ready',
            progress_message = 'Recovered by stuck-interview repair', progress_percent = 100,
            last_heartbeat = NULL, updated_at = ?
        WHERE id IN (%s) AND status IN (%s) AND updated_at < ?
          AND transcript IS NOT NULL AND TRIM(transcript) != ''`
	return s.repairStale(ctx, ids, cutoff, query, StatusReady)
}

// FailStaleWithoutSource flips the given interviews to error in one batched
// write, guarded the same way; only rows with neither transcript nor media
// qualify.
func (s *Store) FailStaleWithoutSource(ctx context.Context, ids []int64, cutoff time.Time, reason string) (int64, error) {
	query := `UPDATE interviews
        SET status = ?, error_message = ?, progress_stage = 'Error',
            progress_message = ?, progress_percent = 0,
            last_heartbeat = NULL, updated_at = ?
        WHERE id IN (%s) AND status IN (%s) AND updated_at < ?
          AND (transcript IS NULL OR TRIM(transcript) = '')
          AND (media_url IS NULL OR TRIM(media_url) = '')`
	return s.repairStale(ctx, ids, cutoff, query, StatusError, reason, reason)
}

// RequeueStaleForTranscription resets a stale media-only interview back to
// uploaded so the orchestrator re-enters at the transcription stage. The
// write is conditional on the row still being stale and in-flight.
func (s *Store) RequeueStaleForTranscription(ctx context.Context, id int64, cutoff time.Time) (bool, error) {
	statuses := InFlightStatuses()
	placeholders := makePlaceholders(len(statuses))
	now := s.now().UTC().Format(time.RFC3339Nano)

	args := make([]any, 0, len(statuses)+4)
	args = append(args, StatusUploaded, now, id)
	for _, status := range statuses {
		args = append(args, status)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	query := `UPDATE interviews
        SET status = ?, error_message = NULL, progress_stage = 'Requeued',
            progress_message = 'Re-entering transcription after stall', progress_percent = 0,
            last_heartbeat = NULL, updated_at = ?
        WHERE id = ? AND status IN (` + placeholders + `) AND updated_at < ?
          AND (transcript IS NULL OR TRIM(transcript) = '')
          AND media_url IS NOT NULL AND TRIM(media_url) != ''`

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("requeue stale interview: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// repairStale executes a batched conditional repair update. The query must
// carry two %s verbs (id placeholders, status placeholders) and expect args
// ordered as: target status, extra..., timestamp, ids..., statuses..., cutoff.
func (s *Store) repairStale(ctx context.Context, ids []int64, cutoff time.Time, queryTemplate string, target Status, extra ...any) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	statuses := InFlightStatuses()
	idPlaceholders := makePlaceholders(len(ids))
	statusPlaceholders := makePlaceholders(len(statuses))
	now := s.now().UTC().Format(time.RFC3339Nano)

	args := make([]any, 0, len(ids)+len(statuses)+len(extra)+3)
	args = append(args, target)
	args = append(args, extra...)
	args = append(args, now)
	for _, id := range ids {
		args = append(args, id)
	}
	for _, status := range statuses {
		args = append(args, status)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	query := fmt.Sprintf(queryTemplate, idPlaceholders, statusPlaceholders)
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("batched stale repair: %w", err)
	}
	return res.RowsAffected()
}
