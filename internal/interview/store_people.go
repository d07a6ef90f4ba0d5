package interview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// AddPerson links a transcript key to a canonical person for an interview.
// The key is immutable once written; re-adding the same key updates only the
// display and person names (aliases), never the person id.
func (s *Store) AddPerson(ctx context.Context, p Person) error {
	key := strings.TrimSpace(p.TranscriptKey)
	if key == "" {
		return errors.New("transcript key is required")
	}
	if strings.TrimSpace(p.PersonID) == "" {
		return errors.New("person id is required")
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO interview_people (interview_id, transcript_key, person_id, display_name, person_name)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (interview_id, transcript_key)
         DO UPDATE SET display_name = excluded.display_name, person_name = excluded.person_name`,
		p.InterviewID,
		key,
		p.PersonID,
		nullableString(p.DisplayName),
		nullableString(p.PersonName),
	)
	if err != nil {
		return fmt.Errorf("add interview person: %w", err)
	}
	return nil
}

// PeopleForInterview returns all speaker-to-person links for an interview.
func (s *Store) PeopleForInterview(ctx context.Context, interviewID int64) ([]Person, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT interview_id, transcript_key, person_id, display_name, person_name
         FROM interview_people WHERE interview_id = ? ORDER BY transcript_key`,
		interviewID,
	)
	if err != nil {
		return nil, fmt.Errorf("query interview people: %w", err)
	}
	defer rows.Close()

	var people []Person
	for rows.Next() {
		var (
			p           Person
			displayName sql.NullString
			personName  sql.NullString
		)
		if err := rows.Scan(&p.InterviewID, &p.TranscriptKey, &p.PersonID, &displayName, &personName); err != nil {
			return nil, err
		}
		p.DisplayName = displayName.String
		p.PersonName = personName.String
		people = append(people, p)
	}
	return people, rows.Err()
}
