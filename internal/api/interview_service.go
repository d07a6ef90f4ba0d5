package api

import (
	"context"

	"chorus/internal/interview"
)

// InterviewReader abstracts the persistence interactions needed for API queries.
type InterviewReader interface {
	List(ctx context.Context, statuses ...interview.Status) ([]*interview.Interview, error)
	Stats(ctx context.Context) (map[interview.Status]int, error)
	GetByID(ctx context.Context, id int64) (*interview.Interview, error)
}

// InterviewService exposes read-only interview operations returning API DTOs.
type InterviewService struct {
	store InterviewReader
}

// NewInterviewService constructs an InterviewService around the provided reader.
func NewInterviewService(store InterviewReader) *InterviewService {
	if store == nil {
		return nil
	}
	return &InterviewService{store: store}
}

// List returns interviews filtered by status.
func (s *InterviewService) List(ctx context.Context, statuses ...interview.Status) ([]Interview, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromInterviews(items), nil
}

// Stats returns summary counts keyed by status string.
func (s *InterviewService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeStats(stats), nil
}

// Describe fetches a single interview.
func (s *InterviewService) Describe(ctx context.Context, id int64) (*Interview, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	iv, err := s.store.GetByID(ctx, id)
	if err != nil || iv == nil {
		return nil, err
	}
	dto := FromInterview(iv)
	return &dto, nil
}
