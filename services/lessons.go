package services

import (
	"context"
	"fmt"

	"github.com/ailearn/learnsync/core"
)

type LessonService struct {
	api   *APIClient
	cache *EntityCache
}

func NewLessonService(api *APIClient, cache *EntityCache) *LessonService {
	return &LessonService{api: api, cache: cache}
}

// List returns the lessons of a course.
func (s *LessonService) List(ctx context.Context, courseID int64) ([]core.Lesson, error) {
	return Fetch(ctx, s.cache, LessonsKey(courseID), func(ctx context.Context) ([]core.Lesson, error) {
		var lessons []core.Lesson
		req := Request{Operation: OpListLessons, Query: map[string]string{"course": core.ID(courseID)}}
		if err := s.api.Do(ctx, req, &lessons); err != nil {
			return nil, err
		}
		return lessons, nil
	})
}

func (s *LessonService) Get(ctx context.Context, id int64) (*core.Lesson, error) {
	return Fetch(ctx, s.cache, LessonKey(id), func(ctx context.Context) (*core.Lesson, error) {
		var lesson core.Lesson
		req := Request{Operation: OpGetLesson, PathParams: map[string]string{"id": core.ID(id)}}
		if err := s.api.Do(ctx, req, &lesson); err != nil {
			return nil, err
		}
		return &lesson, nil
	})
}

// Complete marks a lesson of courseID complete for the caller.
func (s *LessonService) Complete(ctx context.Context, courseID, lessonID int64) error {
	req := Request{Operation: OpCompleteLesson, PathParams: map[string]string{"id": core.ID(lessonID)}}
	if err := s.api.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("complete lesson %d: %w", lessonID, err)
	}
	s.cache.AfterCompleteLesson(courseID)
	return nil
}

// Progress returns the per-lesson progress records of a user.
func (s *LessonService) Progress(ctx context.Context, userID string) ([]core.ProgressRecord, error) {
	return Fetch(ctx, s.cache, ProgressKey(userID), func(ctx context.Context) ([]core.ProgressRecord, error) {
		var records []core.ProgressRecord
		req := Request{Operation: OpUserProgress, Query: map[string]string{"user": userID}}
		if err := s.api.Do(ctx, req, &records); err != nil {
			return nil, err
		}
		return records, nil
	})
}
