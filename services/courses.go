package services

import (
	"context"
	"fmt"

	"github.com/ailearn/learnsync/core"
)

// CourseService reads courses and enrolls the current user.
type CourseService struct {
	api   *APIClient
	cache *EntityCache
}

func NewCourseService(api *APIClient, cache *EntityCache) *CourseService {
	return &CourseService{api: api, cache: cache}
}

// List returns the catalog.
func (s *CourseService) List(ctx context.Context) ([]core.Course, error) {
	return Fetch(ctx, s.cache, CoursesKey, func(ctx context.Context) ([]core.Course, error) {
		var courses []core.Course
		if err := s.api.Do(ctx, Request{Operation: OpListCourses}, &courses); err != nil {
			return nil, err
		}
		return courses, nil
	})
}

// Get returns one course with the caller's enrollment state.
func (s *CourseService) Get(ctx context.Context, id int64) (*core.Course, error) {
	return Fetch(ctx, s.cache, CourseKey(id), func(ctx context.Context) (*core.Course, error) {
		var course core.Course
		req := Request{Operation: OpGetCourse, PathParams: map[string]string{"id": core.ID(id)}}
		if err := s.api.Do(ctx, req, &course); err != nil {
			return nil, err
		}
		if course.CompletedLessons == nil {
			course.CompletedLessons = []int64{}
		}
		return &course, nil
	})
}

// Enrolled returns the caller's enrolled courses with progress.
func (s *CourseService) Enrolled(ctx context.Context) ([]core.Course, error) {
	return Fetch(ctx, s.cache, MyCoursesKey, func(ctx context.Context) ([]core.Course, error) {
		var courses []core.Course
		if err := s.api.Do(ctx, Request{Operation: OpMyCourses}, &courses); err != nil {
			return nil, err
		}
		return courses, nil
	})
}

// Enroll enrolls the caller in a course and invalidates every cached entry
// whose enrollment state changed.
func (s *CourseService) Enroll(ctx context.Context, id int64) error {
	req := Request{Operation: OpEnroll, PathParams: map[string]string{"id": core.ID(id)}}
	if err := s.api.Do(ctx, req, nil); err != nil {
		return fmt.Errorf("enroll in course %d: %w", id, err)
	}
	s.cache.AfterEnroll(id)
	return nil
}
