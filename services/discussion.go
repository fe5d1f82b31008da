package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ailearn/learnsync/core"
)

// DiscussionService reads and writes course threads and their comments.
type DiscussionService struct {
	api   *APIClient
	cache *EntityCache
}

func NewDiscussionService(api *APIClient, cache *EntityCache) *DiscussionService {
	return &DiscussionService{api: api, cache: cache}
}

func (s *DiscussionService) Threads(ctx context.Context, courseID int64) ([]core.Thread, error) {
	return Fetch(ctx, s.cache, ThreadsKey(courseID), func(ctx context.Context) ([]core.Thread, error) {
		var threads []core.Thread
		req := Request{Operation: OpListThreads, PathParams: map[string]string{"id": core.ID(courseID)}}
		if err := s.api.Do(ctx, req, &threads); err != nil {
			return nil, err
		}
		return threads, nil
	})
}

func (s *DiscussionService) Comments(ctx context.Context, threadID int64) ([]core.Comment, error) {
	return Fetch(ctx, s.cache, CommentsKey(threadID), func(ctx context.Context) ([]core.Comment, error) {
		var comments []core.Comment
		req := Request{Operation: OpListComments, PathParams: map[string]string{"id": core.ID(threadID)}}
		if err := s.api.Do(ctx, req, &comments); err != nil {
			return nil, err
		}
		return comments, nil
	})
}

// CreateThread starts a thread in a course. The title is trimmed and must
// not be empty.
func (s *DiscussionService) CreateThread(ctx context.Context, courseID int64, title string) (*core.Thread, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, core.ErrTitleRequired
	}

	var thread core.Thread
	req := Request{
		Operation: OpCreateThread,
		Body: struct {
			Title  string `json:"title"`
			Course int64  `json:"course"`
		}{title, courseID},
	}
	if err := s.api.Do(ctx, req, &thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	if thread.Course == 0 {
		thread.Course = courseID
	}
	s.cache.AfterPostThread(courseID)
	return &thread, nil
}

// CreateComment posts text to a thread.
func (s *DiscussionService) CreateComment(ctx context.Context, threadID int64, text string) (*core.Comment, error) {
	if threadID == 0 {
		return nil, core.ErrNoThreadSelected
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, core.ErrTextRequired
	}

	var comment core.Comment
	req := Request{
		Operation: OpCreateComment,
		Body: struct {
			Thread int64  `json:"thread"`
			Text   string `json:"text"`
		}{threadID, text},
	}
	if err := s.api.Do(ctx, req, &comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if comment.Thread == 0 {
		comment.Thread = threadID
	}
	s.cache.AfterPostComment(threadID)
	return &comment, nil
}
