package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ailearn/learnsync/core"
)

type QuizService struct {
	api   *APIClient
	cache *EntityCache
}

func NewQuizService(api *APIClient, cache *EntityCache) *QuizService {
	return &QuizService{api: api, cache: cache}
}

func (s *QuizService) List(ctx context.Context, courseID int64) ([]core.Quiz, error) {
	return Fetch(ctx, s.cache, QuizzesKey(courseID), func(ctx context.Context) ([]core.Quiz, error) {
		var quizzes []core.Quiz
		req := Request{Operation: OpListQuizzes, Query: map[string]string{"course": core.ID(courseID)}}
		if err := s.api.Do(ctx, req, &quizzes); err != nil {
			return nil, err
		}
		return quizzes, nil
	})
}

func (s *QuizService) Get(ctx context.Context, id int64) (*core.Quiz, error) {
	return Fetch(ctx, s.cache, QuizKey(id), func(ctx context.Context) (*core.Quiz, error) {
		var quiz core.Quiz
		req := Request{Operation: OpGetQuiz, PathParams: map[string]string{"id": core.ID(id)}}
		if err := s.api.Do(ctx, req, &quiz); err != nil {
			return nil, err
		}
		return &quiz, nil
	})
}

// Submit sends an answer and returns the server's feedback. Answers are
// never cached: feedback is per attempt.
func (s *QuizService) Submit(ctx context.Context, id int64, answer string) (core.QuizAttempt, error) {
	if strings.TrimSpace(answer) == "" {
		return core.QuizAttempt{}, core.ErrAnswerRequired
	}

	var resp struct {
		Feedback string `json:"feedback"`
	}
	req := Request{
		Operation:  OpSubmitQuiz,
		PathParams: map[string]string{"id": core.ID(id)},
		Body:       map[string]string{"answer": answer},
	}
	if err := s.api.Do(ctx, req, &resp); err != nil {
		return core.QuizAttempt{}, fmt.Errorf("submit quiz %d: %w", id, err)
	}
	return core.QuizAttempt{Answer: answer, Feedback: resp.Feedback}, nil
}
