package views

import (
	"context"
	"strings"
	"sync"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
)

type quizAnswer struct {
	quizID int64
	answer string
}

// QuizView runs one quiz of a chain. Submitting records the server's
// feedback but never moves on; Next tells the renderer where the chain
// continues.
type QuizView struct {
	base
	quizzes *services.QuizService

	mu      sync.Mutex
	id      int64
	attempt core.QuizAttempt

	Quiz   *services.Fetcher[*core.Quiz]
	submit *services.Mutation[quizAnswer, core.QuizAttempt]
}

func NewQuizView(d Deps, quizID int64) *QuizView {
	v := &QuizView{
		base:    newBase(d),
		quizzes: d.Quizzes,
		id:      quizID,
		Quiz:    services.NewFetcher[*core.Quiz](),
	}
	v.submit = services.NewMutation(v.send, v.record)
	return v
}

func (v *QuizView) Open(ctx context.Context) error {
	if err := v.admit(ctx); err != nil {
		return err
	}
	return v.load(ctx)
}

func (v *QuizView) Close() {
	v.Quiz.Cancel()
	v.close()
}

// Show switches the view to another quiz, dropping the previous answer
// and feedback.
func (v *QuizView) Show(ctx context.Context, quizID int64) error {
	v.mu.Lock()
	v.id = quizID
	v.attempt = core.QuizAttempt{}
	v.mu.Unlock()
	v.submit.Reset()
	return v.load(ctx)
}

func (v *QuizView) ID() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.id
}

func (v *QuizView) load(ctx context.Context) error {
	id := v.ID()
	_, err := v.Quiz.Load(ctx, func(ctx context.Context) (*core.Quiz, error) {
		return v.quizzes.Get(ctx, id)
	})
	return settled(err)
}

// Submit sends an answer for the loaded quiz.
func (v *QuizView) Submit(ctx context.Context, answer string) (core.QuizAttempt, error) {
	quiz, ok := v.Quiz.Data()
	if !ok {
		return core.QuizAttempt{}, core.ErrNotLoaded
	}
	if strings.TrimSpace(answer) == "" {
		return core.QuizAttempt{}, core.ErrAnswerRequired
	}
	return v.submit.Submit(ctx, quizAnswer{quizID: quiz.ID, answer: answer})
}

// Attempt is the last confirmed answer and its feedback.
func (v *QuizView) Attempt() core.QuizAttempt {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attempt
}

func (v *QuizView) SubmitState() (services.MutationState, error) { return v.submit.State() }

// Next returns the id of the following quiz in the chain.
func (v *QuizView) Next() (int64, bool) {
	quiz, ok := v.Quiz.Data()
	if !ok || quiz.NextID == nil {
		return 0, false
	}
	return *quiz.NextID, true
}

func (v *QuizView) send(ctx context.Context, in quizAnswer) (core.QuizAttempt, error) {
	return v.quizzes.Submit(ctx, in.quizID, in.answer)
}

// record keeps feedback only for the quiz still on screen.
func (v *QuizView) record(in quizAnswer, attempt core.QuizAttempt) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if in.quizID == v.id {
		v.attempt = attempt
	}
}
