// Package views holds the state behind each protected screen. A view is
// opened once per visit: Open runs the session guard, then loads the data
// the screen shows through services.Fetcher values that a renderer reads
// with Snapshot. Writes go through services.Mutation so local state only
// changes after the server confirmed them.
package views

import (
	"context"
	"errors"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
)

// Deps are the collaborators shared by every view.
type Deps struct {
	Session   *core.Session
	Navigator core.Navigator
	LoginPath string

	Courses    *services.CourseService
	Lessons    *services.LessonService
	Quizzes    *services.QuizService
	Discussion *services.DiscussionService
	Profiles   *services.ProfileService
	Auth       *services.AuthService
	Selection  *core.SelectionStore
}

type base struct {
	guard *services.Guard
}

func newBase(d Deps) base {
	return base{guard: services.NewGuard(d.Session, d.Navigator, d.LoginPath)}
}

// admit runs the guard. Nothing may be fetched when it fails.
func (b *base) admit(ctx context.Context) error {
	if err := b.guard.Check(ctx); err != nil {
		return err
	}
	b.guard.Fetching()
	return nil
}

// Guard exposes the view's guard state.
func (b *base) Guard() *services.Guard { return b.guard }

func (b *base) close() { b.guard.Close() }

// settled drops the error of a load that a newer one replaced.
func settled(err error) error {
	if errors.Is(err, core.ErrSuperseded) {
		return nil
	}
	return err
}
