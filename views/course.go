package views

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
)

// CourseView shows one course with its lessons, lets the user enroll and
// mark lessons completed.
type CourseView struct {
	base
	id      int64
	courses *services.CourseService
	lessons *services.LessonService

	Course  *services.Fetcher[*core.Course]
	Lessons *services.Fetcher[[]core.Lesson]

	enroll   *services.Mutation[int64, struct{}]
	complete *services.Mutation[int64, struct{}]
}

func NewCourseView(d Deps, courseID int64) *CourseView {
	v := &CourseView{
		base:    newBase(d),
		id:      courseID,
		courses: d.Courses,
		lessons: d.Lessons,
		Course:  services.NewFetcher[*core.Course](),
		Lessons: services.NewFetcher[[]core.Lesson](),
	}
	v.enroll = services.NewMutation(v.sendEnroll, func(int64, struct{}) {
		v.patchCourse(func(c *core.Course) { c.Enrolled = true })
	})
	v.complete = services.NewMutation(v.sendComplete, func(lessonID int64, _ struct{}) {
		v.patchCourse(func(c *core.Course) { c.MarkCompleted(lessonID) })
	})
	return v
}

func (v *CourseView) ID() int64 { return v.id }

func (v *CourseView) Open(ctx context.Context) error {
	if err := v.admit(ctx); err != nil {
		return err
	}
	return v.load(ctx)
}

func (v *CourseView) Close() {
	v.Course.Cancel()
	v.Lessons.Cancel()
	v.close()
}

// load fetches the course and its lessons concurrently. Each fetcher
// settles on its own; the first failure is returned.
func (v *CourseView) load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := v.Course.Load(ctx, func(ctx context.Context) (*core.Course, error) {
			return v.courses.Get(ctx, v.id)
		})
		return settled(err)
	})
	g.Go(func() error {
		_, err := v.Lessons.Load(ctx, func(ctx context.Context) ([]core.Lesson, error) {
			return v.lessons.List(ctx, v.id)
		})
		return settled(err)
	})
	return g.Wait()
}

// Enroll enrolls the user, then reloads the course and its lessons.
func (v *CourseView) Enroll(ctx context.Context) error {
	course, ok := v.Course.Data()
	if !ok {
		return core.ErrNotLoaded
	}
	if course.Enrolled {
		return core.ErrAlreadyEnrolled
	}
	if _, err := v.enroll.Submit(ctx, v.id); err != nil {
		return err
	}
	return v.load(ctx)
}

// CompleteLesson marks a lesson of this course completed. Completing a
// lesson twice sends nothing.
func (v *CourseView) CompleteLesson(ctx context.Context, lessonID int64) error {
	course, ok := v.Course.Data()
	if !ok {
		return core.ErrNotLoaded
	}
	if !course.Enrolled {
		return core.ErrNotEnrolled
	}
	lessons, ok := v.Lessons.Data()
	if !ok {
		return core.ErrNotLoaded
	}
	if !containsLesson(lessons, lessonID) {
		return core.ErrLessonNotInCourse
	}
	if course.HasCompleted(lessonID) {
		return nil
	}
	_, err := v.complete.Submit(ctx, lessonID)
	return err
}

// Completed reports whether lessonID is in the completed set.
func (v *CourseView) Completed(lessonID int64) bool {
	course, ok := v.Course.Data()
	return ok && course.HasCompleted(lessonID)
}

// Progress is the completion percentage, 0 until both course and lessons
// are loaded.
func (v *CourseView) Progress() int {
	course, ok := v.Course.Data()
	if !ok {
		return 0
	}
	lessons, ok := v.Lessons.Data()
	if !ok {
		return 0
	}
	return core.CourseProgress(course, lessons)
}

func (v *CourseView) EnrollState() (services.MutationState, error)   { return v.enroll.State() }
func (v *CourseView) CompleteState() (services.MutationState, error) { return v.complete.State() }

func (v *CourseView) sendEnroll(ctx context.Context, id int64) (struct{}, error) {
	return struct{}{}, v.courses.Enroll(ctx, id)
}

func (v *CourseView) sendComplete(ctx context.Context, lessonID int64) (struct{}, error) {
	return struct{}{}, v.lessons.Complete(ctx, v.id, lessonID)
}

// patchCourse applies fn to a copy so values shared with other readers of
// the same load are never mutated.
func (v *CourseView) patchCourse(fn func(*core.Course)) {
	v.Course.Update(func(c *core.Course) *core.Course {
		cp := *c
		cp.CompletedLessons = append([]int64(nil), c.CompletedLessons...)
		fn(&cp)
		return &cp
	})
}

func containsLesson(lessons []core.Lesson, id int64) bool {
	for _, l := range lessons {
		if l.ID == id {
			return true
		}
	}
	return false
}
