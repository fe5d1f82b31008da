package views

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
)

type commentInput struct {
	threadID int64
	text     string
}

// DiscussionView is the discussion board of one course: its threads, the
// selected thread and that thread's comments.
//
// The selected thread survives restarts through the SelectionStore. When
// the stored thread is not part of this course the first thread is
// selected instead and remembered.
type DiscussionView struct {
	base
	courseID   int64
	discussion *services.DiscussionService
	selection  *core.SelectionStore

	mu       sync.Mutex
	selected int64

	Threads  *services.Fetcher[[]core.Thread]
	Comments *services.Fetcher[[]core.Comment]

	postThread  *services.Mutation[string, *core.Thread]
	postComment *services.Mutation[commentInput, *core.Comment]
}

func NewDiscussionView(d Deps, courseID int64) *DiscussionView {
	v := &DiscussionView{
		base:       newBase(d),
		courseID:   courseID,
		discussion: d.Discussion,
		selection:  d.Selection,
		Threads:    services.NewFetcher[[]core.Thread](),
		Comments:   services.NewFetcher[[]core.Comment](),
	}
	v.postThread = services.NewMutation(v.sendThread, v.appendThread)
	v.postComment = services.NewMutation(v.sendComment, v.appendComment)
	return v
}

func (v *DiscussionView) CourseID() int64 { return v.courseID }

// Open loads the threads, restores the selection and loads its comments.
func (v *DiscussionView) Open(ctx context.Context) error {
	if err := v.admit(ctx); err != nil {
		return err
	}
	threads, err := v.Threads.Load(ctx, func(ctx context.Context) ([]core.Thread, error) {
		return v.discussion.Threads(ctx, v.courseID)
	})
	if err != nil {
		return settled(err)
	}

	id, ok := v.restore(ctx, threads)
	if !ok {
		return nil
	}
	return v.show(ctx, id, false)
}

func (v *DiscussionView) Close() {
	v.Threads.Cancel()
	v.Comments.Cancel()
	v.close()
}

func (v *DiscussionView) restore(ctx context.Context, threads []core.Thread) (int64, bool) {
	if v.selection != nil {
		if id, ok, err := v.selection.SelectedThread(ctx); err == nil && ok && findThread(threads, id) >= 0 {
			v.setSelected(id)
			return id, true
		}
	}
	if len(threads) == 0 {
		return 0, false
	}
	id := threads[0].ID
	v.setSelected(id)
	v.persist(ctx, id)
	return id, true
}

// Select makes threadID the selected thread and reloads comments. A
// comment load still running for the previous selection is discarded.
func (v *DiscussionView) Select(ctx context.Context, threadID int64) error {
	threads, ok := v.Threads.Data()
	if !ok {
		return core.ErrNotLoaded
	}
	if findThread(threads, threadID) < 0 {
		return fmt.Errorf("thread %d: %w", threadID, core.ErrNotFound)
	}
	return v.show(ctx, threadID, true)
}

func (v *DiscussionView) show(ctx context.Context, threadID int64, remember bool) error {
	v.setSelected(threadID)
	if remember {
		v.persist(ctx, threadID)
	}
	_, err := v.Comments.Load(ctx, func(ctx context.Context) ([]core.Comment, error) {
		return v.discussion.Comments(ctx, threadID)
	})
	return settled(err)
}

// Selected returns the selected thread, if any.
func (v *DiscussionView) Selected() (core.Thread, bool) {
	id := v.selectedID()
	if id == 0 {
		return core.Thread{}, false
	}
	threads, _ := v.Threads.Data()
	if i := findThread(threads, id); i >= 0 {
		return threads[i], true
	}
	return core.Thread{}, false
}

// PostThread starts a thread in this course and selects it.
func (v *DiscussionView) PostThread(ctx context.Context, title string) (*core.Thread, error) {
	if strings.TrimSpace(title) == "" {
		return nil, core.ErrTitleRequired
	}
	thread, err := v.postThread.Submit(ctx, title)
	if err != nil {
		return nil, err
	}
	if err := v.show(ctx, thread.ID, true); err != nil {
		return thread, err
	}
	return thread, nil
}

// PostComment adds a comment to the selected thread.
func (v *DiscussionView) PostComment(ctx context.Context, text string) (*core.Comment, error) {
	id := v.selectedID()
	if id == 0 {
		return nil, core.ErrNoThreadSelected
	}
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrTextRequired
	}
	return v.postComment.Submit(ctx, commentInput{threadID: id, text: text})
}

func (v *DiscussionView) PostThreadState() (services.MutationState, error) {
	return v.postThread.State()
}

func (v *DiscussionView) PostCommentState() (services.MutationState, error) {
	return v.postComment.State()
}

func (v *DiscussionView) sendThread(ctx context.Context, title string) (*core.Thread, error) {
	return v.discussion.CreateThread(ctx, v.courseID, title)
}

func (v *DiscussionView) sendComment(ctx context.Context, in commentInput) (*core.Comment, error) {
	return v.discussion.CreateComment(ctx, in.threadID, in.text)
}

func (v *DiscussionView) appendThread(_ string, thread *core.Thread) {
	v.Threads.Update(func(threads []core.Thread) []core.Thread {
		return append(append([]core.Thread(nil), threads...), *thread)
	})
}

// appendComment only touches the list on screen: a comment confirmed after
// the user switched threads belongs to the old thread's list.
func (v *DiscussionView) appendComment(in commentInput, comment *core.Comment) {
	if in.threadID != v.selectedID() {
		return
	}
	v.Comments.Update(func(comments []core.Comment) []core.Comment {
		return append(append([]core.Comment(nil), comments...), *comment)
	})
}

func (v *DiscussionView) selectedID() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

func (v *DiscussionView) setSelected(id int64) {
	v.mu.Lock()
	v.selected = id
	v.mu.Unlock()
}

// persist is best effort; the selection still applies for this visit.
func (v *DiscussionView) persist(ctx context.Context, id int64) {
	if v.selection != nil {
		_ = v.selection.SelectThread(ctx, id)
	}
}

func findThread(threads []core.Thread, id int64) int {
	for i, t := range threads {
		if t.ID == id {
			return i
		}
	}
	return -1
}
