package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/pkg/crypto"
)

// Cache keys. Every key is further namespaced by the credential fingerprint,
// so per-user fields (enrolled, completed_lessons) never leak between users.
func CourseKey(id int64) string         { return "course:" + core.ID(id) }
func LessonsKey(courseID int64) string  { return "lessons:" + core.ID(courseID) }
func QuizzesKey(courseID int64) string  { return "quizzes:" + core.ID(courseID) }
func ThreadsKey(courseID int64) string  { return "threads:" + core.ID(courseID) }
func CommentsKey(threadID int64) string { return "comments:" + core.ID(threadID) }
func QuizKey(id int64) string           { return "quiz:" + core.ID(id) }
func LessonKey(id int64) string         { return "lesson:" + core.ID(id) }
func ProgressKey(userID string) string  { return "progress:" + userID }

const (
	CoursesKey   = "courses"
	MyCoursesKey = "my-courses"
	ProfileKey   = "profile:me"
)

// EntityCache is the single shared cache of server entities. Views read
// through it and mutations invalidate the keys they affect, so two views
// never show different versions of the same entity after a mutation.
//
// A nil underlying cache disables caching but keeps request coalescing.
type EntityCache struct {
	cache   core.Cache
	session *core.Session
	group   singleflight.Group
	logger  *slog.Logger

	mu          sync.Mutex
	epoch       uint64
	generations map[string]uint64
}

func NewEntityCache(cache core.Cache, session *core.Session, logger *slog.Logger) *EntityCache {
	if logger == nil {
		logger = slog.Default()
	}
	ec := &EntityCache{
		cache:       cache,
		session:     session,
		logger:      logger,
		generations: make(map[string]uint64),
	}
	session.OnChange(func(state core.SessionState) {
		if state != core.StateAuthenticated {
			ec.Clear()
		}
	})
	return ec
}

func (e *EntityCache) namespaced(key string) string {
	token, _ := e.session.Token()
	return crypto.Fingerprint(token) + ":" + key
}

// Fetch returns the cached value for key or loads it with load, stores it
// and returns it. Concurrent Fetch calls for the same key share one load.
//
// The shared load runs detached from any single caller's context; each
// caller stops waiting when its own ctx is done. A load that overlaps an
// Invalidate of key is returned to its callers but not stored.
func Fetch[T any](ctx context.Context, e *EntityCache, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	full := e.namespaced(key)

	if e.cache != nil {
		raw, err := e.cache.Get(full)
		if err == nil {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			// entry written by an older layout
			e.cache.Delete(full)
		} else if !errors.Is(err, core.ErrCacheNotFound) {
			e.logger.Warn("cache read failed", "key", key, "error", err)
		}
	}

	detached := context.WithoutCancel(ctx)
	ch := e.group.DoChan(full, func() (any, error) {
		gen := e.generation(full)
		loaded, err := load(detached)
		if err != nil {
			return nil, err
		}
		e.storeIfCurrent(full, loaded, gen)
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Set stores value under key for the current credential.
func (e *EntityCache) Set(key string, value any) {
	e.store(e.namespaced(key), value)
}

// generation is bumped by every Invalidate of full and by Clear.
func (e *EntityCache) generation(full string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch + e.generations[full]
}

func (e *EntityCache) storeIfCurrent(full string, value any, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.epoch+e.generations[full] != gen {
		e.logger.Debug("dropping load overtaken by invalidation", "key", full)
		return
	}
	e.store(full, value)
}

func (e *EntityCache) store(full string, value any) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		e.logger.Warn("cache encode failed", "key", full, "error", err)
		return
	}
	if err := e.cache.Set(full, raw); err != nil {
		e.logger.Warn("cache write failed", "key", full, "error", err)
	}
}

// Invalidate drops keys for the current credential.
func (e *EntityCache) Invalidate(keys ...string) {
	for _, key := range keys {
		full := e.namespaced(key)
		e.mu.Lock()
		e.generations[full]++
		e.mu.Unlock()
		e.group.Forget(full)
		if e.cache == nil {
			continue
		}
		if err := e.cache.Delete(full); err != nil {
			e.logger.Warn("cache invalidate failed", "key", key, "error", err)
		}
	}
}

// Clear drops everything, for every credential.
func (e *EntityCache) Clear() {
	e.mu.Lock()
	e.epoch++
	e.mu.Unlock()
	if e.cache == nil {
		return
	}
	if err := e.cache.Clear(); err != nil {
		e.logger.Warn("cache clear failed", "error", err)
	}
}

// Invalidation sets of the mutations.

func (e *EntityCache) AfterEnroll(courseID int64) {
	e.Invalidate(CourseKey(courseID), LessonsKey(courseID), CoursesKey, MyCoursesKey)
}

func (e *EntityCache) AfterCompleteLesson(courseID int64) {
	e.Invalidate(CourseKey(courseID), MyCoursesKey)
}

func (e *EntityCache) AfterPostThread(courseID int64) {
	e.Invalidate(ThreadsKey(courseID))
}

func (e *EntityCache) AfterPostComment(threadID int64) {
	e.Invalidate(CommentsKey(threadID))
}

func (e *EntityCache) AfterProfileUpdate(p *core.Profile) {
	e.Invalidate(ProfileKey)
	if p != nil {
		e.Set(ProfileKey, p)
	}
}
