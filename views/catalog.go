package views

import (
	"context"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
)

// CatalogView lists every course.
type CatalogView struct {
	base
	courses *services.CourseService

	Courses *services.Fetcher[[]core.Course]
}

func NewCatalogView(d Deps) *CatalogView {
	return &CatalogView{
		base:    newBase(d),
		courses: d.Courses,
		Courses: services.NewFetcher[[]core.Course](),
	}
}

func (v *CatalogView) Open(ctx context.Context) error {
	if err := v.admit(ctx); err != nil {
		return err
	}
	_, err := v.Courses.Load(ctx, v.courses.List)
	return settled(err)
}

func (v *CatalogView) Close() {
	v.Courses.Cancel()
	v.close()
}
