package views

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
)

// Tab is one dashboard section.
type Tab struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

var (
	studentTabs = []Tab{
		{ID: "courses", Label: "Courses"},
		{ID: "lessons", Label: "Lessons"},
		{ID: "quiz", Label: "Quizzes"},
		{ID: "discussion", Label: "Discussions"},
		{ID: "profile", Label: "Profile"},
		{ID: "chatbot", Label: "AI Chatbot"},
	}
	adminTabs      = []Tab{{ID: "users", Label: "Manage Users"}, {ID: "settings", Label: "Settings"}}
	instructorTabs = []Tab{{ID: "create-course", Label: "Create Course"}}
)

// TabsFor returns the dashboard sections available to a role.
func TabsFor(role core.Role) []Tab {
	tabs := append([]Tab(nil), studentTabs...)
	switch role {
	case core.RoleAdmin:
		tabs = append(tabs, adminTabs...)
	case core.RoleInstructor:
		tabs = append(tabs, instructorTabs...)
	}
	return tabs
}

// DashboardView is the landing screen after login. Opening it verifies the
// credential with the server; a rejected credential ends the session and
// the guard sends the user to the login path.
type DashboardView struct {
	base
	auth     *services.AuthService
	courses  *services.CourseService
	profiles *services.ProfileService

	mu     sync.Mutex
	active int64
	tab    string

	Message  *services.Fetcher[string]
	Profile  *services.Fetcher[*core.Profile]
	Enrolled *services.Fetcher[[]core.Course]
}

func NewDashboardView(d Deps) *DashboardView {
	return &DashboardView{
		base:     newBase(d),
		auth:     d.Auth,
		courses:  d.Courses,
		profiles: d.Profiles,
		tab:      studentTabs[0].ID,
		Message:  services.NewFetcher[string](),
		Profile:  services.NewFetcher[*core.Profile](),
		Enrolled: services.NewFetcher[[]core.Course](),
	}
}

// Open verifies the credential and loads the profile and enrolled courses
// concurrently. Only a verification failure fails Open; the other two
// report through their fetchers.
func (v *DashboardView) Open(ctx context.Context) error {
	if err := v.admit(ctx); err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := v.Message.Load(ctx, v.auth.Verify)
		return settled(err)
	})
	g.Go(func() error {
		v.Profile.Load(ctx, v.profiles.Me)
		return nil
	})
	g.Go(func() error {
		v.Enrolled.Load(ctx, v.courses.Enrolled)
		return nil
	})
	return g.Wait()
}

func (v *DashboardView) Close() {
	v.Message.Cancel()
	v.Profile.Cancel()
	v.Enrolled.Cancel()
	v.close()
}

// ActiveCourse is the course the course-scoped tabs show: the explicit
// choice while it is still enrolled, otherwise the first enrolled course.
func (v *DashboardView) ActiveCourse() (core.Course, bool) {
	courses, ok := v.Enrolled.Data()
	if !ok || len(courses) == 0 {
		return core.Course{}, false
	}
	v.mu.Lock()
	active := v.active
	v.mu.Unlock()
	for _, c := range courses {
		if c.ID == active {
			return c, true
		}
	}
	return courses[0], true
}

// SelectCourse chooses the active course among the enrolled ones.
func (v *DashboardView) SelectCourse(courseID int64) error {
	courses, ok := v.Enrolled.Data()
	if !ok {
		return core.ErrNotLoaded
	}
	for _, c := range courses {
		if c.ID == courseID {
			v.mu.Lock()
			v.active = courseID
			v.mu.Unlock()
			return nil
		}
	}
	return core.ErrNotEnrolled
}

// Tabs depend on the loaded profile's role; students' tabs until then.
func (v *DashboardView) Tabs() []Tab {
	var role core.Role
	if p, ok := v.Profile.Data(); ok {
		role = p.Role
	}
	return TabsFor(role)
}

func (v *DashboardView) ActiveTab() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tab
}

func (v *DashboardView) SelectTab(id string) error {
	for _, t := range v.Tabs() {
		if t.ID == id {
			v.mu.Lock()
			v.tab = id
			v.mu.Unlock()
			return nil
		}
	}
	return core.ErrUnknownTab
}

// Logout ends the session; the guard then redirects.
func (v *DashboardView) Logout(ctx context.Context) error {
	return v.auth.Logout(ctx)
}
