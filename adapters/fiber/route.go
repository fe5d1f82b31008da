package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/ailearn/learnsync"
)

// Adapter serves a learnsync Client as a small JSON companion server. Each
// protected route opens the matching view; when the view's guard redirects
// the route answers 302 to the login path.
type Adapter struct {
	app    *fiber.App
	client *learnsync.Client
}

var _ learnsync.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

func (a *Adapter) RegisterRoutes(client *learnsync.Client) error {
	a.client = client

	// Public routes
	a.app.Get(client.LoginPath, a.loginPrompt)
	a.app.Post(client.LoginPath, a.login)
	a.app.Post("/register", a.register)
	a.app.Post("/logout", a.logout)

	// Protected routes
	a.app.Get("/dashboard", a.protected, a.dashboard)
	a.app.Get("/courses", a.protected, a.catalog)
	a.app.Get("/courses/:id", a.protected, a.course)
	a.app.Post("/courses/:id/enroll", a.protected, a.enroll)
	a.app.Post("/courses/:id/lessons/:lessonId/complete", a.protected, a.completeLesson)
	a.app.Get("/courses/:id/discussion", a.protected, a.discussion)
	a.app.Post("/courses/:id/discussion/threads", a.protected, a.postThread)
	a.app.Post("/courses/:id/discussion/comments", a.protected, a.postComment)
	a.app.Get("/quizzes/:id", a.protected, a.quiz)
	a.app.Post("/quizzes/:id/answer", a.protected, a.answerQuiz)
	a.app.Get("/profile", a.protected, a.profile)
	a.app.Put("/profile", a.protected, a.updateProfile)

	// Assistant pass-throughs
	a.app.Post("/assistant/chat", a.protected, a.chat)
	a.app.Post("/assistant/deepseek", a.protected, a.deepSeek)
	a.app.Get("/assistant/recommendations", a.protected, a.recommendations)

	return nil
}
