package fiber

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/ailearn/learnsync/core"
	"github.com/ailearn/learnsync/services"
	"github.com/ailearn/learnsync/views"
)

type loginInput struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type registerInput struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
	Role      string `json:"role" form:"role"`
	Bio       string `json:"bio" form:"bio"`
	Interests string `json:"interests" form:"interests"`
	Website   string `json:"website" form:"website"`
	Phone     string `json:"phone" form:"phone"`
	Location  string `json:"location" form:"location"`
}

type profileInput struct {
	Bio       string `json:"bio" form:"bio"`
	Interests string `json:"interests" form:"interests"`
	Phone     string `json:"phone" form:"phone"`
	Website   string `json:"website" form:"website"`
	Location  string `json:"location" form:"location"`
}

type textInput struct {
	Title   string `json:"title" form:"title"`
	Text    string `json:"text" form:"text"`
	Answer  string `json:"answer" form:"answer"`
	Message string `json:"message" form:"message"`
}

type dashboardResponse struct {
	Message      string        `json:"message"`
	Profile      *core.Profile `json:"profile,omitempty"`
	Courses      []core.Course `json:"courses"`
	ActiveCourse *core.Course  `json:"active_course,omitempty"`
	Tabs         []views.Tab   `json:"tabs"`
	ActiveTab    string        `json:"active_tab"`
}

type courseResponse struct {
	Course   *core.Course  `json:"course"`
	Lessons  []core.Lesson `json:"lessons"`
	Progress int           `json:"progress"`
}

type discussionResponse struct {
	Threads  []core.Thread  `json:"threads"`
	Selected *core.Thread   `json:"selected,omitempty"`
	Comments []core.Comment `json:"comments"`
}

type quizResponse struct {
	Quiz    *core.Quiz        `json:"quiz"`
	Attempt *core.QuizAttempt `json:"attempt,omitempty"`
	NextID  *int64            `json:"next_id,omitempty"`
}

func (a *Adapter) loginPrompt(c fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(core.ErrorResponse{
		Error:   "login required",
		Message: core.UserMessage(core.ErrNoCredential),
		Code:    http.StatusUnauthorized,
	})
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input loginInput
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}
	if err := a.client.Auth.Login(c.Context(), input.Username, input.Password); err != nil {
		return a.handleError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "logged in"})
}

func (a *Adapter) register(c fiber.Ctx) error {
	var input registerInput
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}
	avatar, err := formUpload(c, "avatar")
	if err != nil {
		return invalidBody(c)
	}

	reg := core.Registration{
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Role:      core.Role(input.Role),
		Bio:       input.Bio,
		Interests: input.Interests,
		Website:   input.Website,
		Phone:     input.Phone,
		Location:  input.Location,
		Avatar:    avatar,
	}
	if err := a.client.Auth.Register(c.Context(), reg); err != nil {
		return a.handleError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "registered"})
}

func (a *Adapter) logout(c fiber.Ctx) error {
	if err := a.client.Auth.Logout(c.Context()); err != nil {
		return a.handleError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "signed out successfully"})
}

func (a *Adapter) dashboard(c fiber.Ctx) error {
	nav := navigatorFrom(c)
	v := views.NewDashboardView(a.client.Deps(nav))
	defer v.Close()

	err := v.Open(c.Context())
	if err == nil {
		if id := c.Query("course"); id != "" {
			courseID, convErr := strconv.ParseInt(id, 10, 64)
			if convErr != nil {
				return invalidID(c, "course")
			}
			err = v.SelectCourse(courseID)
		}
	}
	if err == nil {
		if tab := c.Query("tab"); tab != "" {
			err = v.SelectTab(tab)
		}
	}

	return a.respond(c, nav, err, func() any {
		resp := dashboardResponse{Tabs: v.Tabs(), ActiveTab: v.ActiveTab(), Courses: []core.Course{}}
		resp.Message, _ = v.Message.Data()
		resp.Profile, _ = v.Profile.Data()
		if courses, ok := v.Enrolled.Data(); ok {
			resp.Courses = courses
		}
		if active, ok := v.ActiveCourse(); ok {
			resp.ActiveCourse = &active
		}
		return resp
	})
}

func (a *Adapter) catalog(c fiber.Ctx) error {
	nav := navigatorFrom(c)
	v := views.NewCatalogView(a.client.Deps(nav))
	defer v.Close()

	err := v.Open(c.Context())
	return a.respond(c, nav, err, func() any {
		courses, _ := v.Courses.Data()
		return courses
	})
}

func (a *Adapter) openCourse(c fiber.Ctx) (*views.CourseView, *redirector, error) {
	courseID, err := paramID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	nav := navigatorFrom(c)
	v := views.NewCourseView(a.client.Deps(nav), courseID)
	return v, nav, v.Open(c.Context())
}

func courseBody(v *views.CourseView) func() any {
	return func() any {
		course, _ := v.Course.Data()
		lessons, _ := v.Lessons.Data()
		return courseResponse{Course: course, Lessons: lessons, Progress: v.Progress()}
	}
}

func (a *Adapter) course(c fiber.Ctx) error {
	v, nav, err := a.openCourse(c)
	if v == nil {
		return invalidID(c, "course")
	}
	defer v.Close()
	return a.respond(c, nav, err, courseBody(v))
}

func (a *Adapter) enroll(c fiber.Ctx) error {
	v, nav, err := a.openCourse(c)
	if v == nil {
		return invalidID(c, "course")
	}
	defer v.Close()
	if err == nil {
		err = v.Enroll(c.Context())
	}
	return a.respond(c, nav, err, courseBody(v))
}

func (a *Adapter) completeLesson(c fiber.Ctx) error {
	lessonID, err := paramID(c, "lessonId")
	if err != nil {
		return invalidID(c, "lesson")
	}
	v, nav, err := a.openCourse(c)
	if v == nil {
		return invalidID(c, "course")
	}
	defer v.Close()
	if err == nil {
		err = v.CompleteLesson(c.Context(), lessonID)
	}
	return a.respond(c, nav, err, courseBody(v))
}

// openDiscussion opens the board and applies an explicit ?thread= choice.
func (a *Adapter) openDiscussion(c fiber.Ctx) (*views.DiscussionView, *redirector, error) {
	courseID, err := paramID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	nav := navigatorFrom(c)
	v := views.NewDiscussionView(a.client.Deps(nav), courseID)
	if err := v.Open(c.Context()); err != nil {
		return v, nav, err
	}
	if raw := c.Query("thread"); raw != "" {
		threadID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return v, nav, core.ErrNoThreadSelected
		}
		return v, nav, v.Select(c.Context(), threadID)
	}
	return v, nav, nil
}

func discussionBody(v *views.DiscussionView) func() any {
	return func() any {
		resp := discussionResponse{Threads: []core.Thread{}, Comments: []core.Comment{}}
		if threads, ok := v.Threads.Data(); ok {
			resp.Threads = threads
		}
		if selected, ok := v.Selected(); ok {
			resp.Selected = &selected
			if comments, ok := v.Comments.Data(); ok {
				resp.Comments = comments
			}
		}
		return resp
	}
}

func (a *Adapter) discussion(c fiber.Ctx) error {
	v, nav, err := a.openDiscussion(c)
	if v == nil {
		return invalidID(c, "course")
	}
	defer v.Close()
	return a.respond(c, nav, err, discussionBody(v))
}

func (a *Adapter) postThread(c fiber.Ctx) error {
	var input textInput
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}
	v, nav, err := a.openDiscussion(c)
	if v == nil {
		return invalidID(c, "course")
	}
	defer v.Close()
	if err == nil {
		_, err = v.PostThread(c.Context(), input.Title)
	}
	return a.respondStatus(c, nav, err, http.StatusCreated, discussionBody(v))
}

func (a *Adapter) postComment(c fiber.Ctx) error {
	var input textInput
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}
	v, nav, err := a.openDiscussion(c)
	if v == nil {
		return invalidID(c, "course")
	}
	defer v.Close()
	if err == nil {
		_, err = v.PostComment(c.Context(), input.Text)
	}
	return a.respondStatus(c, nav, err, http.StatusCreated, discussionBody(v))
}

func (a *Adapter) openQuiz(c fiber.Ctx) (*views.QuizView, *redirector, error) {
	quizID, err := paramID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	nav := navigatorFrom(c)
	v := views.NewQuizView(a.client.Deps(nav), quizID)
	return v, nav, v.Open(c.Context())
}

func quizBody(v *views.QuizView) func() any {
	return func() any {
		quiz, _ := v.Quiz.Data()
		resp := quizResponse{Quiz: quiz}
		if attempt := v.Attempt(); attempt.Feedback != "" || attempt.Answer != "" {
			resp.Attempt = &attempt
		}
		if next, ok := v.Next(); ok {
			resp.NextID = &next
		}
		return resp
	}
}

func (a *Adapter) quiz(c fiber.Ctx) error {
	v, nav, err := a.openQuiz(c)
	if v == nil {
		return invalidID(c, "quiz")
	}
	defer v.Close()
	return a.respond(c, nav, err, quizBody(v))
}

func (a *Adapter) answerQuiz(c fiber.Ctx) error {
	var input textInput
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}
	v, nav, err := a.openQuiz(c)
	if v == nil {
		return invalidID(c, "quiz")
	}
	defer v.Close()
	if err == nil {
		_, err = v.Submit(c.Context(), input.Answer)
	}
	return a.respond(c, nav, err, quizBody(v))
}

func (a *Adapter) profile(c fiber.Ctx) error {
	nav := navigatorFrom(c)
	v := views.NewProfileView(a.client.Deps(nav))
	defer v.Close()

	err := v.Open(c.Context())
	return a.respond(c, nav, err, func() any {
		profile, _ := v.Profile.Data()
		return profile
	})
}

func (a *Adapter) updateProfile(c fiber.Ctx) error {
	var input profileInput
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}
	avatar, err := formUpload(c, "avatar")
	if err != nil {
		return invalidBody(c)
	}

	nav := navigatorFrom(c)
	v := views.NewProfileView(a.client.Deps(nav))
	defer v.Close()

	err = v.Open(c.Context())
	if err == nil {
		err = v.BeginEdit()
	}
	if err == nil {
		err = v.SetDraft(core.ProfileUpdate{
			Bio:       input.Bio,
			Interests: input.Interests,
			Phone:     input.Phone,
			Website:   input.Website,
			Location:  input.Location,
			Avatar:    avatar,
		})
	}
	if err == nil {
		_, err = v.Save(c.Context())
	}
	return a.respond(c, nav, err, func() any {
		profile, _ := v.Profile.Data()
		return profile
	})
}

func (a *Adapter) chat(c fiber.Ctx) error {
	return a.ask(c, a.client.Assistant.Chat)
}

func (a *Adapter) deepSeek(c fiber.Ctx) error {
	return a.ask(c, a.client.Assistant.DeepSeekChat)
}

func (a *Adapter) ask(c fiber.Ctx, send func(ctx context.Context, message string) (string, error)) error {
	var input textInput
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}
	reply, err := send(c.Context(), input.Message)
	return a.respond(c, navigatorFrom(c), err, func() any {
		return fiber.Map{"response": reply}
	})
}

func (a *Adapter) recommendations(c fiber.Ctx) error {
	raw, err := a.client.Assistant.Recommendations(c.Context())
	if err == nil && len(raw) == 0 {
		raw = []byte("null")
	}
	return a.respond(c, navigatorFrom(c), err, func() any { return raw })
}

func (a *Adapter) respond(c fiber.Ctx, nav *redirector, err error, body func() any) error {
	return a.respondStatus(c, nav, err, http.StatusOK, body)
}

// respondStatus writes the guard's redirect if one fired, the error if the
// request failed, or the body.
func (a *Adapter) respondStatus(c fiber.Ctx, nav *redirector, err error, status int, body func() any) error {
	if path, ok := nav.target(); ok {
		return c.Redirect().Status(fiber.StatusFound).To(path)
	}
	if errors.Is(err, core.ErrNoCredential) {
		return c.Redirect().Status(fiber.StatusFound).To(a.client.LoginPath)
	}
	if err != nil {
		return a.handleError(c, err)
	}
	return c.Status(status).JSON(body())
}

// handleError maps learnsync errors to appropriate HTTP responses
func (a *Adapter) handleError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError && a.client.Logger != nil {
		a.client.Logger.Warn("request failed", "path", c.Path(), "status", status, "error", err)
	}

	resp := core.ErrorResponse{
		Error:   err.Error(),
		Message: core.UserMessage(err),
		Code:    status,
	}
	if apiErr, ok := core.AsAPIError(err); ok {
		resp.Fields = apiErr.Fields
	}
	return c.Status(status).JSON(resp)
}

// mapErrorToStatus maps learnsync error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrUnauthenticated),
		errors.Is(err, core.ErrNoCredential),
		errors.Is(err, core.ErrInvalidToken):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrUsernameRequired),
		errors.Is(err, core.ErrPasswordRequired),
		errors.Is(err, core.ErrTitleRequired),
		errors.Is(err, core.ErrTextRequired),
		errors.Is(err, core.ErrAnswerRequired),
		errors.Is(err, core.ErrNoThreadSelected),
		errors.Is(err, core.ErrAlreadyEnrolled),
		errors.Is(err, core.ErrNotEnrolled),
		errors.Is(err, core.ErrLessonNotInCourse),
		errors.Is(err, core.ErrNotEditing),
		errors.Is(err, core.ErrUnknownTab):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrNotLoaded):
		return http.StatusNotFound

	case errors.Is(err, services.ErrMutationPending):
		return http.StatusConflict

	case errors.Is(err, core.ErrServer):
		return http.StatusBadGateway

	case errors.Is(err, core.ErrNetwork):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

func paramID(c fiber.Ctx, name string) (int64, error) {
	return strconv.ParseInt(c.Params(name), 10, 64)
}

func invalidID(c fiber.Ctx, what string) error {
	return c.Status(http.StatusBadRequest).JSON(core.ErrorResponse{
		Error: "invalid " + what + " id",
		Code:  http.StatusBadRequest,
	})
}

func invalidBody(c fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(core.ErrorResponse{
		Error: "invalid request body",
		Code:  http.StatusBadRequest,
	})
}

// formUpload reads an optional file part. A request without the part, or
// one that is not multipart, has no upload.
func formUpload(c fiber.Ctx, field string) (*core.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &core.Upload{FileName: fh.Filename, Content: content}, nil
}
