package core

// Course is a catalog entry as seen by the current credential.
//
// Enrolled and CompletedLessons are relative to whoever the request was
// authenticated as, so a Course must never be shared across credentials.
type Course struct {
	ID               int64           `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	Instructor       string          `json:"instructor,omitempty"`
	Category         string          `json:"category,omitempty"`
	Image            string          `json:"img,omitempty"`
	Enrolled         bool            `json:"enrolled"`
	CompletedLessons []int64         `json:"completed_lessons"`
	UserInfo         *EnrollmentInfo `json:"user_info,omitempty"`

	// Only populated by the enrolled-courses listing
	Progress  *int `json:"progress,omitempty"`
	Completed bool `json:"completed,omitempty"`
}

// EnrollmentInfo describes the current user's enrollment in a course.
type EnrollmentInfo struct {
	Username   string   `json:"username"`
	EnrolledAt string   `json:"enrolled_at"`
	Badges     []string `json:"badges"`
}

// HasCompleted reports whether lessonID is in the course's completed set.
func (c *Course) HasCompleted(lessonID int64) bool {
	for _, id := range c.CompletedLessons {
		if id == lessonID {
			return true
		}
	}
	return false
}

// MarkCompleted adds lessonID to the completed set. It reports false when
// the lesson was already there.
func (c *Course) MarkCompleted(lessonID int64) bool {
	if c.HasCompleted(lessonID) {
		return false
	}
	c.CompletedLessons = append(c.CompletedLessons, lessonID)
	return true
}

// Lesson belongs to exactly one course.
type Lesson struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
	Resource    string `json:"resource,omitempty"`
	Course      int64  `json:"course"`
}

// Quiz is one node of a quiz chain; NextID links to the following quiz.
type Quiz struct {
	ID       int64  `json:"id"`
	Question string `json:"question"`
	NextID   *int64 `json:"next_id,omitempty"`
	Course   int64  `json:"course,omitempty"`
}

// QuizAttempt is the client-side record of an answer and the server's
// feedback on it.
type QuizAttempt struct {
	Answer   string `json:"answer"`
	Feedback string `json:"feedback"`
}

// Thread is a discussion topic scoped to one course.
type Thread struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Course        int64  `json:"course"`
	CreatedByName string `json:"created_by_name,omitempty"`
}

// Comment always belongs to exactly one thread.
type Comment struct {
	ID       int64  `json:"id"`
	Thread   int64  `json:"thread"`
	Text     string `json:"text"`
	UserName string `json:"user_name,omitempty"`
}

// Role of a profile
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// Profile is the server representation of the current user's profile.
//
// User and Username are identity fields owned by the server; they are read
// but never written back (see ProfileUpdate).
type Profile struct {
	ID        int64  `json:"id,omitempty"`
	User      string `json:"user,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      Role   `json:"role,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Interests string `json:"interests,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Website   string `json:"website,omitempty"`
	Location  string `json:"location,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// DisplayName returns the best available name for the profile owner.
func (p *Profile) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.User
}

// Upload is a file part of a multipart request.
type Upload struct {
	FileName string
	Content  []byte
}

// ProfileUpdate holds the editable subset of a Profile. It deliberately has
// no identity fields.
type ProfileUpdate struct {
	Bio       string
	Interests string
	Phone     string
	Website   string
	Location  string
	Avatar    *Upload
}

// EditableFrom seeds an update with the editable fields of p.
func EditableFrom(p *Profile) ProfileUpdate {
	if p == nil {
		return ProfileUpdate{}
	}
	return ProfileUpdate{
		Bio:       p.Bio,
		Interests: p.Interests,
		Phone:     p.Phone,
		Website:   p.Website,
		Location:  p.Location,
	}
}

// FormData returns the text parts of the multipart payload. bio and
// interests are always sent so they can be cleared; contact fields only
// when set.
func (u ProfileUpdate) FormData() map[string]string {
	form := map[string]string{
		"bio":       u.Bio,
		"interests": u.Interests,
	}
	if u.Phone != "" {
		form["phone"] = u.Phone
	}
	if u.Website != "" {
		form["website"] = u.Website
	}
	if u.Location != "" {
		form["location"] = u.Location
	}
	return form
}

// Registration is the sign-up form.
type Registration struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      Role
	Bio       string
	Interests string
	Website   string
	Phone     string
	Location  string
	Avatar    *Upload
}

// FormData returns the non-empty text fields of the registration.
func (r Registration) FormData() map[string]string {
	role := r.Role
	if role == "" {
		role = RoleStudent
	}
	fields := map[string]string{
		"username":   r.Username,
		"email":      r.Email,
		"password":   r.Password,
		"first_name": r.FirstName,
		"last_name":  r.LastName,
		"role":       string(role),
		"bio":        r.Bio,
		"interests":  r.Interests,
		"website":    r.Website,
		"phone":      r.Phone,
		"location":   r.Location,
	}
	for k, v := range fields {
		if v == "" {
			delete(fields, k)
		}
	}
	return fields
}

// ProgressRecord is one per-lesson progress entry of a user.
type ProgressRecord struct {
	ID          int64  `json:"id"`
	Lesson      int64  `json:"lesson,omitempty"`
	LessonTitle string `json:"lesson_title"`
	Completed   bool   `json:"completed"`
}
