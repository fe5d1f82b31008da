package services

import (
	"errors"
	"testing"

	"github.com/ailearn/learnsync/core"
)

// Requirement: the endpoint table carries the method, path and auth mode of
// every remote operation.
func TestBaseEndpoints(t *testing.T) {
	tests := []struct {
		op            string
		wantMethod    string
		wantPath      string
		wantAuth      core.AuthMode
		wantMultipart bool
	}{
		{OpListCourses, "GET", "/courses/", core.AuthOptional, false},
		{OpGetCourse, "GET", "/courses/{id}/", core.AuthRequired, false},
		{OpEnroll, "POST", "/courses/{id}/enroll/", core.AuthRequired, false},
		{OpMyCourses, "GET", "/my-courses/", core.AuthRequired, false},
		{OpCompleteLesson, "POST", "/lessons/{id}/complete/", core.AuthRequired, false},
		{OpSubmitQuiz, "POST", "/quizzes/{id}/submit/", core.AuthRequired, false},
		{OpListThreads, "GET", "/courses/{id}/threads/", core.AuthRequired, false},
		{OpCreateComment, "POST", "/comments/", core.AuthRequired, false},
		{OpUpdateProfile, "PUT", "/profiles/me/", core.AuthRequired, true},
		{OpLogin, "POST", "/auth/login/", core.AuthNone, false},
		{OpRegister, "POST", "/auth/register/", core.AuthNone, true},
		{OpDeepSeekChat, "POST", "/deepseek/chat/", core.AuthOptional, false},
	}

	// Arrange
	reg := NewEndpointRegistry()

	for _, test := range tests {
		test := test
		t.Run(test.op, func(t *testing.T) {
			// Act
			ep, err := reg.Lookup(test.op)

			// Assert
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", test.op, err)
			}
			if ep.Method != test.wantMethod || ep.Path != test.wantPath {
				t.Errorf("endpoint = %s %s, want %s %s", ep.Method, ep.Path, test.wantMethod, test.wantPath)
			}
			if ep.Auth != test.wantAuth {
				t.Errorf("auth = %v, want %v", ep.Auth, test.wantAuth)
			}
			if ep.Multipart != test.wantMultipart {
				t.Errorf("multipart = %v, want %v", ep.Multipart, test.wantMultipart)
			}
			if ep.Metadata.Description == "" {
				t.Error("endpoint has no description")
			}
		})
	}
}

// Requirement: login and register must never carry a credential.
func TestBaseEndpoints_OnlyAuthEntryPointsSkipCredential(t *testing.T) {
	for _, ep := range BaseEndpoints() {
		isEntry := ep.Metadata.OperationID == OpLogin || ep.Metadata.OperationID == OpRegister
		if isEntry != (ep.Auth == core.AuthNone) {
			t.Errorf("%s auth = %v", ep.Metadata.OperationID, ep.Auth)
		}
	}
}

func TestEndpointRegistry_LookupUnknown(t *testing.T) {
	reg := NewEndpointRegistry()

	_, err := reg.Lookup("nope")
	if !errors.Is(err, core.ErrUnknownOperation) {
		t.Errorf("Lookup() error = %v, want ErrUnknownOperation", err)
	}
}

func TestEndpointRegistry_RegisterPlugin(t *testing.T) {
	extra := func(op, method, path string) core.Endpoint {
		return core.Endpoint{Method: method, Path: path, Metadata: core.EndpointMetadata{OperationID: op}}
	}

	tests := []struct {
		name    string
		batch   []core.Endpoint
		wantErr bool
	}{
		{
			name:  "new operation",
			batch: []core.Endpoint{extra("listBadges", "GET", "/badges/")},
		},
		{
			name:    "route conflict with base",
			batch:   []core.Endpoint{extra("coursesAgain", "GET", "/courses/")},
			wantErr: true,
		},
		{
			name:    "operation conflict with base",
			batch:   []core.Endpoint{extra(OpLogin, "POST", "/login2/")},
			wantErr: true,
		},
		{
			name:    "duplicate within batch",
			batch:   []core.Endpoint{extra("a", "GET", "/x/"), extra("b", "GET", "/x/")},
			wantErr: true,
		},
		{
			name:    "missing operation id",
			batch:   []core.Endpoint{extra("", "GET", "/y/")},
			wantErr: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			reg := NewEndpointRegistry()
			before := len(reg.Endpoints())

			// Act
			err := reg.RegisterPlugin(test.batch)

			// Assert
			if (err != nil) != test.wantErr {
				t.Fatalf("RegisterPlugin() error = %v, wantErr %v", err, test.wantErr)
			}
			after := len(reg.Endpoints())
			if test.wantErr && after != before {
				t.Errorf("failed batch registered %d endpoints", after-before)
			}
			if !test.wantErr && after != before+len(test.batch) {
				t.Errorf("registered %d endpoints, want %d", after-before, len(test.batch))
			}
		})
	}
}

func TestEndpointRegistry_EndpointsAreSorted(t *testing.T) {
	eps := NewEndpointRegistry().Endpoints()
	if len(eps) != len(BaseEndpoints()) {
		t.Fatalf("Endpoints() = %d, want %d", len(eps), len(BaseEndpoints()))
	}
	for i := 1; i < len(eps); i++ {
		if eps[i-1].Metadata.OperationID > eps[i].Metadata.OperationID {
			t.Fatalf("Endpoints() not sorted at %d", i)
		}
	}
}
