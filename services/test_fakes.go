package services

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/ailearn/learnsync/core"
)

// FakeStorage is a test-only core.Storage with error injection.
type FakeStorage struct {
	*core.MemoryStorage
	mu        sync.Mutex
	loadErr   error
	saveErr   error
	deleteErr error
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{MemoryStorage: core.NewMemoryStorage()}
}

func (f *FakeStorage) Load(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	err := f.loadErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.MemoryStorage.Load(ctx, key)
}

func (f *FakeStorage) Save(ctx context.Context, key, value string) error {
	f.mu.Lock()
	err := f.saveErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStorage.Save(ctx, key, value)
}

func (f *FakeStorage) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MemoryStorage.Delete(ctx, key)
}

func (f *FakeStorage) SetLoadError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadErr = err
}

func (f *FakeStorage) SetSaveError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

func (f *FakeStorage) SetDeleteError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr = err
}

// FakeCache is a test-only core.Cache that counts calls and can be made to
// fail.
type FakeCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	gets    int
	sets    int
	deletes int
	clears  int
}

func NewFakeCache() *FakeCache {
	return &FakeCache{data: make(map[string][]byte)}
}

func (f *FakeCache) Get(key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, core.ErrCacheNotFound
	}
	return v, nil
}

func (f *FakeCache) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *FakeCache) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.data, key)
	return nil
}

func (f *FakeCache) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.data = make(map[string][]byte)
	return nil
}

func (f *FakeCache) SetGetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

func (f *FakeCache) SetSetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setErr = err
}

// Keys returns the stored keys, namespace included.
func (f *FakeCache) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		keys = append(keys, k)
	}
	return keys
}

// HasSuffix reports whether any stored key ends with ":"+key.
func (f *FakeCache) HasSuffix(key string) bool {
	for _, k := range f.Keys() {
		if strings.HasSuffix(k, ":"+key) {
			return true
		}
	}
	return false
}

func (f *FakeCache) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

// RecordedRequest is what FakeAPI saw of one request.
type RecordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Header http.Header
	Body   []byte
	Form   map[string]string
	Files  map[string][]byte
}

// JSON decodes the recorded body into v.
func (r RecordedRequest) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// FakeAPI is a test-only stand-in for the AI Learn API. Unrouted requests
// answer 404 with a DRF-style detail.
type FakeAPI struct {
	Server   *httptest.Server
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []RecordedRequest
}

func NewFakeAPI() *FakeAPI {
	f := &FakeAPI{routes: make(map[string]http.HandlerFunc)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

func (f *FakeAPI) URL() string { return f.Server.URL }
func (f *FakeAPI) Close()      { f.Server.Close() }

// Handle routes METHOD path to h.
func (f *FakeAPI) Handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = h
}

// Reply routes METHOD path to a fixed JSON response.
func (f *FakeAPI) Reply(method, path string, status int, body any) {
	f.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, body)
	})
}

func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Count returns how many requests hit METHOD path.
func (f *FakeAPI) Count(method, path string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request to METHOD path.
func (f *FakeAPI) Last(method, path string) (RecordedRequest, bool) {
	reqs := f.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return RecordedRequest{}, false
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	rec := RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  make(map[string]string),
		Header: r.Header.Clone(),
	}
	for k, v := range r.URL.Query() {
		rec.Query[k] = v[0]
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(10 << 20); err == nil {
			rec.Form = make(map[string]string)
			for k, v := range r.MultipartForm.Value {
				rec.Form[k] = v[0]
			}
			rec.Files = make(map[string][]byte)
			for k, fhs := range r.MultipartForm.File {
				if file, err := fhs[0].Open(); err == nil {
					rec.Files[k], _ = io.ReadAll(file)
					file.Close()
				}
			}
		}
	} else {
		rec.Body, _ = io.ReadAll(r.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	h(w, r)
}

// WriteJSON writes body as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// NewFakeClient wires an APIClient, session and entity cache against
// baseURL. A non-empty token starts the session authenticated.
func NewFakeClient(baseURL, token string, cache core.Cache) (*APIClient, *EntityCache) {
	session := core.NewSession(core.NewMemoryStorage())
	if token != "" {
		if err := session.Authenticate(context.Background(), token); err != nil {
			panic(err)
		}
	}
	api, err := NewAPIClient(APIOptions{BaseURL: baseURL}, NewEndpointRegistry(), session)
	if err != nil {
		panic(err)
	}
	return api, NewEntityCache(cache, session, nil)
}
