package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nhle/mailclient/internal/model"
)

// RecordedRequest is what the fake service saw for one request.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type fakeUser struct {
	password  string
	createdAt string
}

type fakeAttachment struct {
	contentType string
	data        []byte
}

// FakeService is an in-process stand-in for the mail-indexing service.
// Routes live under /api, mirroring the real deployment. Any route can
// be replaced with Override.
type FakeService struct {
	// URL is the API root to hand to api.NewClient.
	URL string

	// RegisterKey, when set, must be sent as the Authorization header
	// of /register requests.
	RegisterKey string

	server *httptest.Server

	mu          sync.Mutex
	users       map[string]fakeUser
	tokens      map[string]string
	emails      []model.EmailSummary
	attachments map[string]fakeAttachment
	requests    []RecordedRequest
	nextToken   string
	overrides   map[string]http.HandlerFunc
}

// NewFakeService starts a fake service that is shut down when the test ends.
func NewFakeService(t *testing.T) *FakeService {
	t.Helper()

	f := &FakeService{
		users:       make(map[string]fakeUser),
		tokens:      make(map[string]string),
		attachments: make(map[string]fakeAttachment),
		overrides:   make(map[string]http.HandlerFunc),
	}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Route("/api", func(r chi.Router) {
		r.Post("/register", f.route("POST /register", f.handleRegister))
		r.Post("/login", f.route("POST /login", f.handleLogin))
		r.Group(func(r chi.Router) {
			r.Use(f.requireToken)
			r.Get("/emails", f.route("GET /emails", f.handleEmails))
			r.Get("/emails/{emailId}/attachments/{filename}",
				f.route("GET /attachment", f.handleAttachment))
			r.Get("/user/profile", f.route("GET /user/profile", f.handleProfile))
			r.Post("/logout", f.route("POST /logout", f.handleLogout))
		})
	})

	f.server = httptest.NewServer(r)
	f.URL = f.server.URL + "/api"
	t.Cleanup(f.server.Close)

	return f
}

// Close shuts the server down early, e.g. to simulate a network failure.
func (f *FakeService) Close() {
	f.server.Close()
}

// AddUser registers an account directly.
func (f *FakeService) AddUser(email, password, createdAt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = fakeUser{password: password, createdAt: createdAt}
}

// IssueToken returns a valid token for email without a login round trip.
func (f *FakeService) IssueToken(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := "tok-" + uuid.NewString()
	f.tokens[token] = email
	return token
}

// SetNextToken makes the next successful login issue token.
func (f *FakeService) SetNextToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextToken = token
}

// SetEmails replaces the inbox served by GET /emails.
func (f *FakeService) SetEmails(emails []model.EmailSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = emails
}

// AddAttachment makes an attachment downloadable.
func (f *FakeService) AddAttachment(emailID, filename, contentType string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments[emailID+"/"+filename] = fakeAttachment{contentType: contentType, data: data}
}

// Override replaces a route. Keys are "POST /register", "POST /login",
// "GET /emails", "GET /attachment", "GET /user/profile" and "POST /logout".
// Authorized routes still pass through the token check.
func (f *FakeService) Override(key string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[key] = h
}

// Requests returns every request received so far.
func (f *FakeService) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// RequestCount returns the number of requests received so far.
func (f *FakeService) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// LastRequest returns the most recent request, if any.
func (f *FakeService) LastRequest() (RecordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return RecordedRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

// TokenValid reports whether token is currently accepted.
func (f *FakeService) TokenValid(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tokens[token]
	return ok
}

// WriteJSON writes v with the given status, for use in overrides.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDetail writes a {"detail": msg} error body.
func WriteDetail(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"detail": msg})
}

func (f *FakeService) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.EscapedPath(),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeService) route(key string, def http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		h, ok := f.overrides[key]
		f.mu.Unlock()
		if ok {
			h(w, r)
			return
		}
		def(w, r)
	}
}

func (f *FakeService) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			WriteDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		f.mu.Lock()
		email, valid := f.tokens[token]
		f.mu.Unlock()
		if !valid {
			WriteDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		r.Header.Set("X-Fake-User", email)
		r.Header.Set("X-Fake-Token", token)
		next.ServeHTTP(w, r)
	})
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f *FakeService) handleRegister(w http.ResponseWriter, r *http.Request) {
	if f.RegisterKey != "" && r.Header.Get("Authorization") != f.RegisterKey {
		WriteDetail(w, http.StatusUnauthorized, "Invalid registration key")
		return
	}

	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	f.mu.Lock()
	_, exists := f.users[body.Email]
	if !exists {
		f.users[body.Email] = fakeUser{password: body.Password, createdAt: "2024-01-01T00:00:00"}
	}
	f.mu.Unlock()

	if exists {
		WriteDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

func (f *FakeService) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	f.mu.Lock()
	user, ok := f.users[body.Email]
	if !ok || user.password != body.Password {
		f.mu.Unlock()
		WriteDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	token := f.nextToken
	f.nextToken = ""
	if token == "" {
		token = "tok-" + uuid.NewString()
	}
	f.tokens[token] = body.Email
	f.mu.Unlock()

	WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (f *FakeService) handleEmails(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	emails := f.emails
	f.mu.Unlock()
	if emails == nil {
		emails = []model.EmailSummary{}
	}
	WriteJSON(w, http.StatusOK, emails)
}

func (f *FakeService) handleAttachment(w http.ResponseWriter, r *http.Request) {
	emailID, _ := url.PathUnescape(chi.URLParam(r, "emailId"))
	filename, _ := url.PathUnescape(chi.URLParam(r, "filename"))

	f.mu.Lock()
	att, ok := f.attachments[emailID+"/"+filename]
	f.mu.Unlock()
	if !ok {
		WriteDetail(w, http.StatusNotFound, "Attachment not found")
		return
	}

	w.Header().Set("Content-Type", att.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(att.data)
}

func (f *FakeService) handleProfile(w http.ResponseWriter, r *http.Request) {
	email := r.Header.Get("X-Fake-User")

	f.mu.Lock()
	user := f.users[email]
	f.mu.Unlock()

	WriteJSON(w, http.StatusOK, map[string]string{
		"email":      email,
		"created_at": user.createdAt,
	})
}

func (f *FakeService) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	delete(f.tokens, r.Header.Get("X-Fake-Token"))
	f.mu.Unlock()
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}
