package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/stub"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/blobstore"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/textextract"
	"github.com/fairyhunter13/ai-interview-coach/internal/app"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// The handler tests run the full router over in-memory repositories, the
// stub AI client, and a temp-dir blob store, so they exercise the same wiring
// the server boots with minus Postgres and Redis.

func testConfig() config.Config {
	return config.Config{
		AppEnv:            "test",
		JWTSecret:         "test-secret",
		JWTTTL:            time.Hour,
		ChatModel:         "llama-3.3-70b-versatile",
		AIMaxTokens:       1500,
		PromptTokenBudget: 6000,
		MaxUploadMB:       1,
		MaxMediaMB:        1,
		RateLimitPerMin:   1000,
		CORSAllowOrigins:  "*",
	}
}

type harness struct {
	router  http.Handler
	cfg     config.Config
	users   *memUsers
	resumes *memResumes
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ok := func(context.Context) error { return nil }
	return newHarnessWithChecks(t, ok, ok)
}

func newHarnessWithChecks(t *testing.T, dbCheck, redisCheck func(context.Context) error) *harness {
	t.Helper()

	cfg := testConfig()
	users := newMemUsers()
	resumes := newMemResumes()
	responses := newMemResponses()
	interviews := newMemInterviews(responses)
	responses.interviews = interviews
	reports := newMemReports(interviews)

	blobs, err := blobstore.New(t.TempDir())
	require.NoError(t, err)
	aicl := stub.New()

	authSvc := usecase.NewAuthService(users)
	resumeSvc := usecase.NewResumeService(resumes, blobs, textextract.New(), aicl, nil, cfg)
	interviewSvc := usecase.NewInterviewService(interviews, resumes, blobs, aicl,
		usecase.NewQuestionBuilder(aicl, nil, cfg, nil),
		usecase.NewEvaluator(aicl, nil, cfg))
	reportSvc := usecase.NewReportService(interviews, responses, reports, aicl, nil, cfg)

	srv := httpserver.NewServer(cfg, authSvc, resumeSvc, interviewSvc, reportSvc, dbCheck, redisCheck)
	return &harness{
		router:  app.BuildRouter(cfg, srv),
		cfg:     cfg,
		users:   users,
		resumes: resumes,
	}
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.do(t, req)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), "body: %s", rec.Body.String())
}

// register registers and logs in a fresh account, returning its token.
func (h *harness) register(t *testing.T, email string) string {
	t.Helper()
	rec := h.doJSON(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"email": email, "name": "Test User", "password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.doJSON(t, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email": email, "password": "supersecret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

// uploadResume uploads a plain-text resume and returns its id.
func (h *harness) uploadResume(t *testing.T, token string) string {
	t.Helper()
	rec := h.multipart(t, "/v1/resumes", token, map[string]string{}, map[string]filePart{
		"file": {name: "resume.txt", content: []byte("Skills: Go, PostgreSQL, Redis\nBackend Engineer at Initech")},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &out)
	return out.ID
}

type filePart struct {
	name    string
	content []byte
}

func (h *harness) multipart(t *testing.T, path, token string, fields map[string]string, files map[string]filePart) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, fp := range files {
		w, err := mw.CreateFormFile(field, fp.name)
		require.NoError(t, err)
		_, err = w.Write(fp.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.do(t, req)
}

// In-memory repositories mirroring the Postgres semantics the handlers rely
// on: owner scoping, unique email, unique question per interview, and the
// guarded index advance.

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]domain.User{}} }

func (r *memUsers) Create(_ domain.Context, u domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.users {
		if e.Email == u.Email {
			return "", fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *memUsers) Get(_ domain.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *memUsers) GetByEmail(_ domain.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

type memResumes struct {
	mu      sync.Mutex
	resumes map[string]domain.Resume
}

func newMemResumes() *memResumes { return &memResumes{resumes: map[string]domain.Resume{}} }

func (r *memResumes) Create(_ domain.Context, res domain.Resume) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res.ID = uuid.NewString()
	res.CreatedAt = time.Now().UTC()
	r.resumes[res.ID] = res
	return res.ID, nil
}

func (r *memResumes) Get(_ domain.Context, id, userID string) (domain.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok || res.UserID != userID {
		return domain.Resume{}, domain.ErrNotFound
	}
	return res, nil
}

func (r *memResumes) List(_ domain.Context, userID string) ([]domain.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Resume
	for _, res := range r.resumes {
		if res.UserID == userID {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memResumes) Delete(_ domain.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok || res.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.resumes, id)
	return nil
}

type memResponses struct {
	mu         sync.Mutex
	responses  []domain.Response
	interviews *memInterviews
}

func newMemResponses() *memResponses { return &memResponses{} }

func (r *memResponses) add(resp domain.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

func (r *memResponses) byInterview(interviewID string) []domain.Response {
	var out []domain.Response
	for _, resp := range r.responses {
		if resp.InterviewID == interviewID {
			out = append(out, resp)
		}
	}
	return out
}

func (r *memResponses) Get(_ domain.Context, id, userID string) (domain.Response, error) {
	var found *domain.Response
	r.mu.Lock()
	for i := range r.responses {
		if r.responses[i].ID == id {
			resp := r.responses[i]
			found = &resp
			break
		}
	}
	r.mu.Unlock()
	if found == nil {
		return domain.Response{}, domain.ErrNotFound
	}
	if r.interviews != nil {
		r.interviews.mu.Lock()
		iv, ok := r.interviews.interviews[found.InterviewID]
		r.interviews.mu.Unlock()
		if !ok || iv.UserID != userID {
			return domain.Response{}, domain.ErrNotFound
		}
	}
	return *found, nil
}

func (r *memResponses) ListByInterview(_ domain.Context, interviewID string) ([]domain.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byInterview(interviewID), nil
}

type memInterviews struct {
	mu         sync.Mutex
	interviews map[string]domain.Interview
	questions  map[string][]domain.Question
	responses  *memResponses
}

func newMemInterviews(responses *memResponses) *memInterviews {
	return &memInterviews{
		interviews: map[string]domain.Interview{},
		questions:  map[string][]domain.Question{},
		responses:  responses,
	}
}

func (r *memInterviews) Create(_ domain.Context, iv domain.Interview, qs []domain.Question) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv.ID = uuid.NewString()
	now := time.Now().UTC()
	iv.Status = domain.InterviewPending
	iv.TotalQuestions = len(qs)
	iv.CreatedAt = now
	iv.UpdatedAt = now
	stored := make([]domain.Question, len(qs))
	for i, q := range qs {
		q.ID = uuid.NewString()
		q.InterviewID = iv.ID
		q.CreatedAt = now
		stored[i] = q
	}
	r.interviews[iv.ID] = iv
	r.questions[iv.ID] = stored
	return iv.ID, nil
}

func (r *memInterviews) Get(_ domain.Context, id, userID string) (domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.interviews[id]
	if !ok || iv.UserID != userID {
		return domain.Interview{}, domain.ErrNotFound
	}
	return iv, nil
}

func (r *memInterviews) List(_ domain.Context, userID string) ([]domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Interview
	for _, iv := range r.interviews {
		if iv.UserID == userID {
			out = append(out, iv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memInterviews) Start(_ domain.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.interviews[id]
	if !ok {
		return domain.ErrNotFound
	}
	if iv.Status != domain.InterviewPending {
		return domain.ErrConflict
	}
	iv.Status = domain.InterviewInProgress
	iv.StartTime = &at
	iv.UpdatedAt = at
	r.interviews[id] = iv
	return nil
}

func (r *memInterviews) Questions(_ domain.Context, interviewID string) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	qs := r.questions[interviewID]
	out := make([]domain.Question, len(qs))
	copy(out, qs)
	return out, nil
}

func (r *memInterviews) AppendResponse(_ domain.Context, resp domain.Response, expectedIndex int, finishedAt time.Time) (domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.interviews[resp.InterviewID]
	if !ok {
		return domain.Interview{}, domain.ErrNotFound
	}
	existing, _ := r.responses.ListByInterview(nil, resp.InterviewID)
	for _, e := range existing {
		if e.QuestionID == resp.QuestionID {
			return domain.Interview{}, fmt.Errorf("%w: question already answered", domain.ErrConflict)
		}
	}
	if iv.CurrentQuestionIndex != expectedIndex {
		return domain.Interview{}, fmt.Errorf("%w: progression raced", domain.ErrConflict)
	}
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	resp.CreatedAt = finishedAt
	r.responses.add(resp)
	iv.CurrentQuestionIndex++
	iv.UpdatedAt = finishedAt
	if iv.CurrentQuestionIndex >= iv.TotalQuestions {
		iv.Status = domain.InterviewCompleted
		iv.EndTime = &finishedAt
	} else {
		iv.Status = domain.InterviewInProgress
	}
	r.interviews[resp.InterviewID] = iv
	return iv, nil
}

type memReports struct {
	mu         sync.Mutex
	reports    map[string]domain.Report
	interviews *memInterviews
}

func newMemReports(interviews *memInterviews) *memReports {
	return &memReports{reports: map[string]domain.Report{}, interviews: interviews}
}

func (r *memReports) Create(_ domain.Context, rep domain.Report) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep.ID = uuid.NewString()
	rep.CreatedAt = time.Now().UTC()
	r.reports[rep.ID] = rep

	r.interviews.mu.Lock()
	iv := r.interviews.interviews[rep.InterviewID]
	id := rep.ID
	iv.ReportID = &id
	r.interviews.interviews[rep.InterviewID] = iv
	r.interviews.mu.Unlock()
	return rep.ID, nil
}

func (r *memReports) GetByInterview(_ domain.Context, interviewID, userID string) (domain.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interviews.mu.Lock()
	iv, ok := r.interviews.interviews[interviewID]
	r.interviews.mu.Unlock()
	if !ok || iv.UserID != userID || iv.ReportID == nil {
		return domain.Report{}, domain.ErrNotFound
	}
	rep, ok := r.reports[*iv.ReportID]
	if !ok {
		return domain.Report{}, domain.ErrNotFound
	}
	return rep, nil
}
