package usecase_test

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// In-memory fakes for the domain ports. They mirror the repository semantics
// the services rely on: owner scoping, the guarded index advance, and the
// unique question constraint.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]domain.User{}}
}

func (r *fakeUserRepo) Create(_ domain.Context, u domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return "", fmt.Errorf("op=user.create: %w: email already registered", domain.ErrConflict)
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = time.Now().UTC()
	r.users[u.ID] = u
	return u.ID, nil
}

func (r *fakeUserRepo) Get(_ domain.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ domain.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

type fakeResumeRepo struct {
	mu      sync.Mutex
	resumes map[string]domain.Resume
}

func newFakeResumeRepo() *fakeResumeRepo {
	return &fakeResumeRepo{resumes: map[string]domain.Resume{}}
}

func (r *fakeResumeRepo) Create(_ domain.Context, res domain.Resume) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	res.CreatedAt = time.Now().UTC()
	r.resumes[res.ID] = res
	return res.ID, nil
}

func (r *fakeResumeRepo) Get(_ domain.Context, id, userID string) (domain.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok || res.UserID != userID {
		return domain.Resume{}, domain.ErrNotFound
	}
	return res, nil
}

func (r *fakeResumeRepo) List(_ domain.Context, userID string) ([]domain.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Resume
	for _, res := range r.resumes {
		if res.UserID == userID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *fakeResumeRepo) Delete(_ domain.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok || res.UserID != userID {
		return domain.ErrNotFound
	}
	delete(r.resumes, id)
	return nil
}

type fakeInterviewRepo struct {
	mu         sync.Mutex
	interviews map[string]domain.Interview
	questions  map[string][]domain.Question
	responses  *fakeResponseRepo
}

func newFakeInterviewRepo(responses *fakeResponseRepo) *fakeInterviewRepo {
	return &fakeInterviewRepo{
		interviews: map[string]domain.Interview{},
		questions:  map[string][]domain.Question{},
		responses:  responses,
	}
}

func (r *fakeInterviewRepo) Create(_ domain.Context, iv domain.Interview, qs []domain.Question) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if iv.ID == "" {
		iv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	iv.Status = domain.InterviewPending
	iv.CurrentQuestionIndex = 0
	iv.TotalQuestions = len(qs)
	iv.CreatedAt = now
	iv.UpdatedAt = now
	stored := make([]domain.Question, len(qs))
	for i, q := range qs {
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		q.InterviewID = iv.ID
		q.CreatedAt = now
		stored[i] = q
	}
	r.interviews[iv.ID] = iv
	r.questions[iv.ID] = stored
	return iv.ID, nil
}

func (r *fakeInterviewRepo) Get(_ domain.Context, id, userID string) (domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.interviews[id]
	if !ok || iv.UserID != userID {
		return domain.Interview{}, domain.ErrNotFound
	}
	return iv, nil
}

func (r *fakeInterviewRepo) List(_ domain.Context, userID string) ([]domain.Interview, error) {
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

func (r *fakeInterviewRepo) Start(_ domain.Context, id string, at time.Time) error {
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

func (r *fakeInterviewRepo) Questions(_ domain.Context, interviewID string) ([]domain.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	qs := r.questions[interviewID]
	out := make([]domain.Question, len(qs))
	copy(out, qs)
	return out, nil
}

func (r *fakeInterviewRepo) AppendResponse(_ domain.Context, resp domain.Response, expectedIndex int, finishedAt time.Time) (domain.Interview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iv, ok := r.interviews[resp.InterviewID]
	if !ok {
		return domain.Interview{}, domain.ErrNotFound
	}
	for _, existing := range r.responses.byInterview(resp.InterviewID) {
		if existing.QuestionID == resp.QuestionID {
			return domain.Interview{}, fmt.Errorf("%w: question already answered", domain.ErrConflict)
		}
	}
	if iv.CurrentQuestionIndex != expectedIndex {
		return domain.Interview{}, fmt.Errorf("%w: progression raced", domain.ErrConflict)
	}
	if resp.ID == "" {
		resp.ID = uuid.New().String()
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

type fakeResponseRepo struct {
	mu        sync.Mutex
	responses []domain.Response
}

func newFakeResponseRepo() *fakeResponseRepo { return &fakeResponseRepo{} }

func (r *fakeResponseRepo) add(resp domain.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

func (r *fakeResponseRepo) byInterview(interviewID string) []domain.Response {
	var out []domain.Response
	for _, resp := range r.responses {
		if resp.InterviewID == interviewID {
			out = append(out, resp)
		}
	}
	return out
}

func (r *fakeResponseRepo) Get(_ domain.Context, id, _ string) (domain.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.responses {
		if resp.ID == id {
			return resp, nil
		}
	}
	return domain.Response{}, domain.ErrNotFound
}

func (r *fakeResponseRepo) ListByInterview(_ domain.Context, interviewID string) ([]domain.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byInterview(interviewID), nil
}

type fakeReportRepo struct {
	mu         sync.Mutex
	reports    map[string]domain.Report
	interviews *fakeInterviewRepo
}

func newFakeReportRepo(interviews *fakeInterviewRepo) *fakeReportRepo {
	return &fakeReportRepo{reports: map[string]domain.Report{}, interviews: interviews}
}

func (r *fakeReportRepo) Create(_ domain.Context, rep domain.Report) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}
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

func (r *fakeReportRepo) GetByInterview(_ domain.Context, interviewID, userID string) (domain.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Report
	for id := range r.reports {
		rep := r.reports[id]
		if rep.InterviewID != interviewID {
			continue
		}
		if latest == nil || rep.CreatedAt.After(latest.CreatedAt) {
			latest = &rep
		}
	}
	if latest == nil {
		return domain.Report{}, domain.ErrNotFound
	}
	r.interviews.mu.Lock()
	iv, ok := r.interviews.interviews[interviewID]
	r.interviews.mu.Unlock()
	if !ok || iv.UserID != userID {
		return domain.Report{}, domain.ErrNotFound
	}
	return *latest, nil
}

// aiTurn is one scripted model exchange.
type aiTurn struct {
	reply string
	err   error
}

// fakeAI replays scripted turns in call order; after the script runs out it
// repeats the last turn. An empty script fails every call.
type fakeAI struct {
	mu      sync.Mutex
	script  []aiTurn
	calls   int
	prompts []string
}

func (f *fakeAI) ChatJSON(_ domain.Context, systemPrompt, userPrompt string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, systemPrompt+"\n"+userPrompt)
	if len(f.script) == 0 {
		return "", domain.ErrUpstreamAI
	}
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	return f.script[i].reply, f.script[i].err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ domain.Context, _ string, audio io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, audio)
	return f.text, f.err
}

type fakeBudget struct {
	allow bool
	err   error
}

func (f *fakeBudget) Allow(_ domain.Context, _ string) (bool, error) { return f.allow, f.err }

// fakeBlobs stores blobs in memory keyed by generated refs.
type fakeBlobs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	saveErr error
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{blobs: map[string][]byte{}} }

func (f *fakeBlobs) Save(_ domain.Context, kind, filename string, r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := kind + "/" + uuid.New().String() + "-" + filename
	f.blobs[ref] = data
	return ref, nil
}

func (f *fakeBlobs) Open(_ domain.Context, ref string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobs) Delete(_ domain.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, ref)
	return nil
}

// fakeExtractor returns its text verbatim, or fails.
type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(_ domain.Context, _ []byte, mediaType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(mediaType, "unsupported") {
		return "", domain.ErrUnsupportedFormat
	}
	return f.text, nil
}
