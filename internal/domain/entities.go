package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnsupportedFormat   = errors.New("unsupported format")
	ErrExtractionFailed    = errors.New("extraction failed")
	ErrQuestionMismatch    = errors.New("question mismatch")
	ErrAlreadyCompleted    = errors.New("interview already completed")
	ErrIncompleteResponses = errors.New("incomplete responses")
	ErrReportNotReady      = errors.New("report not ready")
	ErrUpstreamAI          = errors.New("upstream ai failure")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUnparseable         = errors.New("unparseable model output")
	ErrSchemaInvalid       = errors.New("schema invalid")
	ErrBudgetExhausted     = errors.New("ai budget exhausted")
	ErrInternal            = errors.New("internal error")
)

// Provenance values recorded next to model-derived data so fallback output
// stays distinguishable from a real model reply of the same shape.
const (
	SourceModel     = "model"
	SourceHeuristic = "heuristic"
	SourceFallback  = "fallback"
)

// Blob kinds group stored files by purpose.
const (
	BlobKindResume = "resume"
	BlobKindAudio  = "audio"
	BlobKindVideo  = "video"
)

// TranscriptPlaceholder is persisted when neither the client transcript nor
// audio transcription yields text.
const TranscriptPlaceholder = "(no transcript available)"

//go:generate mockery --name=UserRepository --with-expecter --filename=user_repository_mock.go
//go:generate mockery --name=ResumeRepository --with-expecter --filename=resume_repository_mock.go
//go:generate mockery --name=InterviewRepository --with-expecter --filename=interview_repository_mock.go
//go:generate mockery --name=ResponseRepository --with-expecter --filename=response_repository_mock.go
//go:generate mockery --name=ReportRepository --with-expecter --filename=report_repository_mock.go
//go:generate mockery --name=AIClient --with-expecter --filename=aiclient_mock.go

// User is an account holder. PasswordHash is an argon2id encoded string.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Project is one project entry inside a Profile.
type Project struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TechStack   []string `json:"techStack"`
	Duration    string   `json:"duration"`
	Role        string   `json:"role"`
}

// WorkEntry is one experience or internship entry inside a Profile.
type WorkEntry struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// EducationEntry is one education entry inside a Profile.
type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
	GPA         string `json:"gpa"`
}

// Profile is the structured view of a resume. Produced once per uploaded
// document and immutable afterwards; re-upload creates a new Resume with a
// new Profile.
type Profile struct {
	Skills      []string         `json:"skills"`
	Projects    []Project        `json:"projects"`
	Internships []WorkEntry      `json:"internships"`
	Experience  []WorkEntry      `json:"experience"`
	Education   []EducationEntry `json:"education"`
}

// Empty reports whether the profile carries no extracted data at all.
func (p Profile) Empty() bool {
	return len(p.Skills) == 0 && len(p.Projects) == 0 && len(p.Internships) == 0 &&
		len(p.Experience) == 0 && len(p.Education) == 0
}

// Resume is an uploaded document plus its normalized text and Profile.
type Resume struct {
	ID            string
	UserID        string
	Filename      string
	MIME          string
	Size          int64
	BlobRef       string
	Text          string
	Profile       Profile
	ProfileSource string
	CreatedAt     time.Time
}

// QuestionCategory tags a question by its origin in the profile.
type QuestionCategory string

const (
	CategoryTechnical  QuestionCategory = "technical"
	CategoryProject    QuestionCategory = "project"
	CategoryInternship QuestionCategory = "internship"
	CategoryExperience QuestionCategory = "experience"
	CategoryBehavioral QuestionCategory = "behavioral"
)

// Valid reports whether c is one of the five known categories.
func (c QuestionCategory) Valid() bool {
	switch c {
	case CategoryTechnical, CategoryProject, CategoryInternship, CategoryExperience, CategoryBehavioral:
		return true
	}
	return false
}

// DefaultQuestionTimeLimit is the per-question answer window in seconds.
const DefaultQuestionTimeLimit = 120

// Question is one interview question. Created in bulk with its interview and
// never mutated; Order is 1-based and unique within the interview.
type Question struct {
	ID          string
	InterviewID string
	Text        string
	Category    QuestionCategory
	Order       int
	TimeLimit   int
	CreatedAt   time.Time
}

type InterviewStatus string

const (
	InterviewPending    InterviewStatus = "pending"
	InterviewInProgress InterviewStatus = "in-progress"
	InterviewCompleted  InterviewStatus = "completed"
)

// Interview is one practice attempt over a resume.
// Invariants: 0 <= CurrentQuestionIndex <= TotalQuestions, the index never
// decreases, and Status == completed iff CurrentQuestionIndex == TotalQuestions.
type Interview struct {
	ID                   string
	UserID               string
	ResumeID             string
	Status               InterviewStatus
	CurrentQuestionIndex int
	TotalQuestions       int
	StartTime            *time.Time
	EndTime              *time.Time
	ReportID             *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Completed reports whether the interview has consumed all of its questions.
func (iv Interview) Completed() bool { return iv.Status == InterviewCompleted }

// Sentiment labels for an evaluation.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// ScoredCriterion is one rubric axis: an integer score in [0,5] plus feedback.
type ScoredCriterion struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// EvaluationFlags mark suspicious answer characteristics.
type EvaluationFlags struct {
	Reading    bool `json:"reading"`
	Silence    bool `json:"silence"`
	Irrelevant bool `json:"irrelevant"`
}

// Evaluation is the rubric judgment of one answer. The fallback evaluation has
// this exact shape; provenance lives on the Response, not here.
type Evaluation struct {
	TechnicalDepth ScoredCriterion `json:"technicalDepth"`
	Clarity        ScoredCriterion `json:"clarity"`
	Confidence     ScoredCriterion `json:"confidence"`
	Sentiment      string          `json:"sentiment"`
	Flags          EvaluationFlags `json:"flags"`
	OverallScore   float64         `json:"overallScore"`
}

// FlagCount returns how many of the three flags are set.
func (e Evaluation) FlagCount() int {
	n := 0
	if e.Flags.Reading {
		n++
	}
	if e.Flags.Silence {
		n++
	}
	if e.Flags.Irrelevant {
		n++
	}
	return n
}

// Response is one recorded answer. Created exactly once per answered question,
// in question order; immutable after creation.
type Response struct {
	ID          string
	InterviewID string
	QuestionID  string
	Transcript  string
	AudioRef    string
	VideoRef    string
	Evaluation  Evaluation
	EvalSource  string
	Duration    float64
	CreatedAt   time.Time
}

// QuestionAssessment pairs a question with its narrative assessment.
type QuestionAssessment struct {
	Question   string `json:"question"`
	Assessment string `json:"assessment"`
}

// ReportSummary is the narrative half of a report.
type ReportSummary struct {
	TotalQuestions  int                  `json:"totalQuestions"`
	AverageScore    float64              `json:"averageScore"`
	Text            string               `json:"summary"`
	Strengths       []string             `json:"strengths"`
	Weaknesses      []string             `json:"weaknesses"`
	Recommendations []string             `json:"recommendations"`
	Hireability     int                  `json:"hireability"`
	PerQuestion     []QuestionAssessment `json:"perQuestion"`
}

// ReportScores are interview-wide rubric averages in [0,5].
type ReportScores struct {
	TechnicalDepth float64 `json:"technicalDepth"`
	Clarity        float64 `json:"clarity"`
	Confidence     float64 `json:"confidence"`
	Overall        float64 `json:"overall"`
}

// ReportFlags aggregate flag occurrences across all responses.
type ReportFlags struct {
	TotalFlags      int `json:"totalFlags"`
	ReadingCount    int `json:"readingCount"`
	SilenceCount    int `json:"silenceCount"`
	IrrelevantCount int `json:"irrelevantCount"`
}

// Report is a derived, regenerable view over a completed interview. A new
// generation inserts a new row and repoints the interview at it.
type Report struct {
	ID              string
	InterviewID     string
	Summary         ReportSummary
	Scores          ReportScores
	Flags           ReportFlags
	Transcript      string
	NarrativeSource string
	CreatedAt       time.Time
}

// Repositories (ports)

type UserRepository interface {
	Create(ctx Context, u User) (string, error)
	Get(ctx Context, id string) (User, error)
	GetByEmail(ctx Context, email string) (User, error)
}

type ResumeRepository interface {
	Create(ctx Context, r Resume) (string, error)
	Get(ctx Context, id, userID string) (Resume, error)
	List(ctx Context, userID string) ([]Resume, error)
	Delete(ctx Context, id, userID string) error
}

// InterviewRepository owns the interview row and its questions. AppendResponse
// is the single progression mutator: it inserts the response and advances
// current_question_index in one transaction, guarded by expectedIndex so a
// racing submission loses with ErrConflict instead of double-advancing.
type InterviewRepository interface {
	Create(ctx Context, iv Interview, qs []Question) (string, error)
	Get(ctx Context, id, userID string) (Interview, error)
	List(ctx Context, userID string) ([]Interview, error)
	Start(ctx Context, id string, at time.Time) error
	Questions(ctx Context, interviewID string) ([]Question, error)
	AppendResponse(ctx Context, resp Response, expectedIndex int, finishedAt time.Time) (Interview, error)
}

type ResponseRepository interface {
	Get(ctx Context, id, userID string) (Response, error)
	ListByInterview(ctx Context, interviewID string) ([]Response, error)
}

// ReportRepository persists a report and repoints the interview's report
// reference in the same transaction.
type ReportRepository interface {
	Create(ctx Context, r Report) (string, error)
	GetByInterview(ctx Context, interviewID, userID string) (Report, error)
}

// AIClient (port)

type AIClient interface {
	// ChatJSON sends one prompt pair and returns the raw model reply, which is
	// expected but not guaranteed to contain JSON.
	ChatJSON(ctx Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Transcriber (port) turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx Context, filename string, audio io.Reader) (string, error)
}

// TextExtractor (port) turns an uploaded document into normalized plain text.
type TextExtractor interface {
	Extract(ctx Context, data []byte, mediaType string) (string, error)
}

// BlobStore (port) persists raw document and media bytes by opaque reference.
type BlobStore interface {
	Save(ctx Context, kind, filename string, r io.Reader) (string, error)
	Open(ctx Context, ref string) (io.ReadCloser, error)
	Delete(ctx Context, ref string) error
}

// AIBudget (port) gates model calls per user. A denied call is not an error:
// callers skip the model path and use the deterministic fallback.
type AIBudget interface {
	Allow(ctx Context, userID string) (bool, error)
}

// Context is an alias to allow decoupling from std context in domain
// Adapters and usecases should pass context.Context through
type Context = context.Context
