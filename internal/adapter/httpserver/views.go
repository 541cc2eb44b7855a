package httpserver

import (
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// JSON views keep the wire shape independent of the domain structs.

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type resumeView struct {
	ID            string         `json:"id"`
	Filename      string         `json:"filename"`
	MediaType     string         `json:"media_type"`
	SizeBytes     int64          `json:"size_bytes"`
	Profile       domain.Profile `json:"profile"`
	ProfileSource string         `json:"profile_source"`
	CreatedAt     time.Time      `json:"created_at"`
}

func toResumeView(r domain.Resume) resumeView {
	return resumeView{
		ID:            r.ID,
		Filename:      r.Filename,
		MediaType:     r.MIME,
		SizeBytes:     r.Size,
		Profile:       r.Profile,
		ProfileSource: r.ProfileSource,
		CreatedAt:     r.CreatedAt,
	}
}

type questionView struct {
	ID               string                  `json:"id"`
	Text             string                  `json:"text"`
	Category         domain.QuestionCategory `json:"category"`
	Order            int                     `json:"order"`
	TimeLimitSeconds int                     `json:"time_limit_seconds"`
}

func toQuestionView(q domain.Question) questionView {
	return questionView{
		ID:               q.ID,
		Text:             q.Text,
		Category:         q.Category,
		Order:            q.Order,
		TimeLimitSeconds: q.TimeLimit,
	}
}

func toQuestionViews(qs []domain.Question) []questionView {
	out := make([]questionView, 0, len(qs))
	for _, q := range qs {
		out = append(out, toQuestionView(q))
	}
	return out
}

type interviewView struct {
	ID                   string                 `json:"id"`
	ResumeID             string                 `json:"resume_id"`
	Status               domain.InterviewStatus `json:"status"`
	CurrentQuestionIndex int                    `json:"current_question_index"`
	TotalQuestions       int                    `json:"total_questions"`
	StartTime            *time.Time             `json:"start_time,omitempty"`
	EndTime              *time.Time             `json:"end_time,omitempty"`
	ReportID             *string                `json:"report_id,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
}

func toInterviewView(iv domain.Interview) interviewView {
	return interviewView{
		ID:                   iv.ID,
		ResumeID:             iv.ResumeID,
		Status:               iv.Status,
		CurrentQuestionIndex: iv.CurrentQuestionIndex,
		TotalQuestions:       iv.TotalQuestions,
		StartTime:            iv.StartTime,
		EndTime:              iv.EndTime,
		ReportID:             iv.ReportID,
		CreatedAt:            iv.CreatedAt,
	}
}

type currentQuestionView struct {
	Completed bool          `json:"completed"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Question  *questionView `json:"question,omitempty"`
}

func toCurrentQuestionView(res usecase.CurrentQuestionResult) currentQuestionView {
	v := currentQuestionView{Completed: res.Completed, Index: res.Index, Total: res.Total}
	if res.Question != nil {
		q := toQuestionView(*res.Question)
		v.Question = &q
	}
	return v
}

type submitAnswerView struct {
	ResponseID string            `json:"response_id"`
	Evaluation domain.Evaluation `json:"evaluation"`
	EvalSource string            `json:"eval_source"`
	Completed  bool              `json:"completed"`
	Interview  interviewView     `json:"interview"`
}

type responseView struct {
	ID          string            `json:"id"`
	InterviewID string            `json:"interview_id"`
	QuestionID  string            `json:"question_id"`
	Transcript  string            `json:"transcript"`
	Evaluation  domain.Evaluation `json:"evaluation"`
	EvalSource  string            `json:"eval_source"`
	Duration    float64           `json:"duration_seconds"`
	CreatedAt   time.Time         `json:"created_at"`
}

func toResponseView(r domain.Response) responseView {
	return responseView{
		ID:          r.ID,
		InterviewID: r.InterviewID,
		QuestionID:  r.QuestionID,
		Transcript:  r.Transcript,
		Evaluation:  r.Evaluation,
		EvalSource:  r.EvalSource,
		Duration:    r.Duration,
		CreatedAt:   r.CreatedAt,
	}
}

type reportView struct {
	ID              string               `json:"id"`
	InterviewID     string               `json:"interview_id"`
	Summary         domain.ReportSummary `json:"summary"`
	Scores          domain.ReportScores  `json:"scores"`
	Flags           domain.ReportFlags   `json:"flags"`
	Transcript      string               `json:"transcript"`
	NarrativeSource string               `json:"narrative_source"`
	CreatedAt       time.Time            `json:"created_at"`
}

func toReportView(r domain.Report) reportView {
	return reportView{
		ID:              r.ID,
		InterviewID:     r.InterviewID,
		Summary:         r.Summary,
		Scores:          r.Scores,
		Flags:           r.Flags,
		Transcript:      r.Transcript,
		NarrativeSource: r.NarrativeSource,
		CreatedAt:       r.CreatedAt,
	}
}
