package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Auth       usecase.AuthService
	Resumes    usecase.ResumeService
	Interviews usecase.InterviewService
	Reports    usecase.ReportService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, auth usecase.AuthService, resumes usecase.ResumeService, interviews usecase.InterviewService, reports usecase.ReportService, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:        cfg,
		Auth:       auth,
		Resumes:    resumes,
		Interviews: interviews,
		Reports:    reports,
		DBCheck:    dbCheck,
		RedisCheck: redisCheck,
	}
}

// allowedExt enforces the resume upload allowlist: .pdf and .txt.
func allowedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// allowedMIMEFor checks the sniffed content type against the extension. Text
// detectors misclassify rich plain text, so any text/* passes for .txt.
func allowedMIMEFor(m, filename string) bool {
	m = strings.ToLower(m)
	if strings.HasSuffix(strings.ToLower(filename), ".txt") && strings.HasPrefix(m, "text/") {
		return true
	}
	return strings.HasPrefix(m, "text/plain") || m == "application/pdf"
}

func tooLarge(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "too large")
}

// ResumeUploadHandler ingests a multipart resume document.
func (s *Server) ResumeUploadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, r, domain.ErrUnauthorized, nil)
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadBytes()
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if tooLarge(err) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code:    "PAYLOAD_TOO_LARGE",
					Message: "resume exceeds the upload limit",
					Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: file part required", domain.ErrInvalidArgument), map[string]string{"field": "file"})
			return
		}
		defer func() { _ = file.Close() }()

		if !allowedExt(header.Filename) {
			writeError(w, r, fmt.Errorf("%w: only .pdf and .txt resumes are accepted", domain.ErrUnsupportedFormat),
				map[string]string{"filename": header.Filename})
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: read file: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		sniffed := mimetype.Detect(data)
		if !allowedMIMEFor(sniffed.String(), header.Filename) {
			writeError(w, r, fmt.Errorf("%w: detected %s", domain.ErrUnsupportedFormat, sniffed.String()),
				map[string]string{"mime": sniffed.String(), "filename": header.Filename})
			return
		}

		mediaType := sniffed.String()
		if i := strings.Index(mediaType, ";"); i >= 0 {
			mediaType = strings.TrimSpace(mediaType[:i])
		}
		res, err := s.Resumes.Upload(r.Context(), userID, header.Filename, mediaType, data)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toResumeView(res))
	}
}

// ResumeListHandler returns the caller's resumes.
func (s *Server) ResumeListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		list, err := s.Resumes.List(r.Context(), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]resumeView, 0, len(list))
		for _, res := range list {
			out = append(out, toResumeView(res))
		}
		writeJSON(w, http.StatusOK, map[string]any{"resumes": out})
	}
}

// ResumeGetHandler returns one resume.
func (s *Server) ResumeGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		res, err := s.Resumes.Get(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toResumeView(res))
	}
}

// ResumeDeleteHandler removes a resume and its stored document.
func (s *Server) ResumeDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		if err := s.Resumes.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// InterviewCreateHandler builds a question set from a resume and persists a
// pending interview.
func (s *Server) InterviewCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			ResumeID string `json:"resume_id" validate:"required"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if details, err := validateStruct(req); err != nil {
			writeError(w, r, err, details)
			return
		}
		created, err := s.Interviews.Create(r.Context(), userID, req.ResumeID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"interview": toInterviewView(created.Interview),
			"questions": toQuestionViews(created.Questions),
		})
	}
}

// InterviewListHandler returns the caller's interviews, newest first.
func (s *Server) InterviewListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		list, err := s.Interviews.List(r.Context(), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]interviewView, 0, len(list))
		for _, iv := range list {
			out = append(out, toInterviewView(iv))
		}
		writeJSON(w, http.StatusOK, map[string]any{"interviews": out})
	}
}

// InterviewGetHandler returns one interview with its questions.
func (s *Server) InterviewGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		id := chi.URLParam(r, "id")
		iv, err := s.Interviews.Get(r.Context(), id, userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		qs, err := s.Interviews.QuestionsFor(r.Context(), id, userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"interview": toInterviewView(iv),
			"questions": toQuestionViews(qs),
		})
	}
}

// CurrentQuestionHandler returns the question at the session pointer or the
// completed sentinel.
func (s *Server) CurrentQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		res, err := s.Interviews.CurrentQuestion(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toCurrentQuestionView(res))
	}
}

// InterviewStartHandler moves the interview to in-progress.
func (s *Server) InterviewStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		iv, err := s.Interviews.Start(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toInterviewView(iv))
	}
}

// AnswerHandler records one answer against the current question. Multipart:
// question_id (required), transcript, duration_seconds, audio, video.
func (s *Server) AnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		interviewID := chi.URLParam(r, "id")
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxMediaBytes()
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if tooLarge(err) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code:    "PAYLOAD_TOO_LARGE",
					Message: "answer media exceeds the upload limit",
					Details: map[string]any{"max_mb": s.Cfg.MaxMediaMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		questionID := strings.TrimSpace(r.FormValue("question_id"))
		if questionID == "" {
			writeError(w, r, fmt.Errorf("%w: question_id required", domain.ErrInvalidArgument), map[string]string{"field": "question_id"})
			return
		}
		transcript := sanitizeTranscript(r.FormValue("transcript"))
		duration, err := parseDuration(r.FormValue("duration_seconds"))
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "duration_seconds"})
			return
		}

		var media usecase.AnswerMedia
		if f, h, err := r.FormFile("audio"); err == nil {
			defer func() { _ = f.Close() }()
			media.Audio = f
			media.AudioFilename = h.Filename
		}
		if f, h, err := r.FormFile("video"); err == nil {
			defer func() { _ = f.Close() }()
			media.Video = f
			media.VideoFilename = h.Filename
		}

		res, err := s.Interviews.SubmitAnswer(r.Context(), userID, interviewID, questionID, transcript, media, duration)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, submitAnswerView{
			ResponseID: res.ResponseID,
			Evaluation: res.Evaluation,
			EvalSource: res.EvalSource,
			Completed:  res.Completed,
			Interview:  toInterviewView(res.Interview),
		})
	}
}

// SummaryHandler returns the computed progress view of an interview.
func (s *Server) SummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		summary, err := s.Reports.Summary(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// ReportGenerateHandler aggregates a completed interview into a fresh report.
func (s *Server) ReportGenerateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		report, err := s.Reports.Generate(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, toReportView(report))
	}
}

// ReportGetHandler returns the latest report generation for an interview.
func (s *Server) ReportGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		report, err := s.Reports.GetReport(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toReportView(report))
	}
}

// ResponseGetHandler returns one stored answer.
func (s *Server) ResponseGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		resp, err := s.Reports.GetResponse(r.Context(), chi.URLParam(r, "id"), userID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, toResponseView(resp))
	}
}

// ReadyzHandler probes DB and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
