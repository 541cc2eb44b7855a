package usecase

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// InterviewService is the session progression controller: it owns the linear
// pending → in-progress → completed state machine and is the only mutator of
// an interview's question pointer.
type InterviewService struct {
	Interviews  domain.InterviewRepository
	Resumes     domain.ResumeRepository
	Blobs       domain.BlobStore
	Transcriber domain.Transcriber
	Questions   QuestionBuilder
	Evaluator   Evaluator
}

// NewInterviewService constructs an InterviewService.
func NewInterviewService(interviews domain.InterviewRepository, resumes domain.ResumeRepository, blobs domain.BlobStore, transcriber domain.Transcriber, qb QuestionBuilder, ev Evaluator) InterviewService {
	return InterviewService{
		Interviews:  interviews,
		Resumes:     resumes,
		Blobs:       blobs,
		Transcriber: transcriber,
		Questions:   qb,
		Evaluator:   ev,
	}
}

// CreatedInterview is the result of Create: the persisted interview plus its
// full question set in ask order.
type CreatedInterview struct {
	Interview domain.Interview
	Questions []domain.Question
}

// Create builds the question set from the resume's profile and persists a
// pending interview owning those questions.
func (s InterviewService) Create(ctx domain.Context, userID, resumeID string) (CreatedInterview, error) {
	res, err := s.Resumes.Get(ctx, resumeID, userID)
	if err != nil {
		return CreatedInterview{}, err
	}

	drafts, source := s.Questions.Build(ctx, userID, res.Profile)
	if len(drafts) == 0 {
		return CreatedInterview{}, fmt.Errorf("op=interview.Create: %w: no questions generated", domain.ErrInternal)
	}
	questions := s.Questions.Materialize(drafts)

	iv := domain.Interview{
		UserID:         userID,
		ResumeID:       resumeID,
		Status:         domain.InterviewPending,
		TotalQuestions: len(questions),
	}
	id, err := s.Interviews.Create(ctx, iv, questions)
	if err != nil {
		return CreatedInterview{}, err
	}

	observability.LoggerFromContext(ctx).Info("interview created",
		slog.String("interview_id", id),
		slog.String("resume_id", resumeID),
		slog.Int("questions", len(questions)),
		slog.String("question_source", source))

	created, err := s.Interviews.Get(ctx, id, userID)
	if err != nil {
		return CreatedInterview{}, err
	}
	qs, err := s.Interviews.Questions(ctx, id)
	if err != nil {
		return CreatedInterview{}, err
	}
	return CreatedInterview{Interview: created, Questions: qs}, nil
}

// Get returns one interview owned by userID.
func (s InterviewService) Get(ctx domain.Context, id, userID string) (domain.Interview, error) {
	return s.Interviews.Get(ctx, id, userID)
}

// List returns the user's interviews, newest first.
func (s InterviewService) List(ctx domain.Context, userID string) ([]domain.Interview, error) {
	return s.Interviews.List(ctx, userID)
}

// QuestionsFor returns the interview's questions in ask order, owner-scoped.
func (s InterviewService) QuestionsFor(ctx domain.Context, id, userID string) ([]domain.Question, error) {
	if _, err := s.Interviews.Get(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.Interviews.Questions(ctx, id)
}

// Start moves an interview to in-progress. Starting an in-progress interview
// is a no-op so clients can refresh; a completed interview rejects.
func (s InterviewService) Start(ctx domain.Context, id, userID string) (domain.Interview, error) {
	iv, err := s.Interviews.Get(ctx, id, userID)
	if err != nil {
		return domain.Interview{}, err
	}
	switch iv.Status {
	case domain.InterviewCompleted:
		return domain.Interview{}, fmt.Errorf("op=interview.Start: %w", domain.ErrAlreadyCompleted)
	case domain.InterviewInProgress:
		return iv, nil
	}
	if err := s.Interviews.Start(ctx, id, time.Now().UTC()); err != nil {
		return domain.Interview{}, err
	}
	return s.Interviews.Get(ctx, id, userID)
}

// CurrentQuestionResult reports the next question to ask, or Completed when
// the interview has consumed its question list.
type CurrentQuestionResult struct {
	Completed bool
	Index     int
	Total     int
	Question  *domain.Question
}

// CurrentQuestion returns the question at the interview's current index. The
// total is recomputed from the live question list, not the stored count, so a
// short set from the builder still terminates correctly.
func (s InterviewService) CurrentQuestion(ctx domain.Context, id, userID string) (CurrentQuestionResult, error) {
	iv, err := s.Interviews.Get(ctx, id, userID)
	if err != nil {
		return CurrentQuestionResult{}, err
	}
	qs, err := s.Interviews.Questions(ctx, id)
	if err != nil {
		return CurrentQuestionResult{}, err
	}
	res := CurrentQuestionResult{Index: iv.CurrentQuestionIndex, Total: len(qs)}
	if iv.CurrentQuestionIndex >= len(qs) {
		res.Completed = true
		return res, nil
	}
	res.Question = &qs[iv.CurrentQuestionIndex]
	return res, nil
}

// AnswerMedia carries the optional recorded audio/video of one answer.
type AnswerMedia struct {
	AudioFilename string
	Audio         io.Reader
	VideoFilename string
	Video         io.Reader
}

// SubmitResult is the outcome of one answer submission.
type SubmitResult struct {
	ResponseID string
	Evaluation domain.Evaluation
	EvalSource string
	Completed  bool
	Interview  domain.Interview
}

// SubmitAnswer records one answer against the interview's current question
// and advances the pointer. The flow: validate state and question ownership,
// resolve a transcript, evaluate (never fails), then persist response +
// advance atomically. Two racing submissions for the same slot resolve to one
// winner; the loser gets ErrConflict from the guarded update.
func (s InterviewService) SubmitAnswer(ctx domain.Context, userID, interviewID, questionID, transcript string, media AnswerMedia, duration float64) (SubmitResult, error) {
	lg := observability.LoggerFromContext(ctx)

	iv, err := s.Interviews.Get(ctx, interviewID, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	if iv.Status == domain.InterviewCompleted {
		return SubmitResult{}, fmt.Errorf("op=interview.SubmitAnswer: %w", domain.ErrAlreadyCompleted)
	}

	qs, err := s.Interviews.Questions(ctx, interviewID)
	if err != nil {
		return SubmitResult{}, err
	}
	question, ok := findQuestion(qs, questionID)
	if !ok {
		return SubmitResult{}, fmt.Errorf("op=interview.SubmitAnswer: %w: question %s not in interview %s", domain.ErrQuestionMismatch, questionID, interviewID)
	}
	// Responses are created strictly in question order: only the question at
	// the session pointer is answerable. Anything before it was already
	// answered, anything after it is not up yet.
	switch {
	case question.Order <= iv.CurrentQuestionIndex:
		return SubmitResult{}, fmt.Errorf("op=interview.SubmitAnswer: %w: question %s already answered", domain.ErrConflict, questionID)
	case question.Order != iv.CurrentQuestionIndex+1:
		return SubmitResult{}, fmt.Errorf("op=interview.SubmitAnswer: %w: question %s is not the current question", domain.ErrQuestionMismatch, questionID)
	}

	if iv.Status == domain.InterviewPending {
		if err := s.Interviews.Start(ctx, interviewID, time.Now().UTC()); err != nil {
			return SubmitResult{}, err
		}
	}

	audioRef, videoRef := s.storeMedia(ctx, media)
	finalTranscript := s.resolveTranscript(ctx, transcript, audioRef, media.AudioFilename)

	evaluation, evalSource := s.Evaluator.Evaluate(ctx, userID, question.Text, finalTranscript)

	resp := domain.Response{
		ID:          uuid.New().String(),
		InterviewID: interviewID,
		QuestionID:  questionID,
		Transcript:  finalTranscript,
		AudioRef:    audioRef,
		VideoRef:    videoRef,
		Evaluation:  evaluation,
		EvalSource:  evalSource,
		Duration:    duration,
	}
	updated, err := s.Interviews.AppendResponse(ctx, resp, iv.CurrentQuestionIndex, time.Now().UTC())
	if err != nil {
		return SubmitResult{}, err
	}

	if updated.Completed() {
		observability.InterviewsCompletedTotal.Inc()
		lg.Info("interview completed",
			slog.String("interview_id", interviewID),
			slog.Int("total_questions", updated.TotalQuestions))
	}

	return SubmitResult{
		ResponseID: resp.ID,
		Evaluation: evaluation,
		EvalSource: evalSource,
		Completed:  updated.Completed(),
		Interview:  updated,
	}, nil
}

// resolveTranscript prefers the client transcript, then transcription of the
// captured audio, then the fixed placeholder.
func (s InterviewService) resolveTranscript(ctx domain.Context, clientTranscript, audioRef, audioFilename string) string {
	if t := strings.TrimSpace(clientTranscript); t != "" {
		return t
	}
	if audioRef != "" && s.Transcriber != nil {
		rc, err := s.Blobs.Open(ctx, audioRef)
		if err == nil {
			defer func() { _ = rc.Close() }()
			if t, err := s.Transcriber.Transcribe(ctx, audioFilename, rc); err == nil && strings.TrimSpace(t) != "" {
				return strings.TrimSpace(t)
			}
			observability.LoggerFromContext(ctx).Warn("audio transcription failed, using placeholder",
				slog.String("audio_ref", audioRef))
		}
	}
	return domain.TranscriptPlaceholder
}

// storeMedia persists optional audio/video. Media storage is best-effort: a
// failed save drops the recording but never the answer.
func (s InterviewService) storeMedia(ctx domain.Context, media AnswerMedia) (audioRef, videoRef string) {
	lg := observability.LoggerFromContext(ctx)
	if media.Audio != nil {
		ref, err := s.Blobs.Save(ctx, domain.BlobKindAudio, media.AudioFilename, media.Audio)
		if err != nil {
			lg.Warn("audio save failed", slog.Any("error", err))
		} else {
			audioRef = ref
		}
	}
	if media.Video != nil {
		ref, err := s.Blobs.Save(ctx, domain.BlobKindVideo, media.VideoFilename, media.Video)
		if err != nil {
			lg.Warn("video save failed", slog.Any("error", err))
		} else {
			videoRef = ref
		}
	}
	return audioRef, videoRef
}

func findQuestion(qs []domain.Question, id string) (domain.Question, bool) {
	for _, q := range qs {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}
