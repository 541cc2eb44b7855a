package httpserver_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

type interviewPayload struct {
	Interview struct {
		ID                   string  `json:"id"`
		ResumeID             string  `json:"resume_id"`
		Status               string  `json:"status"`
		CurrentQuestionIndex int     `json:"current_question_index"`
		TotalQuestions       int     `json:"total_questions"`
		ReportID             *string `json:"report_id"`
	} `json:"interview"`
	Questions []struct {
		ID               string `json:"id"`
		Text             string `json:"text"`
		Category         string `json:"category"`
		Order            int    `json:"order"`
		TimeLimitSeconds int    `json:"time_limit_seconds"`
	} `json:"questions"`
}

func (h *harness) createInterview(t *testing.T, token, resumeID string) interviewPayload {
	t.Helper()
	rec := h.doJSON(t, http.MethodPost, "/v1/interviews", token, map[string]string{"resume_id": resumeID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out interviewPayload
	decodeBody(t, rec, &out)
	return out
}

func (h *harness) submitAnswer(t *testing.T, token, interviewID, questionID, transcript string) int {
	t.Helper()
	rec := h.multipart(t, "/v1/interviews/"+interviewID+"/answers", token, map[string]string{
		"question_id":      questionID,
		"transcript":       transcript,
		"duration_seconds": "42.5",
	}, nil)
	return rec.Code
}

func TestInterviewCreate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	token := h.register(t, "create-iv@example.com")
	resumeID := h.uploadResume(t, token)

	out := h.createInterview(t, token, resumeID)
	assert.Equal(t, resumeID, out.Interview.ResumeID)
	assert.Equal(t, string(domain.InterviewPending), out.Interview.Status)
	assert.Equal(t, 0, out.Interview.CurrentQuestionIndex)
	assert.Equal(t, 10, out.Interview.TotalQuestions)
	require.Len(t, out.Questions, 10)
	for i, q := range out.Questions {
		assert.Equal(t, i+1, q.Order)
		assert.NotEmpty(t, q.Text)
		assert.True(t, domain.QuestionCategory(q.Category).Valid())
		assert.Positive(t, q.TimeLimitSeconds)
	}
}

func TestInterviewCreate_BadRequests(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	token := h.register(t, "create-bad@example.com")

	rec := h.doJSON(t, http.MethodPost, "/v1/interviews", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.doJSON(t, http.MethodPost, "/v1/interviews", token, map[string]string{"resume_id": "no-such-resume"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInterviewStartAndCurrentQuestion(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	token := h.register(t, "start@example.com")
	resumeID := h.uploadResume(t, token)
	out := h.createInterview(t, token, resumeID)
	ivID := out.Interview.ID

	rec := h.doJSON(t, http.MethodPost, "/v1/interviews/"+ivID+"/start", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var iv struct {
		Status    string  `json:"status"`
		StartTime *string `json:"start_time"`
	}
	decodeBody(t, rec, &iv)
	assert.Equal(t, string(domain.InterviewInProgress), iv.Status)
	assert.NotNil(t, iv.StartTime)

	// Starting again is a no-op, not an error.
	rec = h.doJSON(t, http.MethodPost, "/v1/interviews/"+ivID+"/start", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.doJSON(t, http.MethodGet, "/v1/interviews/"+ivID+"/current-question", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cq struct {
		Completed bool `json:"completed"`
		Index     int  `json:"index"`
		Total     int  `json:"total"`
		Question  *struct {
			ID string `json:"id"`
		} `json:"question"`
	}
	decodeBody(t, rec, &cq)
	assert.False(t, cq.Completed)
	assert.Equal(t, 0, cq.Index)
	assert.Equal(t, 10, cq.Total)
	require.NotNil(t, cq.Question)
	assert.Equal(t, out.Questions[0].ID, cq.Question.ID)
}

func TestAnswerFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	token := h.register(t, "answers@example.com")
	resumeID := h.uploadResume(t, token)
	out := h.createInterview(t, token, resumeID)
	ivID := out.Interview.ID

	// First submission auto-starts the pending interview.
	for i, q := range out.Questions {
		rec := h.multipart(t, "/v1/interviews/"+ivID+"/answers", token, map[string]string{
			"question_id":      q.ID,
			"transcript":       fmt.Sprintf("Answer to question %d with enough substance to evaluate.", i+1),
			"duration_seconds": "42.5",
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var ans struct {
			ResponseID string            `json:"response_id"`
			Evaluation domain.Evaluation `json:"evaluation"`
			EvalSource string            `json:"eval_source"`
			Completed  bool              `json:"completed"`
			Interview  struct {
				CurrentQuestionIndex int    `json:"current_question_index"`
				Status               string `json:"status"`
			} `json:"interview"`
		}
		decodeBody(t, rec, &ans)
		assert.NotEmpty(t, ans.ResponseID)
		assert.Equal(t, domain.SourceModel, ans.EvalSource)
		assert.Equal(t, i+1, ans.Interview.CurrentQuestionIndex)
		assert.Equal(t, i == 9, ans.Completed)

		if i == 9 {
			assert.Equal(t, string(domain.InterviewCompleted), ans.Interview.Status)
		}
	}

	// The session pointer reports completion.
	rec := h.doJSON(t, http.MethodGet, "/v1/interviews/"+ivID+"/current-question", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cq struct {
		Completed bool `json:"completed"`
	}
	decodeBody(t, rec, &cq)
	assert.True(t, cq.Completed)

	// No answers accepted after completion.
	code := h.submitAnswer(t, token, ivID, out.Questions[0].ID, "late answer")
	assert.Equal(t, http.StatusConflict, code)
}

func TestAnswer_QuestionMismatch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	token := h.register(t, "mismatch@example.com")
	resumeID := h.uploadResume(t, token)
	out := h.createInterview(t, token, resumeID)

	// Answering question 3 while the pointer is at question 1.
	rec := h.multipart(t, "/v1/interviews/"+out.Interview.ID+"/answers", token, map[string]string{
		"question_id": out.Questions[2].ID,
		"transcript":  "out of order",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "QUESTION_MISMATCH", errCode(t, rec))
}

func TestAnswer_Validation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	token := h.register(t, "ans-bad@example.com")
	resumeID := h.uploadResume(t, token)
	out := h.createInterview(t, token, resumeID)
	ivID := out.Interview.ID

	t.Run("missing question_id", func(t *testing.T) {
		rec := h.multipart(t, "/v1/interviews/"+ivID+"/answers", token, map[string]string{
			"transcript": "an answer",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("negative duration", func(t *testing.T) {
		rec := h.multipart(t, "/v1/interviews/"+ivID+"/answers", token, map[string]string{
			"question_id":      out.Questions[0].ID,
			"transcript":       "an answer",
			"duration_seconds": "-3",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := h.doJSON(t, http.MethodPost, "/v1/interviews/"+ivID+"/answers", token, map[string]string{
			"question_id": out.Questions[0].ID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAnswer_WithAudio(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	token := h.register(t, "audio@example.com")
	resumeID := h.uploadResume(t, token)
	out := h.createInterview(t, token, resumeID)

	// No transcript field: the audio part gets transcribed instead.
	rec := h.multipart(t, "/v1/interviews/"+out.Interview.ID+"/answers", token, map[string]string{
		"question_id": out.Questions[0].ID,
	}, map[string]filePart{
		"audio": {name: "answer.webm", content: []byte("fake-audio-bytes")},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ans struct {
		ResponseID string `json:"response_id"`
	}
	decodeBody(t, rec, &ans)

	rec = h.doJSON(t, http.MethodGet, "/v1/responses/"+ans.ResponseID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Transcript string  `json:"transcript"`
		Duration   float64 `json:"duration_seconds"`
	}
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.Transcript)
	assert.NotEqual(t, domain.TranscriptPlaceholder, resp.Transcript)
}

func TestInterview_OwnerScoped(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	owner := h.register(t, "iv-owner@example.com")
	other := h.register(t, "iv-other@example.com")
	resumeID := h.uploadResume(t, owner)
	out := h.createInterview(t, owner, resumeID)

	for _, path := range []string{
		"/v1/interviews/" + out.Interview.ID,
		"/v1/interviews/" + out.Interview.ID + "/current-question",
		"/v1/interviews/" + out.Interview.ID + "/summary",
	} {
		rec := h.doJSON(t, http.MethodGet, path, other, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := h.doJSON(t, http.MethodPost, "/v1/interviews/"+out.Interview.ID+"/start", other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Creating an interview over someone else's resume also 404s.
	rec = h.doJSON(t, http.MethodPost, "/v1/interviews", other, map[string]string{"resume_id": resumeID})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
