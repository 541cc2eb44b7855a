package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// InterviewRepo owns interview rows, their questions, and the single
// progression mutator AppendResponse.
type InterviewRepo struct{ Pool PgxPool }

// NewInterviewRepo constructs an InterviewRepo with the given pool.
func NewInterviewRepo(p PgxPool) *InterviewRepo { return &InterviewRepo{Pool: p} }

const interviewColumns = `id, user_id, resume_id, status, current_question_index, total_questions, start_time, end_time, report_id, created_at, updated_at`

// Create inserts the interview and its full question set in one transaction
// and returns the interview id.
func (r *InterviewRepo) Create(ctx domain.Context, iv domain.Interview, qs []domain.Question) (string, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Create")
	defer span.End()

	id := iv.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("op=interview.create: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO interviews (id, user_id, resume_id, status, current_question_index, total_questions, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err := tx.Exec(ctx, q, id, iv.UserID, iv.ResumeID, domain.InterviewPending, 0, len(qs), now, now); err != nil {
		return "", fmt.Errorf("op=interview.create: %w", err)
	}

	qq := `INSERT INTO questions (id, interview_id, text, category, question_order, time_limit, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`
	for _, question := range qs {
		qid := question.ID
		if qid == "" {
			qid = uuid.New().String()
		}
		if _, err := tx.Exec(ctx, qq, qid, id, question.Text, question.Category, question.Order, question.TimeLimit, now); err != nil {
			return "", fmt.Errorf("op=interview.create: question %d: %w", question.Order, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("op=interview.create: commit: %w", err)
	}
	return id, nil
}

// Get loads an interview owned by userID.
func (r *InterviewRepo) Get(ctx domain.Context, id, userID string) (domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Get")
	defer span.End()
	q := `SELECT ` + interviewColumns + ` FROM interviews WHERE id=$1 AND user_id=$2`
	iv, err := scanInterview(r.Pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, fmt.Errorf("op=interview.get: %w", domain.ErrNotFound)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.get: %w", err)
	}
	return iv, nil
}

// List returns the user's interviews, newest first.
func (r *InterviewRepo) List(ctx domain.Context, userID string) ([]domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.List")
	defer span.End()
	q := `SELECT ` + interviewColumns + ` FROM interviews WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Interview
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("op=interview.list: %w", err)
		}
		out = append(out, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=interview.list: %w", err)
	}
	return out, nil
}

// Start moves a pending interview to in-progress. Racing starts lose the
// guarded update and get ErrConflict; callers treat an interview that is
// already in-progress as a no-op before reaching here.
func (r *InterviewRepo) Start(ctx domain.Context, id string, at time.Time) error {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Start")
	defer span.End()
	q := `UPDATE interviews SET status=$2, start_time=$3, updated_at=$3 WHERE id=$1 AND status=$4`
	tag, err := r.Pool.Exec(ctx, q, id, domain.InterviewInProgress, at.UTC(), domain.InterviewPending)
	if err != nil {
		return fmt.Errorf("op=interview.start: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=interview.start: %w: interview not pending", domain.ErrConflict)
	}
	return nil
}

// Questions returns the interview's questions in ask order.
func (r *InterviewRepo) Questions(ctx domain.Context, interviewID string) ([]domain.Question, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.Questions")
	defer span.End()
	q := `SELECT id, interview_id, text, category, question_order, time_limit, created_at
	FROM questions WHERE interview_id=$1 ORDER BY question_order ASC`
	rows, err := r.Pool.Query(ctx, q, interviewID)
	if err != nil {
		return nil, fmt.Errorf("op=interview.questions: %w", err)
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		var question domain.Question
		if err := rows.Scan(&question.ID, &question.InterviewID, &question.Text, &question.Category, &question.Order, &question.TimeLimit, &question.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=interview.questions: %w", err)
		}
		out = append(out, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=interview.questions: %w", err)
	}
	return out, nil
}

// AppendResponse inserts the response and advances current_question_index in
// one transaction. The update is guarded by expectedIndex, so of two racing
// submissions exactly one commits; the loser sees ErrConflict. Reaching
// total_questions flips the interview to completed and stamps end_time.
func (r *InterviewRepo) AppendResponse(ctx domain.Context, resp domain.Response, expectedIndex int, finishedAt time.Time) (domain.Interview, error) {
	tracer := otel.Tracer("repo.interviews")
	ctx, span := tracer.Start(ctx, "interviews.AppendResponse")
	defer span.End()

	evaluation, err := json.Marshal(resp.Evaluation)
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.append_response: marshal evaluation: %w", err)
	}
	id := resp.ID
	if id == "" {
		id = uuid.New().String()
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.append_response: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insert := `INSERT INTO responses (id, interview_id, question_id, transcript, audio_ref, video_ref, evaluation, eval_source, duration, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	if _, err := tx.Exec(ctx, insert, id, resp.InterviewID, resp.QuestionID, resp.Transcript, resp.AudioRef, resp.VideoRef, evaluation, resp.EvalSource, resp.Duration, time.Now().UTC()); err != nil {
		if uniqueViolation(err, "responses_question_key") {
			return domain.Interview{}, fmt.Errorf("op=interview.append_response: %w: question already answered", domain.ErrConflict)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.append_response: %w", err)
	}

	update := `UPDATE interviews SET
		current_question_index = current_question_index + 1,
		status = CASE WHEN current_question_index + 1 >= total_questions THEN $3 ELSE status END,
		end_time = CASE WHEN current_question_index + 1 >= total_questions THEN $4 ELSE end_time END,
		updated_at = $4
	WHERE id = $1 AND current_question_index = $2
	RETURNING ` + interviewColumns
	iv, err := scanInterview(tx.QueryRow(ctx, update, resp.InterviewID, expectedIndex, domain.InterviewCompleted, finishedAt.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Interview{}, fmt.Errorf("op=interview.append_response: %w: progression raced", domain.ErrConflict)
		}
		return domain.Interview{}, fmt.Errorf("op=interview.append_response: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Interview{}, fmt.Errorf("op=interview.append_response: commit: %w", err)
	}
	return iv, nil
}

func scanInterview(row pgx.Row) (domain.Interview, error) {
	var iv domain.Interview
	if err := row.Scan(&iv.ID, &iv.UserID, &iv.ResumeID, &iv.Status, &iv.CurrentQuestionIndex, &iv.TotalQuestions, &iv.StartTime, &iv.EndTime, &iv.ReportID, &iv.CreatedAt, &iv.UpdatedAt); err != nil {
		return domain.Interview{}, err
	}
	return iv, nil
}
