package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// ResponseRepo reads stored answers. Writes go through
// InterviewRepo.AppendResponse only.
type ResponseRepo struct{ Pool PgxPool }

// NewResponseRepo constructs a ResponseRepo with the given pool.
func NewResponseRepo(p PgxPool) *ResponseRepo { return &ResponseRepo{Pool: p} }

const responseColumns = `r.id, r.interview_id, r.question_id, r.transcript, r.audio_ref, r.video_ref, r.evaluation, r.eval_source, r.duration, r.created_at`

// Get loads a response whose interview is owned by userID.
func (r *ResponseRepo) Get(ctx domain.Context, id, userID string) (domain.Response, error) {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.Get")
	defer span.End()
	q := `SELECT ` + responseColumns + ` FROM responses r
	JOIN interviews i ON i.id = r.interview_id
	WHERE r.id=$1 AND i.user_id=$2`
	resp, err := scanResponse(r.Pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Response{}, fmt.Errorf("op=response.get: %w", domain.ErrNotFound)
		}
		return domain.Response{}, fmt.Errorf("op=response.get: %w", err)
	}
	return resp, nil
}

// ListByInterview returns all responses for an interview in answer order.
func (r *ResponseRepo) ListByInterview(ctx domain.Context, interviewID string) ([]domain.Response, error) {
	tracer := otel.Tracer("repo.responses")
	ctx, span := tracer.Start(ctx, "responses.ListByInterview")
	defer span.End()
	q := `SELECT ` + responseColumns + ` FROM responses r
	JOIN questions qu ON qu.id = r.question_id
	WHERE r.interview_id=$1 ORDER BY qu.question_order ASC`
	rows, err := r.Pool.Query(ctx, q, interviewID)
	if err != nil {
		return nil, fmt.Errorf("op=response.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("op=response.list: %w", err)
		}
		out = append(out, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=response.list: %w", err)
	}
	return out, nil
}

func scanResponse(row pgx.Row) (domain.Response, error) {
	var resp domain.Response
	var evaluation []byte
	if err := row.Scan(&resp.ID, &resp.InterviewID, &resp.QuestionID, &resp.Transcript, &resp.AudioRef, &resp.VideoRef, &evaluation, &resp.EvalSource, &resp.Duration, &resp.CreatedAt); err != nil {
		return domain.Response{}, err
	}
	if err := json.Unmarshal(evaluation, &resp.Evaluation); err != nil {
		return domain.Response{}, fmt.Errorf("unmarshal evaluation: %w", err)
	}
	return resp, nil
}
