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

// ReportRepo persists generated reports. Regeneration inserts a fresh row
// and repoints the interview, so older generations stay queryable.
type ReportRepo struct{ Pool PgxPool }

// NewReportRepo constructs a ReportRepo with the given pool.
func NewReportRepo(p PgxPool) *ReportRepo { return &ReportRepo{Pool: p} }

// Create inserts the report and repoints the interview's report reference in
// the same transaction.
func (r *ReportRepo) Create(ctx domain.Context, rep domain.Report) (string, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.Create")
	defer span.End()

	id := rep.ID
	if id == "" {
		id = uuid.New().String()
	}
	summary, err := json.Marshal(rep.Summary)
	if err != nil {
		return "", fmt.Errorf("op=report.create: marshal summary: %w", err)
	}
	scores, err := json.Marshal(rep.Scores)
	if err != nil {
		return "", fmt.Errorf("op=report.create: marshal scores: %w", err)
	}
	flags, err := json.Marshal(rep.Flags)
	if err != nil {
		return "", fmt.Errorf("op=report.create: marshal flags: %w", err)
	}
	now := time.Now().UTC()

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("op=report.create: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO reports (id, interview_id, summary, scores, flags, transcript, narrative_source, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	if _, err := tx.Exec(ctx, q, id, rep.InterviewID, summary, scores, flags, rep.Transcript, rep.NarrativeSource, now); err != nil {
		return "", fmt.Errorf("op=report.create: %w", err)
	}

	upd := `UPDATE interviews SET report_id=$2, updated_at=$3 WHERE id=$1`
	if _, err := tx.Exec(ctx, upd, rep.InterviewID, id, now); err != nil {
		return "", fmt.Errorf("op=report.create: repoint interview: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("op=report.create: commit: %w", err)
	}
	return id, nil
}

// GetByInterview returns the latest report generation for an interview owned
// by userID.
func (r *ReportRepo) GetByInterview(ctx domain.Context, interviewID, userID string) (domain.Report, error) {
	tracer := otel.Tracer("repo.reports")
	ctx, span := tracer.Start(ctx, "reports.GetByInterview")
	defer span.End()
	q := `SELECT rp.id, rp.interview_id, rp.summary, rp.scores, rp.flags, rp.transcript, rp.narrative_source, rp.created_at
	FROM reports rp
	JOIN interviews i ON i.id = rp.interview_id
	WHERE rp.interview_id=$1 AND i.user_id=$2
	ORDER BY rp.created_at DESC LIMIT 1`
	row := r.Pool.QueryRow(ctx, q, interviewID, userID)
	var rep domain.Report
	var summary, scores, flags []byte
	if err := row.Scan(&rep.ID, &rep.InterviewID, &summary, &scores, &flags, &rep.Transcript, &rep.NarrativeSource, &rep.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Report{}, fmt.Errorf("op=report.get_by_interview: %w", domain.ErrNotFound)
		}
		return domain.Report{}, fmt.Errorf("op=report.get_by_interview: %w", err)
	}
	if err := json.Unmarshal(summary, &rep.Summary); err != nil {
		return domain.Report{}, fmt.Errorf("op=report.get_by_interview: unmarshal summary: %w", err)
	}
	if err := json.Unmarshal(scores, &rep.Scores); err != nil {
		return domain.Report{}, fmt.Errorf("op=report.get_by_interview: unmarshal scores: %w", err)
	}
	if err := json.Unmarshal(flags, &rep.Flags); err != nil {
		return domain.Report{}, fmt.Errorf("op=report.get_by_interview: unmarshal flags: %w", err)
	}
	return rep, nil
}
