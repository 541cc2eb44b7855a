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

// ResumeRepo persists and loads resumes with their extracted profiles.
type ResumeRepo struct{ Pool PgxPool }

// NewResumeRepo constructs a ResumeRepo with the given pool.
func NewResumeRepo(p PgxPool) *ResumeRepo { return &ResumeRepo{Pool: p} }

const resumeColumns = `id, user_id, filename, mime, size, blob_ref, text, profile, profile_source, created_at`

// Create stores a new resume and returns its id (generates one if empty).
func (r *ResumeRepo) Create(ctx domain.Context, res domain.Resume) (string, error) {
	tracer := otel.Tracer("repo.resumes")
	ctx, span := tracer.Start(ctx, "resumes.Create")
	defer span.End()
	id := res.ID
	if id == "" {
		id = uuid.New().String()
	}
	profile, err := json.Marshal(res.Profile)
	if err != nil {
		return "", fmt.Errorf("op=resume.create: marshal profile: %w", err)
	}
	q := `INSERT INTO resumes (id, user_id, filename, mime, size, blob_ref, text, profile, profile_source, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err = r.Pool.Exec(ctx, q, id, res.UserID, res.Filename, res.MIME, res.Size, res.BlobRef, res.Text, profile, res.ProfileSource, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=resume.create: %w", err)
	}
	return id, nil
}

// Get loads a resume owned by userID. A resume belonging to someone else is
// indistinguishable from a missing one.
func (r *ResumeRepo) Get(ctx domain.Context, id, userID string) (domain.Resume, error) {
	tracer := otel.Tracer("repo.resumes")
	ctx, span := tracer.Start(ctx, "resumes.Get")
	defer span.End()
	q := `SELECT ` + resumeColumns + ` FROM resumes WHERE id=$1 AND user_id=$2`
	res, err := scanResume(r.Pool.QueryRow(ctx, q, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Resume{}, fmt.Errorf("op=resume.get: %w", domain.ErrNotFound)
		}
		return domain.Resume{}, fmt.Errorf("op=resume.get: %w", err)
	}
	return res, nil
}

// List returns the user's resumes, newest first.
func (r *ResumeRepo) List(ctx domain.Context, userID string) ([]domain.Resume, error) {
	tracer := otel.Tracer("repo.resumes")
	ctx, span := tracer.Start(ctx, "resumes.List")
	defer span.End()
	q := `SELECT ` + resumeColumns + ` FROM resumes WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("op=resume.list: %w", err)
	}
	defer rows.Close()
	var out []domain.Resume
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("op=resume.list: %w", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=resume.list: %w", err)
	}
	return out, nil
}

// Delete removes a resume owned by userID.
func (r *ResumeRepo) Delete(ctx domain.Context, id, userID string) error {
	tracer := otel.Tracer("repo.resumes")
	ctx, span := tracer.Start(ctx, "resumes.Delete")
	defer span.End()
	q := `DELETE FROM resumes WHERE id=$1 AND user_id=$2`
	tag, err := r.Pool.Exec(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("op=resume.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=resume.delete: %w", domain.ErrNotFound)
	}
	return nil
}

func scanResume(row pgx.Row) (domain.Resume, error) {
	var res domain.Resume
	var profile []byte
	if err := row.Scan(&res.ID, &res.UserID, &res.Filename, &res.MIME, &res.Size, &res.BlobRef, &res.Text, &profile, &res.ProfileSource, &res.CreatedAt); err != nil {
		return domain.Resume{}, err
	}
	if err := json.Unmarshal(profile, &res.Profile); err != nil {
		return domain.Resume{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	return res, nil
}
