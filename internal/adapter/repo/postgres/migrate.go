package postgres

import (
	"context"
	"fmt"
)

// migrations are applied in order at boot. Statements are idempotent so a
// restart against an already-migrated database is a no-op.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS resumes (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		mime TEXT NOT NULL,
		size BIGINT NOT NULL,
		blob_ref TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		profile JSONB NOT NULL,
		profile_source TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resumes_user ON resumes(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS interviews (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		resume_id UUID NOT NULL REFERENCES resumes(id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		current_question_index INT NOT NULL DEFAULT 0,
		total_questions INT NOT NULL,
		start_time TIMESTAMPTZ,
		end_time TIMESTAMPTZ,
		report_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interviews_user ON interviews(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id UUID PRIMARY KEY,
		interview_id UUID NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		category TEXT NOT NULL,
		question_order INT NOT NULL,
		time_limit INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT questions_interview_order_key UNIQUE (interview_id, question_order)
	)`,
	`CREATE TABLE IF NOT EXISTS responses (
		id UUID PRIMARY KEY,
		interview_id UUID NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		question_id UUID NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
		transcript TEXT NOT NULL,
		audio_ref TEXT NOT NULL DEFAULT '',
		video_ref TEXT NOT NULL DEFAULT '',
		evaluation JSONB NOT NULL,
		eval_source TEXT NOT NULL,
		duration DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT responses_question_key UNIQUE (question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_responses_interview ON responses(interview_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id UUID PRIMARY KEY,
		interview_id UUID NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
		summary JSONB NOT NULL,
		scores JSONB NOT NULL,
		flags JSONB NOT NULL,
		transcript TEXT NOT NULL DEFAULT '',
		narrative_source TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_interview ON reports(interview_id, created_at DESC)`,
}

// Migrate applies the schema to the connected database.
func Migrate(ctx context.Context, pool PgxPool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("op=postgres.Migrate: statement %d: %w", i, err)
		}
	}
	return nil
}
