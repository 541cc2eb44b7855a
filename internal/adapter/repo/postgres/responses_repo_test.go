package postgres_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

var responseCols = []string{
	"id", "interview_id", "question_id", "transcript", "audio_ref", "video_ref", "evaluation", "eval_source", "duration", "created_at",
}

func testEvaluationJSON(t *testing.T) []byte {
	t.Helper()
	b, err := json.Marshal(domain.Evaluation{
		TechnicalDepth: domain.ScoredCriterion{Score: 4, Feedback: "solid"},
		Clarity:        domain.ScoredCriterion{Score: 3, Feedback: "ok"},
		Confidence:     domain.ScoredCriterion{Score: 5, Feedback: "steady"},
		Sentiment:      domain.SentimentPositive,
		OverallScore:   4.0,
	})
	require.NoError(t, err)
	return b
}

func TestResponseRepo_Get(t *testing.T) {
	t.Parallel()

	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()

	rows := pgxmock.NewRows(responseCols).
		AddRow("resp-1", "iv-1", "q-1", "my answer", "audio/a.webm", "", testEvaluationJSON(t), domain.SourceModel, 33.0, time.Now().UTC())
	m.ExpectQuery("SELECT (.+) FROM responses r").
		WithArgs("resp-1", "user-1").
		WillReturnRows(rows)

	repo := postgres.NewResponseRepo(m)
	resp, err := repo.Get(context.Background(), "resp-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "my answer", resp.Transcript)
	assert.Equal(t, 4, resp.Evaluation.TechnicalDepth.Score)
	assert.Equal(t, domain.SentimentPositive, resp.Evaluation.Sentiment)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestResponseRepo_Get_ScopedToOwner(t *testing.T) {
	t.Parallel()

	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()

	m.ExpectQuery("SELECT (.+) FROM responses r").
		WithArgs("resp-1", "intruder").
		WillReturnRows(pgxmock.NewRows(responseCols))

	repo := postgres.NewResponseRepo(m)
	_, err = repo.Get(context.Background(), "resp-1", "intruder")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, m.ExpectationsWereMet())
}

func TestResponseRepo_ListByInterview(t *testing.T) {
	t.Parallel()

	m, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer m.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows(responseCols).
		AddRow("resp-1", "iv-1", "q-1", "first", "", "", testEvaluationJSON(t), domain.SourceModel, 10.0, now).
		AddRow("resp-2", "iv-1", "q-2", "second", "", "", testEvaluationJSON(t), domain.SourceFallback, 20.0, now)
	m.ExpectQuery("SELECT (.+) FROM responses r").
		WithArgs("iv-1").
		WillReturnRows(rows)

	repo := postgres.NewResponseRepo(m)
	list, err := repo.ListByInterview(context.Background(), "iv-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Transcript)
	assert.Equal(t, domain.SourceFallback, list[1].EvalSource)
	require.NoError(t, m.ExpectationsWereMet())
}
