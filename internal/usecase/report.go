package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/jsonx"
)

// ReportService aggregates a completed interview's evaluations into one
// report: numeric averages and flag counts computed locally, the narrative
// requested from the model with a templated fallback.
type ReportService struct {
	Interviews domain.InterviewRepository
	Responses  domain.ResponseRepository
	Reports    domain.ReportRepository
	AI         domain.AIClient
	Budget     domain.AIBudget
	Cfg        config.Config
}

// NewReportService constructs a ReportService.
func NewReportService(interviews domain.InterviewRepository, responses domain.ResponseRepository, reports domain.ReportRepository, aicl domain.AIClient, budget domain.AIBudget, cfg config.Config) ReportService {
	return ReportService{Interviews: interviews, Responses: responses, Reports: reports, AI: aicl, Budget: budget, Cfg: cfg}
}

// InterviewSummary is the live, non-persisted progress view of an interview.
type InterviewSummary struct {
	InterviewID    string                 `json:"interview_id"`
	Status         domain.InterviewStatus `json:"status"`
	Answered       int                    `json:"answered"`
	TotalQuestions int                    `json:"total_questions"`
	Scores         domain.ReportScores    `json:"scores"`
	Flags          domain.ReportFlags     `json:"flags"`
}

// Summary computes the interview's running averages without persisting
// anything. Valid at any stage; an unanswered interview reports zero scores.
func (s ReportService) Summary(ctx domain.Context, interviewID, userID string) (InterviewSummary, error) {
	iv, err := s.Interviews.Get(ctx, interviewID, userID)
	if err != nil {
		return InterviewSummary{}, err
	}
	responses, err := s.Responses.ListByInterview(ctx, interviewID)
	if err != nil {
		return InterviewSummary{}, err
	}
	return InterviewSummary{
		InterviewID:    iv.ID,
		Status:         iv.Status,
		Answered:       len(responses),
		TotalQuestions: iv.TotalQuestions,
		Scores:         averageScores(responses),
		Flags:          countFlags(responses),
	}, nil
}

// Generate computes and persists a report for a completed interview. Each
// call inserts a fresh Report row and repoints the interview at it; earlier
// generations become unreferenced.
func (s ReportService) Generate(ctx domain.Context, interviewID, userID string) (domain.Report, error) {
	iv, err := s.Interviews.Get(ctx, interviewID, userID)
	if err != nil {
		return domain.Report{}, err
	}
	if iv.Status != domain.InterviewCompleted {
		return domain.Report{}, fmt.Errorf("op=report.Generate: %w: interview is %s", domain.ErrReportNotReady, iv.Status)
	}

	questions, err := s.Interviews.Questions(ctx, interviewID)
	if err != nil {
		return domain.Report{}, err
	}
	responses, err := s.Responses.ListByInterview(ctx, interviewID)
	if err != nil {
		return domain.Report{}, err
	}
	if len(responses) < iv.TotalQuestions {
		return domain.Report{}, fmt.Errorf("op=report.Generate: %w: have %d of %d responses", domain.ErrIncompleteResponses, len(responses), iv.TotalQuestions)
	}

	pairs := pairTranscripts(questions, responses)
	scores := averageScores(responses)
	narrative, source := s.narrativeFor(ctx, userID, pairs, scores)
	narrative.TotalQuestions = iv.TotalQuestions
	narrative.AverageScore = scores.Overall

	report := domain.Report{
		InterviewID:     interviewID,
		Summary:         narrative,
		Scores:          scores,
		Flags:           countFlags(responses),
		Transcript:      renderTranscript(pairs),
		NarrativeSource: source,
	}
	id, err := s.Reports.Create(ctx, report)
	if err != nil {
		return domain.Report{}, err
	}
	report.ID = id

	observability.ObserveHireability(narrative.Hireability)
	observability.LoggerFromContext(ctx).Info("report generated",
		slog.String("interview_id", interviewID),
		slog.String("report_id", id),
		slog.String("narrative_source", source),
		slog.Float64("overall", scores.Overall))
	return report, nil
}

// GetReport returns the latest report generation for an interview.
func (s ReportService) GetReport(ctx domain.Context, interviewID, userID string) (domain.Report, error) {
	return s.Reports.GetByInterview(ctx, interviewID, userID)
}

// GetResponse returns one stored answer, owner-scoped.
func (s ReportService) GetResponse(ctx domain.Context, responseID, userID string) (domain.Response, error) {
	return s.Responses.Get(ctx, responseID, userID)
}

// averageScores divides by the response count, not the interview's stored
// total, so the numbers stay meaningful if the counts ever diverge.
func averageScores(responses []domain.Response) domain.ReportScores {
	if len(responses) == 0 {
		return domain.ReportScores{}
	}
	var scores domain.ReportScores
	for _, r := range responses {
		scores.TechnicalDepth += float64(r.Evaluation.TechnicalDepth.Score)
		scores.Clarity += float64(r.Evaluation.Clarity.Score)
		scores.Confidence += float64(r.Evaluation.Confidence.Score)
		scores.Overall += r.Evaluation.OverallScore
	}
	n := float64(len(responses))
	scores.TechnicalDepth /= n
	scores.Clarity /= n
	scores.Confidence /= n
	scores.Overall /= n
	return scores
}

func countFlags(responses []domain.Response) domain.ReportFlags {
	var flags domain.ReportFlags
	for _, r := range responses {
		flags.TotalFlags += r.Evaluation.FlagCount()
		if r.Evaluation.Flags.Reading {
			flags.ReadingCount++
		}
		if r.Evaluation.Flags.Silence {
			flags.SilenceCount++
		}
		if r.Evaluation.Flags.Irrelevant {
			flags.IrrelevantCount++
		}
	}
	return flags
}

// pairTranscripts joins questions with their transcripts in question order.
// Questions without a response are skipped; responses arrive ordered by
// question order from the repository.
func pairTranscripts(questions []domain.Question, responses []domain.Response) []qaPair {
	byQuestion := make(map[string]domain.Response, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r
	}
	pairs := make([]qaPair, 0, len(questions))
	for _, q := range questions {
		r, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		pairs = append(pairs, qaPair{Question: q.Text, Transcript: r.Transcript})
	}
	return pairs
}

// renderTranscript concatenates all answers, each prefixed by its question.
func renderTranscript(pairs []qaPair) string {
	b := &strings.Builder{}
	for i, p := range pairs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(b, "Q%d: %s\nA: %s", i+1, p.Question, p.Transcript)
	}
	return b.String()
}

// narrativeOut mirrors the narrative JSON the prompt demands.
type narrativeOut struct {
	Summary         string                      `json:"summary"`
	Strengths       []string                    `json:"strengths"`
	Weaknesses      []string                    `json:"weaknesses"`
	Recommendations []string                    `json:"recommendations"`
	Hireability     int                         `json:"hireability"`
	PerQuestion     []domain.QuestionAssessment `json:"perQuestion"`
}

// narrativeFor requests the model narrative, substituting the fixed template
// on any failure.
func (s ReportService) narrativeFor(ctx domain.Context, userID string, pairs []qaPair, scores domain.ReportScores) (domain.ReportSummary, string) {
	lg := observability.LoggerFromContext(ctx)

	if n, ok := s.narrativeFromModel(ctx, userID, pairs); ok {
		return n, domain.SourceModel
	}
	lg.Warn("report narrative using templated fallback", slog.String("user_id", userID))
	observability.RecordFallback("narrative")
	return fallbackNarrative(pairs, scores), domain.SourceFallback
}

func (s ReportService) narrativeFromModel(ctx domain.Context, userID string, pairs []qaPair) (domain.ReportSummary, bool) {
	if s.AI == nil {
		return domain.ReportSummary{}, false
	}
	if s.Budget != nil {
		allowed, err := s.Budget.Allow(ctx, userID)
		if err == nil && !allowed {
			observability.RecordBudgetDenied("narrative")
			return domain.ReportSummary{}, false
		}
	}

	reply, err := s.AI.ChatJSON(ctx,
		buildNarrativeSystemPrompt(),
		buildNarrativeUserPrompt(pairs, s.Cfg.ChatModel, s.Cfg.PromptTokenBudget),
		s.Cfg.AIMaxTokens)
	if err != nil {
		return domain.ReportSummary{}, false
	}

	var out narrativeOut
	if !jsonx.ExtractInto(reply, &out) {
		return domain.ReportSummary{}, false
	}
	if strings.TrimSpace(out.Summary) == "" {
		return domain.ReportSummary{}, false
	}
	if out.Hireability < 0 {
		out.Hireability = 0
	}
	if out.Hireability > 100 {
		out.Hireability = 100
	}
	if len(out.PerQuestion) == 0 {
		for _, p := range pairs {
			out.PerQuestion = append(out.PerQuestion, domain.QuestionAssessment{Question: p.Question, Assessment: fallbackAssessment})
		}
	}
	return domain.ReportSummary{
		Text:            out.Summary,
		Strengths:       out.Strengths,
		Weaknesses:      out.Weaknesses,
		Recommendations: out.Recommendations,
		Hireability:     out.Hireability,
		PerQuestion:     out.PerQuestion,
	}, true
}

const fallbackAssessment = "The answer was recorded and scored; a detailed assessment is not available for this question."

const fallbackHireability = 60

// fallbackNarrative is the deterministic summary used when the model path
// fails: generic statements plus the locally computed averages.
func fallbackNarrative(pairs []qaPair, scores domain.ReportScores) domain.ReportSummary {
	perQuestion := make([]domain.QuestionAssessment, 0, len(pairs))
	for _, p := range pairs {
		perQuestion = append(perQuestion, domain.QuestionAssessment{Question: p.Question, Assessment: fallbackAssessment})
	}
	return domain.ReportSummary{
		Text: fmt.Sprintf("The candidate completed all %d questions with an average score of %.1f out of 5. A detailed narrative could not be generated for this session.", len(pairs), scores.Overall),
		Strengths: []string{
			"Completed the full interview session",
			"Provided answers to every question",
		},
		Weaknesses: []string{
			"Automated analysis was unavailable for this session",
		},
		Recommendations: []string{
			"Review your recorded answers and transcripts",
			"Practice structuring answers with situation, action, and result",
		},
		Hireability: fallbackHireability,
		PerQuestion: perQuestion,
	}
}
