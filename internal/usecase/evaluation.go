package usecase

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	"github.com/fairyhunter13/ai-interview-coach/pkg/jsonx"
)

// Evaluator scores one answer against its question with a single model call.
// It never returns an error: any failure, from a transport error to an
// unparseable reply, resolves to the fixed neutral evaluation so the
// interview keeps advancing (availability over accuracy).
type Evaluator struct {
	AI     domain.AIClient
	Budget domain.AIBudget
	Cfg    config.Config
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(aicl domain.AIClient, budget domain.AIBudget, cfg config.Config) Evaluator {
	return Evaluator{AI: aicl, Budget: budget, Cfg: cfg}
}

// FallbackEvaluation is the deterministic neutral rubric used whenever the
// model path fails. Same shape as a real evaluation on purpose; provenance is
// recorded on the Response, not in the evaluation itself.
func FallbackEvaluation() domain.Evaluation {
	return domain.Evaluation{
		TechnicalDepth: domain.ScoredCriterion{Score: 3, Feedback: "The answer could not be scored automatically; a neutral technical score was assigned."},
		Clarity:        domain.ScoredCriterion{Score: 3, Feedback: "The answer could not be scored automatically; a neutral clarity score was assigned."},
		Confidence:     domain.ScoredCriterion{Score: 3, Feedback: "The answer could not be scored automatically; a neutral confidence score was assigned."},
		Sentiment:      domain.SentimentNeutral,
		Flags:          domain.EvaluationFlags{},
		OverallScore:   3.0,
	}
}

// evalOut mirrors the rubric JSON the prompt demands. Scores are validated
// after clamping, so the tags mostly guard field presence and sentiment.
type evalOut struct {
	TechnicalDepth scoredOut `json:"technicalDepth" validate:"required"`
	Clarity        scoredOut `json:"clarity" validate:"required"`
	Confidence     scoredOut `json:"confidence" validate:"required"`
	Sentiment      string    `json:"sentiment" validate:"required"`
	Flags          flagsOut  `json:"flags"`
	OverallScore   float64   `json:"overallScore" validate:"min=0,max=5"`
}

type scoredOut struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback" validate:"required"`
}

type flagsOut struct {
	Reading    bool `json:"reading"`
	Silence    bool `json:"silence"`
	Irrelevant bool `json:"irrelevant"`
}

var (
	evalVldOnce sync.Once
	evalVld     *validator.Validate
)

func evalValidator() *validator.Validate {
	evalVldOnce.Do(func() { evalVld = validator.New() })
	return evalVld
}

// Evaluate scores transcript against question. The returned source is
// domain.SourceModel or domain.SourceFallback.
func (e Evaluator) Evaluate(ctx domain.Context, userID, question, transcript string) (domain.Evaluation, string) {
	lg := observability.LoggerFromContext(ctx)

	ev, err := e.evaluateWithModel(ctx, userID, question, transcript)
	if err != nil {
		lg.Warn("answer evaluation using neutral fallback",
			slog.String("user_id", userID),
			slog.Any("error", err))
		observability.RecordFallback("evaluation")
		return FallbackEvaluation(), domain.SourceFallback
	}
	observability.ObserveEvaluationScore(e.Cfg.ChatModel, ev.OverallScore)
	return ev, domain.SourceModel
}

func (e Evaluator) evaluateWithModel(ctx domain.Context, userID, question, transcript string) (domain.Evaluation, error) {
	if e.AI == nil {
		return domain.Evaluation{}, domain.ErrUpstreamAI
	}
	if e.Budget != nil {
		allowed, err := e.Budget.Allow(ctx, userID)
		if err == nil && !allowed {
			observability.RecordBudgetDenied("evaluation")
			return domain.Evaluation{}, domain.ErrBudgetExhausted
		}
	}

	reply, err := e.AI.ChatJSON(ctx,
		buildEvaluationSystemPrompt(),
		buildEvaluationUserPrompt(question, transcript, e.Cfg.ChatModel, e.Cfg.PromptTokenBudget),
		e.Cfg.AIMaxTokens)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if ai.IsRefusal(reply) {
		return domain.Evaluation{}, domain.ErrUnparseable
	}

	var out evalOut
	if !jsonx.ExtractInto(reply, &out) {
		return domain.Evaluation{}, domain.ErrUnparseable
	}
	out.clamp()
	if err := evalValidator().Struct(out); err != nil {
		return domain.Evaluation{}, domain.ErrSchemaInvalid
	}

	return domain.Evaluation{
		TechnicalDepth: domain.ScoredCriterion(out.TechnicalDepth),
		Clarity:        domain.ScoredCriterion(out.Clarity),
		Confidence:     domain.ScoredCriterion(out.Confidence),
		Sentiment:      out.Sentiment,
		Flags:          domain.EvaluationFlags(out.Flags),
		OverallScore:   out.OverallScore,
	}, nil
}

// clamp forces scores into range and sentiment onto the three known labels.
func (o *evalOut) clamp() {
	o.TechnicalDepth.Score = clampScore(o.TechnicalDepth.Score)
	o.Clarity.Score = clampScore(o.Clarity.Score)
	o.Confidence.Score = clampScore(o.Confidence.Score)
	if o.OverallScore < 0 {
		o.OverallScore = 0
	}
	if o.OverallScore > 5 {
		o.OverallScore = 5
	}
	switch strings.ToLower(strings.TrimSpace(o.Sentiment)) {
	case domain.SentimentPositive:
		o.Sentiment = domain.SentimentPositive
	case domain.SentimentNegative:
		o.Sentiment = domain.SentimentNegative
	default:
		o.Sentiment = domain.SentimentNeutral
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 5 {
		return 5
	}
	return s
}
