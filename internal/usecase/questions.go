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

// QuestionCount is the number of questions every interview is built with.
const QuestionCount = 10

// QuestionDraft is a generated question before it gets an id and order.
type QuestionDraft struct {
	Category domain.QuestionCategory `json:"category"`
	Question string                  `json:"question"`
}

// QuestionBuilder turns a Profile into the interview's question set. The
// model path asks for exactly ten categorized questions; any unusable reply
// routes to the deterministic template fallback.
type QuestionBuilder struct {
	AI     domain.AIClient
	Budget domain.AIBudget
	Cfg    config.Config
	QCfg   *config.QuestionConfig
}

// NewQuestionBuilder constructs a QuestionBuilder.
func NewQuestionBuilder(aicl domain.AIClient, budget domain.AIBudget, cfg config.Config, qcfg *config.QuestionConfig) QuestionBuilder {
	if qcfg == nil {
		qcfg = config.DefaultQuestionConfig()
	}
	return QuestionBuilder{AI: aicl, Budget: budget, Cfg: cfg, QCfg: qcfg}
}

// Build returns the question set and the source that produced it
// (domain.SourceModel or domain.SourceFallback). It never fails: the fallback
// always yields exactly QuestionCount questions.
func (b QuestionBuilder) Build(ctx domain.Context, userID string, p domain.Profile) ([]QuestionDraft, string) {
	lg := observability.LoggerFromContext(ctx)

	if drafts, ok := b.buildFromModel(ctx, userID, p); ok {
		return drafts, domain.SourceModel
	}
	lg.Warn("question builder using template fallback", slog.String("user_id", userID))
	observability.RecordFallback("questions")
	return FallbackQuestions(p, b.QCfg), domain.SourceFallback
}

func (b QuestionBuilder) buildFromModel(ctx domain.Context, userID string, p domain.Profile) ([]QuestionDraft, bool) {
	if b.AI == nil {
		return nil, false
	}
	if b.Budget != nil {
		allowed, err := b.Budget.Allow(ctx, userID)
		if err == nil && !allowed {
			observability.RecordBudgetDenied("questions")
			return nil, false
		}
	}

	reply, err := b.AI.ChatJSON(ctx, buildQuestionsSystemPrompt(), buildQuestionsUserPrompt(p), b.Cfg.AIMaxTokens)
	if err != nil {
		return nil, false
	}

	var drafts []QuestionDraft
	if !jsonx.ExtractInto(reply, &drafts) {
		return nil, false
	}
	if len(drafts) == 0 {
		return nil, false
	}
	for _, d := range drafts {
		if !d.Category.Valid() || strings.TrimSpace(d.Question) == "" {
			return nil, false
		}
	}
	if len(drafts) > QuestionCount {
		drafts = drafts[:QuestionCount]
	}
	// Short model sets are padded rather than rejected; the filler rotation
	// keeps the interview at ten questions either way.
	drafts = padBehavioral(drafts, b.QCfg.Behavioral)
	return drafts, true
}

// FallbackQuestions assembles the deterministic question set from the profile
// and the configured templates. Emission order is fixed: technical, project,
// experience, internship, then behavioral filler up to exactly QuestionCount.
func FallbackQuestions(p domain.Profile, qcfg *config.QuestionConfig) []QuestionDraft {
	if qcfg == nil {
		qcfg = config.DefaultQuestionConfig()
	}
	drafts := make([]QuestionDraft, 0, QuestionCount)

	for i, skill := range p.Skills {
		if i == 3 {
			break
		}
		drafts = append(drafts, QuestionDraft{
			Category: domain.CategoryTechnical,
			Question: fmt.Sprintf(qcfg.Templates.Technical, skill),
		})
	}
	for i, proj := range p.Projects {
		if i == 2 {
			break
		}
		stack := "the technologies you chose"
		if len(proj.TechStack) > 0 {
			stack = strings.Join(proj.TechStack, ", ")
		}
		drafts = append(drafts, QuestionDraft{
			Category: domain.CategoryProject,
			Question: fmt.Sprintf(qcfg.Templates.Project, proj.Title, stack),
		})
	}
	for i, exp := range p.Experience {
		if i == 2 {
			break
		}
		drafts = append(drafts, QuestionDraft{
			Category: domain.CategoryExperience,
			Question: fmt.Sprintf(qcfg.Templates.Experience, exp.Role, exp.Company),
		})
	}
	if len(p.Internships) > 0 {
		in := p.Internships[0]
		drafts = append(drafts, QuestionDraft{
			Category: domain.CategoryInternship,
			Question: fmt.Sprintf(qcfg.Templates.Internship, in.Role, in.Company),
		})
	}

	drafts = padBehavioral(drafts, qcfg.Behavioral)
	if len(drafts) > QuestionCount {
		drafts = drafts[:QuestionCount]
	}
	return drafts
}

// padBehavioral fills remaining slots from the behavioral rotation.
func padBehavioral(drafts []QuestionDraft, rotation []string) []QuestionDraft {
	for i := 0; len(drafts) < QuestionCount && len(rotation) > 0; i++ {
		drafts = append(drafts, QuestionDraft{
			Category: domain.CategoryBehavioral,
			Question: rotation[i%len(rotation)],
		})
	}
	return drafts
}

// Materialize assigns 1-based order and the configured time limit, producing
// persistable Question records for an interview.
func (b QuestionBuilder) Materialize(drafts []QuestionDraft) []domain.Question {
	limit := domain.DefaultQuestionTimeLimit
	if b.QCfg != nil && b.QCfg.TimeLimitSeconds > 0 {
		limit = b.QCfg.TimeLimitSeconds
	}
	out := make([]domain.Question, 0, len(drafts))
	for i, d := range drafts {
		out = append(out, domain.Question{
			Text:      d.Question,
			Category:  d.Category,
			Order:     i + 1,
			TimeLimit: limit,
		})
	}
	return out
}
