package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Prompt builders for the four model-backed operations. Every prompt demands
// bare JSON; replies still get run through jsonx because models wrap payloads
// in prose and code fences anyway.

func buildProfileSystemPrompt() string {
	return strings.TrimSpace(`You are a resume parser. Extract structured data from the resume text you are given.
Return ONLY valid JSON adhering to this schema (no markdown, no prose):
{
  "skills": [string],
  "projects": [{"title": string, "description": string, "techStack": [string], "duration": string, "role": string}],
  "internships": [{"company": string, "role": string, "duration": string, "description": string}],
  "experience": [{"company": string, "role": string, "duration": string, "description": string}],
  "education": [{"degree": string, "institution": string, "year": string, "gpa": string}]
}
Use empty arrays for sections the resume does not contain. Never invent entries.`)
}

func buildProfileUserPrompt(resumeText, model string, tokenBudget int) string {
	return "Resume text:\n" + truncateTokens(resumeText, model, tokenBudget)
}

func buildQuestionsSystemPrompt() string {
	return strings.TrimSpace(`You are an interview coach generating questions from a candidate profile.
Return ONLY a valid JSON array of exactly 10 items (no markdown, no prose):
[{"category": "technical"|"project"|"internship"|"experience"|"behavioral", "question": string}]
Ground technical questions in the candidate's listed skills and project questions in their actual projects.`)
}

func buildQuestionsUserPrompt(p domain.Profile) string {
	b, _ := json.Marshal(p)
	return "Candidate profile:\n" + string(b)
}

func buildEvaluationSystemPrompt() string {
	return strings.TrimSpace(`You are an interview answer evaluator. Score the candidate's spoken answer against the question.
Return ONLY valid JSON adhering to this schema and constraints (no markdown, no prose):
{
  "technicalDepth": {"score": integer 0-5, "feedback": string with 1-2 concise sentences},
  "clarity": {"score": integer 0-5, "feedback": string with 1-2 concise sentences},
  "confidence": {"score": integer 0-5, "feedback": string with 1-2 concise sentences},
  "sentiment": "positive"|"neutral"|"negative",
  "flags": {"reading": boolean, "silence": boolean, "irrelevant": boolean},
  "overallScore": number between 0.0 and 5.0
}
Set "reading" when the answer sounds recited, "silence" when it is empty or nearly empty, and "irrelevant" when it does not address the question.`)
}

func buildEvaluationUserPrompt(question, transcript, model string, tokenBudget int) string {
	b := &strings.Builder{}
	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nCandidate answer (transcript):\n")
	b.WriteString(truncateTokens(transcript, model, tokenBudget))
	return b.String()
}

func buildNarrativeSystemPrompt() string {
	return strings.TrimSpace(`You are a hiring committee summarizing a completed practice interview.
Return ONLY valid JSON adhering to this schema (no markdown, no prose):
{
  "summary": string with 3-5 concise sentences,
  "strengths": [string],
  "weaknesses": [string],
  "recommendations": [string],
  "hireability": integer between 0 and 100,
  "perQuestion": [{"question": string, "assessment": string with 1-2 concise sentences}]
}
Base every statement on the transcripts; do not speculate beyond them.`)
}

func buildNarrativeUserPrompt(pairs []qaPair, model string, tokenBudget int) string {
	b := &strings.Builder{}
	b.WriteString("Interview transcript, in question order:\n")
	for i, p := range pairs {
		fmt.Fprintf(b, "\nQ%d: %s\nA: %s\n", i+1, p.Question, p.Transcript)
	}
	return truncateTokens(b.String(), model, tokenBudget)
}

// qaPair couples a question with the transcript that answered it.
type qaPair struct {
	Question   string
	Transcript string
}

// truncateTokens caps text at budget tokens for the given model so a long
// resume or rambling transcript cannot blow the provider's context window.
func truncateTokens(text, model string, budget int) string {
	if budget <= 0 {
		return text
	}
	return tokencount.Truncate(text, model, budget)
}
