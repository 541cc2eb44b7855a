// Package stub provides a fast, deterministic AI client for local
// development and tests. Selected at runtime via AI_PROVIDER=stub; no API
// key, network, or provider account required.
package stub

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Client answers every prompt from canned payloads keyed off the system
// prompt, so each use case receives JSON matching the schema it asked for.
type Client struct{}

func New() *Client { return &Client{} }

// ChatJSON returns a compact JSON string matching the schema the system
// prompt requests.
func (c *Client) ChatJSON(_ domain.Context, systemPrompt, _ string, _ int) (string, error) {
	// Simulate a tiny bit of processing latency to resemble real work
	time.Sleep(50 * time.Millisecond)

	var payload any
	switch {
	case strings.Contains(systemPrompt, "resume parser"):
		payload = map[string]any{
			"skills": []string{"Go", "PostgreSQL", "Docker", "Kubernetes", "Redis"},
			"projects": []map[string]any{
				{
					"title":       "Order Processing Pipeline",
					"description": "Event-driven order pipeline handling 2k msg/s.",
					"techStack":   []string{"Go", "PostgreSQL", "Redis"},
					"duration":    "6 months",
					"role":        "Backend Engineer",
				},
			},
			"internships": []map[string]any{
				{
					"company":     "Acme Corp",
					"role":        "Software Engineering Intern",
					"duration":    "Summer 2022",
					"description": "Built internal tooling for the platform team.",
				},
			},
			"experience": []map[string]any{
				{
					"company":     "Initech",
					"role":        "Backend Engineer",
					"duration":    "2023-2025",
					"description": "Owned the billing service and its migrations.",
				},
			},
			"education": []map[string]any{
				{
					"degree":      "B.Sc. Computer Science",
					"institution": "State University",
					"year":        "2023",
					"gpa":         "3.7",
				},
			},
		}
	case strings.Contains(systemPrompt, "generating questions"):
		questions := []map[string]any{
			{"category": "technical", "question": "How does Go's scheduler multiplex goroutines onto OS threads?"},
			{"category": "technical", "question": "When would you reach for a partial index in PostgreSQL?"},
			{"category": "technical", "question": "How do you keep Redis cache entries consistent with the source of truth?"},
			{"category": "project", "question": "Walk me through the Order Processing Pipeline. Why an event-driven design?"},
			{"category": "project", "question": "What was the hardest failure mode you handled in that pipeline?"},
			{"category": "experience", "question": "What did owning the billing service at Initech teach you about migrations?"},
			{"category": "experience", "question": "Describe a production incident you debugged end to end."},
			{"category": "internship", "question": "What did you build for the platform team at Acme Corp?"},
			{"category": "behavioral", "question": "Tell me about a time you disagreed with a teammate on a technical decision."},
			{"category": "behavioral", "question": "Describe a situation where you had to learn a technology under deadline."},
		}
		payload = questions
	case strings.Contains(systemPrompt, "hiring committee"):
		payload = map[string]any{
			"summary":         "The candidate communicated clearly and backed answers with concrete project detail.",
			"strengths":       []string{"Clear communication", "Solid backend fundamentals"},
			"weaknesses":      []string{"Limited depth on distributed consensus"},
			"recommendations": []string{"Practice explaining trade-offs out loud"},
			"hireability":     78,
		}
	default:
		payload = map[string]any{
			"technicalDepth": map[string]any{"score": 4, "feedback": "Good grasp of the underlying mechanics."},
			"clarity":        map[string]any{"score": 4, "feedback": "Structured answer, easy to follow."},
			"confidence":     map[string]any{"score": 4, "feedback": "Steady delivery without hedging."},
			"sentiment":      "positive",
			"flags":          map[string]any{"reading": false, "silence": false, "irrelevant": false},
			"overallScore":   4.0,
		}
	}
	b, _ := json.Marshal(payload)
	return string(b), nil
}

// Transcribe returns a fixed transcript without touching the audio bytes.
func (c *Client) Transcribe(_ domain.Context, _ string, audio io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, audio)
	return "In my last role I designed the service around idempotent consumers so retries stayed safe.", nil
}
