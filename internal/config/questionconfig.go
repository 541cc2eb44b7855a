// Package config provides loading for the question template configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QuestionTemplates hold the per-category format strings used by the fallback
// question builder. Each template receives the literal profile values noted
// next to it.
type QuestionTemplates struct {
	// Technical receives the skill name.
	Technical string `yaml:"technical"`
	// Project receives the project title and its tech stack.
	Project string `yaml:"project"`
	// Experience receives the role and the company.
	Experience string `yaml:"experience"`
	// Internship receives the role and the company.
	Internship string `yaml:"internship"`
}

// QuestionConfig drives question generation: the answer window per question,
// the per-category fallback templates, and the behavioral filler rotation.
type QuestionConfig struct {
	TimeLimitSeconds int               `yaml:"time_limit_seconds"`
	Templates        QuestionTemplates `yaml:"templates"`
	Behavioral       []string          `yaml:"behavioral"`
}

// DefaultQuestionConfig returns the compiled-in question configuration used
// when no YAML file is present or the file is unusable.
func DefaultQuestionConfig() *QuestionConfig {
	return &QuestionConfig{
		TimeLimitSeconds: 120,
		Templates: QuestionTemplates{
			Technical:  "Tell me about your experience with %s. How have you used it in your work, and what challenges did you face?",
			Project:    "Walk me through your project %q built with %s. What was your role, and what would you improve today?",
			Experience: "Describe your time as %s at %s. What were your main responsibilities and your biggest contribution?",
			Internship: "What did you learn during your internship as %s at %s, and how has it shaped how you work?",
		},
		Behavioral: []string{
			"Tell me about a time you had to learn a new technology quickly. How did you approach it?",
			"Describe a situation where you disagreed with a teammate. How did you resolve it?",
			"Tell me about a challenging bug or problem you solved. What made it difficult?",
			"How do you prioritize your work when several deadlines land at once?",
			"Describe a time you received critical feedback. How did you respond?",
			"Tell me about a project that did not go as planned. What did you learn from it?",
			"How do you keep your technical skills up to date?",
			"Describe a time you had to explain a technical concept to a non-technical audience.",
			"What accomplishment are you most proud of, and why?",
			"What motivates you in this field, and where do you want to grow next?",
		},
	}
}

// LoadQuestionConfig reads a QuestionConfig from a YAML file.
func LoadQuestionConfig(path string) (*QuestionConfig, error) {
	// #nosec G304 -- Configuration files are expected to be safe
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadQuestionConfig: %w", err)
	}
	var qc QuestionConfig
	if err := yaml.Unmarshal(content, &qc); err != nil {
		return nil, fmt.Errorf("op=config.LoadQuestionConfig: %w", err)
	}
	qc.fillDefaults()
	return &qc, nil
}

// QuestionConfigFromFile loads path, falling back to the compiled-in defaults
// when the file is missing or malformed.
func QuestionConfigFromFile(path string) *QuestionConfig {
	qc, err := LoadQuestionConfig(path)
	if err != nil {
		return DefaultQuestionConfig()
	}
	return qc
}

// fillDefaults substitutes compiled-in values for fields the file left empty,
// so a partial YAML override stays usable.
func (qc *QuestionConfig) fillDefaults() {
	def := DefaultQuestionConfig()
	if qc.TimeLimitSeconds <= 0 {
		qc.TimeLimitSeconds = def.TimeLimitSeconds
	}
	if qc.Templates.Technical == "" {
		qc.Templates.Technical = def.Templates.Technical
	}
	if qc.Templates.Project == "" {
		qc.Templates.Project = def.Templates.Project
	}
	if qc.Templates.Experience == "" {
		qc.Templates.Experience = def.Templates.Experience
	}
	if qc.Templates.Internship == "" {
		qc.Templates.Internship = def.Templates.Internship
	}
	if len(qc.Behavioral) == 0 {
		qc.Behavioral = def.Behavioral
	}
}
