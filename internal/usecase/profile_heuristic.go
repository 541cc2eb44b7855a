package usecase

import (
	"regexp"
	"strings"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// ProfileFromText derives a best-effort Profile from normalized resume text
// without any model call. It is deliberately low-precision: the contract is a
// syntactically valid, non-empty-where-possible Profile, not accurate
// extraction. Pure function, safe to fuzz against arbitrary strings.
func ProfileFromText(text string) domain.Profile {
	chunks := chunkText(text)
	return domain.Profile{
		Skills:      heuristicSkills(text, chunks),
		Projects:    heuristicProjects(chunks),
		Internships: heuristicInternships(chunks),
		Experience:  heuristicExperience(chunks),
		Education:   heuristicEducation(chunks),
	}
}

var chunkSplitRe = regexp.MustCompile(`[\n\t]+| {2,}`)

// chunkText splits text into line-like chunks on newlines, tabs, and runs of
// two or more spaces, dropping empties.
func chunkText(text string) []string {
	parts := chunkSplitRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

const (
	maxLabeledSkills = 15
	maxScannedSkills = 10
	maxProjects      = 3
	maxProjectStack  = 5
	maxExperience    = 3
	maxInternships   = 2
	maxEducation     = 2
)

var (
	skillLabelRe = regexp.MustCompile(`(?i)^(?:key\s+)?(?:skills|technologies|tech stack|programming languages|tools)\s*[:\-—]\s*(.+)$`)
	skillSplitRe = regexp.MustCompile(`[,;•|·]+`)

	// techVocabulary is the fixed term list scanned when no labeled skills
	// line exists. Matching is case-insensitive on word boundaries.
	techVocabulary = []string{
		"Python", "Java", "JavaScript", "TypeScript", "Go", "Rust", "C++", "C#",
		"Ruby", "PHP", "Swift", "Kotlin", "SQL", "HTML", "CSS",
		"React", "Angular", "Vue", "Node.js", "Django", "Flask", "Spring",
		"Express", "Rails", "Laravel",
		"AWS", "Azure", "GCP", "Docker", "Kubernetes", "Terraform", "Jenkins",
		"Git", "Linux", "PostgreSQL", "MySQL", "MongoDB", "Redis", "Kafka",
		"GraphQL", "REST", "gRPC", "TensorFlow", "PyTorch",
	}

	projectKeywordRe = regexp.MustCompile(`(?i)\b(?:project|portfolio|application|app|website|system)\b`)

	roleKeywordRe = regexp.MustCompile(`(?i)\b(engineer|developer|intern|manager|analyst|consultant|architect|lead)\b`)
	orgSuffixRe   = regexp.MustCompile(`(?i)\b(inc|llc|corp|ltd|gmbh|technologies|labs|solutions)\b\.?`)
	// rolePattern captures "<role> at <company>" shaped chunks.
	roleAtCompanyRe = regexp.MustCompile(`(?i)^(.{2,60}?(?:engineer|developer|intern|manager|analyst|consultant|architect|lead))\s+(?:at|@|-|,)\s+(.{2,60}?)(?:[,.(]|$)`)

	internKeywordRe = regexp.MustCompile(`(?i)\b(?:intern|internship|trainee)\b`)

	degreeKeywordRe      = regexp.MustCompile(`(?i)\b(?:bachelor|master|phd|b\.tech|m\.tech|bsc|msc|degree|diploma)\b`)
	institutionKeywordRe = regexp.MustCompile(`(?i)\b(?:university|college|institute|school)\b`)
	institutionCaptureRe = regexp.MustCompile(`(?i)([A-Za-z .'&-]*(?:university|college|institute|school)[A-Za-z .'&-]*)`)
)

const (
	fallbackCompany     = "a technology company"
	fallbackRole        = "Software Developer"
	fallbackDegree      = "Bachelor's Degree"
	fallbackInstitution = "University"
)

func heuristicSkills(text string, chunks []string) []string {
	for _, c := range chunks {
		m := skillLabelRe.FindStringSubmatch(c)
		if m == nil {
			continue
		}
		var skills []string
		for _, part := range skillSplitRe.Split(m[1], -1) {
			if part = strings.TrimSpace(strings.TrimLeft(part, "-• ")); part != "" {
				skills = append(skills, part)
			}
			if len(skills) == maxLabeledSkills {
				break
			}
		}
		if len(skills) > 0 {
			return skills
		}
	}

	// No labeled line: scan the whole text against the fixed vocabulary.
	lower := strings.ToLower(text)
	var skills []string
	for _, term := range techVocabulary {
		if containsTerm(lower, strings.ToLower(term)) {
			skills = append(skills, term)
		}
		if len(skills) == maxScannedSkills {
			break
		}
	}
	return skills
}

// containsTerm reports a word-boundary match of term inside lower-cased text.
// Terms like "c++" carry their own punctuation, so the boundary check is
// manual rather than \b.
func containsTerm(lower, term string) bool {
	for start := 0; ; {
		i := strings.Index(lower[start:], term)
		if i < 0 {
			return false
		}
		i += start
		before := byte(' ')
		if i > 0 {
			before = lower[i-1]
		}
		after := byte(' ')
		if end := i + len(term); end < len(lower) {
			after = lower[end]
		}
		if !isWordByte(before) && !isWordByte(after) {
			return true
		}
		start = i + len(term)
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

func heuristicProjects(chunks []string) []domain.Project {
	var out []domain.Project
	for _, c := range chunks {
		if !projectKeywordRe.MatchString(c) {
			continue
		}
		desc := c
		if len(c) < 50 {
			desc = c + " - A technical project"
		}
		out = append(out, domain.Project{
			Title:       projectTitle(c),
			Description: desc,
			TechStack:   stackFromChunk(c),
			Duration:    "N/A",
			Role:        "Developer",
		})
		if len(out) == maxProjects {
			break
		}
	}
	return out
}

// projectTitle takes the chunk head up to the first separator as the title.
func projectTitle(c string) string {
	if i := strings.IndexAny(c, ":-–—("); i > 0 {
		c = c[:i]
	}
	c = strings.TrimSpace(c)
	if len(c) > 60 {
		c = strings.TrimSpace(c[:60])
	}
	if c == "" {
		return "Personal Project"
	}
	return c
}

func stackFromChunk(c string) []string {
	lower := strings.ToLower(c)
	var out []string
	for _, term := range techVocabulary {
		if containsTerm(lower, strings.ToLower(term)) {
			out = append(out, term)
		}
		if len(out) == maxProjectStack {
			break
		}
	}
	return out
}

func heuristicExperience(chunks []string) []domain.WorkEntry {
	var out []domain.WorkEntry
	for _, c := range chunks {
		if internKeywordRe.MatchString(c) {
			continue
		}
		if !roleKeywordRe.MatchString(c) && !orgSuffixRe.MatchString(c) {
			continue
		}
		out = append(out, workEntryFromChunk(c))
		if len(out) == maxExperience {
			break
		}
	}
	return out
}

func heuristicInternships(chunks []string) []domain.WorkEntry {
	var out []domain.WorkEntry
	for _, c := range chunks {
		if !internKeywordRe.MatchString(c) {
			continue
		}
		e := workEntryFromChunk(c)
		if e.Role == fallbackRole {
			e.Role = "Intern"
		}
		out = append(out, e)
		if len(out) == maxInternships {
			break
		}
	}
	return out
}

func workEntryFromChunk(c string) domain.WorkEntry {
	entry := domain.WorkEntry{
		Company:     fallbackCompany,
		Role:        fallbackRole,
		Duration:    "N/A",
		Description: c,
	}
	if m := roleAtCompanyRe.FindStringSubmatch(c); m != nil {
		entry.Role = strings.TrimSpace(m[1])
		entry.Company = strings.TrimSpace(m[2])
		return entry
	}
	if m := roleKeywordRe.FindString(c); m != "" {
		entry.Role = capitalizeASCII(m)
	}
	if m := orgSuffixRe.FindString(c); m != "" {
		if i := strings.Index(strings.ToLower(c), strings.ToLower(m)); i >= 0 {
			head := strings.TrimSpace(c[:i+len(m)])
			if words := strings.Fields(head); len(words) > 0 {
				from := len(words) - 4
				if from < 0 {
					from = 0
				}
				entry.Company = strings.Join(words[from:], " ")
			}
		}
	}
	return entry
}

// capitalizeASCII upper-cases the first letter of a matched role keyword.
func capitalizeASCII(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func heuristicEducation(chunks []string) []domain.EducationEntry {
	var out []domain.EducationEntry
	for _, c := range chunks {
		if !degreeKeywordRe.MatchString(c) && !institutionKeywordRe.MatchString(c) {
			continue
		}
		e := domain.EducationEntry{
			Degree:      fallbackDegree,
			Institution: fallbackInstitution,
			Year:        "N/A",
			GPA:         "N/A",
		}
		if m := degreeKeywordRe.FindString(c); m != "" {
			e.Degree = degreeName(m, c)
		}
		if m := institutionCaptureRe.FindString(c); m != "" {
			e.Institution = strings.TrimSpace(m)
		}
		out = append(out, e)
		if len(out) == maxEducation {
			break
		}
	}
	return out
}

// degreeName expands the matched keyword to the chunk head when it reads like
// a full degree title, else keeps the keyword itself.
func degreeName(keyword, chunk string) string {
	i := strings.Index(strings.ToLower(chunk), strings.ToLower(keyword))
	if i < 0 {
		return keyword
	}
	rest := chunk[i:]
	if j := strings.IndexAny(rest, ",.;("); j > 0 {
		rest = rest[:j]
	}
	rest = strings.TrimSpace(rest)
	if len(rest) > 60 {
		rest = strings.TrimSpace(rest[:60])
	}
	if rest == "" {
		return keyword
	}
	return rest
}
