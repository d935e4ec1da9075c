package assessment

import (
	"fmt"
	"strings"
)

// Category is one of the four scored areas of the assessment.
type Category string

const (
	CategoryTechnical     Category = "technical"
	CategoryResume        Category = "resume"
	CategoryCommunication Category = "communication"
	CategoryPortfolio     Category = "portfolio"
)

// Categories lists the scored categories in presentation order.
var Categories = []Category{
	CategoryTechnical,
	CategoryResume,
	CategoryCommunication,
	CategoryPortfolio,
}

// Stage identifies a prompt/analysis stage.
type Stage string

const (
	StageTechnical      Stage = "technical"
	StageResume         Stage = "resume"
	StageCommunication  Stage = "communication"
	StagePortfolio      Stage = "portfolio"
	StageOverall        Stage = "overall"
	StageConsolidated   Stage = "consolidated"
	StageResumeDocument Stage = "resumeDocument"
)

// CategoryStage maps a category to its per-category prompt stage.
func CategoryStage(c Category) Stage {
	return Stage(c)
}

// ParseCategory accepts a category name in any case.
func ParseCategory(raw string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryTechnical:
		return CategoryTechnical, nil
	case CategoryResume:
		return CategoryResume, nil
	case CategoryCommunication:
		return CategoryCommunication, nil
	case CategoryPortfolio:
		return CategoryPortfolio, nil
	default:
		return "", fmt.Errorf("unknown category %q", raw)
	}
}

// ParseStage accepts a stage name as used on the command line.
func ParseStage(raw string) (Stage, error) {
	clean := strings.TrimSpace(raw)
	switch strings.ToLower(clean) {
	case "technical", "resume", "communication", "portfolio", "overall", "consolidated":
		return Stage(strings.ToLower(clean)), nil
	case "resumedocument", "resume-document", "resume_document":
		return StageResumeDocument, nil
	default:
		return "", fmt.Errorf("unknown stage %q", raw)
	}
}

// Answers maps question id to the selected option label.
type Answers map[int]string

// Clone returns an independent copy. A nil receiver yields an empty map.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Get returns the answer for id or an empty string.
func (a Answers) Get(id int) string {
	if a == nil {
		return ""
	}
	return a[id]
}
