package extract

import (
	"regexp"
	"strings"
)

// Sections is a heuristic split of resume text by common headings.
type Sections struct {
	Contact    string `json:"contact"`
	Summary    string `json:"summary"`
	Experience string `json:"experience"`
	Education  string `json:"education"`
	Skills     string `json:"skills"`
	Projects   string `json:"projects"`
	Raw        string `json:"raw"`
}

var emailPattern = regexp.MustCompile(`(?i)\b[\w._%+-]+@[\w.-]+\.[a-z]{2,}\b`)

// ParseSections assigns each line to the section of the most recent heading.
// Heading lines themselves are dropped; lines containing an email address go
// to Contact. Text before any heading belongs to Summary.
func ParseSections(text string) Sections {
	out := Sections{Raw: text}
	current := &out.Summary

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.Contains(lower, "experience") || strings.Contains(lower, "work history"):
			current = &out.Experience
		case strings.Contains(lower, "education"):
			current = &out.Education
		case strings.Contains(lower, "skills") || strings.Contains(lower, "technical"):
			current = &out.Skills
		case strings.Contains(lower, "projects"):
			current = &out.Projects
		case strings.Contains(lower, "summary") || strings.Contains(lower, "objective"):
			current = &out.Summary
		case emailPattern.MatchString(lower):
			out.Contact += line + "\n"
		default:
			*current += line + "\n"
		}
	}
	return out
}
