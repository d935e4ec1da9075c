package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"readiness-backend/internal/assessment"
)

type consolidatedReply struct {
	OverallScore   float64 `json:"overallScore"`
	ReadinessLevel string  `json:"readinessLevel"`
	StartupFit     *struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	} `json:"startupFit"`
	MarketValue          *assessment.MarketValue                          `json:"marketValue"`
	CategoryScores       map[assessment.Category]float64                  `json:"categoryScores"`
	CategoryDetails      map[assessment.Category]assessment.CategoryDetail `json:"categoryDetails"`
	TopStrengths         []string                                         `json:"topStrengths"`
	HiddenGems           []string                                         `json:"hiddenGems"`
	CriticalImprovements []assessment.Improvement                         `json:"criticalImprovements"`
	Timeline             struct {
		Weeks       float64 `json:"weeks"`
		TargetScore float64 `json:"targetScore"`
	} `json:"timeline"`
	MotivationalMessage string `json:"motivationalMessage"`
}

type dimensionReply struct {
	Score           float64  `json:"score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

type resumeDocumentReply struct {
	OverallScore     float64                   `json:"overallScore"`
	Dimensions       map[string]dimensionReply `json:"dimensions"`
	MissingKeywords  []string                  `json:"missingKeywords"`
	WeakVerbs        []string                  `json:"weakVerbs"`
	SuggestedMetrics []string                  `json:"suggestedMetrics"`
	TopPriorities    []assessment.Improvement  `json:"topPriorities"`
	Summary          string                    `json:"summary"`
}

type categoryReply struct {
	Score            float64                  `json:"score"`
	Strengths        []string                 `json:"strengths"`
	Weaknesses       []string                 `json:"weaknesses"`
	Recommendations  []assessment.Improvement `json:"recommendations"`
	DetailedFeedback string                   `json:"detailedFeedback"`
}

type overallReply struct {
	OverallScore          float64  `json:"overallScore"`
	ReadinessLevel        string   `json:"readinessLevel"`
	EstimatedWeeksToReady float64  `json:"estimatedWeeksToReady"`
	TopStrengths          []string `json:"topStrengths"`
	CriticalImprovements  []string `json:"criticalImprovements"`
	MotivationalMessage   string   `json:"motivationalMessage"`
}

// MapPriority converts the consolidated P0/P1/P2 scale to high/medium/low.
// Values already on the internal scale pass through.
func MapPriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "p0", assessment.PriorityHigh:
		return assessment.PriorityHigh
	case "p1", assessment.PriorityMedium:
		return assessment.PriorityMedium
	default:
		return assessment.PriorityLow
	}
}

func mapConsolidated(raw json.RawMessage) (assessment.Result, error) {
	var reply consolidatedReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return assessment.Result{}, fmt.Errorf("decode consolidated reply: %w", err)
	}

	result := assessment.Result{
		OverallScore:        roundScore(reply.OverallScore),
		ReadinessLevel:      reply.ReadinessLevel,
		MarketValue:         reply.MarketValue,
		CategoryScores:      make(map[assessment.Category]int, len(assessment.Categories)),
		CategoryDetails:     make(map[assessment.Category]assessment.CategoryDetail, len(assessment.Categories)),
		Strengths:           nonNilStrings(reply.TopStrengths),
		HiddenGems:          reply.HiddenGems,
		Improvements:        make([]assessment.Improvement, 0, len(reply.CriticalImprovements)),
		MotivationalMessage: reply.MotivationalMessage,
		Timeline: assessment.Timeline{
			Weeks:       ceilWeeks(reply.Timeline.Weeks),
			TargetScore: roundScore(reply.Timeline.TargetScore),
		},
		Source: assessment.SourceAI,
	}
	if reply.StartupFit != nil {
		result.StartupFit = &assessment.StartupFit{
			Score:    roundScore(reply.StartupFit.Score),
			Feedback: reply.StartupFit.Feedback,
		}
	}
	for _, cat := range assessment.Categories {
		score, ok := reply.CategoryScores[cat]
		if ok {
			result.CategoryScores[cat] = roundScore(score)
		}
		if detail, ok := reply.CategoryDetails[cat]; ok {
			result.CategoryDetails[cat] = detail
		}
	}
	for _, item := range reply.CriticalImprovements {
		result.Improvements = append(result.Improvements, assessment.Improvement{
			Priority:     MapPriority(item.Priority),
			Action:       item.Action,
			Impact:       item.Impact,
			TimeEstimate: item.TimeEstimate,
		})
	}
	return result, nil
}

func mapResumeDocument(raw json.RawMessage) (assessment.ResumeAnalysis, error) {
	var reply resumeDocumentReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return assessment.ResumeAnalysis{}, fmt.Errorf("decode resume document reply: %w", err)
	}
	out := assessment.ResumeAnalysis{
		OverallScore:     roundScore(reply.OverallScore),
		Dimensions:       make(map[string]assessment.DimensionScore, len(assessment.Dimensions)),
		MissingKeywords:  reply.MissingKeywords,
		WeakVerbs:        reply.WeakVerbs,
		SuggestedMetrics: reply.SuggestedMetrics,
		TopPriorities:    reply.TopPriorities,
		Summary:          reply.Summary,
		Source:           assessment.SourceAI,
	}
	for _, name := range assessment.Dimensions {
		d, ok := reply.Dimensions[name]
		if !ok {
			continue
		}
		out.Dimensions[name] = assessment.DimensionScore{
			Score:           roundScore(d.Score),
			Strengths:       d.Strengths,
			Weaknesses:      d.Weaknesses,
			Recommendations: d.Recommendations,
		}
	}
	out.NonNil()
	return out, nil
}

func mapCategory(raw json.RawMessage) (assessment.CategoryAnalysis, error) {
	var reply categoryReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return assessment.CategoryAnalysis{}, fmt.Errorf("decode category reply: %w", err)
	}
	recs := reply.Recommendations
	if recs == nil {
		recs = []assessment.Improvement{}
	}
	return assessment.CategoryAnalysis{
		Score:            roundScore(reply.Score),
		Strengths:        reply.Strengths,
		Weaknesses:       reply.Weaknesses,
		Recommendations:  recs,
		DetailedFeedback: reply.DetailedFeedback,
	}, nil
}

func mapOverall(raw json.RawMessage) (assessment.OverallAssessment, error) {
	var reply overallReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return assessment.OverallAssessment{}, fmt.Errorf("decode overall reply: %w", err)
	}
	return assessment.OverallAssessment{
		OverallScore:          roundScore(reply.OverallScore),
		ReadinessLevel:        reply.ReadinessLevel,
		EstimatedWeeksToReady: ceilWeeks(reply.EstimatedWeeksToReady),
		TopStrengths:          nonNilStrings(reply.TopStrengths),
		CriticalImprovements:  nonNilStrings(reply.CriticalImprovements),
		MotivationalMessage:   reply.MotivationalMessage,
	}, nil
}

func roundScore(v float64) int {
	s := int(math.Round(v))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func ceilWeeks(v float64) int {
	w := int(math.Ceil(v))
	if w < 1 {
		return 1
	}
	return w
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
