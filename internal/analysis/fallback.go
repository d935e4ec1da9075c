package analysis

import (
	"math"

	"readiness-backend/internal/assessment"
)

var optionScores = []int{40, 60, 80, 95}

const unansweredScore = 70

// FallbackResult is the generic report returned when the consolidated analysis fails.
func FallbackResult() assessment.Result {
	return assessment.Result{
		OverallScore:   70,
		ReadinessLevel: "Intermediate",
		StartupFit: &assessment.StartupFit{
			Score:    65,
			Feedback: "Potential is there, but delivery under high-growth pressure still needs to be demonstrated.",
		},
		MarketValue: &assessment.MarketValue{
			EstimatedSalary: "$80k - $100k",
			RoleSeniority:   "Associate Engineer",
		},
		CategoryScores: map[assessment.Category]int{
			assessment.CategoryTechnical:     70,
			assessment.CategoryResume:        70,
			assessment.CategoryCommunication: 70,
			assessment.CategoryPortfolio:     60,
		},
		CategoryDetails: map[assessment.Category]assessment.CategoryDetail{
			assessment.CategoryTechnical: {
				Feedback:   "Technical foundation is solid but lacks depth in a specialization.",
				Strengths:  []string{"Core language proficiency", "Framework fundamentals", "Logical problem solving"},
				Weaknesses: []string{"System architecture depth", "Cloud infrastructure knowledge", "Testing strategy"},
			},
			assessment.CategoryResume: {
				Feedback:   "Structure is clear, but impact needs more quantification.",
				Strengths:  []string{"Professional layout", "Clear contact information", "Skills are categorized"},
				Weaknesses: []string{"Few impact metrics", "Generic role descriptions", "Missing relevant certifications"},
			},
			assessment.CategoryCommunication: {
				Feedback:   "Communication is clear; structure answers with STAR more consistently.",
				Strengths:  []string{"Confident tone", "Concise explanations", "Active listening"},
				Weaknesses: []string{"Inconsistent STAR structure", "Overuse of technical jargon", "Slow response rhythm"},
			},
			assessment.CategoryPortfolio: {
				Feedback:   "Portfolio exists but needs more production-grade features.",
				Strengths:  []string{"Live project links", "Clean code style", "Regular GitHub activity"},
				Weaknesses: []string{"Low project complexity", "Thin README documentation", "Little custom design"},
			},
		},
		Strengths:  []string{"Technical foundation", "Learning mindset", "Professional intent"},
		HiddenGems: []string{"Adaptability"},
		Improvements: []assessment.Improvement{
			{Priority: assessment.PriorityHigh, Action: "Build and deploy one production-ready full-stack project", Impact: "Demonstrates end-to-end ownership", TimeEstimate: "4 weeks"},
			{Priority: assessment.PriorityMedium, Action: "Rewrite resume bullets around measurable impact", Impact: "Raises interview conversion", TimeEstimate: "1 week"},
		},
		Timeline:            assessment.Timeline{Weeks: 4, TargetScore: 90},
		MotivationalMessage: "You have a solid foundation. Build and quantify your impact to reach the next level.",
		Source:              assessment.SourceFallback,
	}
}

// FallbackResumeAnalysis is returned when the resume document analysis fails.
func FallbackResumeAnalysis() assessment.ResumeAnalysis {
	return assessment.ResumeAnalysis{
		OverallScore: 70,
		Dimensions: map[string]assessment.DimensionScore{
			assessment.DimensionATSCompatibility: {
				Score:           70,
				Strengths:       []string{"Standard format", "Clear sections"},
				Weaknesses:      []string{"May need more keywords"},
				Recommendations: []string{"Add industry-specific keywords"},
			},
			assessment.DimensionContentQuality: {
				Score:           70,
				Strengths:       []string{"Clear descriptions"},
				Weaknesses:      []string{"Could use stronger action verbs"},
				Recommendations: []string{"Replace weak verbs with impact words"},
			},
			assessment.DimensionExperienceRelevance: {
				Score:           70,
				Strengths:       []string{"Relevant experience listed"},
				Weaknesses:      []string{"Key achievements are not highlighted"},
				Recommendations: []string{"Lead with the most relevant experience"},
			},
			assessment.DimensionImpactMetrics: {
				Score:           65,
				Strengths:       []string{"Some quantification present"},
				Weaknesses:      []string{"Several bullets lack metrics"},
				Recommendations: []string{"Add numbers, percentages or dollar amounts"},
			},
			assessment.DimensionFormatting: {
				Score:           75,
				Strengths:       []string{"Clean layout", "Easy to read"},
				Weaknesses:      []string{"Visual hierarchy could be stronger"},
				Recommendations: []string{"Use consistent formatting throughout"},
			},
		},
		MissingKeywords:  []string{"React", "Node.js", "AWS", "Docker", "CI/CD"},
		WeakVerbs:        []string{"Worked on", "Helped with", "Responsible for"},
		SuggestedMetrics: []string{"Team size", "Performance improvements", "User impact"},
		TopPriorities: []assessment.Improvement{
			{Priority: assessment.PriorityHigh, Action: "Add quantifiable metrics to all experience bullets", Impact: "Makes achievements concrete", TimeEstimate: "2-3 hours"},
			{Priority: assessment.PriorityHigh, Action: "Include missing technical keywords", Impact: "Improves ATS compatibility", TimeEstimate: "1 hour"},
			{Priority: assessment.PriorityMedium, Action: "Replace weak action verbs", Impact: "Strengthens impact statements", TimeEstimate: "1 hour"},
		},
		Summary: "The resume has a solid structure and relevant experience. Adding quantified results and ATS keywords will make the biggest difference.",
		Source:  assessment.SourceFallback,
	}
}

var categoryFallbacks = map[assessment.Category]assessment.CategoryAnalysis{
	assessment.CategoryTechnical: {
		Strengths:        []string{"Problem-solving approach", "Technical foundation"},
		Weaknesses:       []string{"Advanced algorithms", "System design depth"},
		Recommendations:  []assessment.Improvement{{Priority: assessment.PriorityHigh, Action: "Practice 50 medium-level coding problems", TimeEstimate: "3 weeks"}},
		DetailedFeedback: "Keep building the technical foundation with consistent practice.",
	},
	assessment.CategoryResume: {
		Strengths:        []string{"Clear structure", "Relevant experience"},
		Weaknesses:       []string{"Quantifiable metrics", "ATS optimization"},
		Recommendations:  []assessment.Improvement{{Priority: assessment.PriorityHigh, Action: "Add metrics to every bullet point", TimeEstimate: "1 week"}},
		DetailedFeedback: "Quantify your impact to stand out to recruiters.",
	},
	assessment.CategoryCommunication: {
		Strengths:        []string{"Clear expression", "Active listening"},
		Weaknesses:       []string{"Structured responses", "Mock interview practice"},
		Recommendations:  []assessment.Improvement{{Priority: assessment.PriorityMedium, Action: "Complete 5 mock interviews using the STAR framework", TimeEstimate: "2 weeks"}},
		DetailedFeedback: "Practice structured answers to do well in behavioral rounds.",
	},
	assessment.CategoryPortfolio: {
		Strengths:        []string{"Project variety", "Demonstrated technical skills"},
		Weaknesses:       []string{"Documentation quality", "Production-ready features"},
		Recommendations:  []assessment.Improvement{{Priority: assessment.PriorityHigh, Action: "Build one full-stack project with auth and deployment", TimeEstimate: "4 weeks"}},
		DetailedFeedback: "Favor fewer, well-documented, deployed projects.",
	},
}

// FallbackCategory is returned when a per-category analysis fails. The score
// is derived from option positions: later options score higher.
func FallbackCategory(category assessment.Category, answers assessment.Answers) assessment.CategoryAnalysis {
	base, ok := categoryFallbacks[category]
	if !ok {
		base = categoryFallbacks[assessment.CategoryTechnical]
	}
	out := assessment.CategoryAnalysis{
		Score:            HeuristicScore(category, answers),
		Strengths:        append([]string(nil), base.Strengths...),
		Weaknesses:       append([]string(nil), base.Weaknesses...),
		Recommendations:  append([]assessment.Improvement(nil), base.Recommendations...),
		DetailedFeedback: base.DetailedFeedback,
	}
	return out
}

// HeuristicScore averages per-answer scores for the category's questions.
func HeuristicScore(category assessment.Category, answers assessment.Answers) int {
	ids := assessment.QuestionIDs(category)
	if len(ids) == 0 {
		return unansweredScore
	}
	total := 0
	for _, id := range ids {
		idx := assessment.OptionIndex(id, answers.Get(id))
		if idx < 0 || idx >= len(optionScores) {
			total += unansweredScore
			continue
		}
		total += optionScores[idx]
	}
	return int(math.Round(float64(total) / float64(len(ids))))
}

var categoryWeights = map[assessment.Category]float64{
	assessment.CategoryTechnical:     0.30,
	assessment.CategoryResume:        0.30,
	assessment.CategoryCommunication: 0.25,
	assessment.CategoryPortfolio:     0.15,
}

// WeightedScore combines category scores with the fixed category weights.
func WeightedScore(scores map[assessment.Category]int) int {
	sum := 0.0
	for cat, w := range categoryWeights {
		sum += float64(scores[cat]) * w
	}
	return int(math.Round(sum))
}

// FallbackOverall is returned when the overall synthesis fails.
func FallbackOverall(results map[assessment.Category]assessment.CategoryAnalysis) assessment.OverallAssessment {
	scores := make(map[assessment.Category]int, len(results))
	for cat, r := range results {
		scores[cat] = r.Score
	}
	overall := WeightedScore(scores)

	level, weeks := "Beginner", 6
	switch {
	case overall >= 85:
		level, weeks = "Advanced", 2
	case overall >= 70:
		level, weeks = "Intermediate", 4
	}
	return assessment.OverallAssessment{
		OverallScore:          overall,
		ReadinessLevel:        level,
		EstimatedWeeksToReady: weeks,
		TopStrengths:          []string{"Technical foundation", "Learning mindset", "Growth potential"},
		CriticalImprovements:  []string{"Practice coding problems", "Improve resume impact", "Do mock interviews"},
		MotivationalMessage:   "You have a solid foundation. With focused effort you will be interview-ready soon.",
	}
}
