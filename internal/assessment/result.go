package assessment

// Priority values used by the internal result schema.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Result sources.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Improvement is a prioritized, actionable recommendation.
type Improvement struct {
	Priority     string `json:"priority"`
	Action       string `json:"action"`
	Impact       string `json:"impact,omitempty"`
	TimeEstimate string `json:"timeEstimate"`
}

// CategoryDetail is the narrative feedback for one category.
type CategoryDetail struct {
	Feedback   string   `json:"feedback"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// Timeline estimates how long until the target score is reachable.
type Timeline struct {
	Weeks       int `json:"weeks"`
	TargetScore int `json:"targetScore"`
}

type StartupFit struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

type MarketValue struct {
	EstimatedSalary string `json:"estimatedSalary"`
	RoleSeniority   string `json:"roleSeniority"`
}

// Result is the synthesized readiness report for a completed session.
type Result struct {
	OverallScore           int                         `json:"overallScore"`
	ReadinessLevel         string                      `json:"readinessLevel"`
	StartupFit             *StartupFit                 `json:"startupFit,omitempty"`
	MarketValue            *MarketValue                `json:"marketValue,omitempty"`
	CategoryScores         map[Category]int            `json:"categoryScores"`
	CategoryDetails        map[Category]CategoryDetail `json:"categoryDetails"`
	Strengths              []string                    `json:"strengths"`
	HiddenGems             []string                    `json:"hiddenGems,omitempty"`
	Improvements           []Improvement               `json:"improvements"`
	Timeline               Timeline                    `json:"timeline"`
	MotivationalMessage    string                      `json:"motivationalMessage,omitempty"`
	ResumeDocumentAnalysis *ResumeAnalysis             `json:"resumeDocumentAnalysis"`
	TimeSpent              int                         `json:"timeSpent"`
	Source                 string                      `json:"source,omitempty"`
}

// Dimension names of a resume document analysis.
const (
	DimensionATSCompatibility    = "atsCompatibility"
	DimensionContentQuality      = "contentQuality"
	DimensionExperienceRelevance = "experienceRelevance"
	DimensionImpactMetrics       = "impactMetrics"
	DimensionFormatting          = "formatting"
)

// Dimensions lists the fixed resume analysis dimensions.
var Dimensions = []string{
	DimensionATSCompatibility,
	DimensionContentQuality,
	DimensionExperienceRelevance,
	DimensionImpactMetrics,
	DimensionFormatting,
}

// DimensionScore is the evaluation of one resume dimension.
type DimensionScore struct {
	Score           int      `json:"score"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// ResumeAnalysis is the result of analyzing an uploaded resume document.
type ResumeAnalysis struct {
	OverallScore     int                       `json:"overallScore"`
	Dimensions       map[string]DimensionScore `json:"dimensions"`
	MissingKeywords  []string                  `json:"missingKeywords"`
	WeakVerbs        []string                  `json:"weakVerbs"`
	SuggestedMetrics []string                  `json:"suggestedMetrics"`
	TopPriorities    []Improvement             `json:"topPriorities"`
	Summary          string                    `json:"summary"`
	Source           string                    `json:"source,omitempty"`
}

// CategoryAnalysis is the result of a single-category analysis stage.
type CategoryAnalysis struct {
	Score            int           `json:"score"`
	Strengths        []string      `json:"strengths"`
	Weaknesses       []string      `json:"weaknesses"`
	Recommendations  []Improvement `json:"recommendations"`
	DetailedFeedback string        `json:"detailedFeedback"`
}

// OverallAssessment is synthesized from the four category analyses.
type OverallAssessment struct {
	OverallScore          int      `json:"overallScore"`
	ReadinessLevel        string   `json:"readinessLevel"`
	EstimatedWeeksToReady int      `json:"estimatedWeeksToReady"`
	TopStrengths          []string `json:"topStrengths"`
	CriticalImprovements  []string `json:"criticalImprovements"`
	MotivationalMessage   string   `json:"motivationalMessage"`
}

// NonNil replaces nil slices so the JSON form carries empty arrays.
func (r *ResumeAnalysis) NonNil() {
	if r.MissingKeywords == nil {
		r.MissingKeywords = []string{}
	}
	if r.WeakVerbs == nil {
		r.WeakVerbs = []string{}
	}
	if r.SuggestedMetrics == nil {
		r.SuggestedMetrics = []string{}
	}
	if r.TopPriorities == nil {
		r.TopPriorities = []Improvement{}
	}
	for name, d := range r.Dimensions {
		if d.Strengths == nil {
			d.Strengths = []string{}
		}
		if d.Weaknesses == nil {
			d.Weaknesses = []string{}
		}
		if d.Recommendations == nil {
			d.Recommendations = []string{}
		}
		r.Dimensions[name] = d
	}
}

// NonNil replaces nil slices so the JSON form carries empty arrays.
func (r *Result) NonNil() {
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.Improvements == nil {
		r.Improvements = []Improvement{}
	}
}
