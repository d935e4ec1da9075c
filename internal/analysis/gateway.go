package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"readiness-backend/internal/assessment"
	"readiness-backend/internal/llm"
	"readiness-backend/internal/prompts"
	"readiness-backend/internal/shared/metrics"
	"readiness-backend/internal/shared/telemetry"
)

// Progress messages shown while an analysis runs.
const (
	MsgInitializing       = "Initializing high-stakes AI analysis..."
	MsgAnalyzing          = "Analyzing technical skills, resume, and communication..."
	MsgSynthesizing       = "Synthesizing professional-grade results..."
	MsgAnalyzingResume    = "Analyzing resume content..."
	MsgProcessingAnalysis = "Processing analysis results..."
)

// DefaultRepairAttempts is the number of repair prompts sent after an unusable reply.
const DefaultRepairAttempts = 1

// ProgressFunc receives human-readable progress messages. It may be nil.
type ProgressFunc func(message string)

// Gateway runs analysis stages against an LLM. None of its Analyze methods
// fail: every error path ends in the stage's fallback value.
type Gateway struct {
	LLM            llm.Client
	RepairAttempts int
}

// NewGateway returns a gateway using client. A nil client behaves like an
// unconfigured provider.
func NewGateway(client llm.Client, repairAttempts int) *Gateway {
	if client == nil {
		client = llm.PlaceholderClient{}
	}
	if repairAttempts < 0 {
		repairAttempts = 0
	}
	return &Gateway{LLM: client, RepairAttempts: repairAttempts}
}

// Analyze implements the single-call consolidated analysis.
func (g *Gateway) Analyze(ctx context.Context, answers assessment.Answers, resumeText string, onProgress ProgressFunc) assessment.Result {
	return g.AnalyzeConsolidated(ctx, answers, resumeText, onProgress)
}

// AnalyzeConsolidated produces the full report from one model call.
func (g *Gateway) AnalyzeConsolidated(ctx context.Context, answers assessment.Answers, resumeText string, onProgress ProgressFunc) (result assessment.Result) {
	stage := assessment.StageConsolidated
	start := time.Now()
	defer func() { metrics.ObserveAnalysisDurationMs(metrics.SinceMs(start)) }()
	defer g.recoverTo(ctx, stage, func() { result = FallbackResult() })

	report(onProgress, MsgInitializing)
	prompt, err := prompts.Build(stage, answers, resumeText)
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackResult()
	}

	report(onProgress, MsgAnalyzing)
	raw, err := g.run(ctx, stage, prompt, llm.ReportParams)
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackResult()
	}

	report(onProgress, MsgSynthesizing)
	mapped, err := mapConsolidated(raw)
	if err == nil {
		mapped.NonNil()
		err = assessment.Validate(assessment.SchemaResult, mapped)
	}
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackResult()
	}
	return mapped
}

// AnalyzeResumeDocument evaluates extracted resume text.
func (g *Gateway) AnalyzeResumeDocument(ctx context.Context, resumeText string, onProgress ProgressFunc) (out assessment.ResumeAnalysis) {
	stage := assessment.StageResumeDocument
	defer g.recoverTo(ctx, stage, func() { out = FallbackResumeAnalysis() })

	report(onProgress, MsgAnalyzingResume)
	prompt, err := prompts.Build(stage, nil, resumeText)
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackResumeAnalysis()
	}
	raw, err := g.run(ctx, stage, prompt, llm.ReportParams)
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackResumeAnalysis()
	}

	report(onProgress, MsgProcessingAnalysis)
	mapped, err := mapResumeDocument(raw)
	if err == nil {
		err = assessment.Validate(assessment.SchemaResumeDocument, mapped)
	}
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackResumeAnalysis()
	}
	return mapped
}

// AnalyzeCategory evaluates one category from its three answers.
func (g *Gateway) AnalyzeCategory(ctx context.Context, category assessment.Category, answers assessment.Answers, onProgress ProgressFunc) assessment.CategoryAnalysis {
	out, _ := g.analyzeCategory(ctx, category, answers, onProgress)
	return out
}

func (g *Gateway) analyzeCategory(ctx context.Context, category assessment.Category, answers assessment.Answers, onProgress ProgressFunc) (out assessment.CategoryAnalysis, ai bool) {
	stage := assessment.CategoryStage(category)
	defer g.recoverTo(ctx, stage, func() { out, ai = FallbackCategory(category, answers), false })

	report(onProgress, fmt.Sprintf("Analyzing %s...", category))
	prompt, err := prompts.Build(stage, answers, "")
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackCategory(category, answers), false
	}
	raw, err := g.run(ctx, stage, prompt, llm.CategoryParams)
	if err == nil {
		out, err = mapCategory(raw)
	}
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackCategory(category, answers), false
	}
	return out, true
}

// AnalyzeOverall synthesizes the four category analyses.
func (g *Gateway) AnalyzeOverall(ctx context.Context, results map[assessment.Category]assessment.CategoryAnalysis, onProgress ProgressFunc) assessment.OverallAssessment {
	out, _ := g.analyzeOverall(ctx, results, onProgress)
	return out
}

func (g *Gateway) analyzeOverall(ctx context.Context, results map[assessment.Category]assessment.CategoryAnalysis, onProgress ProgressFunc) (out assessment.OverallAssessment, ai bool) {
	stage := assessment.StageOverall
	defer g.recoverTo(ctx, stage, func() { out, ai = FallbackOverall(results), false })

	report(onProgress, MsgSynthesizing)
	prompt, err := prompts.BuildOverall(results)
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackOverall(results), false
	}
	raw, err := g.run(ctx, stage, prompt, llm.OverallParams)
	if err == nil {
		out, err = mapOverall(raw)
	}
	if err != nil {
		g.fallback(ctx, stage, err)
		return FallbackOverall(results), false
	}
	return out, true
}

// AnalyzeByCategory runs the four category stages and the overall stage, then
// assembles a Result. The result is marked as fallback only when every stage
// fell back. Resume text is not used; the category prompts rate answers only.
func (g *Gateway) AnalyzeByCategory(ctx context.Context, answers assessment.Answers, _ string, onProgress ProgressFunc) (result assessment.Result) {
	start := time.Now()
	defer func() { metrics.ObserveAnalysisDurationMs(metrics.SinceMs(start)) }()
	defer g.recoverTo(ctx, assessment.StageOverall, func() { result = FallbackResult() })

	report(onProgress, MsgInitializing)
	results := make(map[assessment.Category]assessment.CategoryAnalysis, len(assessment.Categories))
	anyAI := false
	for _, cat := range assessment.Categories {
		analysis, ai := g.analyzeCategory(ctx, cat, answers, onProgress)
		results[cat] = analysis
		anyAI = anyAI || ai
	}

	overall, ai := g.analyzeOverall(ctx, results, onProgress)
	anyAI = anyAI || ai

	result = assembleResult(results, overall)
	if !anyAI {
		result.Source = assessment.SourceFallback
	}
	if err := assessment.Validate(assessment.SchemaResult, result); err != nil {
		g.fallback(ctx, assessment.StageOverall, err)
		return FallbackResult()
	}
	return result
}

func assembleResult(results map[assessment.Category]assessment.CategoryAnalysis, overall assessment.OverallAssessment) assessment.Result {
	out := assessment.Result{
		OverallScore:        overall.OverallScore,
		ReadinessLevel:      overall.ReadinessLevel,
		CategoryScores:      make(map[assessment.Category]int, len(results)),
		CategoryDetails:     make(map[assessment.Category]assessment.CategoryDetail, len(results)),
		Strengths:           overall.TopStrengths,
		Timeline:            assessment.Timeline{Weeks: overall.EstimatedWeeksToReady, TargetScore: 85},
		MotivationalMessage: overall.MotivationalMessage,
		Source:              assessment.SourceAI,
	}
	for _, cat := range assessment.Categories {
		r := results[cat]
		out.CategoryScores[cat] = r.Score
		out.CategoryDetails[cat] = assessment.CategoryDetail{
			Feedback:   r.DetailedFeedback,
			Strengths:  r.Strengths,
			Weaknesses: r.Weaknesses,
		}
		out.Improvements = append(out.Improvements, r.Recommendations...)
	}
	sort.SliceStable(out.Improvements, func(i, j int) bool {
		return priorityRank(out.Improvements[i].Priority) < priorityRank(out.Improvements[j].Priority)
	})
	out.NonNil()
	return out
}

func priorityRank(p string) int {
	switch p {
	case assessment.PriorityHigh:
		return 0
	case assessment.PriorityMedium:
		return 1
	default:
		return 2
	}
}

// run sends prompt, then parses and schema-validates the reply. Unusable
// replies trigger up to RepairAttempts repair prompts. Provider errors are
// returned immediately.
func (g *Gateway) run(ctx context.Context, stage assessment.Stage, prompt string, params llm.Params) (json.RawMessage, error) {
	metrics.IncStageCall(string(stage))
	schema := assessment.SchemaFor(stage)
	attempts := g.RepairAttempts

	for {
		text, err := g.LLM.Generate(ctx, prompt, params)
		if err != nil {
			return nil, err
		}
		raw, err := Parse(text)
		if err == nil {
			err = assessment.ValidateJSON(schema, raw)
		}
		if err == nil {
			return raw, nil
		}
		if attempts <= 0 {
			return nil, err
		}
		attempts--

		telemetry.Warn("analysis.repair", map[string]any{
			"stage":      stage,
			"request_id": RequestIDFromContext(ctx),
			"error":      err.Error(),
		})
		repair, buildErr := prompts.BuildRepair(stage, text, err.Error())
		if buildErr != nil {
			return nil, errors.Join(err, buildErr)
		}
		prompt = repair
	}
}

func (g *Gateway) fallback(ctx context.Context, stage assessment.Stage, err error) {
	metrics.IncStageFallback(string(stage))
	fields := map[string]any{
		"stage":      stage,
		"request_id": RequestIDFromContext(ctx),
		"error":      llm.SanitizeError(err),
	}
	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		fields["raw_excerpt"] = formatErr.Excerpt()
	}
	telemetry.Warn("analysis.fallback", fields)
}

func (g *Gateway) recoverTo(ctx context.Context, stage assessment.Stage, apply func()) {
	if r := recover(); r != nil {
		g.fallback(ctx, stage, fmt.Errorf("panic: %v", r))
		apply()
	}
}

func report(onProgress ProgressFunc, message string) {
	if onProgress != nil {
		onProgress(message)
	}
}
