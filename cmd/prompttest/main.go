package main

// Run one analysis stage against the configured provider:
//   go run ./cmd/prompttest -stage consolidated -answers answers.json -resume cv.pdf
//   go run ./cmd/prompttest -stage technical -print-prompt

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"readiness-backend/internal/analysis"
	"readiness-backend/internal/assessment"
	"readiness-backend/internal/bootstrap"
	"readiness-backend/internal/extract"
	"readiness-backend/internal/prompts"
	"readiness-backend/internal/shared/config"
)

const stageByCategory = "by_category"

func main() {
	cfg := config.Load()

	stageName := flag.String("stage", string(assessment.StageConsolidated), "stage: consolidated, by_category, resumeDocument, technical, resume, communication, portfolio")
	answersPath := flag.String("answers", "", "Path to a JSON object of question id to answer (optional, defaults to a sample)")
	resumePath := flag.String("resume", "", "Path to a resume PDF (optional)")
	printPrompt := flag.Bool("print-prompt", false, "Print the rendered prompt and exit")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider: gemini, openai or none")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	flag.Parse()

	ctx := context.Background()

	answers, err := loadAnswers(*answersPath)
	if err != nil {
		exitErr(err.Error())
	}
	resumeText := ""
	if strings.TrimSpace(*resumePath) != "" {
		data, err := os.ReadFile(*resumePath)
		if err != nil {
			exitErr(fmt.Sprintf("read resume: %v", err))
		}
		if err := extract.Validate("application/pdf", int64(len(data))); err != nil {
			exitErr(err.Error())
		}
		resumeText, err = extract.ExtractPDF(ctx, data)
		if err != nil {
			exitErr(err.Error())
		}
	}

	if *printPrompt {
		if *stageName == stageByCategory {
			exitErr("-print-prompt needs a single stage")
		}
		stage, err := assessment.ParseStage(*stageName)
		if err != nil {
			exitErr(err.Error())
		}
		prompt, err := prompts.Build(stage, answers, resumeText)
		if err != nil {
			exitErr(err.Error())
		}
		fmt.Println(prompt)
		return
	}

	cfg.LLMProvider = *provider
	cfg.LLMModel = *model
	gateway := analysis.NewGateway(bootstrap.BuildLLM(ctx, cfg), cfg.LLMRepairAttempts)
	progress := func(message string) { fmt.Fprintln(os.Stderr, message) }

	var out any
	switch *stageName {
	case stageByCategory:
		out = gateway.AnalyzeByCategory(ctx, answers, resumeText, progress)
	default:
		stage, err := assessment.ParseStage(*stageName)
		if err != nil {
			exitErr(err.Error())
		}
		switch stage {
		case assessment.StageConsolidated:
			out = gateway.AnalyzeConsolidated(ctx, answers, resumeText, progress)
		case assessment.StageResumeDocument:
			if resumeText == "" {
				exitErr("resumeDocument stage requires -resume")
			}
			out = gateway.AnalyzeResumeDocument(ctx, resumeText, progress)
		case assessment.StageOverall:
			exitErr("overall is derived from category results; use -stage by_category")
		default:
			out = gateway.AnalyzeCategory(ctx, assessment.Category(stage), answers, progress)
		}
	}

	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("marshal output: %v", err))
	}
	if strings.TrimSpace(*outPath) != "" {
		if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
		return
	}
	fmt.Println(string(payload))
}

func loadAnswers(path string) (assessment.Answers, error) {
	if strings.TrimSpace(path) == "" {
		answers := assessment.Answers{}
		for _, q := range assessment.Questions() {
			answers[q.ID] = q.Options[q.ID%len(q.Options)]
		}
		return answers, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	answers := assessment.Answers{}
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("answer key %q is not a question id", k)
		}
		if _, ok := assessment.QuestionByID(id); !ok {
			return nil, fmt.Errorf("unknown question id %d", id)
		}
		answers[id] = v
	}
	return answers, nil
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
