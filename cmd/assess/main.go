package main

// Take the assessment in a terminal:
//   go run ./cmd/assess
// Answers are saved as you go; rerun to resume.

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"readiness-backend/internal/assessment"
	"readiness-backend/internal/bootstrap"
	"readiness-backend/internal/extract"
	"readiness-backend/internal/flow"
	"readiness-backend/internal/shared/config"
	"readiness-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	// Keep structured logs out of the prompts.
	logFile, err := os.OpenFile(filepath.Join(os.TempDir(), "readiness-assess.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err == nil {
		defer telemetry.SetOutput(logFile)()
		defer logFile.Close()
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in := bufio.NewReader(os.Stdin)
	if err := run(ctx, app.Flow, in, os.Stdout); err != nil && !errors.Is(err, io.EOF) {
		log.Fatalf("assess: %v", err)
	}
}

func run(ctx context.Context, svc *flow.Service, in *bufio.Reader, out io.Writer) error {
	state := svc.State()
	if state.HasSavedProgress && confirm(in, out, "Saved progress found. Resume? [y/N] ") {
		state = svc.ResumeSaved(ctx)
	} else {
		state = svc.Begin(ctx)
	}
	go svc.Session().Run(ctx)

	for state.Step != flow.StepResumeUpload {
		if err := ctx.Err(); err != nil {
			return err
		}
		category := assessment.Category(state.Step)
		fmt.Fprintf(out, "\n== %s (%d/%d) ==\n", strings.ToUpper(string(category)), state.StepIndex+1, len(state.Steps))
		for _, q := range assessment.QuestionsFor(category) {
			if state.Answers.Get(q.ID) != "" {
				continue
			}
			value, err := ask(in, out, q)
			if err != nil {
				return err
			}
			if state, err = svc.Answer(ctx, q.ID, value); err != nil {
				return err
			}
		}

		var err error
		if state, err = svc.Next(ctx, false); err != nil {
			return err
		}
	}

	for {
		path, err := prompt(in, out, "\nPath to your resume PDF: ")
		if err != nil {
			return err
		}
		if err := uploadResume(ctx, svc, path); err != nil {
			var validation *extract.ValidationError
			var parse *extract.ParseError
			if errors.As(err, &validation) || errors.As(err, &parse) || errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, err.Error())
				continue
			}
			return err
		}
		break
	}

	fmt.Fprintln(out, "Analyzing...")
	state, err := svc.Next(ctx, false)
	if err != nil {
		return err
	}
	printResult(out, state.Results)
	return nil
}

func uploadResume(ctx context.Context, svc *flow.Service, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	contentType := ""
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		contentType = "application/pdf"
	}
	_, err = svc.UploadResume(ctx, filepath.Base(path), contentType, info.Size(), f)
	return err
}

func ask(in *bufio.Reader, out io.Writer, q assessment.Question) (string, error) {
	for {
		fmt.Fprintf(out, "\n%s\n", q.Text)
		for i, opt := range q.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, opt)
		}
		line, err := prompt(in, out, "> ")
		if err != nil {
			return "", err
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(q.Options) {
			return q.Options[n-1], nil
		}
		fmt.Fprintf(out, "Enter a number between 1 and %d.\n", len(q.Options))
	}
}

func confirm(in *bufio.Reader, out io.Writer, question string) bool {
	line, err := prompt(in, out, question)
	return err == nil && strings.HasPrefix(strings.ToLower(line), "y")
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printResult(out io.Writer, res *assessment.Result) {
	if res == nil {
		fmt.Fprintln(out, "No result available.")
		return
	}
	fmt.Fprintf(out, "\nOverall: %d (%s)\n", res.OverallScore, res.ReadinessLevel)
	for _, c := range assessment.Categories {
		fmt.Fprintf(out, "  %-14s %d\n", c, res.CategoryScores[c])
	}
	if len(res.Improvements) > 0 {
		fmt.Fprintln(out, "\nTop improvements:")
		for _, imp := range res.Improvements {
			fmt.Fprintf(out, "  [%s] %s (%s)\n", imp.Priority, imp.Action, imp.TimeEstimate)
		}
	}
	fmt.Fprintf(out, "\nEstimated %d weeks to reach %d. Time spent: %ds.\n", res.Timeline.Weeks, res.Timeline.TargetScore, res.TimeSpent)
	if res.Source == assessment.SourceFallback {
		fmt.Fprintln(out, "(AI analysis unavailable; showing estimated results.)")
	}
}
