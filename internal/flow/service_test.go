package flow

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"readiness-backend/internal/analysis"
	"readiness-backend/internal/assessment"
	"readiness-backend/internal/extract"
	"readiness-backend/internal/extract/pdftest"
	"readiness-backend/internal/notify"
	"readiness-backend/internal/progress"
	"readiness-backend/internal/session"
	"readiness-backend/internal/shared/storage/object/local"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updates []notify.Update
}

func (r *recordingNotifier) Publish(ctx context.Context, update notify.Update) error {
	r.mu.Lock()
	r.updates = append(r.updates, update)
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.updates))
	for _, u := range r.updates {
		out = append(out, u.Stage)
	}
	return out
}

type resumeAnalyzerFunc func(ctx context.Context, resumeText string, onProgress analysis.ProgressFunc) assessment.ResumeAnalysis

func (f resumeAnalyzerFunc) AnalyzeResumeDocument(ctx context.Context, resumeText string, onProgress analysis.ProgressFunc) assessment.ResumeAnalysis {
	return f(ctx, resumeText, onProgress)
}

type capturingAnalyzer struct {
	mu         sync.Mutex
	resumeText string
}

func (c *capturingAnalyzer) Analyze(ctx context.Context, answers assessment.Answers, resumeText string, onProgress analysis.ProgressFunc) assessment.Result {
	c.mu.Lock()
	c.resumeText = resumeText
	c.mu.Unlock()
	onProgress(analysis.MsgInitializing)
	return analysis.FallbackResult()
}

type fixture struct {
	svc      *Service
	analyzer *capturingAnalyzer
	notifier *recordingNotifier
	dir      string
}

func newFixture(t *testing.T, resume ResumeAnalyzer) fixture {
	t.Helper()
	if resume == nil {
		resume = resumeAnalyzerFunc(func(ctx context.Context, text string, onProgress analysis.ProgressFunc) assessment.ResumeAnalysis {
			onProgress(analysis.MsgAnalyzingResume)
			ra := analysis.FallbackResumeAnalysis()
			ra.Summary = "analyzed: " + text
			return ra
		})
	}
	f := fixture{analyzer: &capturingAnalyzer{}, notifier: &recordingNotifier{}, dir: t.TempDir()}
	var svc *Service
	store := session.New(progress.NewMemoryRepo(), f.analyzer, session.Options{
		OnProgress: func(sessionID, message string) { svc.OnProgress(sessionID, message) },
	})
	svc = NewService(store, resume, local.New(f.dir), f.notifier)
	f.svc = svc
	return f
}

func answerCategory(t *testing.T, svc *Service, c assessment.Category) {
	t.Helper()
	for _, q := range assessment.QuestionsFor(c) {
		if _, err := svc.Answer(context.Background(), q.ID, q.Options[2]); err != nil {
			t.Fatalf("Answer %d: %v", q.ID, err)
		}
	}
}

func uploadPDF(t *testing.T, svc *Service, text string) ResumeDocument {
	t.Helper()
	data := pdftest.Build(text)
	doc, err := svc.UploadResume(context.Background(), "resume.pdf", "application/pdf", int64(len(data)), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("UploadResume: %v", err)
	}
	return doc
}

func TestNextRequiresCompleteStep(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.Begin(ctx)

	if _, err := f.svc.Next(ctx, false); !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("expected ErrStepIncomplete, got %v", err)
	}
	answerCategory(t, f.svc, assessment.CategoryTechnical)
	st, err := f.svc.Next(ctx, false)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if st.Step != StepResume || st.StepIndex != 1 {
		t.Fatalf("expected resume step, got %s", st.Step)
	}
	if st.CanAdvance {
		t.Fatalf("resume step has no answers yet")
	}
}

func TestBackIsFlooredAtFirstStep(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.Begin(ctx)

	st, err := f.svc.Back(ctx)
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if st.StepIndex != 0 {
		t.Fatalf("expected first step, got %d", st.StepIndex)
	}

	answerCategory(t, f.svc, assessment.CategoryTechnical)
	if _, err := f.svc.Next(ctx, false); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if st, _ = f.svc.Back(ctx); st.Step != StepTechnical {
		t.Fatalf("expected technical step after back, got %s", st.Step)
	}
}

func TestNotActiveBeforeBegin(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.svc.Next(ctx, false); !errors.Is(err, session.ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if _, err := f.svc.Back(ctx); !errors.Is(err, session.ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestFullFlowSubmitsWithResume(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.Begin(ctx)

	for _, c := range assessment.Categories {
		answerCategory(t, f.svc, c)
		if _, err := f.svc.Next(ctx, false); err != nil {
			t.Fatalf("Next after %s: %v", c, err)
		}
	}
	if st := f.svc.State(); st.Step != StepResumeUpload || st.CanAdvance {
		t.Fatalf("expected upload step without analysis, got %+v", st.Step)
	}
	if _, err := f.svc.Next(ctx, false); !errors.Is(err, ErrStepIncomplete) {
		t.Fatalf("expected upload to be required, got %v", err)
	}

	doc := uploadPDF(t, f.svc, "Staff engineer building payments")
	if doc.Analysis == nil || doc.Sections == nil {
		t.Fatalf("expected analysis and sections, got %+v", doc)
	}

	st, err := f.svc.Next(ctx, false)
	if err != nil {
		t.Fatalf("Next submit: %v", err)
	}
	if st.Status != session.StatusComplete || st.Results == nil {
		t.Fatalf("expected complete result, got %s", st.Status)
	}
	ra := st.Results.ResumeDocumentAnalysis
	if ra == nil || !strings.Contains(ra.Summary, "Staff engineer building payments") {
		t.Fatalf("expected resume analysis carried into result")
	}
	f.analyzer.mu.Lock()
	gotText := f.analyzer.resumeText
	f.analyzer.mu.Unlock()
	if !strings.Contains(gotText, "Staff engineer building payments") {
		t.Fatalf("expected extracted text passed to analyzer, got %q", gotText)
	}

	stages := f.notifier.stages()
	want := map[string]bool{notify.StageResumeUpload: false, notify.StageAnalysis: false, notify.StageComplete: false}
	for _, s := range stages {
		want[s] = true
	}
	for stage, seen := range want {
		if !seen {
			t.Fatalf("expected %s update, got %v", stage, stages)
		}
	}
}

func TestNextAsyncReturnsWhileAnalyzing(t *testing.T) {
	release := make(chan struct{})
	var svc *Service
	store := session.New(progress.NewMemoryRepo(), session.AnalyzerFunc(func(ctx context.Context, answers assessment.Answers, text string, onProgress analysis.ProgressFunc) assessment.Result {
		<-release
		return analysis.FallbackResult()
	}), session.Options{})
	svc = NewService(store, resumeAnalyzerFunc(func(ctx context.Context, text string, onProgress analysis.ProgressFunc) assessment.ResumeAnalysis {
		return analysis.FallbackResumeAnalysis()
	}), local.New(t.TempDir()), nil)

	ctx := context.Background()
	svc.Begin(ctx)
	for _, c := range assessment.Categories {
		answerCategory(t, svc, c)
		if _, err := svc.Next(ctx, true); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	uploadPDF(t, svc, "resume")

	st, err := svc.Next(ctx, true)
	if err != nil {
		t.Fatalf("Next async: %v", err)
	}
	if !st.Analyzing {
		t.Fatalf("expected analyzing state")
	}
	if _, err := svc.Next(ctx, true); !errors.Is(err, session.ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	close(release)
	store.Wait()
	if svc.State().Status != session.StatusComplete {
		t.Fatalf("expected complete after background analysis")
	}
}

func TestUploadRejectsInvalidFiles(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.Begin(ctx)

	_, err := f.svc.UploadResume(ctx, "big.pdf", "application/pdf", 6*1024*1024, strings.NewReader(""))
	var vErr *extract.ValidationError
	if !errors.As(err, &vErr) || vErr.Message != extract.MsgTooLarge {
		t.Fatalf("expected size validation error, got %v", err)
	}

	_, err = f.svc.UploadResume(ctx, "notes.txt", "text/plain", 10, strings.NewReader("hello"))
	if !errors.As(err, &vErr) || vErr.Message != extract.MsgNotPDF {
		t.Fatalf("expected type validation error, got %v", err)
	}
	if f.svc.State().ResumeDocument != nil {
		t.Fatalf("validation failures must not change upload state")
	}
}

func TestUploadParseFailureAllowsRetry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.Begin(ctx)

	junk := []byte(strings.Repeat("junk ", 40))
	_, err := f.svc.UploadResume(ctx, "resume.pdf", "application/pdf", int64(len(junk)), bytes.NewReader(junk))
	var pErr *extract.ParseError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if doc := f.svc.State().ResumeDocument; doc != nil && doc.Analysis != nil {
		t.Fatalf("failed upload must not leave an analysis")
	}

	uploadPDF(t, f.svc, "second try")
	if doc := f.svc.State().ResumeDocument; doc == nil || doc.Analysis == nil {
		t.Fatalf("expected analysis after retry")
	}
}

func TestUploadSingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, resumeAnalyzerFunc(func(ctx context.Context, text string, onProgress analysis.ProgressFunc) assessment.ResumeAnalysis {
		close(entered)
		<-release
		return analysis.FallbackResumeAnalysis()
	}))
	ctx := context.Background()
	f.svc.Begin(ctx)

	errs := make(chan error, 1)
	go func() {
		data := pdftest.Build("first")
		_, err := f.svc.UploadResume(ctx, "a.pdf", "application/pdf", int64(len(data)), bytes.NewReader(data))
		errs <- err
	}()
	<-entered

	data := pdftest.Build("second")
	if _, err := f.svc.UploadResume(ctx, "b.pdf", "application/pdf", int64(len(data)), bytes.NewReader(data)); !errors.Is(err, ErrUploadInProgress) {
		t.Fatalf("expected ErrUploadInProgress, got %v", err)
	}
	if doc := f.svc.State().ResumeDocument; doc == nil || !doc.Uploading {
		t.Fatalf("expected uploading state")
	}
	close(release)
	if err := <-errs; err != nil {
		t.Fatalf("first upload: %v", err)
	}
}

func TestResetDuringUploadDiscardsAnalysis(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, resumeAnalyzerFunc(func(ctx context.Context, text string, onProgress analysis.ProgressFunc) assessment.ResumeAnalysis {
		close(entered)
		<-release
		return analysis.FallbackResumeAnalysis()
	}))
	ctx := context.Background()
	f.svc.Begin(ctx)

	errs := make(chan error, 1)
	go func() {
		data := pdftest.Build("late")
		_, err := f.svc.UploadResume(ctx, "a.pdf", "application/pdf", int64(len(data)), bytes.NewReader(data))
		errs <- err
	}()
	<-entered
	f.svc.Reset(ctx)
	close(release)

	if err := <-errs; !errors.Is(err, session.ErrSessionReset) {
		t.Fatalf("expected ErrSessionReset, got %v", err)
	}
	if f.svc.State().ResumeDocument != nil {
		t.Fatalf("expected no resume document after reset")
	}
}

func TestUploadProgressFromOldSessionIsDropped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, resumeAnalyzerFunc(func(ctx context.Context, text string, onProgress analysis.ProgressFunc) assessment.ResumeAnalysis {
		close(entered)
		<-release
		onProgress("stale message")
		return analysis.FallbackResumeAnalysis()
	}))
	ctx := context.Background()
	f.svc.Begin(ctx)

	errs := make(chan error, 1)
	go func() {
		data := pdftest.Build("late")
		_, err := f.svc.UploadResume(ctx, "a.pdf", "application/pdf", int64(len(data)), bytes.NewReader(data))
		errs <- err
	}()
	<-entered
	f.svc.Reset(ctx)
	current := f.svc.Begin(ctx)
	f.svc.Session().SetProgressFor(current.SessionID, analysis.MsgInitializing)
	close(release)

	if err := <-errs; !errors.Is(err, session.ErrSessionReset) {
		t.Fatalf("expected ErrSessionReset, got %v", err)
	}
	st := f.svc.State()
	if st.SessionID != current.SessionID {
		t.Fatalf("expected new session to stay current")
	}
	if st.ProgressMessage != analysis.MsgInitializing {
		t.Fatalf("expected current progress kept, got %q", st.ProgressMessage)
	}
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	for _, u := range f.notifier.updates {
		if u.Message == "stale message" {
			t.Fatalf("stale progress was published: %+v", u)
		}
	}
}

func TestResumeSavedKeepsRunningSession(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	started := f.svc.Begin(ctx)
	answerCategory(t, f.svc, assessment.CategoryTechnical)
	if _, err := f.svc.Next(ctx, false); err != nil {
		t.Fatalf("Next: %v", err)
	}

	st := f.svc.ResumeSaved(ctx)
	if st.SessionID != started.SessionID {
		t.Fatalf("expected same session, got %s", st.SessionID)
	}
	if st.Step != StepResume {
		t.Fatalf("expected step kept at resume, got %s", st.Step)
	}
	if len(st.Answers) != len(assessment.QuestionsFor(assessment.CategoryTechnical)) {
		t.Fatalf("expected answers kept, got %v", st.Answers)
	}
}

func TestResumeSavedMovesToFirstIncompleteStep(t *testing.T) {
	ctx := context.Background()
	repo := progress.NewMemoryRepo()
	answers := map[int]string{}
	for _, c := range []assessment.Category{assessment.CategoryTechnical, assessment.CategoryResume} {
		for _, q := range assessment.QuestionsFor(c) {
			answers[q.ID] = q.Options[0]
		}
	}
	answers[7] = "Comfortable"
	if err := repo.Save(ctx, "default", progress.Record{Answers: answers, TimeRemaining: 120}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	store := session.New(repo, nil, session.Options{})
	svc := NewService(store, nil, local.New(t.TempDir()), nil)
	st := svc.ResumeSaved(ctx)
	if st.Step != StepCommunication {
		t.Fatalf("expected communication step, got %s", st.Step)
	}
	if st.RemainingSeconds != 120 || len(st.Answers) != 7 {
		t.Fatalf("expected restored progress, got %+v", st.State)
	}
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, filepath.Base(path))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir: %v", err)
	}
	return files
}

func TestUploadObjectsAreReplacedAndDiscarded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.Begin(ctx)

	uploadPDF(t, f.svc, "First resume")
	if files := storedFiles(t, f.dir); len(files) != 2 {
		t.Fatalf("expected upload and extracted text, got %v", files)
	}

	uploadPDF(t, f.svc, "Second resume")
	files := storedFiles(t, f.dir)
	if len(files) != 2 {
		t.Fatalf("expected previous upload removed, got %v", files)
	}

	f.svc.Reset(ctx)
	if files := storedFiles(t, f.dir); len(files) != 0 {
		t.Fatalf("expected no stored objects after reset, got %v", files)
	}
}
