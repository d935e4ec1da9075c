// Package flow drives the assessment wizard: the fixed step order, the
// resume upload step and the hand-off to the session for analysis.
package flow

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"readiness-backend/internal/analysis"
	"readiness-backend/internal/assessment"
	"readiness-backend/internal/extract"
	"readiness-backend/internal/notify"
	"readiness-backend/internal/session"
	"readiness-backend/internal/shared/metrics"
	"readiness-backend/internal/shared/storage/object"
	"readiness-backend/internal/shared/telemetry"
)

// Step names one page of the wizard.
type Step string

const (
	StepTechnical     Step = "technical"
	StepResume        Step = "resume"
	StepCommunication Step = "communication"
	StepPortfolio     Step = "portfolio"
	StepResumeUpload  Step = "resumeUpload"
)

// Steps is the fixed wizard order.
var Steps = []Step{StepTechnical, StepResume, StepCommunication, StepPortfolio, StepResumeUpload}

// ResumeAnalyzer evaluates an extracted resume. The analysis gateway
// satisfies it.
type ResumeAnalyzer interface {
	AnalyzeResumeDocument(ctx context.Context, resumeText string, onProgress analysis.ProgressFunc) assessment.ResumeAnalysis
}

// ResumeDocument is the outcome of the upload step.
type ResumeDocument struct {
	FileName  string                     `json:"fileName,omitempty"`
	Uploading bool                       `json:"uploading"`
	Analysis  *assessment.ResumeAnalysis `json:"analysis,omitempty"`
	Sections  *extract.Sections          `json:"sections,omitempty"`
}

// State is the session snapshot plus wizard position.
type State struct {
	session.State
	Step           Step            `json:"step"`
	StepIndex      int             `json:"stepIndex"`
	Steps          []Step          `json:"steps"`
	CanAdvance     bool            `json:"canAdvance"`
	ResumeDocument *ResumeDocument `json:"resumeDocument,omitempty"`
}

type upload struct {
	sessionID string
	inFlight  bool
	fileName  string
	key       string
	text      string
	analysis  *assessment.ResumeAnalysis
	sections  *extract.Sections
}

// Service is safe for concurrent use.
type Service struct {
	session  *session.Store
	resume   ResumeAnalyzer
	store    object.Store
	notifier notify.Notifier
	now      func() time.Time

	mu     sync.Mutex
	step   int
	upload upload
}

// NewService wires the wizard to its session. notifier may be nil.
func NewService(store *session.Store, resume ResumeAnalyzer, objects object.Store, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Multi{}
	}
	return &Service{
		session:  store,
		resume:   resume,
		store:    objects,
		notifier: notifier,
		now:      time.Now,
	}
}

// Session exposes the underlying store.
func (s *Service) Session() *session.Store {
	return s.session
}

// Begin starts a fresh session on the first step.
func (s *Service) Begin(ctx context.Context) State {
	s.session.Start(ctx)
	s.restart(ctx, 0)
	return s.State()
}

// ResumeSaved restores saved progress and moves to the first step that
// still needs answers. A session that is already running keeps its step.
func (s *Service) ResumeSaved(ctx context.Context) State {
	before := s.session.Snapshot()
	snap := s.session.Resume(ctx)
	if before.Active && snap.SessionID == before.SessionID {
		return s.State()
	}
	s.restart(ctx, firstIncomplete(snap.Answers))
	return s.State()
}

// Reset clears saved progress and returns to the idle state.
func (s *Service) Reset(ctx context.Context) State {
	s.session.Clear(ctx)
	s.restart(ctx, 0)
	return s.State()
}

// restart moves to step and drops the previous upload along with its
// stored objects.
func (s *Service) restart(ctx context.Context, step int) {
	s.mu.Lock()
	s.step = step
	key := s.upload.key
	s.upload = upload{}
	s.mu.Unlock()
	s.discardObjects(ctx, key)
}

func (s *Service) discardObjects(ctx context.Context, key string) {
	if key == "" || s.store == nil {
		return
	}
	for _, k := range []string{key, object.ExtractedKey(key)} {
		if err := s.store.Delete(ctx, k); err != nil {
			telemetry.Warn("resume.discard_failed", map[string]any{"key": k, "error": err.Error()})
		}
	}
}

// Answer records one answer for the current session.
func (s *Service) Answer(ctx context.Context, questionID int, value string) (State, error) {
	if _, err := s.session.RecordAnswer(ctx, questionID, value); err != nil {
		return State{}, err
	}
	return s.State(), nil
}

// Back moves one step back. It never goes below the first step.
func (s *Service) Back(ctx context.Context) (State, error) {
	if !s.session.Snapshot().Active {
		return State{}, session.ErrNotActive
	}
	s.mu.Lock()
	if s.step > 0 {
		s.step--
	}
	s.mu.Unlock()
	return s.State(), nil
}

// Next advances when the current step is complete. On the last step it
// submits the session; async returns as soon as the analysis has started.
func (s *Service) Next(ctx context.Context, async bool) (State, error) {
	snap := s.session.Snapshot()
	switch {
	case snap.Analyzing:
		return State{}, session.ErrSubmitInProgress
	case !snap.Active:
		return State{}, session.ErrNotActive
	}

	s.mu.Lock()
	step := s.step
	if !s.stepCompleteLocked(step, snap) {
		s.mu.Unlock()
		return State{}, ErrStepIncomplete
	}
	if step < len(Steps)-1 {
		s.step++
		s.mu.Unlock()
		return s.State(), nil
	}
	resume := s.upload.analysis
	text := s.upload.text
	s.mu.Unlock()

	if async {
		err := s.session.SubmitAsync(ctx, nil, resume, text, func(res assessment.Result, err error) {
			s.publishResult(snap.SessionID, err)
		})
		if err != nil {
			return State{}, err
		}
		return s.State(), nil
	}

	_, err := s.session.Submit(ctx, nil, resume, text)
	s.publishResult(snap.SessionID, err)
	if err != nil {
		return State{}, err
	}
	return s.State(), nil
}

// UploadResume validates, stores and extracts a resume, then analyzes it.
// The analysis and text are kept for the final submission.
func (s *Service) UploadResume(ctx context.Context, fileName, contentType string, size int64, r io.Reader) (ResumeDocument, error) {
	if err := extract.Validate(contentType, size); err != nil {
		metrics.IncResumeUploadRejected()
		return ResumeDocument{}, err
	}

	snap := s.session.Snapshot()
	switch {
	case snap.Analyzing:
		return ResumeDocument{}, session.ErrSubmitInProgress
	case !snap.Active:
		return ResumeDocument{}, session.ErrNotActive
	}
	sessionID := snap.SessionID

	s.mu.Lock()
	if s.upload.inFlight && s.upload.sessionID == sessionID {
		s.mu.Unlock()
		return ResumeDocument{}, ErrUploadInProgress
	}
	previous := ""
	if s.upload.sessionID == sessionID {
		previous = s.upload.key
	}
	s.upload = upload{sessionID: sessionID, inFlight: true, fileName: fileName, key: previous}
	s.mu.Unlock()

	doc, err := s.processUpload(ctx, sessionID, fileName, r)

	s.mu.Lock()
	if s.upload.sessionID != sessionID || s.session.Snapshot().SessionID != sessionID {
		s.mu.Unlock()
		s.discardObjects(context.Background(), doc.key)
		return ResumeDocument{}, session.ErrSessionReset
	}
	if err != nil {
		s.upload = upload{sessionID: sessionID}
		s.mu.Unlock()
		s.discardObjects(context.Background(), previous)
		s.discardObjects(context.Background(), doc.key)
		return ResumeDocument{}, err
	}
	s.upload = upload{
		sessionID: sessionID,
		fileName:  fileName,
		key:       doc.key,
		text:      doc.text,
		analysis:  doc.Analysis,
		sections:  doc.Sections,
	}
	s.mu.Unlock()
	s.discardObjects(context.Background(), previous)
	return doc.ResumeDocument, nil
}

type processed struct {
	ResumeDocument
	key  string
	text string
}

func (s *Service) processUpload(ctx context.Context, sessionID, fileName string, r io.Reader) (processed, error) {
	if s.store == nil {
		return processed{}, errors.New("resume storage not configured")
	}
	up, err := s.store.SaveUpload(ctx, sessionID, fileName, r)
	if err != nil {
		return processed{}, err
	}

	text, err := extract.ExtractText(ctx, s.store, up.Key)
	if err != nil {
		var parseErr *extract.ParseError
		if errors.As(err, &parseErr) {
			metrics.IncResumeUploadFailed()
		}
		telemetry.Warn("resume.extract_failed", map[string]any{
			"session_id": sessionID,
			"request_id": analysis.RequestIDFromContext(ctx),
			"error":      err.Error(),
		})
		return processed{key: up.Key}, err
	}
	sections := extract.ParseSections(text)

	onProgress := func(message string) {
		if s.session.SetProgressFor(sessionID, message) {
			s.publish(sessionID, notify.StageResumeUpload, message)
		}
	}
	var ra assessment.ResumeAnalysis
	if s.resume != nil {
		ra = s.resume.AnalyzeResumeDocument(ctx, text, onProgress)
	} else {
		ra = analysis.FallbackResumeAnalysis()
	}
	s.session.SetProgressFor(sessionID, "")

	telemetry.Info("resume.analyzed", map[string]any{
		"session_id": sessionID,
		"score":      ra.OverallScore,
		"source":     ra.Source,
	})
	return processed{
		ResumeDocument: ResumeDocument{FileName: fileName, Analysis: &ra, Sections: &sections},
		key:            up.Key,
		text:           text,
	}, nil
}

// State returns the session snapshot with the wizard position.
func (s *Service) State() State {
	snap := s.session.Snapshot()
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		State:      snap,
		Step:       Steps[s.step],
		StepIndex:  s.step,
		Steps:      append([]Step(nil), Steps...),
		CanAdvance: snap.Status == session.StatusActive && s.stepCompleteLocked(s.step, snap),
	}
	if s.upload.sessionID != "" && s.upload.sessionID == snap.SessionID {
		st.ResumeDocument = &ResumeDocument{
			FileName:  s.upload.fileName,
			Uploading: s.upload.inFlight,
			Analysis:  s.upload.analysis,
			Sections:  s.upload.sections,
		}
	}
	return st
}

// OnProgress forwards analysis progress to the notifier. It is installed as
// the session store's progress observer.
func (s *Service) OnProgress(sessionID, message string) {
	s.publish(sessionID, notify.StageAnalysis, message)
}

func (s *Service) stepCompleteLocked(step int, snap session.State) bool {
	if Steps[step] == StepResumeUpload {
		return s.upload.sessionID == snap.SessionID && !s.upload.inFlight && s.upload.analysis != nil
	}
	return categoryAnswered(assessment.Category(Steps[step]), snap.Answers)
}

func (s *Service) publishResult(sessionID string, err error) {
	if err != nil {
		telemetry.Warn("session.submit_failed", map[string]any{"session_id": sessionID, "error": err.Error()})
		return
	}
	s.publish(sessionID, notify.StageComplete, "Analysis complete")
}

func (s *Service) publish(sessionID, stage, message string) {
	update := notify.Update{SessionID: sessionID, Stage: stage, Message: message, Timestamp: s.now().UTC()}
	if err := s.notifier.Publish(context.Background(), update); err != nil {
		telemetry.Warn("notify.publish_failed", map[string]any{"session_id": sessionID, "stage": stage, "error": err.Error()})
	}
}

func categoryAnswered(c assessment.Category, answers assessment.Answers) bool {
	for _, id := range assessment.QuestionIDs(c) {
		if answers.Get(id) == "" {
			return false
		}
	}
	return true
}

func firstIncomplete(answers assessment.Answers) int {
	for i, step := range Steps {
		if step == StepResumeUpload {
			return i
		}
		if !categoryAnswered(assessment.Category(step), answers) {
			return i
		}
	}
	return 0
}
