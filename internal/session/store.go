// Package session owns the state of a single assessment attempt: the
// countdown, recorded answers, the in-flight analysis and the final result.
package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"readiness-backend/internal/analysis"
	"readiness-backend/internal/assessment"
	"readiness-backend/internal/progress"
	"readiness-backend/internal/shared/metrics"
	"readiness-backend/internal/shared/telemetry"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusActive    Status = "active"
	StatusAnalyzing Status = "analyzing"
	StatusComplete  Status = "complete"
)

// DefaultDuration is the countdown length of a new session.
const DefaultDuration = 300 * time.Second

// Analyzer produces the report for a submitted session. Implementations must
// not fail; the analysis gateway satisfies this.
type Analyzer interface {
	Analyze(ctx context.Context, answers assessment.Answers, resumeText string, onProgress analysis.ProgressFunc) assessment.Result
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, answers assessment.Answers, resumeText string, onProgress analysis.ProgressFunc) assessment.Result

func (f AnalyzerFunc) Analyze(ctx context.Context, answers assessment.Answers, resumeText string, onProgress analysis.ProgressFunc) assessment.Result {
	return f(ctx, answers, resumeText, onProgress)
}

// Options configure a Store.
type Options struct {
	// Key identifies the persisted progress record.
	Key      string
	Duration time.Duration
	Now      func() time.Time
	// TickInterval drives Run. Defaults to one second.
	TickInterval time.Duration
	// OnProgress observes progress messages of the running analysis.
	OnProgress func(sessionID, message string)
}

// State is a read-only snapshot of the session.
type State struct {
	SessionID        string             `json:"sessionId,omitempty"`
	Status           Status             `json:"status"`
	Active           bool               `json:"active"`
	Analyzing        bool               `json:"analyzing"`
	StartedAt        *time.Time         `json:"startedAt,omitempty"`
	RemainingSeconds int                `json:"remainingSeconds"`
	Answers          assessment.Answers `json:"answers"`
	ProgressMessage  string             `json:"progressMessage,omitempty"`
	Results          *assessment.Result `json:"results"`
	HasSavedProgress bool               `json:"hasSavedProgress"`
}

// Store is the single owner of session state. All methods are safe for
// concurrent use.
type Store struct {
	repo     progress.Repo
	analyzer Analyzer
	key      string
	duration int
	now      func() time.Time
	interval time.Duration
	observer func(sessionID, message string)

	mu         sync.Mutex
	status     Status
	generation string
	startedAt  time.Time
	remaining  int
	answers    assessment.Answers
	message    string
	results    *assessment.Result
	hasSaved   bool
	seq        uint64

	persistMu    sync.Mutex
	persistedSeq uint64

	wg sync.WaitGroup
}

// New returns an idle store.
func New(repo progress.Repo, analyzer Analyzer, opts Options) *Store {
	if repo == nil {
		repo = progress.NewMemoryRepo()
	}
	if opts.Key == "" {
		opts.Key = "default"
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &Store{
		repo:     repo,
		analyzer: analyzer,
		key:      opts.Key,
		duration: int(opts.Duration / time.Second),
		now:      opts.Now,
		interval: opts.TickInterval,
		observer: opts.OnProgress,
		status:   StatusIdle,
		answers:  assessment.Answers{},
	}
}

// Load reads the persisted record to decide whether resumable progress exists.
func (s *Store) Load(ctx context.Context) bool {
	rec, err := s.repo.Load(ctx, s.key)
	saved := err == nil && len(rec.Answers) > 0
	if err != nil && !errors.Is(err, progress.ErrNotFound) {
		telemetry.Warn("progress.load_failed", map[string]any{"key": s.key, "error": err.Error()})
	}

	s.mu.Lock()
	s.hasSaved = saved
	s.mu.Unlock()
	return saved
}

// Start begins a fresh session from any state and discards saved progress.
func (s *Store) Start(ctx context.Context) State {
	s.mu.Lock()
	s.reset(StatusActive)
	s.startedAt = s.now()
	s.remaining = s.duration
	seq := s.nextSeq()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	metrics.IncAssessmentStarted()
	telemetry.Info("session.start", map[string]any{"session_id": snap.SessionID})
	s.deleteRecord(ctx, seq)
	return snap
}

// Resume restores the persisted session. A missing or unreadable record
// starts a new session instead. An active session is left untouched.
func (s *Store) Resume(ctx context.Context) State {
	if snap := s.Snapshot(); snap.Active {
		return snap
	}
	rec, err := s.repo.Load(ctx, s.key)
	if err != nil {
		if !errors.Is(err, progress.ErrNotFound) {
			telemetry.Warn("session.resume_failed", map[string]any{"key": s.key, "error": err.Error()})
		}
		return s.Start(ctx)
	}

	s.mu.Lock()
	if s.status == StatusActive || s.status == StatusAnalyzing {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	s.reset(StatusActive)
	for id, v := range rec.Answers {
		s.answers[id] = v
	}
	s.startedAt = s.now()
	if rec.StartTime > 0 {
		s.startedAt = time.UnixMilli(rec.StartTime)
	}
	s.remaining = s.duration
	if rec.TimeRemaining > 0 {
		s.remaining = rec.TimeRemaining
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	telemetry.Info("session.resume", map[string]any{"session_id": snap.SessionID, "answers": len(snap.Answers)})
	return snap
}

// Clear erases saved progress and returns to Idle from any state. An
// analysis still running for the old session is discarded when it returns.
func (s *Store) Clear(ctx context.Context) State {
	s.mu.Lock()
	s.reset(StatusIdle)
	s.generation = ""
	seq := s.nextSeq()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	telemetry.Info("session.clear", nil)
	s.deleteRecord(ctx, seq)
	return snap
}

// RecordAnswer merges one answer and persists progress.
func (s *Store) RecordAnswer(ctx context.Context, questionID int, value string) (State, error) {
	if _, ok := assessment.QuestionByID(questionID); !ok {
		return State{}, ErrUnknownQuestion
	}

	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return State{}, ErrNotActive
	}
	s.answers[questionID] = value
	rec, seq := s.recordLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.saveRecord(ctx, rec, seq)
	return snap, nil
}

// Tick advances the countdown by one second while Active and not analyzing.
// The countdown stops at zero; expiry does not submit.
func (s *Store) Tick(ctx context.Context) int {
	s.mu.Lock()
	if s.status != StatusActive || s.remaining == 0 {
		remaining := s.remaining
		s.mu.Unlock()
		return remaining
	}
	s.remaining--
	remaining := s.remaining
	if len(s.answers) == 0 {
		s.mu.Unlock()
		return remaining
	}
	rec, seq := s.recordLocked()
	s.mu.Unlock()

	s.saveRecord(ctx, rec, seq)
	return remaining
}

// Run ticks the countdown until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// submission is an accepted submit waiting for its analysis.
type submission struct {
	generation string
	answers    assessment.Answers
	elapsed    time.Duration
	resume     *assessment.ResumeAnalysis
	resumeText string
}

// Submit runs the analysis for the active session. answers are merged over
// the recorded ones; resumeAnalysis is attached to the result unchanged.
// Only one submission may run at a time.
func (s *Store) Submit(ctx context.Context, answers assessment.Answers, resumeAnalysis *assessment.ResumeAnalysis, resumeText string) (assessment.Result, error) {
	sub, err := s.beginSubmit(ctx, answers, resumeAnalysis, resumeText)
	if err != nil {
		return assessment.Result{}, err
	}
	return s.finishSubmit(ctx, sub)
}

// SubmitAsync accepts the submission synchronously and runs the analysis in
// the background. done, when set, receives the outcome.
func (s *Store) SubmitAsync(ctx context.Context, answers assessment.Answers, resumeAnalysis *assessment.ResumeAnalysis, resumeText string, done func(assessment.Result, error)) error {
	sub, err := s.beginSubmit(ctx, answers, resumeAnalysis, resumeText)
	if err != nil {
		return err
	}

	bg := analysis.BackgroundWithRequestID(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, err := s.finishSubmit(bg, sub)
		if done != nil {
			done(result, err)
		}
	}()
	return nil
}

// Wait blocks until background submissions have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) beginSubmit(ctx context.Context, answers assessment.Answers, resumeAnalysis *assessment.ResumeAnalysis, resumeText string) (submission, error) {
	s.mu.Lock()
	switch s.status {
	case StatusAnalyzing:
		s.mu.Unlock()
		return submission{}, ErrSubmitInProgress
	case StatusActive:
	default:
		s.mu.Unlock()
		return submission{}, ErrNotActive
	}
	for id, v := range answers {
		s.answers[id] = v
	}
	s.status = StatusAnalyzing
	s.message = ""
	sub := submission{
		generation: s.generation,
		answers:    s.answers.Clone(),
		elapsed:    s.now().Sub(s.startedAt),
		resumeText: resumeText,
	}
	if resumeAnalysis != nil {
		ra := *resumeAnalysis
		sub.resume = &ra
	}
	seq := s.nextSeq()
	s.mu.Unlock()

	s.deleteRecord(ctx, seq)
	telemetry.Info("session.submit", map[string]any{
		"session_id": sub.generation,
		"request_id": analysis.RequestIDFromContext(ctx),
		"answers":    len(sub.answers),
	})
	return sub, nil
}

func (s *Store) finishSubmit(ctx context.Context, sub submission) (assessment.Result, error) {
	result := s.analyze(ctx, sub.generation, sub.answers, sub.resumeText)
	result.TimeSpent = timeSpent(sub.elapsed)
	result.ResumeDocumentAnalysis = sub.resume
	result.NonNil()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != sub.generation || s.status != StatusAnalyzing {
		telemetry.Warn("session.result_discarded", map[string]any{"session_id": sub.generation})
		return assessment.Result{}, ErrSessionReset
	}
	s.results = &result
	s.status = StatusComplete
	s.message = ""
	metrics.IncAssessmentCompleted()
	return result, nil
}

func (s *Store) analyze(ctx context.Context, generation string, answers assessment.Answers, resumeText string) (result assessment.Result) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("session.analyzer_panic", map[string]any{"session_id": generation, "panic": r})
			result = analysis.FallbackResult()
		}
	}()
	if s.analyzer == nil {
		return analysis.FallbackResult()
	}
	return s.analyzer.Analyze(ctx, answers, resumeText, func(message string) {
		s.setProgress(generation, message)
	})
}

// SetProgressFor updates the transient progress text when sessionID is
// still the current session. It reports whether the text was applied and
// never notifies the observer.
func (s *Store) SetProgressFor(sessionID, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sessionID == "" || s.generation != sessionID {
		return false
	}
	s.message = message
	return true
}

func (s *Store) setProgress(generation, message string) {
	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		return
	}
	s.message = message
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(generation, message)
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) reset(status Status) {
	s.status = status
	s.generation = uuid.NewString()
	s.startedAt = time.Time{}
	s.remaining = 0
	s.answers = assessment.Answers{}
	s.message = ""
	s.results = nil
	s.hasSaved = false
}

func (s *Store) snapshotLocked() State {
	st := State{
		SessionID:        s.generation,
		Status:           s.status,
		Active:           s.status == StatusActive || s.status == StatusAnalyzing,
		Analyzing:        s.status == StatusAnalyzing,
		RemainingSeconds: s.remaining,
		Answers:          s.answers.Clone(),
		ProgressMessage:  s.message,
		HasSavedProgress: s.hasSaved,
	}
	if !s.startedAt.IsZero() {
		started := s.startedAt
		st.StartedAt = &started
	}
	if s.results != nil {
		res := *s.results
		st.Results = &res
	}
	return st
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) recordLocked() (progress.Record, uint64) {
	rec := progress.Record{
		Answers:       map[int]string(s.answers.Clone()),
		StartTime:     s.startedAt.UnixMilli(),
		TimeRemaining: s.remaining,
		Timestamp:     s.now().UnixMilli(),
	}
	return rec, s.nextSeq()
}

// saveRecord and deleteRecord apply writes in sequence order; a write older
// than the last applied one is dropped. Failures are logged, never returned.
func (s *Store) saveRecord(ctx context.Context, rec progress.Record, seq uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if seq <= s.persistedSeq {
		return
	}
	s.persistedSeq = seq
	if err := s.repo.Save(ctx, s.key, rec); err != nil {
		telemetry.Warn("progress.persist_failed", map[string]any{"key": s.key, "error": err.Error()})
	}
}

func (s *Store) deleteRecord(ctx context.Context, seq uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if seq <= s.persistedSeq {
		return
	}
	s.persistedSeq = seq
	if err := s.repo.Delete(ctx, s.key); err != nil {
		telemetry.Warn("progress.delete_failed", map[string]any{"key": s.key, "error": err.Error()})
	}
}

func timeSpent(elapsed time.Duration) int {
	if elapsed < 0 {
		return 0
	}
	return int(math.Floor(elapsed.Seconds()))
}
