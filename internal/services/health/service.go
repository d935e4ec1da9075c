package health

import (
	"context"
	"time"
)

// Pinger is anything whose reachability matters for readiness, such as a
// *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	OK            bool              `json:"ok"`
	ProgressStore string            `json:"progressStore"`
	LLMProvider   string            `json:"llmProvider"`
	AnalysisMode  string            `json:"analysisMode"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// Service encapsulates health-related checks.
type Service struct {
	progressStore string
	llmProvider   string
	analysisMode  string
	pingers       map[string]Pinger
	timeout       time.Duration
}

// NewService constructs a new health service.
func NewService(progressStore, llmProvider, analysisMode string) *Service {
	return &Service{
		progressStore: progressStore,
		llmProvider:   llmProvider,
		analysisMode:  analysisMode,
		pingers:       map[string]Pinger{},
		timeout:       2 * time.Second,
	}
}

// AddCheck registers a dependency checked on every Status call.
func (s *Service) AddCheck(name string, p Pinger) {
	if p != nil {
		s.pingers[name] = p
	}
}

// Status reports configuration and the result of each dependency check.
func (s *Service) Status(ctx context.Context) Status {
	out := Status{
		OK:            true,
		ProgressStore: s.progressStore,
		LLMProvider:   s.llmProvider,
		AnalysisMode:  s.analysisMode,
	}
	if len(s.pingers) == 0 {
		return out
	}
	out.Checks = make(map[string]string, len(s.pingers))
	for name, p := range s.pingers {
		pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := p.PingContext(pingCtx)
		cancel()
		if err != nil {
			out.OK = false
			out.Checks[name] = err.Error()
			continue
		}
		out.Checks[name] = "ok"
	}
	return out
}
