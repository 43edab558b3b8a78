package health

import (
	"context"
	"time"
)

// Status is the aggregated health of the service.
type Status string

const (
	// Healthy means every component answered.
	Healthy Status = "ok"
	// Degraded means the store is unreachable. Browsing still works from the
	// dataset but image caching is off.
	Degraded Status = "degraded"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
	CheckEmpty CheckResult = "empty" // dataset loaded with zero rows
)

const defaultPingTimeout = 2 * time.Second

// Report is a point-in-time health snapshot.
type Report struct {
	Status   Status
	Checks   map[string]CheckResult
	Records  int // rows in the loaded dataset
	Sessions int // live sessions
}

// Service runs health checks.
type Service struct {
	store       StorePinger
	dataset     DatasetSizer
	sessions    SessionCounter
	pingTimeout time.Duration
}

// New creates a Service. dataset and sessions may be nil.
func New(store StorePinger, dataset DatasetSizer, sessions SessionCounter) *Service {
	return &Service{
		store:       store,
		dataset:     dataset,
		sessions:    sessions,
		pingTimeout: defaultPingTimeout,
	}
}

// Check pings the store and inspects the dataset.
// An empty dataset is reported but does not degrade the service.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{Status: Healthy, Checks: make(map[string]CheckResult, 2)}

	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	if err := s.store.Ping(pingCtx); err != nil {
		r.Checks["store"] = CheckError
		r.Status = Degraded
	} else {
		r.Checks["store"] = CheckOK
	}

	if s.dataset != nil {
		r.Records = s.dataset.Len()
		r.Checks["dataset"] = CheckOK
		if r.Records == 0 {
			r.Checks["dataset"] = CheckEmpty
		}
	}

	if s.sessions != nil {
		r.Sessions = s.sessions.Active()
	}
	return r
}
