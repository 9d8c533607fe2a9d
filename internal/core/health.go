package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the whole /health request.
const healthCheckTimeout = 2 * time.Second

var errCheckTimedOut = errors.New("check timed out")

// HealthCheck reports whether one upstream the bot depends on is usable.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// healthReport is the /health body. Dependencies maps each check name to
// "ok" or the failure message.
type healthReport struct {
	Status       string            `json:"status"`
	Sessions     *int              `json:"sessions,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HandleHealth reports the live conversation count and the state of every
// registered dependency. Any failing or slow check turns the answer into 503.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	report := healthReport{Status: "healthy"}
	if s.SessionCount != nil {
		n := s.SessionCount()
		report.Sessions = &n
	}

	status := http.StatusOK
	if len(s.HealthChecks) > 0 {
		report.Dependencies = make(map[string]string, len(s.HealthChecks))
		for name, err := range runHealthChecks(ctx, s.HealthChecks) {
			if err != nil {
				report.Dependencies[name] = err.Error()
				report.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			report.Dependencies[name] = "ok"
		}
	}
	JSON(w, r, status, report)
}

type checkResult struct {
	name string
	err  error
}

// runHealthChecks runs every check concurrently and returns once all have
// answered or ctx expires. Checks that did not answer in time report
// errCheckTimedOut.
func runHealthChecks(ctx context.Context, checks []HealthCheck) map[string]error {
	results := make(chan checkResult, len(checks))
	for _, c := range checks {
		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					results <- checkResult{name: c.Name(), err: fmt.Errorf("check panicked: %v", rec)}
				}
			}()
			results <- checkResult{name: c.Name(), err: c.Check(ctx)}
		}()
	}

	out := make(map[string]error, len(checks))
	for _, c := range checks {
		out[c.Name()] = errCheckTimedOut
	}
	for range checks {
		select {
		case res := <-results:
			out[res.name] = res.err
		case <-ctx.Done():
			return out
		}
	}
	return out
}
