package core

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds a whole /health request. Probes still running
// when it expires are reported as timed out.
const healthCheckTimeout = 2 * time.Second

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthProbe checks one dependency, such as the loaded reference tables.
type HealthProbe interface {
	// Name identifies the probe in the response, e.g. "reference_tables".
	Name() string

	// Check returns nil when the dependency is usable. It must honour ctx.
	Check(ctx context.Context) error
}

// ProbeFunc adapts a named function to the HealthProbe interface.
type ProbeFunc struct {
	ProbeName string
	Fn        func(ctx context.Context) error
}

// Name implements HealthProbe.
func (p ProbeFunc) Name() string { return p.ProbeName }

// Check implements HealthProbe.
func (p ProbeFunc) Check(ctx context.Context) error { return p.Fn(ctx) }

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

type probeOutcome struct {
	index int
	err   error
}

// HandleHealth runs every probe concurrently and answers 200 when all pass,
// 503 otherwise. Mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	probes := s.HealthProbes
	resp := healthResponse{Status: statusHealthy, Version: s.version()}
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	// Buffered so late probes never block after the handler has returned.
	outcomes := make(chan probeOutcome, len(probes))
	for i, p := range probes {
		go func() {
			outcomes <- probeOutcome{index: i, err: runProbe(ctx, p)}
		}()
	}

	errs := make([]error, len(probes))
	done := make([]bool, len(probes))
collect:
	for range probes {
		select {
		case o := <-outcomes:
			errs[o.index], done[o.index] = o.err, true
		case <-ctx.Done():
			break collect
		}
	}

	resp.Components = make(map[string]componentStatus, len(probes))
	for i, p := range probes {
		c := componentStatus{Status: statusHealthy}
		switch {
		case !done[i]:
			c = componentStatus{Status: statusUnhealthy, Message: "health check timed out"}
		case errs[i] != nil:
			c = componentStatus{Status: statusUnhealthy, Message: errs[i].Error()}
		}
		if c.Status != statusHealthy {
			resp.Status = statusUnhealthy
		}
		resp.Components[p.Name()] = c
	}

	status := http.StatusOK
	if resp.Status != statusHealthy {
		status = http.StatusServiceUnavailable
	}
	JSON(w, r, status, resp)
}

// runProbe converts a panicking probe into an error.
func runProbe(ctx context.Context, p HealthProbe) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("probe panicked: %v", rvr)
		}
	}()
	return p.Check(ctx)
}

func (s *Server) version() string {
	if s.Config == nil {
		return ""
	}
	return s.Config.Build.Version
}
