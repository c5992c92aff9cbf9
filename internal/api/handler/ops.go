// Package handler provides HTTP handlers for the HarvestIQ API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/harvestiq/harvestiq/internal/api/models"
	"github.com/harvestiq/harvestiq/internal/api/response"
	"github.com/harvestiq/harvestiq/internal/provider/resilience"
)

// CheckFunc reports whether a subsystem is usable.
type CheckFunc func(ctx context.Context) error

// Subsystem is a dependency probed by the readiness and status endpoints.
// Critical subsystems fail readiness; the rest only degrade status.
type Subsystem struct {
	Name     string
	Check    CheckFunc
	Critical bool
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	registry   *resilience.Registry
	subsystems []Subsystem
}

// OpsConfig holds configuration for the ops handler.
type OpsConfig struct {
	Version    string
	BuildTime  string
	Registry   *resilience.Registry
	Subsystems []Subsystem
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:    cfg.Version,
		buildTime:  cfg.BuildTime,
		registry:   cfg.Registry,
		subsystems: cfg.Subsystems,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Returns 503
// when a critical subsystem is down.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	details := map[string]interface{}{}
	status := models.HealthStatusOK

	for _, s := range h.subsystems {
		if !s.Critical {
			continue
		}
		if err := s.Check(r.Context()); err != nil {
			status = models.HealthStatusFail
			details[s.Name] = err.Error()
			continue
		}
		details[s.Name] = "ok"
	}

	health := models.Health{
		Status:  status,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	}

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: make([]models.SubsystemStatus, 0, len(h.subsystems)),
		Upstreams:  []models.UpstreamStatus{},
	}

	for _, s := range h.subsystems {
		sub := models.SubsystemStatus{Name: s.Name, Critical: s.Critical, Status: models.HealthStatusOK}
		if err := s.Check(r.Context()); err != nil {
			detail := err.Error()
			sub.Detail = &detail
			if s.Critical {
				sub.Status = models.HealthStatusFail
				status.Status = models.HealthStatusFail
			} else {
				sub.Status = models.HealthStatusDegraded
				status.Status = worse(status.Status, models.HealthStatusDegraded)
			}
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.registry != nil {
		for _, p := range h.registry.GetAllHealth() {
			us := models.UpstreamStatus{
				Name:    p.Name,
				Status:  providerStatus(p),
				Circuit: resilience.CircuitLabel(p.CircuitState),
			}
			if p.LastSuccessAt != nil {
				ts := models.Timestamp(*p.LastSuccessAt)
				us.LastSuccessAt = &ts
			}
			if p.LastFailureAt != nil {
				ts := models.Timestamp(*p.LastFailureAt)
				us.LastFailureAt = &ts
			}
			if p.LastError != "" {
				msg := p.LastError
				us.Message = &msg
			}
			if us.Status != models.HealthStatusOK {
				// Forecasts fall back to reference data rather than failing
				status.Fallbacks = append(status.Fallbacks, p.Name+"-reference")
			}
			status.Upstreams = append(status.Upstreams, us)
		}

		// Upstream outages degrade forecasts but never fail the API
		if h.registry.Overall() != resilience.StatusHealthy {
			status.Status = worse(status.Status, models.HealthStatusDegraded)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(p *resilience.ProviderHealth) models.HealthStatus {
	switch {
	case p.IsUnhealthy():
		return models.HealthStatusFail
	case p.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func worse(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{
		models.HealthStatusOK:       0,
		models.HealthStatusDegraded: 1,
		models.HealthStatusFail:     2,
	}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
