package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthController reports process and dependency health. Mongo is required; every other check is
// reported but does not fail the endpoint.
type HealthController struct {
	service  string
	required map[string]HealthCheck
	optional map[string]HealthCheck
}

func NewHealthController(service string) *HealthController {
	return &HealthController{
		service:  service,
		required: map[string]HealthCheck{},
		optional: map[string]HealthCheck{},
	}
}

// Require adds a check whose failure turns the endpoint into a 503.
func (hc *HealthController) Require(name string, check HealthCheck) *HealthController {
	hc.required[name] = check
	return hc
}

// Observe adds a check that is reported but never fails the endpoint.
func (hc *HealthController) Observe(name string, check HealthCheck) *HealthController {
	hc.optional[name] = check
	return hc
}

// Health handles GET /health.
func (hc *HealthController) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, check := range hc.required {
		if err := check(checkCtx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}
	for name, check := range hc.optional {
		if err := check(checkCtx); err != nil {
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	label := "OK"
	if status != http.StatusOK {
		label = "DEGRADED"
	}
	ctx.JSON(status, gin.H{"status": label, "service": hc.service, "checks": checks})
}
