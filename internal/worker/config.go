// Package worker keeps the weather cache warm for the districts dashboards ask
// about, so forecast generation rarely waits on the upstream provider.
package worker

import (
	"sort"
	"time"

	"github.com/harvestiq/harvestiq/internal/forecast"
)

// RefreshTarget is a district whose forecast is pre-fetched.
type RefreshTarget struct {
	// District is the catalog district id.
	District string

	// Location is the query sent to the weather provider. It must match the
	// query forecast generation uses, or the warmed entry is never read.
	Location string

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the weather refresh job.
type RefreshConfig struct {
	// Targets are the districts to refresh.
	// If empty, uses DefaultRefreshTargets.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent provider calls.
	// Default: 3
	Concurrency int

	// Timeout bounds each provider call.
	// Default: 30 seconds
	Timeout time.Duration

	// ForecastDays is the forecast length to fetch. It must match the length
	// forecast generation requests.
	// Default: 7
	ForecastDays int
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:      DefaultRefreshTargets(),
		Concurrency:  3,
		Timeout:      30 * time.Second,
		ForecastDays: 7,
	}
}

// DefaultRefreshTargets returns one target per catalog district, in catalog
// order.
func DefaultRefreshTargets() []RefreshTarget {
	districts := forecast.DefaultCatalog().Districts
	targets := make([]RefreshTarget, 0, len(districts))
	for i, d := range districts {
		targets = append(targets, RefreshTarget{
			District: d.ID,
			Location: d.Name,
			Priority: i + 1,
		})
	}
	return targets
}

// withDefaults fills unset fields.
func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if len(c.Targets) == 0 {
		c.Targets = def.Targets
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.ForecastDays <= 0 {
		c.ForecastDays = def.ForecastDays
	}
	return c
}

// Select returns the targets for the given district ids, in priority order.
// Unknown ids are ignored; no ids selects every target.
func (c RefreshConfig) Select(districts []string) []RefreshTarget {
	targets := c.Targets
	if len(districts) > 0 {
		want := make(map[string]bool, len(districts))
		for _, d := range districts {
			want[d] = true
		}
		targets = nil
		for _, t := range c.Targets {
			if want[t.District] {
				targets = append(targets, t)
			}
		}
	}
	return sortByPriority(targets)
}

func sortByPriority(targets []RefreshTarget) []RefreshTarget {
	out := append([]RefreshTarget(nil), targets...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}
