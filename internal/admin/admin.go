// Package admin implements the read/write control-surface contracts: the
// search configuration document, provider CRUD and priority management,
// and monitoring aggregates over the five standard time ranges. Prompt
// template and A/B test CRUD live directly on decision.TemplateRegistry
// and decision.TestRegistry (they are already admin-shaped contracts);
// this package composes them alongside the two surfaces with no existing
// home so every control-surface contract in the spec has a single Go API,
// independent of however an HTTP or gRPC layer eventually exposes it.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/bmeyer99/docaiche/internal/config"
	"github.com/bmeyer99/docaiche/internal/external"
	"github.com/bmeyer99/docaiche/internal/obs"
)

// ConfigSurface exposes the search configuration document as a
// read/write admin contract, logging every mutation to a ChangeLog.
type ConfigSurface struct {
	reloader *config.Reloader
	log      *config.ChangeLog
	path     string
}

// NewConfigSurface builds a ConfigSurface backed by reloader, whose
// Current() is the surface's read path and whose file on disk is the
// surface's write target.
func NewConfigSurface(reloader *config.Reloader, path string, log *config.ChangeLog) *ConfigSurface {
	if log == nil {
		log = config.NewChangeLog()
	}
	return &ConfigSurface{reloader: reloader, log: log, path: path}
}

// Get returns the currently active configuration document.
func (s *ConfigSurface) Get() *config.Config {
	return s.reloader.Current()
}

// Update replaces the configuration document, persists it, and records
// the mutation. The reloader's own file watch picks up the write and
// republishes it to subscribers, so callers do not need to push the new
// value themselves.
func (s *ConfigSurface) Update(actor, section, comment string, next *config.Config) error {
	prior := s.reloader.Current()
	config.ApplyDefaults(next)
	if err := config.Save(s.path, next); err != nil {
		return fmt.Errorf("admin: update config: %w", err)
	}
	s.log.Record(config.ChangeEntry{
		Actor:      actor,
		Timestamp:  time.Now(),
		Section:    section,
		PriorValue: prior,
		NewValue:   next,
		Comment:    comment,
	})
	return nil
}

// ChangeHistory returns the configuration change log, optionally
// filtered to one section.
func (s *ConfigSurface) ChangeHistory(section string, offset, limit int) []config.ChangeEntry {
	return s.log.List(section, offset, limit)
}

// ProviderSurface exposes external provider CRUD, enable/disable,
// priority reorder, and test-connection as an admin contract over a
// live external.Pool.
type ProviderSurface struct {
	pool *external.Pool
}

// NewProviderSurface builds a ProviderSurface over pool.
func NewProviderSurface(pool *external.Pool) *ProviderSurface {
	return &ProviderSurface{pool: pool}
}

// List returns every provider's current admin-facing status.
func (s *ProviderSurface) List() []external.ProviderStatus {
	return s.pool.Status()
}

// SetEnabled enables or disables a provider without removing its
// registration or resetting its priority position.
func (s *ProviderSurface) SetEnabled(id string, enabled bool) error {
	return s.pool.SetEnabled(id, enabled)
}

// Reorder sets the pool's dispatch priority.
func (s *ProviderSurface) Reorder(order []string) error {
	return s.pool.Reorder(order)
}

// TestConnection issues a live reachability probe against one provider.
func (s *ProviderSurface) TestConnection(ctx context.Context, id string) error {
	return s.pool.TestConnection(ctx, id)
}

// MonitoringSurface exposes aggregate pipeline metrics over the
// {1h,6h,24h,7d,30d} admin time ranges.
type MonitoringSurface struct {
	monitor *obs.Monitor
}

// NewMonitoringSurface builds a MonitoringSurface over monitor.
func NewMonitoringSurface(monitor *obs.Monitor) *MonitoringSurface {
	return &MonitoringSurface{monitor: monitor}
}

// Report returns the aggregate snapshot for window.
func (s *MonitoringSurface) Report(window obs.MonitoringWindow) obs.Snapshot {
	return s.monitor.Aggregate(window)
}
