package service

import (
	"context"
	"io"

	"smart_environment/internal/chart"
	"smart_environment/internal/models"
)

// DashboardService is the read side the UI renders from, plus the one
// command it may issue.
type DashboardService struct {
	scheduler *Scheduler
}

func NewDashboardService(s *Scheduler) *DashboardService {
	return &DashboardService{scheduler: s}
}

func (d *DashboardService) CurrentSample() (models.Sample, bool) {
	return d.scheduler.CurrentSample()
}

func (d *DashboardService) CurrentInsight() (models.Insight, bool) {
	return d.scheduler.CurrentInsight()
}

func (d *DashboardService) ChartSnapshot() []models.Sample {
	return d.scheduler.ChartSnapshot()
}

// View bundles sample, insight, chart and status. Sample and Insight are
// nil until the first successful resolution.
func (d *DashboardService) View() models.DashboardView {
	v := models.DashboardView{
		Chart:  d.scheduler.ChartSnapshot(),
		Status: d.scheduler.Status(),
	}
	if s, ok := d.scheduler.CurrentSample(); ok {
		v.Sample = &s
	}
	if in, ok := d.scheduler.CurrentInsight(); ok {
		v.Insight = &in
	}
	return v
}

// RefreshNow resolves immediately, outside the polling schedule.
func (d *DashboardService) RefreshNow(ctx context.Context) error {
	return d.scheduler.TriggerOnce(ctx)
}

// RenderChart writes the rolling window as PNG.
func (d *DashboardService) RenderChart(w io.Writer, opts chart.Options) error {
	return chart.RenderPNG(w, d.scheduler.ChartSnapshot(), opts)
}
