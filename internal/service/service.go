package service

import (
	"context"
	"io"
	"time"

	"smart_environment/internal/chart"
	"smart_environment/internal/models"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
	TokenTTL() time.Duration
}

// Dashboard is the presentation boundary: three reads and one command.
type Dashboard interface {
	CurrentSample() (models.Sample, bool)
	ChartSnapshot() []models.Sample
	CurrentInsight() (models.Insight, bool)
	RefreshNow(ctx context.Context) error
	View() models.DashboardView
	RenderChart(w io.Writer, opts chart.Options) error
}

// Polling exposes scheduler control.
type Polling interface {
	Start(interval time.Duration) error
	Stop()
	SetMode(mode models.Mode) error
	Mode() models.Mode
	Status() models.PollingStatus
}

// EventLog exposes the activity journal with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.DashboardEvent, error)
}

// OfflineCache serves dashboard assets, cache first.
type OfflineCache interface {
	Install(ctx context.Context) error
	Serve(ctx context.Context, path string) (models.Asset, bool, error)
	Paths(ctx context.Context) ([]string, error)
	Name() string
}

// Service aggregates all sub-services.
type Service struct {
	Dashboard
	Polling
	EventLog
	OfflineCache
	Authorization
}

// Deps carries the already-built components NewService wires together.
type Deps struct {
	Scheduler *Scheduler
	Journal   *EventLogService
	Cache     *OfflineCacheService
	Auth      *AuthService
}

func NewService(d Deps) *Service {
	return &Service{
		Dashboard:     NewDashboardService(d.Scheduler),
		Polling:       d.Scheduler,
		EventLog:      d.Journal,
		OfflineCache:  d.Cache,
		Authorization: d.Auth,
	}
}
